package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/suspectuso/earn-bot/internal/ledger"
)

// SQLite keeps the account table in a local sqlite database
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens the database at dbPath and creates the schema
func NewSQLite(dbPath string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	s := &SQLite{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection
func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) init() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS accounts (
			id INTEGER PRIMARY KEY,
			position INTEGER NOT NULL,
			balance INTEGER NOT NULL DEFAULT 0,
			last_earn_at INTEGER NOT NULL DEFAULT 0,
			referral_count INTEGER NOT NULL DEFAULT 0,
			referral_code TEXT NOT NULL,
			referred_by INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_accounts_referral_code ON accounts(referral_code)`,

		`CREATE TABLE IF NOT EXISTS withdrawals (
			id TEXT PRIMARY KEY,
			account_id INTEGER NOT NULL,
			amount INTEGER NOT NULL,
			requested_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_withdrawals_account_id ON withdrawals(account_id)`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}

	return nil
}

// LoadAll returns every account in the order it was first stored
func (s *SQLite) LoadAll(ctx context.Context) ([]ledger.Account, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, balance, last_earn_at, referral_count, referral_code, referred_by
		 FROM accounts ORDER BY position, id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []ledger.Account
	for rows.Next() {
		var a ledger.Account
		var referredBy sql.NullInt64

		err := rows.Scan(&a.ID, &a.Balance, &a.LastEarnAt, &a.ReferralCount, &a.ReferralCode, &referredBy)
		if err != nil {
			return nil, err
		}

		if referredBy.Valid {
			ref := referredBy.Int64
			a.ReferredBy = &ref
		}
		accounts = append(accounts, a)
	}

	return accounts, rows.Err()
}

// SaveAll replaces the account table and appends withdrawals in one transaction
func (s *SQLite) SaveAll(ctx context.Context, accounts []ledger.Account, withdrawals []ledger.Withdrawal) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM accounts"); err != nil {
		return fmt.Errorf("clear accounts: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO accounts (id, position, balance, last_earn_at, referral_count, referral_code, referred_by)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, a := range accounts {
		var referredBy sql.NullInt64
		if a.ReferredBy != nil {
			referredBy = sql.NullInt64{Int64: *a.ReferredBy, Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, a.ID, i, a.Balance, a.LastEarnAt, a.ReferralCount, a.ReferralCode, referredBy); err != nil {
			return fmt.Errorf("insert account %d: %w", a.ID, err)
		}
	}

	for _, w := range withdrawals {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO withdrawals (id, account_id, amount, requested_at) VALUES (?, ?, ?, ?)`,
			w.ID, w.AccountID, w.Amount, w.RequestedAt.Unix(),
		)
		if err != nil {
			return fmt.Errorf("insert withdrawal %s: %w", w.ID, err)
		}
	}

	return tx.Commit()
}

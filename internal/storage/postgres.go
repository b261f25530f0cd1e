package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/suspectuso/earn-bot/internal/ledger"
)

// Postgres keeps the account table in PostgreSQL
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects to dsn and creates the schema
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres store requires DB_SOURCE")
	}

	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	p := &Postgres{pool: pool}
	if err := p.init(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

// Close closes the pool
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

func (p *Postgres) init(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS accounts (
			id BIGINT PRIMARY KEY,
			position INTEGER NOT NULL,
			balance BIGINT NOT NULL DEFAULT 0,
			last_earn_at BIGINT NOT NULL DEFAULT 0,
			referral_count BIGINT NOT NULL DEFAULT 0,
			referral_code TEXT NOT NULL,
			referred_by BIGINT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_accounts_referral_code ON accounts(referral_code)`,
		`CREATE TABLE IF NOT EXISTS withdrawals (
			id TEXT PRIMARY KEY,
			account_id BIGINT NOT NULL,
			amount BIGINT NOT NULL,
			requested_at TIMESTAMPTZ NOT NULL
		)`,
	}

	for _, q := range queries {
		if _, err := p.pool.Exec(ctx, q); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

// LoadAll returns every account in the order it was first stored
func (p *Postgres) LoadAll(ctx context.Context) ([]ledger.Account, error) {
	rows, err := p.pool.Query(ctx,
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
		if err := rows.Scan(&a.ID, &a.Balance, &a.LastEarnAt, &a.ReferralCount, &a.ReferralCode, &a.ReferredBy); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}

	return accounts, rows.Err()
}

// SaveAll replaces the account table and appends withdrawals in one transaction
func (p *Postgres) SaveAll(ctx context.Context, accounts []ledger.Account, withdrawals []ledger.Withdrawal) error {
	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return fmt.Errorf("tx begin failed: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DELETE FROM accounts"); err != nil {
		return fmt.Errorf("clear accounts: %w", err)
	}

	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"accounts"},
		[]string{"id", "position", "balance", "last_earn_at", "referral_count", "referral_code", "referred_by"},
		pgx.CopyFromSlice(len(accounts), func(i int) ([]any, error) {
			a := accounts[i]
			return []any{a.ID, i, a.Balance, a.LastEarnAt, a.ReferralCount, a.ReferralCode, a.ReferredBy}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("copy accounts: %w", err)
	}

	if len(withdrawals) > 0 {
		batch := &pgx.Batch{}
		for _, w := range withdrawals {
			batch.Queue(
				"INSERT INTO withdrawals (id, account_id, amount, requested_at) VALUES ($1, $2, $3, $4)",
				w.ID, w.AccountID, w.Amount, w.RequestedAt,
			)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert withdrawals: %w", err)
		}
	}

	return tx.Commit(ctx)
}

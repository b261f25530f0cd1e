package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/suspectuso/earn-bot/internal/ledger"
)

// JSONFile keeps the account table in a single users.json file.
// Withdrawal requests are appended as JSON lines to a sibling file.
type JSONFile struct {
	path string
	mu   sync.Mutex
}

// NewJSONFile returns a store backed by path. The file is created on first save.
func NewJSONFile(path string) *JSONFile {
	return &JSONFile{path: path}
}

// Close is a no-op; the file is opened per call
func (j *JSONFile) Close() error {
	return nil
}

// WithdrawalsPath is the JSON lines file withdrawals are appended to
func (j *JSONFile) WithdrawalsPath() string {
	return strings.TrimSuffix(j.path, filepath.Ext(j.path)) + ".withdrawals.jsonl"
}

// LoadAll reads the users file. A missing file is an empty table.
func (j *JSONFile) LoadAll(ctx context.Context) ([]ledger.Account, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	data, err := os.ReadFile(j.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return UnmarshalUsers(data)
}

// SaveAll rewrites the users file through a temp file and rename.
// Withdrawals are appended only once the new table is staged, and are
// truncated away again if the rename fails.
func (j *JSONFile) SaveAll(ctx context.Context, accounts []ledger.Account, withdrawals []ledger.Withdrawal) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	data, err := MarshalUsers(accounts)
	if err != nil {
		return fmt.Errorf("encode users: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(j.path), 0o755); err != nil {
		return fmt.Errorf("create users dir: %w", err)
	}

	tmpName, err := stageFile(j.path, data)
	if err != nil {
		return fmt.Errorf("stage users: %w", err)
	}

	var undo func()
	if len(withdrawals) > 0 {
		undo, err = j.appendWithdrawals(withdrawals)
		if err != nil {
			os.Remove(tmpName)
			return err
		}
	}

	if err := os.Rename(tmpName, j.path); err != nil {
		os.Remove(tmpName)
		if undo != nil {
			undo()
		}
		return fmt.Errorf("replace users: %w", err)
	}

	return nil
}

// appendWithdrawals writes one JSON line per withdrawal. The returned func
// truncates the file back to its size before the append.
func (j *JSONFile) appendWithdrawals(withdrawals []ledger.Withdrawal) (func(), error) {
	path := j.WithdrawalsPath()

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open withdrawals: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat withdrawals: %w", err)
	}
	size := info.Size()
	undo := func() { os.Truncate(path, size) }

	enc := json.NewEncoder(f)
	for _, w := range withdrawals {
		rec := struct {
			ID          string `json:"id"`
			AccountID   int64  `json:"account_id"`
			Amount      int64  `json:"amount"`
			RequestedAt string `json:"requested_at"`
		}{w.ID, w.AccountID, w.Amount, w.RequestedAt.UTC().Format(time.RFC3339)}

		if err := enc.Encode(rec); err != nil {
			undo()
			return nil, fmt.Errorf("append withdrawal %s: %w", w.ID, err)
		}
	}

	return undo, nil
}

// stageFile writes data to a temp file next to path and returns its name
func stageFile(path string, data []byte) (string, error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return "", err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", err
	}

	return tmpName, nil
}

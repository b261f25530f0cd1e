package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/suspectuso/earn-bot/internal/ledger"
)

var ErrUnknownDriver = errors.New("unknown store driver")

// Store is a ledger store that owns a connection or file handle
type Store interface {
	ledger.Store
	Close() error
}

// Options selects and configures a store driver
type Options struct {
	Driver    string // sqlite, postgres or json
	DBPath    string
	DBSource  string
	UsersFile string
}

// Open opens the store selected by opts.Driver
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Driver {
	case "", "sqlite":
		return NewSQLite(opts.DBPath)
	case "postgres":
		return NewPostgres(ctx, opts.DBSource)
	case "json":
		return NewJSONFile(opts.UsersFile), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, opts.Driver)
	}
}

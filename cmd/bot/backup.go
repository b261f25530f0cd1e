package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/suspectuso/earn-bot/internal/ledger"
	"github.com/suspectuso/earn-bot/internal/storage"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Write one ledger snapshot to BACKUP_DIR (and S3_BUCKET if set)",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		job, err := newBackupJob(ctx, storeSource{store}, nil)
		if err != nil {
			return err
		}

		path, err := job.Run(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Backup written to %s\n", path)
		return nil
	},
}

// storeSource snapshots straight from the store when no engine is running
type storeSource struct {
	store storage.Store
}

func (s storeSource) Snapshot(ctx context.Context) ([]ledger.Account, error) {
	return s.store.LoadAll(ctx)
}

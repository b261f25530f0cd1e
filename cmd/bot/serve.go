package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"

	"github.com/suspectuso/earn-bot/internal/backup"
	"github.com/suspectuso/earn-bot/internal/commands"
	"github.com/suspectuso/earn-bot/internal/dedup"
	"github.com/suspectuso/earn-bot/internal/storage"
	"github.com/suspectuso/earn-bot/internal/telegram"
	"github.com/suspectuso/earn-bot/internal/webhook"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Receive updates on the webhook endpoint",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	// Handle shutdown signals
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize storage
	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	// Initialize telegram bot
	bot, err := telegram.New(cfg.BotToken, log)
	if err != nil {
		return err
	}
	log.Info("telegram bot initialized", "username", cfg.BotUsername)

	deduper, closeDedup := newDeduper(ctx)
	defer closeDedup()

	clock := clockwork.NewRealClock()
	engine := commands.NewEngine(commands.EngineOptions{
		Store:     store,
		Messenger: bot,
		Processor: commands.NewProcessor(commands.ProcessorOptions{
			Policy:           cfg.Policy(),
			BotUsername:      cfg.BotUsername,
			AdminChatID:      cfg.AdminChatID,
			ReplyUnknownText: cfg.ReplyUnknownText,
		}),
		Deduper:        deduper,
		Clock:          clock,
		ReloadPerEvent: cfg.ReloadPerEvent,
		SendTimeout:    cfg.SendTimeout,
	}, log)

	// Warm the ledger so the first update does not pay for the load
	if accounts, err := engine.Snapshot(ctx); err != nil {
		log.Warn("preload ledger", "error", err)
	} else {
		log.Info("ledger loaded", "accounts", len(accounts))
	}

	// Initialize webhook
	manager := webhook.NewManager(bot, cfg.WebhookURL, log)
	if err := manager.Init(ctx); err != nil {
		log.Error("init webhook", "error", err)
	}

	// Start backups
	if cfg.BackupInterval > 0 {
		job, err := newBackupJob(ctx, engine, clock)
		if err != nil {
			return err
		}
		sched, err := backup.NewScheduler(job, cfg.BackupInterval, clock, log)
		if err != nil {
			return err
		}
		sched.Start()
		defer func() {
			if err := sched.Stop(); err != nil {
				log.Error("stop backup scheduler", "error", err)
			}
		}()
	}

	server := webhook.NewServer(engine, manager, clock, log)
	err = server.Start(ctx, cfg.WebhookPort)
	log.Info("shutting down...")
	return err
}

func openStore(ctx context.Context) (storage.Store, error) {
	store, err := storage.Open(ctx, storage.Options{
		Driver:    cfg.StoreDriver,
		DBPath:    cfg.DBPath,
		DBSource:  cfg.DBSource,
		UsersFile: cfg.UsersFile,
	})
	if err != nil {
		return nil, err
	}
	log.Info("storage initialized", "driver", cfg.StoreDriver)
	return store, nil
}

// newDeduper prefers Redis so redeliveries are caught across restarts
func newDeduper(ctx context.Context) (commands.Deduper, func()) {
	if cfg.RedisAddr != "" {
		r, err := dedup.NewRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.DedupTTL)
		if err == nil {
			log.Info("update dedup using redis", "addr", cfg.RedisAddr)
			return r, func() { r.Close() }
		}
		log.Warn("redis unavailable, using in-memory dedup", "error", err)
	}
	return dedup.NewMemory(cfg.DedupTTL, nil), func() {}
}

func newBackupJob(ctx context.Context, source backup.Source, clock clockwork.Clock) (*backup.Job, error) {
	var uploader backup.Uploader
	if cfg.S3Bucket != "" {
		up, err := backup.NewS3Uploader(ctx, backup.S3Options{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
		})
		if err != nil {
			return nil, err
		}
		uploader = up
	}
	return backup.NewJob(source, cfg.BackupDir, uploader, clock, log), nil
}

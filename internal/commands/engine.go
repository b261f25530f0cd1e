package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/suspectuso/earn-bot/internal/ledger"
	"github.com/suspectuso/earn-bot/internal/metrics"
)

// Messenger delivers replies to the messaging platform
type Messenger interface {
	SendReply(ctx context.Context, chatID int64, text string, menu Menu) error
	AcknowledgeCallback(ctx context.Context, callbackID string) error
}

// Deduper remembers committed update ids
type Deduper interface {
	Seen(ctx context.Context, updateID int64) (bool, error)
	Mark(ctx context.Context, updateID int64) error
}

// EngineOptions configures an Engine
type EngineOptions struct {
	Store          ledger.Store
	Messenger      Messenger
	Processor      *Processor
	Deduper        Deduper
	Clock          clockwork.Clock
	ReloadPerEvent bool
	SendTimeout    time.Duration
}

// Engine handles one inbound update at a time: parse, apply to the ledger,
// persist, then deliver replies. The ledger lock is held from load to commit
// so concurrent deliveries cannot lose each other's updates.
type Engine struct {
	store          ledger.Store
	messenger      Messenger
	processor      *Processor
	dedup          Deduper
	clock          clockwork.Clock
	reloadPerEvent bool
	sendTimeout    time.Duration
	log            *slog.Logger

	mu    sync.Mutex
	table *ledger.Table
}

// NewEngine creates a new update engine
func NewEngine(opts EngineOptions, log *slog.Logger) *Engine {
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	timeout := opts.SendTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Engine{
		store:          opts.Store,
		messenger:      opts.Messenger,
		processor:      opts.Processor,
		dedup:          opts.Deduper,
		clock:          clock,
		reloadPerEvent: opts.ReloadPerEvent,
		sendTimeout:    timeout,
		log:            log,
	}
}

// HandleUpdate processes one raw webhook body
func (e *Engine) HandleUpdate(ctx context.Context, body []byte) error {
	start := e.clock.Now()
	defer func() {
		metrics.UpdateDuration.Observe(e.clock.Since(start).Seconds())
	}()

	ev, err := Parse(body)
	if err != nil {
		metrics.Updates.WithLabelValues("none", "malformed").Inc()
		e.log.Warn("drop update", "error", err)
		return err
	}

	out, err := e.apply(ctx, ev)
	if err != nil {
		outcome := "store_error"
		if errors.Is(err, ErrDuplicate) {
			outcome = "duplicate"
			e.log.Debug("skip duplicate update", "update_id", ev.UpdateID)
		}
		metrics.Updates.WithLabelValues(string(ev.Source), outcome).Inc()
		return err
	}

	metrics.Updates.WithLabelValues(string(ev.Source), "ok").Inc()
	if out.Command != CmdNone {
		metrics.Commands.WithLabelValues(string(out.Command)).Inc()
	}

	e.deliver(ctx, ev, out)
	return nil
}

// Snapshot returns the committed accounts in table order
func (e *Engine) Snapshot(ctx context.Context) ([]ledger.Account, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.loadLocked(ctx); err != nil {
		return nil, err
	}
	return e.table.Accounts(), nil
}

func (e *Engine) apply(ctx context.Context, ev Event) (Outcome, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.dedup != nil && ev.UpdateID != 0 {
		seen, err := e.dedup.Seen(ctx, ev.UpdateID)
		if err != nil {
			e.log.Warn("dedup lookup", "error", err, "update_id", ev.UpdateID)
		} else if seen {
			return Outcome{}, ErrDuplicate
		}
	}

	if e.reloadPerEvent {
		e.table = nil
	}
	if err := e.loadLocked(ctx); err != nil {
		return Outcome{}, err
	}

	working := e.table.Clone()
	out := e.processor.Process(working, ev, e.clock.Now())

	if out.Changed {
		if err := e.store.SaveAll(ctx, working.Accounts(), out.Withdrawals); err != nil {
			metrics.StoreErrors.WithLabelValues("save").Inc()
			e.log.Error("save ledger",
				"error", err,
				"data_loss", true,
				"chat_id", ev.ChatID,
				"command", string(ev.Command),
			)
			return Outcome{}, fmt.Errorf("%w: %w", ErrStoreSave, err)
		}
		e.table = working
		metrics.Accounts.Set(float64(working.Len()))
	}

	for _, w := range out.Withdrawals {
		e.log.Info("withdrawal requested",
			"withdrawal_id", w.ID,
			"account_id", w.AccountID,
			"amount", w.Amount,
		)
	}

	if e.dedup != nil && ev.UpdateID != 0 {
		if err := e.dedup.Mark(ctx, ev.UpdateID); err != nil {
			e.log.Warn("dedup mark", "error", err, "update_id", ev.UpdateID)
		}
	}

	return out, nil
}

func (e *Engine) loadLocked(ctx context.Context) error {
	if e.table != nil {
		return nil
	}

	accounts, err := e.store.LoadAll(ctx)
	if err != nil {
		metrics.StoreErrors.WithLabelValues("load").Inc()
		e.log.Error("load ledger", "error", err)
		return fmt.Errorf("%w: %w", ErrStoreLoad, err)
	}

	e.table = ledger.NewTable(accounts)
	metrics.Accounts.Set(float64(e.table.Len()))
	return nil
}

func (e *Engine) deliver(ctx context.Context, ev Event, out Outcome) {
	for _, r := range out.Replies {
		sendCtx, cancel := context.WithTimeout(ctx, e.sendTimeout)
		err := e.messenger.SendReply(sendCtx, r.ChatID, r.Text, r.Menu)
		cancel()
		if err != nil {
			metrics.DeliveryFailures.Inc()
			e.log.Error("send reply", "error", err, "chat_id", r.ChatID)
		}
	}

	if ev.Source == SourceCallback {
		ackCtx, cancel := context.WithTimeout(ctx, e.sendTimeout)
		defer cancel()
		if err := e.messenger.AcknowledgeCallback(ackCtx, ev.CallbackID); err != nil {
			metrics.DeliveryFailures.Inc()
			e.log.Error("answer callback", "error", err, "callback_id", ev.CallbackID)
		}
	}
}

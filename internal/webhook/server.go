package webhook

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/suspectuso/earn-bot/internal/commands"
)

const maxBodyBytes = 1 << 20

// UpdateHandler applies one raw update body
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, body []byte) error
}

// Server receives Bot API updates and serves setup, health and metrics endpoints
type Server struct {
	handler UpdateHandler
	manager *Manager
	clock   clockwork.Clock
	log     *slog.Logger

	server *http.Server
}

// NewServer creates a new webhook server. manager may be nil, which disables ?setup and ?delete_webhook.
func NewServer(handler UpdateHandler, manager *Manager, clock clockwork.Clock, log *slog.Logger) *Server {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Server{
		handler: handler,
		manager: manager,
		clock:   clock,
		log:     log,
	}
}

// Handler returns the routed HTTP handler
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/health", s.handleHealth)
	r.HandleFunc("/webhook", s.handleUpdate).Methods(http.MethodPost)
	r.HandleFunc("/", s.handleUpdate).Methods(http.MethodPost)
	r.HandleFunc("/", s.handleRoot).Methods(http.MethodGet, http.MethodHead)
	return r
}

// Start serves on port until ctx is cancelled
func (s *Server) Start(ctx context.Context, port int) error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	s.log.Info("starting webhook server", "port", port)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.server.Shutdown(shutdownCtx)
	}()

	err := s.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.log.Warn("read update body", "error", err)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			w.WriteHeader(http.StatusRequestEntityTooLarge)
			return
		}
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	// the platform may hang up early; the update still runs to completion
	err = s.handler.HandleUpdate(context.WithoutCancel(r.Context()), body)
	switch {
	case err == nil,
		errors.Is(err, commands.ErrMalformedInput),
		errors.Is(err, commands.ErrDuplicate):
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	case errors.Is(err, commands.ErrStoreLoad), errors.Is(err, commands.ErrStoreSave):
		http.Error(w, "storage unavailable", http.StatusInternalServerError)
	default:
		s.log.Error("handle update", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	switch {
	case q.Has("setup"):
		if s.manager == nil {
			http.Error(w, "Webhook setup is not available.", http.StatusServiceUnavailable)
			return
		}
		if err := s.manager.Setup(r.Context()); err != nil {
			s.log.Error("setup webhook", "error", err)
			http.Error(w, "Webhook setup failed. Check logs for details.", http.StatusBadGateway)
			return
		}
		fmt.Fprintf(w, "Webhook setup completed successfully!\nURL: %s\n", s.manager.Endpoint())

	case q.Has("delete_webhook"):
		if s.manager == nil {
			http.Error(w, "Webhook removal is not available.", http.StatusServiceUnavailable)
			return
		}
		if err := s.manager.Delete(r.Context()); err != nil {
			s.log.Error("delete webhook", "error", err)
			http.Error(w, "Webhook deletion failed. Check logs for details.", http.StatusBadGateway)
			return
		}
		fmt.Fprintln(w, "Webhook deleted.")

	default:
		fmt.Fprintf(w,
			"Telegram Bot is running!\nUse ?setup to configure webhook\nUse ?delete_webhook to remove webhook\nCurrent time: %s\n",
			s.clock.Now().Format(time.DateTime),
		)
	}
}

package webhook

import (
	"context"
	"errors"
	"log/slog"

	"github.com/go-telegram/bot/models"
)

var ErrNoEndpoint = errors.New("webhook endpoint not configured")

// Client is the Bot API surface used to manage the webhook registration
type Client interface {
	SetWebhook(ctx context.Context, url string) error
	DeleteWebhook(ctx context.Context) error
	WebhookInfo(ctx context.Context) (*models.WebhookInfo, error)
}

// Manager keeps the platform's webhook registration pointed at our endpoint
type Manager struct {
	client   Client
	endpoint string
	log      *slog.Logger
}

// NewManager creates a new webhook manager
func NewManager(client Client, endpoint string, log *slog.Logger) *Manager {
	return &Manager{
		client:   client,
		endpoint: endpoint,
		log:      log,
	}
}

// Endpoint returns the public URL updates are delivered to
func (m *Manager) Endpoint() string {
	return m.endpoint
}

// Init registers the webhook unless it already points at our endpoint
func (m *Manager) Init(ctx context.Context) error {
	if m.endpoint == "" {
		m.log.Warn("webhook endpoint not set, skipping webhook init")
		return nil
	}

	info, err := m.client.WebhookInfo(ctx)
	if err != nil {
		return err
	}

	if info.URL == m.endpoint {
		m.log.Info("using existing webhook", "url", info.URL, "pending", info.PendingUpdateCount)
		return nil
	}

	return m.Setup(ctx)
}

// Setup registers the endpoint, replacing any previous registration
func (m *Manager) Setup(ctx context.Context) error {
	if m.endpoint == "" {
		return ErrNoEndpoint
	}

	if err := m.client.SetWebhook(ctx, m.endpoint); err != nil {
		return err
	}

	m.log.Info("webhook registered", "url", m.endpoint)
	return nil
}

// Delete removes the registration
func (m *Manager) Delete(ctx context.Context) error {
	if err := m.client.DeleteWebhook(ctx); err != nil {
		return err
	}

	m.log.Info("webhook deleted")
	return nil
}

// Info returns the platform's view of the registration
func (m *Manager) Info(ctx context.Context) (*models.WebhookInfo, error) {
	return m.client.WebhookInfo(ctx)
}

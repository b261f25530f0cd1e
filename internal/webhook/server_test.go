package webhook

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suspectuso/earn-bot/internal/commands"
)

type stubHandler struct {
	err    error
	bodies []string
	ctxErr error
}

func (s *stubHandler) HandleUpdate(ctx context.Context, body []byte) error {
	s.bodies = append(s.bodies, string(body))
	s.ctxErr = ctx.Err()
	return s.err
}

func newTestServer(h UpdateHandler, m *Manager) (*Server, *clockwork.FakeClock) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 5, 4, 13, 14, 15, 0, time.UTC))
	return NewServer(h, m, clock, discardLogger()), clock
}

func do(t *testing.T, s *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestUpdateStatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"success", nil, http.StatusOK},
		{"malformed", fmt.Errorf("%w: invalid json", commands.ErrMalformedInput), http.StatusOK},
		{"duplicate", commands.ErrDuplicate, http.StatusOK},
		{"load failure", fmt.Errorf("%w: disk", commands.ErrStoreLoad), http.StatusInternalServerError},
		{"save failure", fmt.Errorf("%w: disk", commands.ErrStoreSave), http.StatusInternalServerError},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &stubHandler{err: tt.err}
			s, _ := newTestServer(h, nil)

			rec := do(t, s, http.MethodPost, "/", `{"update_id":1}`)
			assert.Equal(t, tt.code, rec.Code)
			require.Len(t, h.bodies, 1)
			assert.Equal(t, `{"update_id":1}`, h.bodies[0])
		})
	}
}

func TestUpdateOnWebhookPath(t *testing.T) {
	h := &stubHandler{}
	s, _ := newTestServer(h, nil)

	rec := do(t, s, http.MethodPost, "/webhook", `{}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
	assert.Len(t, h.bodies, 1)
	assert.NoError(t, h.ctxErr)
}

func TestUpdateBodyTooLarge(t *testing.T) {
	h := &stubHandler{}
	s, _ := newTestServer(h, nil)

	rec := do(t, s, http.MethodPost, "/", strings.Repeat("x", maxBodyBytes+1))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Empty(t, h.bodies)
}

type failingBody struct{}

func (failingBody) Read([]byte) (int, error) { return 0, errors.New("connection reset by peer") }

func TestUpdateBodyReadError(t *testing.T) {
	h := &stubHandler{}
	s, _ := newTestServer(h, nil)

	req := httptest.NewRequest(http.MethodPost, "/", failingBody{})
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, h.bodies)
}

func TestRootInfo(t *testing.T) {
	h := &stubHandler{}
	s, _ := newTestServer(h, nil)

	rec := do(t, s, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Telegram Bot is running!")
	assert.Contains(t, rec.Body.String(), "Current time: 2026-05-04 13:14:15")
	assert.Empty(t, h.bodies)
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(&stubHandler{}, nil)

	rec := do(t, s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := newTestServer(&stubHandler{}, nil)

	rec := do(t, s, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestRootSetupAndDelete(t *testing.T) {
	client := &fakeClient{}
	m := NewManager(client, "https://bot.example.com/webhook", discardLogger())
	s, _ := newTestServer(&stubHandler{}, m)

	rec := do(t, s, http.MethodGet, "/?setup", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Webhook setup completed successfully!")
	assert.Equal(t, "https://bot.example.com/webhook", client.url)

	rec = do(t, s, http.MethodGet, "/?delete_webhook", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Webhook deleted.")
	assert.Equal(t, 1, client.deletes)
}

func TestRootSetupFailure(t *testing.T) {
	client := &fakeClient{setErr: errors.New("bad token")}
	m := NewManager(client, "https://bot.example.com/webhook", discardLogger())
	s, _ := newTestServer(&stubHandler{}, m)

	rec := do(t, s, http.MethodGet, "/?setup", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestRootSetupWithoutManager(t *testing.T) {
	s, _ := newTestServer(&stubHandler{}, nil)

	rec := do(t, s, http.MethodGet, "/?setup", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

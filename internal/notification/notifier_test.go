package notification

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lemonscanner/lemon-scanner/internal/conf"
	"github.com/lemonscanner/lemon-scanner/internal/errors"
	"github.com/lemonscanner/lemon-scanner/internal/logger"
)

// webhookServer records request bodies and answers with status.
type webhookServer struct {
	server *httptest.Server
	status int

	mu     sync.Mutex
	bodies []string
}

func newWebhookServer(t *testing.T, status int) *webhookServer {
	t.Helper()
	w := &webhookServer{status: status}
	w.server = httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.mu.Lock()
		w.bodies = append(w.bodies, string(body))
		w.mu.Unlock()
		rw.WriteHeader(w.status)
	}))
	t.Cleanup(w.server.Close)
	return w
}

// URL returns a shoutrrr generic webhook URL pointing at the server.
func (w *webhookServer) URL() string {
	return "generic://" + strings.TrimPrefix(w.server.URL, "http://") + "/hook?disabletls=yes"
}

func (w *webhookServer) Bodies() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.bodies...)
}

func testLogger() logger.Logger {
	return logger.NewSlogLogger(io.Discard, logger.LogLevelError, time.UTC)
}

func TestNewDisabled(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		settings *conf.NotificationSettings
	}{
		{"nil settings", nil},
		{"disabled", &conf.NotificationSettings{Enabled: false, URLs: []string{"generic://example.test/hook"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			n, err := New(tt.settings, testLogger())
			require.NoError(t, err)
			assert.False(t, n.Enabled())
			assert.NoError(t, n.Send(t.Context(), "title", "dropped"))
		})
	}
}

func TestNewRejectsBadConfiguration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		urls []string
	}{
		{"no urls", nil},
		{"only blank urls", []string{""}},
		{"unknown service", []string{"nosuchservice://token@host"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			n, err := New(&conf.NotificationSettings{Enabled: true, URLs: tt.urls}, testLogger())
			require.Error(t, err)
			assert.Nil(t, n)
			assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
		})
	}
}

func TestSendDeliversMessage(t *testing.T) {
	t.Parallel()
	hook := newWebhookServer(t, http.StatusOK)

	n, err := New(&conf.NotificationSettings{Enabled: true, URLs: []string{hook.URL()}}, testLogger())
	require.NoError(t, err)
	require.True(t, n.Enabled())

	require.NoError(t, n.Send(t.Context(), "lemonscan load completed", "records: 42"))

	bodies := hook.Bodies()
	require.Len(t, bodies, 1)
	assert.Contains(t, bodies[0], "records: 42")
}

func TestSendReportsServiceFailure(t *testing.T) {
	t.Parallel()
	hook := newWebhookServer(t, http.StatusInternalServerError)

	n, err := New(&conf.NotificationSettings{Enabled: true, URLs: []string{hook.URL()}}, testLogger())
	require.NoError(t, err)

	err = n.Send(t.Context(), "title", "body")
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryNetwork))
	assert.Len(t, hook.Bodies(), 1)
}

func TestSendCanceledContext(t *testing.T) {
	t.Parallel()
	hook := newWebhookServer(t, http.StatusOK)

	n, err := New(&conf.NotificationSettings{Enabled: true, URLs: []string{hook.URL()}}, testLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	require.ErrorIs(t, n.Send(ctx, "title", "body"), context.Canceled)
	assert.Empty(t, hook.Bodies())
}

func TestSendErrorHidesCredentials(t *testing.T) {
	t.Parallel()
	hook := newWebhookServer(t, http.StatusBadGateway)
	url := "generic://" + strings.TrimPrefix(hook.server.URL, "http://") + "/hook?disabletls=yes&token=hunter2"

	n, err := New(&conf.NotificationSettings{Enabled: true, URLs: []string{url}}, testLogger())
	require.NoError(t, err)

	err = n.Send(t.Context(), "title", "body")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "hunter2")
}

package crm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/entityops/einfiler/api/schemas"
	"github.com/entityops/einfiler/internal/config"
)

func TestNotifyCompletionPostsNotice(t *testing.T) {
	var got schemas.CompletionNotice
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewNotifier(config.CallbackConfig{
		URL:        srv.URL,
		Token:      "secret",
		MaxRetries: 1,
		Timeout:    5 * time.Second,
	}, zap.NewNop())

	err := n.NotifyCompletion(context.Background(), schemas.RunResult{
		RecordID: "500A1",
		Status:   schemas.StatusCompleted,
		Message:  "done",
	})
	require.NoError(t, err)

	assert.Equal(t, "Bearer secret", auth)
	assert.Equal(t, "500A1", got.FormID)
	assert.Equal(t, schemas.StatusCompleted, got.Status)
	assert.Equal(t, "done", got.Message)
	assert.False(t, got.ReportedAt.IsZero())
}

func TestNotifyCompletionReportsUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	n := NewNotifier(config.CallbackConfig{URL: srv.URL, Timeout: 5 * time.Second}, zap.NewNop())
	err := n.NotifyCompletion(context.Background(), schemas.RunResult{RecordID: "x", Status: schemas.StatusFailed})
	assert.Error(t, err)
}

func TestNotifyCompletionRetriesServerErrors(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if hits == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewNotifier(config.CallbackConfig{URL: srv.URL, MaxRetries: 2, Timeout: 5 * time.Second}, zap.NewNop())
	err := n.NotifyCompletion(context.Background(), schemas.RunResult{RecordID: "x", Status: schemas.StatusCompleted})
	require.NoError(t, err)
	assert.Equal(t, 2, hits)
}

func TestNotifyReviewEncodesScreenshot(t *testing.T) {
	var got schemas.CompletionNotice
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewNotifier(config.CallbackConfig{URL: srv.URL, Timeout: 5 * time.Second}, zap.NewNop())
	err := n.NotifyReview(context.Background(), "500B2", []byte("png-bytes"))
	require.NoError(t, err)

	assert.Equal(t, "500B2", got.FormID)
	assert.Equal(t, StatusPendingConfirmation, got.Status)
	assert.Equal(t, "cG5nLWJ5dGVz", got.Screenshot)
}

func TestDisabledNotifierIsNoOp(t *testing.T) {
	n := NewNotifier(config.CallbackConfig{}, zap.NewNop())
	assert.False(t, n.Enabled())
	assert.NoError(t, n.NotifyCompletion(context.Background(), schemas.RunResult{}))
	assert.NoError(t, n.NotifyReview(context.Background(), "x", nil))
}

package contact

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedNow() time.Time {
	return time.Date(2026, 3, 1, 9, 30, 0, 0, time.FixedZone("EST", -5*3600))
}

func TestSend_PostsJSON(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	r := NewRelay(srv.URL, time.Second)
	r.Now = fixedNow

	err := r.Send(context.Background(), Message{Name: " Ada ", Email: "ada@example.com", Message: "Hello"})
	require.NoError(t, err)

	assert.Equal(t, "Ada", got["name"])
	assert.Equal(t, "ada@example.com", got["email"])
	assert.Equal(t, "Hello", got["message"])
	assert.Equal(t, "2026-03-01T14:30:00Z", got["timestamp"])
}

func TestSend_MissingFields(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	r := NewRelay(srv.URL, 0)
	tests := []struct {
		name  string
		msg   Message
		field string
	}{
		{"name", Message{Email: "a@x", Message: "hi"}, "name"},
		{"email", Message{Name: "A", Email: "  ", Message: "hi"}, "email"},
		{"message", Message{Name: "A", Email: "a@x"}, "message"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.Send(context.Background(), tt.msg)
			assert.ErrorIs(t, err, ErrMissingField)
			assert.ErrorContains(t, err, tt.field)
		})
	}
	assert.Zero(t, calls.Load(), "invalid messages are never sent")
}

func TestSend_NonSuccessStatus(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	err := NewRelay(srv.URL, time.Second).Send(context.Background(), Message{Name: "A", Email: "a@x", Message: "hi"})
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusTooManyRequests, se.StatusCode)
	assert.Equal(t, "rate limited", se.Body)
	assert.Equal(t, int32(1), calls.Load(), "no retry")
}

func TestSend_NotConfigured(t *testing.T) {
	err := NewRelay("", 0).Send(context.Background(), Message{Name: "A", Email: "a@x", Message: "hi"})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

// Package contact relays messages from the public contact form to a
// webhook.
package contact

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultTimeout bounds a single delivery attempt.
const DefaultTimeout = 10 * time.Second

// ErrMissingField is wrapped when a message lacks a required field.
var ErrMissingField = errors.New("missing required field")

// ErrNotConfigured is returned by Send when no webhook URL is set.
var ErrNotConfigured = errors.New("contact.webhook_url is not configured")

// Message is a contact form submission.
type Message struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

// Validate trims every field and reports the first one that is empty.
func (m *Message) Validate() error {
	m.Name = strings.TrimSpace(m.Name)
	m.Email = strings.TrimSpace(m.Email)
	m.Message = strings.TrimSpace(m.Message)
	switch {
	case m.Name == "":
		return fmt.Errorf("%w: name", ErrMissingField)
	case m.Email == "":
		return fmt.Errorf("%w: email", ErrMissingField)
	case m.Message == "":
		return fmt.Errorf("%w: message", ErrMissingField)
	}
	return nil
}

type payload struct {
	Message
	Timestamp string `json:"timestamp"`
}

// StatusError is returned when the webhook answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("webhook returned %d", e.StatusCode)
	}
	return fmt.Sprintf("webhook returned %d: %s", e.StatusCode, e.Body)
}

// Relay posts contact messages to a webhook.
type Relay struct {
	URL    string
	Client *http.Client
	Now    func() time.Time
}

// NewRelay returns a Relay posting to url with the given timeout. A
// non-positive timeout uses DefaultTimeout.
func NewRelay(url string, timeout time.Duration) *Relay {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Relay{
		URL:    url,
		Client: &http.Client{Timeout: timeout},
		Now:    time.Now,
	}
}

// Send validates m and delivers it once. Failed deliveries are not retried.
func (r *Relay) Send(ctx context.Context, m Message) error {
	if err := m.Validate(); err != nil {
		return err
	}
	if r.URL == "" {
		return ErrNotConfigured
	}

	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	body, err := json.Marshal(payload{Message: m, Timestamp: now().UTC().Format(time.RFC3339)})
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := r.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

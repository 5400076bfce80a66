package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// StatusError is returned when the CRM answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("crm: webhook returned status %d: %s", e.StatusCode, e.Body)
}

// Temporary reports whether the submission may succeed if retried later.
func (e *StatusError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// WebhookSubmitter posts leads as JSON to a CRM intake webhook.
type WebhookSubmitter struct {
	url    string
	token  string
	client *http.Client
	logger *log.Logger
}

// NewWebhookSubmitter creates a submitter. token is sent as a bearer token
// when set.
func NewWebhookSubmitter(url, token string, logger *log.Logger) *WebhookSubmitter {
	return &WebhookSubmitter{
		url:    url,
		token:  token,
		client: &http.Client{Timeout: 15 * time.Second},
		logger: logger,
	}
}

func (w *WebhookSubmitter) Submit(ctx context.Context, lead Lead) (Result, error) {
	body, err := json.Marshal(lead)
	if err != nil {
		return Result{}, fmt.Errorf("crm: marshal lead: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("crm: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", lead.ID)
	if w.token != "" {
		req.Header.Set("Authorization", "Bearer "+w.token)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("crm: send lead: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return Result{}, fmt.Errorf("crm: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Result{}, &StatusError{StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(raw))}
	}

	var res Result
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &res); err != nil {
			w.logger.Printf("crm: lead %s accepted but response is not JSON: %v", lead.ID, err)
		}
	}
	return res, nil
}

// LogSubmitter only logs the lead. It is used when no CRM is configured.
type LogSubmitter struct {
	logger *log.Logger
}

func NewLogSubmitter(logger *log.Logger) *LogSubmitter {
	return &LogSubmitter{logger: logger}
}

func (l *LogSubmitter) Submit(_ context.Context, lead Lead) (Result, error) {
	l.logger.Printf("crm: no webhook configured, lead %s for session %s (email=%q phone=%q score=%d)",
		lead.ID, lead.SessionID, lead.Email, lead.Phone, lead.Score)
	return Result{LeadID: lead.ID}, nil
}

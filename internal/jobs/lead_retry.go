package jobs

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/lukasbauer/hypoteka/internal/crm"
	"github.com/lukasbauer/hypoteka/internal/eventlog"
	"github.com/lukasbauer/hypoteka/internal/store"
)

// FailedLeads lists submissions that should be retried.
type FailedLeads interface {
	ListFailedLeads(ctx context.Context, maxAttempts, limit int) ([]store.LeadSubmission, error)
}

// Deliverer submits a lead and records the attempt.
type Deliverer interface {
	Deliver(ctx context.Context, lead crm.Lead) (crm.Result, error)
}

// ExhaustedNotifier is told about leads that ran out of attempts.
type ExhaustedNotifier interface {
	NotifyLeadRetriesExhausted(ctx context.Context, lead crm.Lead, attempts int, lastErr string)
}

type Events interface {
	LogAsync(sessionID string, eventType eventlog.EventType, data map[string]any)
}

// LeadRetryConfig tunes LeadRetryJob. Zero values get defaults.
type LeadRetryConfig struct {
	Interval    time.Duration
	MaxAttempts int
	BaseBackoff time.Duration
	BatchSize   int
	Timeout     time.Duration
}

func (c LeadRetryConfig) withDefaults() LeadRetryConfig {
	if c.Interval <= 0 {
		c.Interval = time.Minute
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	if c.BaseBackoff <= 0 {
		c.BaseBackoff = 30 * time.Second
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 50
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	return c
}

// LeadRetryJob resubmits leads the CRM rejected or never answered.
// It runs on a configurable interval (default: 1 minute) and:
// - Picks failed submissions with attempts left
// - Waits BaseBackoff * 2^(attempts-1) after the last attempt
// - Reports leads that used their last attempt
type LeadRetryJob struct {
	leads     FailedLeads
	deliverer Deliverer
	exhausted ExhaustedNotifier
	events    Events
	logger    *log.Logger
	cfg       LeadRetryConfig
	now       func() time.Time
	stopCh    chan struct{}
	wg        sync.WaitGroup
}

// NewLeadRetryJob creates a new lead retry job. exhausted and events may be nil.
func NewLeadRetryJob(leads FailedLeads, deliverer Deliverer, exhausted ExhaustedNotifier, events Events, logger *log.Logger, cfg LeadRetryConfig) *LeadRetryJob {
	return &LeadRetryJob{
		leads:     leads,
		deliverer: deliverer,
		exhausted: exhausted,
		events:    events,
		logger:    logger,
		cfg:       cfg.withDefaults(),
		now:       time.Now,
		stopCh:    make(chan struct{}),
	}
}

// Start begins the background job.
func (j *LeadRetryJob) Start() {
	j.wg.Add(1)
	go j.run()
	j.logger.Printf("LeadRetryJob: started (interval=%v, max_attempts=%d)", j.cfg.Interval, j.cfg.MaxAttempts)
}

// Stop gracefully stops the background job.
func (j *LeadRetryJob) Stop() {
	close(j.stopCh)
	j.wg.Wait()
	j.logger.Println("LeadRetryJob: stopped")
}

func (j *LeadRetryJob) run() {
	defer j.wg.Done()

	// Run immediately on start
	j.RunOnce(context.Background())

	ticker := time.NewTicker(j.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			j.RunOnce(context.Background())
		case <-j.stopCh:
			return
		}
	}
}

// RunOnce retries every due lead once and returns how many were attempted.
func (j *LeadRetryJob) RunOnce(ctx context.Context) int {
	failed, err := j.leads.ListFailedLeads(ctx, j.cfg.MaxAttempts, j.cfg.BatchSize)
	if err != nil {
		j.logger.Printf("LeadRetryJob: failed to list failed leads: %v", err)
		return 0
	}

	now := j.now()
	attempted := 0
	for _, sub := range failed {
		if !j.due(sub, now) {
			continue
		}
		select {
		case <-j.stopCh:
			return attempted
		default:
		}
		attempted++
		j.retry(ctx, sub)
	}
	return attempted
}

// due reports whether the backoff since the last attempt has passed.
func (j *LeadRetryJob) due(sub store.LeadSubmission, now time.Time) bool {
	return !now.Before(sub.UpdatedAt.Add(Backoff(j.cfg.BaseBackoff, sub.Attempts)))
}

// Backoff is the wait after the given number of attempts.
func Backoff(base time.Duration, attempts int) time.Duration {
	if attempts <= 1 {
		return base
	}
	if attempts > 16 {
		attempts = 16
	}
	return base << (attempts - 1)
}

func (j *LeadRetryJob) retry(ctx context.Context, sub store.LeadSubmission) {
	attempt := sub.Attempts + 1
	lead := sub.Lead

	deliverCtx, cancel := context.WithTimeout(ctx, j.cfg.Timeout)
	_, err := j.deliverer.Deliver(deliverCtx, lead)
	cancel()

	data := map[string]any{"lead_id": lead.ID, "attempt": attempt, "ok": err == nil}
	if err != nil {
		data["error"] = err.Error()
	}
	j.logEvent(lead.SessionID, data)

	if err == nil {
		j.logger.Printf("LeadRetryJob: lead %s submitted on attempt %d", lead.ID, attempt)
		return
	}
	j.logger.Printf("LeadRetryJob: lead %s attempt %d/%d failed: %v", lead.ID, attempt, j.cfg.MaxAttempts, err)
	if attempt < j.cfg.MaxAttempts {
		return
	}

	j.logger.Printf("LeadRetryJob: lead %s gave up after %d attempts", lead.ID, attempt)
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("lead_id", lead.ID)
		scope.SetTag("session_id", lead.SessionID)
		scope.SetLevel(sentry.LevelError)
		sentry.CaptureMessage("lead retries exhausted")
	})
	if j.exhausted != nil {
		j.exhausted.NotifyLeadRetriesExhausted(context.WithoutCancel(ctx), lead, attempt, err.Error())
	}
}

func (j *LeadRetryJob) logEvent(sessionID string, data map[string]any) {
	if j.events == nil {
		return
	}
	j.events.LogAsync(sessionID, eventlog.EventLeadRetried, data)
}

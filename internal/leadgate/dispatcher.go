package leadgate

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/lukasbauer/hypoteka/internal/crm"
	"github.com/lukasbauer/hypoteka/internal/eventlog"
)

// Recorder persists the outcome of every submission attempt.
type Recorder interface {
	RecordLeadSubmission(ctx context.Context, lead crm.Lead, res crm.Result, submitErr error) error
}

// LeadNotifier is told about every lead the CRM accepted.
type LeadNotifier interface {
	NotifyNewLead(ctx context.Context, lead crm.Lead)
}

// Events receives session events.
type Events interface {
	LogAsync(sessionID string, eventType eventlog.EventType, data map[string]any)
}

const defaultSubmitTimeout = 10 * time.Second

// Dispatcher submits leads off the turn's critical path.
type Dispatcher struct {
	submitter crm.Submitter
	recorder  Recorder
	events    Events
	logger    *log.Logger
	timeout   time.Duration

	mu        sync.Mutex
	notifiers []LeadNotifier
	wg        sync.WaitGroup
}

// NewDispatcher creates a dispatcher. recorder and events may be nil.
func NewDispatcher(submitter crm.Submitter, recorder Recorder, events Events, logger *log.Logger, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = defaultSubmitTimeout
	}
	return &Dispatcher{
		submitter: submitter,
		recorder:  recorder,
		events:    events,
		logger:    logger,
		timeout:   timeout,
	}
}

// AddNotifier registers n for accepted leads.
func (d *Dispatcher) AddNotifier(n LeadNotifier) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.notifiers = append(d.notifiers, n)
}

// Dispatch submits lead in the background and returns immediately. The
// outcome is recorded and logged; a failure is not retried here.
func (d *Dispatcher) Dispatch(lead crm.Lead) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		_, _ = d.Deliver(ctx, lead)
	}()
}

// Deliver submits lead synchronously, records the attempt and notifies on
// success.
func (d *Dispatcher) Deliver(ctx context.Context, lead crm.Lead) (crm.Result, error) {
	res, err := d.submitter.Submit(ctx, lead)

	if d.recorder != nil {
		// The submit context may already be spent; recording gets its own.
		recCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if recErr := d.recorder.RecordLeadSubmission(recCtx, lead, res, err); recErr != nil {
			d.logger.Printf("leadgate: failed to record submission of lead %s: %v", lead.ID, recErr)
		}
		cancel()
	}

	if err != nil {
		d.logger.Printf("leadgate: submission of lead %s for session %s failed: %v", lead.ID, lead.SessionID, err)
		sentry.WithScope(func(scope *sentry.Scope) {
			scope.SetTag("session_id", lead.SessionID)
			scope.SetTag("lead_id", lead.ID)
			sentry.CaptureException(err)
		})
		d.logEvent(lead, eventlog.EventLeadFailed, map[string]any{"lead_id": lead.ID, "error": err.Error()})
		return res, err
	}

	d.logger.Printf("leadgate: lead %s for session %s submitted (crm lead %s)", lead.ID, lead.SessionID, res.LeadID)
	d.logEvent(lead, eventlog.EventLeadSubmitted, map[string]any{
		"lead_id":     lead.ID,
		"crm_lead_id": res.LeadID,
		"contact_id":  res.ContactID,
		"deal_id":     res.DealID,
	})

	d.mu.Lock()
	notifiers := append([]LeadNotifier(nil), d.notifiers...)
	d.mu.Unlock()
	notifyCtx := context.WithoutCancel(ctx)
	for _, n := range notifiers {
		n.NotifyNewLead(notifyCtx, lead)
	}
	return res, nil
}

// Wait blocks until every dispatched submission has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) logEvent(lead crm.Lead, t eventlog.EventType, data map[string]any) {
	if d.events == nil {
		return
	}
	d.events.LogAsync(lead.SessionID, t, data)
}

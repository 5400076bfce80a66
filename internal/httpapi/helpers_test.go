package httpapi

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/lukasbauer/hypoteka/internal/engine"
	"github.com/lukasbauer/hypoteka/internal/store"
)

const testSecret = "test-secret"

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func strPtr(s string) *string { return &s }

type fakeService struct {
	mu          sync.Mutex
	requests    []engine.TurnRequest
	outcome     engine.Outcome
	err         error
	sessions    map[string]engine.Session
	invalidated []string
	refreshErr  error
	regDropped  int
}

func (f *fakeService) ProcessTurn(_ context.Context, req engine.TurnRequest) (engine.Outcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return engine.Outcome{}, f.err
	}
	out := f.outcome
	out.SessionID = req.SessionID
	return out, nil
}

func (f *fakeService) GetSession(_ context.Context, id string) (engine.Session, error) {
	s, ok := f.sessions[id]
	if !ok {
		return engine.Session{}, engine.ErrSessionNotFound
	}
	return s, nil
}

func (f *fakeService) InvalidateTenant(tenantID string) {
	f.invalidated = append(f.invalidated, tenantID)
}

func (f *fakeService) RefreshTenant(_ context.Context, tenantID string) error {
	return f.refreshErr
}

func (f *fakeService) InvalidateRegulatoryConfig() { f.regDropped++ }

type fakeStore struct {
	registered []store.AdvisorDevice
	removed    []string
	sessions   []store.SessionListItem
	failed     []store.LeadSubmission
	tenants    []store.Tenant
	err        error
	gotTenant  string
	gotLimit   int
}

func (f *fakeStore) RegisterDevice(_ context.Context, d store.AdvisorDevice) error {
	if f.err != nil {
		return f.err
	}
	f.registered = append(f.registered, d)
	return nil
}

func (f *fakeStore) RemoveDevice(_ context.Context, advisorID, token string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	f.removed = append(f.removed, advisorID+"/"+token)
	return true, nil
}

func (f *fakeStore) ListSessions(_ context.Context, tenantID string, limit int) ([]store.SessionListItem, error) {
	f.gotTenant, f.gotLimit = tenantID, limit
	return f.sessions, f.err
}

func (f *fakeStore) ListFailedLeads(_ context.Context, _, limit int) ([]store.LeadSubmission, error) {
	f.gotLimit = limit
	return f.failed, f.err
}

func (f *fakeStore) ListAllTenants(context.Context) ([]store.Tenant, error) {
	return f.tenants, f.err
}

var errBoom = errors.New("boom")

func newTestRouter(svc TurnService, s DataStore) *Router {
	return &Router{
		cfg: RouterConfig{
			JWTSecret:    testSecret,
			AdminPhones:  []string{"+420777000111"},
			TurnTimeout:  5 * time.Second,
			MaxBodyBytes: 1 << 20,
		},
		logger: testLogger(),
		svc:    svc,
		store:  s,
		turns:  NewTurnRegistry(),
		mux:    http.NewServeMux(),
	}
}

func mustToken(t *testing.T, user AuthUser) string {
	t.Helper()
	tok, _, err := IssueToken(testSecret, user, time.Hour)
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	return tok
}

func withUser(req *http.Request, user *AuthUser) *http.Request {
	return req.WithContext(context.WithValue(req.Context(), userContextKey, user))
}

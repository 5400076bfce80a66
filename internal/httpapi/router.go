package httpapi

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/lukasbauer/hypoteka/internal/engine"
	"github.com/lukasbauer/hypoteka/internal/store"
)

const (
	defaultTurnTimeout  = 20 * time.Second
	defaultMaxBodyBytes = 4 << 20
)

type RouterConfig struct {
	JWTSecret string
	// Callers whose token phone is listed here pass withAdmin.
	AdminPhones []string
	// Bounds one turn, replay plus persistence.
	TurnTimeout  time.Duration
	MaxBodyBytes int64
}

// TurnService runs turns and manages the caches behind them.
type TurnService interface {
	ProcessTurn(ctx context.Context, req engine.TurnRequest) (engine.Outcome, error)
	GetSession(ctx context.Context, id string) (engine.Session, error)
	InvalidateTenant(tenantID string)
	RefreshTenant(ctx context.Context, tenantID string) error
	InvalidateRegulatoryConfig()
}

// DataStore is the part of the store the handlers read and write directly.
type DataStore interface {
	RegisterDevice(ctx context.Context, d store.AdvisorDevice) error
	RemoveDevice(ctx context.Context, advisorID, token string) (bool, error)
	ListSessions(ctx context.Context, tenantID string, limit int) ([]store.SessionListItem, error)
	ListFailedLeads(ctx context.Context, maxAttempts, limit int) ([]store.LeadSubmission, error)
	ListAllTenants(ctx context.Context) ([]store.Tenant, error)
}

type Router struct {
	cfg    RouterConfig
	logger *log.Logger
	svc    TurnService
	store  DataStore
	turns  *TurnRegistry
	live   *LiveHub
	mux    *http.ServeMux
}

func NewRouter(cfg RouterConfig, logger *log.Logger, svc TurnService, s DataStore, turns *TurnRegistry, live *LiveHub) http.Handler {
	if cfg.TurnTimeout <= 0 {
		cfg.TurnTimeout = defaultTurnTimeout
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	if turns == nil {
		turns = NewTurnRegistry()
	}
	r := &Router{
		cfg:    cfg,
		logger: logger,
		svc:    svc,
		store:  s,
		turns:  turns,
		live:   live,
		mux:    http.NewServeMux(),
	}

	r.routes()
	return withSentryHub(withSentryRecovery(withCORS(r.mux)))
}

func (r *Router) routes() {
	// Health check
	r.mux.HandleFunc("GET /healthz", r.handleHealthz)
	r.mux.HandleFunc("GET /readyz", r.handleReadyz)

	// Chat turns (protected)
	r.mux.HandleFunc("POST /api/sessions/{sessionId}/turns", r.withAuth(r.handleTurn))
	r.mux.HandleFunc("GET /api/sessions/{sessionId}", r.withAuth(r.handleGetSession))

	// Push notifications for advisors (protected)
	r.mux.HandleFunc("POST /api/push/register", r.withAuth(r.handlePushRegister))
	r.mux.HandleFunc("POST /api/push/unregister", r.withAuth(r.handlePushUnregister))

	// Admin endpoints (requires admin phone)
	r.mux.HandleFunc("GET /admin/sessions", r.withAdmin(r.handleAdminListSessions))
	r.mux.HandleFunc("GET /admin/leads/failed", r.withAdmin(r.handleAdminListFailedLeads))
	r.mux.HandleFunc("GET /admin/tenants", r.withAdmin(r.handleAdminListTenants))
	r.mux.HandleFunc("POST /admin/tenants/{tenantId}/prompt-cache/refresh", r.withAdmin(r.handleAdminRefreshPromptCache))
	r.mux.HandleFunc("DELETE /admin/tenants/{tenantId}/prompt-cache", r.withAdmin(r.handleAdminDropPromptCache))
	r.mux.HandleFunc("DELETE /admin/regulatory-cache", r.withAdmin(r.handleAdminDropRegulatoryCache))
	r.mux.HandleFunc("GET /admin/live", r.withAdmin(r.handleAdminLive))
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (r *Router) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeText(w, http.StatusOK, "ok")
}

// handleReadyz fails while draining so the load balancer stops sending turns.
func (r *Router) handleReadyz(w http.ResponseWriter, _ *http.Request) {
	if r.turns.IsDraining() {
		writeText(w, http.StatusServiceUnavailable, "draining")
		return
	}
	writeText(w, http.StatusOK, "ok")
}

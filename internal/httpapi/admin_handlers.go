package httpapi

import (
	"net/http"
	"strconv"

	"github.com/lukasbauer/hypoteka/internal/store"
)

func queryLimit(req *http.Request, def, max int) int {
	n, err := strconv.Atoi(req.URL.Query().Get("limit"))
	if err != nil || n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}

// handleAdminListSessions returns the most recently active sessions.
func (r *Router) handleAdminListSessions(w http.ResponseWriter, req *http.Request) {
	limit := queryLimit(req, 50, 500)
	tenantID := req.URL.Query().Get("tenant_id")

	sessions, err := r.store.ListSessions(req.Context(), tenantID, limit)
	if err != nil {
		r.logger.Printf("admin: failed to list sessions: %v", err)
		http.Error(w, `{"error": "failed to list sessions"}`, http.StatusInternalServerError)
		return
	}
	if sessions == nil {
		sessions = []store.SessionListItem{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

// handleAdminListFailedLeads returns every lead the CRM has not accepted yet.
func (r *Router) handleAdminListFailedLeads(w http.ResponseWriter, req *http.Request) {
	limit := queryLimit(req, 100, 1000)

	leads, err := r.store.ListFailedLeads(req.Context(), 0, limit)
	if err != nil {
		r.logger.Printf("admin: failed to list failed leads: %v", err)
		http.Error(w, `{"error": "failed to list failed leads"}`, http.StatusInternalServerError)
		return
	}
	if leads == nil {
		leads = []store.LeadSubmission{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"leads": leads})
}

// handleAdminListTenants returns all tenants.
func (r *Router) handleAdminListTenants(w http.ResponseWriter, req *http.Request) {
	tenants, err := r.store.ListAllTenants(req.Context())
	if err != nil {
		r.logger.Printf("admin: failed to list tenants: %v", err)
		http.Error(w, `{"error": "failed to list tenants"}`, http.StatusInternalServerError)
		return
	}
	if tenants == nil {
		tenants = []store.Tenant{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"tenants": tenants})
}

// handleAdminRefreshPromptCache reloads a tenant's prompt fragments now.
func (r *Router) handleAdminRefreshPromptCache(w http.ResponseWriter, req *http.Request) {
	tenantID := req.PathValue("tenantId")
	if tenantID == "" {
		http.Error(w, `{"error": "tenant id is required"}`, http.StatusBadRequest)
		return
	}

	if err := r.svc.RefreshTenant(req.Context(), tenantID); err != nil {
		r.logger.Printf("admin: failed to refresh prompt cache for tenant %s: %v", tenantID, err)
		http.Error(w, `{"error": "failed to load tenant prompt config"}`, http.StatusBadGateway)
		return
	}

	r.logger.Printf("admin: refreshed prompt cache for tenant %s", tenantID)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// handleAdminDropPromptCache drops a tenant's cached fragments; the next turn
// loads them again.
func (r *Router) handleAdminDropPromptCache(w http.ResponseWriter, req *http.Request) {
	tenantID := req.PathValue("tenantId")
	if tenantID == "" {
		http.Error(w, `{"error": "tenant id is required"}`, http.StatusBadRequest)
		return
	}

	r.svc.InvalidateTenant(tenantID)
	r.logger.Printf("admin: dropped prompt cache for tenant %s", tenantID)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (r *Router) handleAdminDropRegulatoryCache(w http.ResponseWriter, _ *http.Request) {
	r.svc.InvalidateRegulatoryConfig()
	r.logger.Println("admin: dropped regulatory config cache")
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/lukasbauer/hypoteka/internal/engine"
	"github.com/lukasbauer/hypoteka/internal/profile"
	"github.com/lukasbauer/hypoteka/internal/prompt"
	"github.com/lukasbauer/hypoteka/internal/scoring"
	"github.com/lukasbauer/hypoteka/internal/state"
	"github.com/lukasbauer/hypoteka/internal/transcript"
)

type turnRequest struct {
	TenantID string               `json:"tenant_id"`
	Messages []transcript.Message `json:"messages"`
}

type turnResponse struct {
	SessionID        string                   `json:"session_id"`
	Prompt           string                   `json:"prompt"`
	Sections         []prompt.Section         `json:"sections"`
	State            *state.ConversationState `json:"state"`
	Score            scoring.Result           `json:"score"`
	Profile          profile.Profile          `json:"profile"`
	OfferLeadCapture bool                     `json:"offer_lead_capture"`
	LeadSubmitted    bool                     `json:"lead_submitted"`
}

// resolveTenant picks the tenant for a request. A token bound to a tenant
// may only act for that tenant.
func resolveTenant(user *AuthUser, requested string) (string, bool) {
	bound := user.Tenant()
	switch {
	case bound == "":
		return requested, true
	case requested == "" || requested == bound:
		return bound, true
	default:
		return "", false
	}
}

// handleTurn replays the transcript of one session and returns the prompt
// for the next LLM call.
func (r *Router) handleTurn(w http.ResponseWriter, req *http.Request) {
	user := getAuthUser(req.Context())
	if user == nil {
		http.Error(w, `{"error": "unauthorized"}`, http.StatusUnauthorized)
		return
	}

	if !r.turns.Add() {
		http.Error(w, `{"error": "server is shutting down"}`, http.StatusServiceUnavailable)
		return
	}
	defer r.turns.Done()

	sessionID := req.PathValue("sessionId")
	if sessionID == "" {
		http.Error(w, `{"error": "session id is required"}`, http.StatusBadRequest)
		return
	}

	var body turnRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, req.Body, r.cfg.MaxBodyBytes))
	if err := dec.Decode(&body); err != nil {
		http.Error(w, `{"error": "invalid request body"}`, http.StatusBadRequest)
		return
	}

	tenantID, ok := resolveTenant(user, body.TenantID)
	if !ok {
		http.Error(w, `{"error": "tenant not allowed for this token"}`, http.StatusForbidden)
		return
	}

	ctx, cancel := context.WithTimeout(req.Context(), r.cfg.TurnTimeout)
	defer cancel()

	out, err := r.svc.ProcessTurn(ctx, engine.TurnRequest{
		SessionID: sessionID,
		TenantID:  tenantID,
		Messages:  body.Messages,
	})
	if err != nil {
		if errors.Is(err, engine.ErrTenantMismatch) {
			http.Error(w, `{"error": "session belongs to another tenant"}`, http.StatusForbidden)
			return
		}
		r.logger.Printf("turn: session %s failed: %v", sessionID, err)
		captureError(req, err, "process turn")
		http.Error(w, `{"error": "failed to process turn"}`, http.StatusInternalServerError)
		return
	}

	res := out.Result
	writeJSON(w, http.StatusOK, turnResponse{
		SessionID:        out.SessionID,
		Prompt:           res.Prompt.String(),
		Sections:         res.Prompt.Sections,
		State:            res.State,
		Score:            res.Score,
		Profile:          res.Profile,
		OfferLeadCapture: res.OfferLeadCapture,
		LeadSubmitted:    out.LeadSubmitted,
	})
}

// handleGetSession returns the stored profile and state of a session.
func (r *Router) handleGetSession(w http.ResponseWriter, req *http.Request) {
	user := getAuthUser(req.Context())
	if user == nil {
		http.Error(w, `{"error": "unauthorized"}`, http.StatusUnauthorized)
		return
	}

	sess, err := r.svc.GetSession(req.Context(), req.PathValue("sessionId"))
	if err != nil {
		if errors.Is(err, engine.ErrSessionNotFound) {
			http.Error(w, `{"error": "session not found"}`, http.StatusNotFound)
			return
		}
		r.logger.Printf("turn: failed to load session: %v", err)
		http.Error(w, `{"error": "failed to load session"}`, http.StatusInternalServerError)
		return
	}

	// Sessions of other tenants look missing.
	if bound := user.Tenant(); bound != "" && sess.TenantID != bound {
		http.Error(w, `{"error": "session not found"}`, http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, sess)
}

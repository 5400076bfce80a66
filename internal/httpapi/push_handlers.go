package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/lukasbauer/hypoteka/internal/store"
)

type deviceRequest struct {
	Token    string `json:"token"`
	Platform string `json:"platform"`
}

// readDeviceRequest decodes the body and writes the 4xx response itself when
// the request cannot be used.
func readDeviceRequest(w http.ResponseWriter, req *http.Request) (*AuthUser, deviceRequest, bool) {
	var body deviceRequest
	user := getAuthUser(req.Context())
	if user == nil {
		http.Error(w, `{"error": "unauthorized"}`, http.StatusUnauthorized)
		return nil, body, false
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		http.Error(w, `{"error": "invalid request body"}`, http.StatusBadRequest)
		return nil, body, false
	}
	if body.Token == "" {
		http.Error(w, `{"error": "token is required"}`, http.StatusBadRequest)
		return nil, body, false
	}
	return user, body, true
}

// POST /api/push/register binds a device to the caller's tenant.
func (r *Router) handlePushRegister(w http.ResponseWriter, req *http.Request) {
	user, body, ok := readDeviceRequest(w, req)
	if !ok {
		return
	}
	if !store.ValidPlatform(body.Platform) {
		http.Error(w, `{"error": "platform must be 'ios' or 'android'"}`, http.StatusBadRequest)
		return
	}
	tenantID := user.Tenant()
	if tenantID == "" {
		http.Error(w, `{"error": "token is not bound to a tenant"}`, http.StatusForbidden)
		return
	}

	device := store.AdvisorDevice{
		Token:     body.Token,
		AdvisorID: user.ID,
		TenantID:  tenantID,
		Platform:  body.Platform,
	}
	if err := r.store.RegisterDevice(req.Context(), device); err != nil {
		r.logger.Printf("push: register device for %s: %v", user.ID, err)
		http.Error(w, `{"error": "failed to register token"}`, http.StatusInternalServerError)
		return
	}
	r.logger.Printf("push: %s device of %s bound to tenant %s", device.Platform, user.ID, tenantID)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// POST /api/push/unregister drops one of the caller's own devices.
func (r *Router) handlePushUnregister(w http.ResponseWriter, req *http.Request) {
	user, body, ok := readDeviceRequest(w, req)
	if !ok {
		return
	}
	removed, err := r.store.RemoveDevice(req.Context(), user.ID, body.Token)
	if err != nil {
		r.logger.Printf("push: remove device for %s: %v", user.ID, err)
		http.Error(w, `{"error": "failed to unregister token"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true, "removed": removed})
}

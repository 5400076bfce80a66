package httpapi

import (
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
)

const sentryFlushTimeout = 2 * time.Second

// withSentryHub gives every request its own hub so scopes set by one
// request do not leak into another.
func withSentryHub(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		hub := sentry.CurrentHub().Clone()
		hub.Scope().SetRequest(req)
		next.ServeHTTP(w, req.WithContext(sentry.SetHubOnContext(req.Context(), hub)))
	})
}

func requestHub(req *http.Request) *sentry.Hub {
	if hub := sentry.GetHubFromContext(req.Context()); hub != nil {
		return hub
	}
	hub := sentry.CurrentHub().Clone()
	hub.Scope().SetRequest(req)
	return hub
}

func withSentryRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				hub := requestHub(req)
				hub.RecoverWithContext(req.Context(), err)
				hub.Flush(sentryFlushTimeout)
				http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, req)
	})
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET,POST,DELETE,OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		if req.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, req)
	})
}

// captureError reports err with the request attached.
func captureError(req *http.Request, err error, msg string) {
	hub := requestHub(req)
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetExtra("message", msg)
		hub.CaptureException(err)
	})
}

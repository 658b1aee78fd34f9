// Package guard authorizes navigation to protected views from the
// session tri-state. It fails closed: protected content is never served
// while the session is still loading or the role does not match.
package guard

import (
	"encoding/json"
	"net/http"

	"marletmeets/client/internal/model"
	"marletmeets/client/internal/session"
)

type Decision int

const (
	// DecisionWait means the session is still restoring; render a
	// neutral waiting state and do not redirect yet.
	DecisionWait Decision = iota
	DecisionAllow
	DecisionRedirect
)

func (d Decision) String() string {
	switch d {
	case DecisionWait:
		return "wait"
	case DecisionAllow:
		return "allow"
	case DecisionRedirect:
		return "redirect"
	}
	return "unknown"
}

// Evaluate decides access for a destination requiring one of the given
// roles. An empty role set means any authenticated role is admitted.
func Evaluate(snap session.Snapshot, required ...model.Role) Decision {
	switch snap.State {
	case session.StateLoading:
		return DecisionWait
	case session.StateAnonymous:
		return DecisionRedirect
	}
	if snap.Identity == nil {
		return DecisionRedirect
	}
	if len(required) == 0 {
		return DecisionAllow
	}
	for _, role := range required {
		if snap.Identity.Role == role {
			return DecisionAllow
		}
	}
	return DecisionRedirect
}

// Middleware gates a route on the live session store. The snapshot is
// re-read per request, so a logout takes effect immediately.
func Middleware(store *session.Store, landing string, required ...model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			snap := store.Snapshot()
			switch Evaluate(snap, required...) {
			case DecisionWait:
				w.Header().Set("Retry-After", "1")
				writeGuardError(w, http.StatusServiceUnavailable, "session_loading", landing)
			case DecisionRedirect:
				status := http.StatusUnauthorized
				if snap.State == session.StateAuthenticated {
					status = http.StatusForbidden
				}
				writeGuardError(w, status, "not_allowed", landing)
			case DecisionAllow:
				next.ServeHTTP(w, r)
			}
		})
	}
}

func writeGuardError(w http.ResponseWriter, status int, code, landing string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": code, "redirect": landing})
}

// Package web serves the site's pages: the public landing and onboarding
// surfaces, and the dashboard shell behind the session route guard.
package web

import (
	"net/http"

	"github.com/valey/valey-go/session"
)

// SessionReader is the slice of the session hub the guard consults.
type SessionReader interface {
	State() session.State
}

// Guard protects dashboard routes. While the session is still being
// restored it answers with a retryable placeholder rather than guessing;
// anonymous visitors are sent to the landing page; only an authenticated
// session reaches the wrapped handler.
func Guard(sess SessionReader) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch sess.State() {
			case session.StateAuthenticated:
				next.ServeHTTP(w, r)
			case session.StateAnonymous:
				http.Redirect(w, r, "/", http.StatusSeeOther)
			default:
				// Uninitialized or loading. Never render protected
				// content before restore settles.
				w.Header().Set("Retry-After", "1")
				http.Error(w, "session is loading, retry shortly", http.StatusServiceUnavailable)
			}
		})
	}
}

// InverseGuard wraps public auth pages so an already signed-in user skips
// them and lands on the dashboard.
func InverseGuard(sess SessionReader) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if sess.State() == session.StateAuthenticated {
				http.Redirect(w, r, "/dashboard/app", http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

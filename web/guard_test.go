package web

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/valey/valey-go/session"
)

type staticState session.State

func (s staticState) State() session.State { return session.State(s) }

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestGuardServesAuthenticated(t *testing.T) {
	h := Guard(staticState(session.StateAuthenticated))(okHandler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard/app", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGuardRedirectsAnonymousToLanding(t *testing.T) {
	h := Guard(staticState(session.StateAnonymous))(okHandler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard/app", nil))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
}

func TestGuardHoldsWhileLoading(t *testing.T) {
	for _, state := range []session.State{session.StateUninitialized, session.StateLoading} {
		h := Guard(staticState(state))(okHandler())

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard/app", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	}
}

func TestInverseGuardRedirectsAuthenticatedToDashboard(t *testing.T) {
	h := InverseGuard(staticState(session.StateAuthenticated))(okHandler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/onboarding", nil))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/dashboard/app", rec.Header().Get("Location"))
}

func TestInverseGuardServesAnonymous(t *testing.T) {
	h := InverseGuard(staticState(session.StateAnonymous))(okHandler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/onboarding", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

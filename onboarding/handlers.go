package onboarding

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/valey/valey-go/apperror"
	"github.com/valey/valey-go/auth"
)

// Registry keeps in-flight wizard forms in memory, keyed by an opaque id
// the client carries between requests. Onboarding state is deliberately
// not persisted; an abandoned wizard simply disappears with the process.
type Registry struct {
	mu    sync.Mutex
	forms map[string]*Form
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{forms: make(map[string]*Form)}
}

func (r *Registry) create() (string, Form) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := uuid.New().String()
	form := NewForm()
	r.forms[id] = form
	return id, *form
}

// withForm runs fn on the form under the registry lock and returns a
// snapshot of the resulting state. Forms are only ever touched through
// here so concurrent requests on one wizard cannot race.
func (r *Registry) withForm(id string, fn func(*Form) error) (Form, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	form, ok := r.forms[id]
	if !ok {
		return Form{}, apperror.NewNotFoundError("onboarding session not found", nil)
	}
	if fn != nil {
		if err := fn(form); err != nil {
			return Form{}, err
		}
	}
	return *form, nil
}

// Handlers exposes the wizard over HTTP.
type Handlers struct {
	registry *Registry
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(registry *Registry) *Handlers {
	return &Handlers{registry: registry}
}

// formResponse is the wizard state the client renders from.
type formResponse struct {
	ID    string `json:"id"`
	Step  int    `json:"step"`
	View  View   `json:"view"`
	Field Fields `json:"fields"`
}

func respond(w http.ResponseWriter, id string, form Form) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(formResponse{ID: id, Step: form.Step, View: form.View, Field: form.Fields})
}

// HandleStart godoc
// @Summary Start Onboarding
// @Description Creates a fresh wizard and returns its id and initial state.
// @Tags Onboarding
// @Produce json
// @Success 200 {object} onboarding.formResponse "New wizard"
// @Router /onboarding [post]
func (h *Handlers) HandleStart() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, form := h.registry.create()
		respond(w, id, form)
	}
}

// HandleGet godoc
// @Summary Get Onboarding State
// @Tags Onboarding
// @Produce json
// @Param id path string true "Wizard id"
// @Success 200 {object} onboarding.formResponse "Wizard state"
// @Failure 404 {object} apperror.ErrorResponse "Unknown wizard"
// @Router /onboarding/{id} [get]
func (h *Handlers) HandleGet() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		form, err := h.registry.withForm(id, nil)
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}
		respond(w, id, form)
	}
}

// HandleSetFields godoc
// @Summary Update Onboarding Fields
// @Description Overlays the provided field values onto the wizard without moving the step.
// @Tags Onboarding
// @Accept json
// @Produce json
// @Param id path string true "Wizard id"
// @Param fieldsBody body onboarding.Fields true "Field values"
// @Success 200 {object} onboarding.formResponse "Wizard state"
// @Failure 400 {object} apperror.ErrorResponse "Invalid field value"
// @Failure 404 {object} apperror.ErrorResponse "Unknown wizard"
// @Router /onboarding/{id}/fields [post]
func (h *Handlers) HandleSetFields() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		var fields Fields
		if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
			auth.WriteError(w, r, apperror.NewBadRequestError("invalid request body: "+err.Error(), nil))
			return
		}
		defer r.Body.Close()

		form, err := h.registry.withForm(id, func(f *Form) error {
			return f.SetFields(fields)
		})
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}
		respond(w, id, form)
	}
}

// HandleAdvance godoc
// @Summary Advance Onboarding
// @Description Moves the wizard to the next step when the current step's required fields are present.
// @Tags Onboarding
// @Produce json
// @Param id path string true "Wizard id"
// @Success 200 {object} onboarding.formResponse "Wizard state"
// @Failure 400 {object} apperror.ErrorResponse "Step gate not met"
// @Failure 404 {object} apperror.ErrorResponse "Unknown wizard"
// @Router /onboarding/{id}/advance [post]
func (h *Handlers) HandleAdvance() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		form, err := h.registry.withForm(id, func(f *Form) error {
			return f.Advance()
		})
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}
		respond(w, id, form)
	}
}

// HandleToggleView godoc
// @Summary Toggle Signup/Login View
// @Description Switches between the signup wizard and the login view and resets to the first step.
// @Tags Onboarding
// @Produce json
// @Param id path string true "Wizard id"
// @Success 200 {object} onboarding.formResponse "Wizard state"
// @Failure 404 {object} apperror.ErrorResponse "Unknown wizard"
// @Router /onboarding/{id}/view [post]
func (h *Handlers) HandleToggleView() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		form, err := h.registry.withForm(id, func(f *Form) error {
			f.ToggleView()
			return nil
		})
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}
		respond(w, id, form)
	}
}

// HandleEmbedConfig godoc
// @Summary Scheduling Embed Configuration
// @Description Returns the scheduling widget settings for the final step.
// @Tags Onboarding
// @Produce json
// @Success 200 {object} onboarding.EmbedConfig "Embed settings"
// @Router /onboarding/embed [get]
func (h *Handlers) HandleEmbedConfig() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Embed())
	}
}

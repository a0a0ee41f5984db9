package web

import (
	"html/template"
	"io"
	"log"
	"net/http"

	"github.com/valey/valey-go/apperror"
	"github.com/valey/valey-go/auth"
	"github.com/valey/valey-go/onboarding"
	"github.com/valey/valey-go/profileform"
	"github.com/valey/valey-go/session"
)

// dashboardSections are the navigation entries of the signed-in shell.
var dashboardSections = []string{
	"app", "tasks", "goals", "messages", "team", "partners", "billing", "help",
}

// DashboardSections returns the section slugs served under /dashboard.
func DashboardSections() []string {
	out := make([]string, len(dashboardSections))
	copy(out, dashboardSections)
	return out
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>{{.Title}} | Valey</title></head>
<body>
<header><a href="/">Valey</a></header>
<main>
<h1>{{.Title}}</h1>
{{if .Message}}<p class="message">{{.Message}}</p>{{end}}
{{.Body}}
</main>
</body>
</html>`))

type pageData struct {
	Title   string
	Message string
	Body    template.HTML
}

func renderPage(w io.Writer, data pageData) {
	if err := pageTemplate.Execute(w, data); err != nil {
		log.Printf("web: render failed: %v", err)
	}
}

// Pages serves the HTML surface of the site.
type Pages struct {
	hub      *session.Hub
	uploader profileform.Uploader
	upserter profileform.Upserter
}

// NewPages wires the page handlers.
func NewPages(hub *session.Hub, uploader profileform.Uploader, upserter profileform.Upserter) *Pages {
	return &Pages{hub: hub, uploader: uploader, upserter: upserter}
}

// HandleLanding serves the public marketing page.
func (p *Pages) HandleLanding() http.HandlerFunc {
	body := template.HTML(`
<section>
<h2>Your operations, handled</h2>
<p>Valey pairs your business with dedicated service staff so delegation actually sticks.</p>
<p><a href="/onboarding">Get started</a></p>
</section>`)
	return func(w http.ResponseWriter, r *http.Request) {
		renderPage(w, pageData{Title: "Delegate with confidence", Body: body})
	}
}

// HandleDashboardSection serves one shell page of the signed-in area. The
// guard has already run by the time this executes.
func (p *Pages) HandleDashboardSection(section string) http.HandlerFunc {
	title := "Dashboard"
	if section != "app" {
		title = "Dashboard: " + section
	}
	body := template.HTML(`<p><a href="/dashboard/profile">Profile</a></p>`)
	return func(w http.ResponseWriter, r *http.Request) {
		renderPage(w, pageData{Title: title, Body: body})
	}
}

// HandleProfilePage renders the profile editing form seeded from the
// cached profile.
func (p *Pages) HandleProfilePage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		form := profileform.NewController(p.hub)
		renderProfileForm(w, form.Data(), form.Errors(), "")
	}
}

// HandleProfileSubmit applies a posted profile form. Field errors render
// back into the form; a clean submit persists and confirms.
func (p *Pages) HandleProfileSubmit() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			auth.WriteError(w, r, apperror.NewBadRequestError("invalid form submission", err))
			return
		}

		form := profileform.NewController(p.hub)
		form.SetField(profileform.FieldFirstName, r.PostFormValue("first_name"))
		form.SetField(profileform.FieldLastName, r.PostFormValue("last_name"))
		form.SetField(profileform.FieldPhone, r.PostFormValue("phone"))
		form.SetField(profileform.FieldCompany, r.PostFormValue("company"))

		message, err := form.Submit(r.Context())
		if err != nil {
			if apperror.IsValidationError(err) {
				w.WriteHeader(http.StatusUnprocessableEntity)
				renderProfileForm(w, form.Data(), form.Errors(), "")
				return
			}
			auth.WriteError(w, r, err)
			return
		}
		renderProfileForm(w, form.Data(), nil, message)
	}
}

// HandleAvatarUpload accepts a multipart avatar file and runs it through
// the upload pipeline.
func (p *Pages) HandleAvatarUpload() http.HandlerFunc {
	const maxMemory = 6 << 20 // a bit over the avatar ceiling
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(maxMemory); err != nil {
			auth.WriteError(w, r, apperror.NewBadRequestError("invalid upload", err))
			return
		}

		file, header, err := r.FormFile("avatar")
		if err != nil {
			auth.WriteError(w, r, apperror.NewBadRequestError("avatar file is missing", err))
			return
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			auth.WriteError(w, r, apperror.NewInternalError("failed to read upload", err))
			return
		}

		pipeline := profileform.NewAvatarPipeline(p.hub, p.uploader, p.upserter)
		if _, err := pipeline.Process(r.Context(), profileform.AvatarUpload{
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Size:        header.Size,
			Data:        data,
		}); err != nil {
			auth.WriteError(w, r, err)
			return
		}

		http.Redirect(w, r, "/dashboard/profile", http.StatusSeeOther)
	}
}

// HandleOnboardingPage serves the signup wizard shell. The wizard state
// itself lives behind the /onboarding JSON routes; this page just boots
// the client for it, including the scheduling embed settings.
func (p *Pages) HandleOnboardingPage() http.HandlerFunc {
	body := template.HTML(`
<section id="onboarding"
  data-cal-namespace="` + onboarding.CalNamespace + `"
  data-cal-link="` + onboarding.CalLink + `"
  data-cal-layout="` + onboarding.CalLayout + `">
<p>Tell us about yourself and book your alignment call.</p>
</section>`)
	return func(w http.ResponseWriter, r *http.Request) {
		renderPage(w, pageData{Title: "Get started", Body: body})
	}
}

// HandleSignOutPage ends the session and follows the hub's navigation to
// the landing page.
func (p *Pages) HandleSignOutPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_ = p.hub.SignOut(r.Context())
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

var profileTemplate = template.Must(template.New("profile").Parse(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>Profile | Valey</title></head>
<body>
<header><a href="/dashboard/app">Dashboard</a></header>
<main>
<h1>Profile</h1>
{{if .Message}}<p class="message">{{.Message}}</p>{{end}}
<form method="post" action="/dashboard/profile">
<label>First name <input name="first_name" value="{{.Data.FirstName}}"></label>
{{with .Errors.firstName}}<p class="error">{{.}}</p>{{end}}
<label>Last name <input name="last_name" value="{{.Data.LastName}}"></label>
{{with .Errors.lastName}}<p class="error">{{.}}</p>{{end}}
<label>Email <input name="email" value="{{.Data.Email}}" disabled></label>
<label>Phone <input name="phone" value="{{.Data.Phone}}"></label>
{{with .Errors.phone}}<p class="error">{{.}}</p>{{end}}
<label>Company <input name="company" value="{{.Data.Company}}"></label>
{{with .Errors.company}}<p class="error">{{.}}</p>{{end}}
<button type="submit">Save</button>
</form>
<form method="post" action="/dashboard/profile/avatar" enctype="multipart/form-data">
{{if .Data.AvatarURL}}<img src="{{.Data.AvatarURL}}" alt="Avatar" width="96">{{end}}
<input type="file" name="avatar" accept="image/jpeg,image/png,image/webp,image/gif">
<button type="submit">Upload avatar</button>
</form>
</main>
</body>
</html>`))

type profilePageData struct {
	Data    profileform.FormData
	Errors  map[string]string
	Message string
}

func renderProfileForm(w io.Writer, data profileform.FormData, errs map[string]string, message string) {
	if errs == nil {
		errs = map[string]string{}
	}
	if err := profileTemplate.Execute(w, profilePageData{Data: data, Errors: errs, Message: message}); err != nil {
		log.Printf("web: render failed: %v", err)
	}
}

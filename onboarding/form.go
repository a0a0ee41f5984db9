// Package onboarding implements the multi-step signup wizard shown to
// prospective customers: contact details, company context, and finally a
// scheduling embed for the alignment call.
package onboarding

import (
	"log"

	"github.com/valey/valey-go/apperror"
)

// Scheduling embed configuration for the final step.
const (
	CalNamespace = "alignmentcall"
	CalLink      = "team/valey/alignmentcall"
	CalLayout    = "month_view"
)

// LoginRedirectPath is where the login view lands after authenticating.
const LoginRedirectPath = "/dashboard/app"

// Step bounds. The wizard only moves forward; there is no back control.
const (
	StepContact    = 1
	StepCompany    = 2
	StepScheduling = 3
)

// View selects between the signup wizard and the returning-user login.
type View string

const (
	ViewSignup View = "signup"
	ViewLogin  View = "login"
)

// DelegationClarity is the closed answer set for how clearly the prospect
// knows what they want to delegate.
type DelegationClarity string

const (
	DelegationClear    DelegationClarity = "clear"
	DelegationSomewhat DelegationClarity = "somewhat"
	DelegationUnclear  DelegationClarity = "unclear"
)

func validClarity(c DelegationClarity) bool {
	switch c {
	case DelegationClear, DelegationSomewhat, DelegationUnclear:
		return true
	}
	return false
}

// Fields is the data collected across the first two steps. It is logged
// for the sales team when the prospect reaches scheduling; it is not
// written to the database and not sent to the scheduling provider.
type Fields struct {
	FullName          string            `json:"full_name"`
	Email             string            `json:"email"`
	CompanyName       string            `json:"company_name"`
	DelegationClarity DelegationClarity `json:"delegation_clarity"`
	// ReferralSource and Phone are optional; they never gate a step.
	ReferralSource string `json:"referral_source"`
	Phone          string `json:"phone"`
}

// Form is one prospect's wizard state.
type Form struct {
	Step   int    `json:"step"`
	View   View   `json:"view"`
	Fields Fields `json:"fields"`
}

// NewForm starts a wizard at the contact step in the signup view.
func NewForm() *Form {
	return &Form{Step: StepContact, View: ViewSignup}
}

// SetFields overlays the provided non-empty values onto the form. Setting
// fields never moves the step; only Advance does.
func (f *Form) SetFields(in Fields) error {
	if in.DelegationClarity != "" && !validClarity(in.DelegationClarity) {
		return apperror.NewValidationError("delegation clarity must be clear, somewhat, or unclear", nil)
	}
	if in.FullName != "" {
		f.Fields.FullName = in.FullName
	}
	if in.Email != "" {
		f.Fields.Email = in.Email
	}
	if in.CompanyName != "" {
		f.Fields.CompanyName = in.CompanyName
	}
	if in.DelegationClarity != "" {
		f.Fields.DelegationClarity = in.DelegationClarity
	}
	if in.ReferralSource != "" {
		f.Fields.ReferralSource = in.ReferralSource
	}
	if in.Phone != "" {
		f.Fields.Phone = in.Phone
	}
	return nil
}

// Advance moves to the next step once the current step's gate is met.
// The scheduling step is terminal.
func (f *Form) Advance() error {
	switch f.Step {
	case StepContact:
		if f.Fields.FullName == "" || f.Fields.Email == "" {
			return apperror.NewValidationError("full name and email are required to continue", nil)
		}
		f.Step = StepCompany
	case StepCompany:
		if f.Fields.CompanyName == "" {
			return apperror.NewValidationError("company name is required to continue", nil)
		}
		if !validClarity(f.Fields.DelegationClarity) {
			return apperror.NewValidationError("delegation clarity must be clear, somewhat, or unclear", nil)
		}
		f.Step = StepScheduling
		f.logCollected()
	case StepScheduling:
		return apperror.NewBadRequestError("already at the scheduling step", nil)
	default:
		return apperror.NewBadRequestError("unknown onboarding step", nil)
	}
	return nil
}

// ToggleView flips between signup and login and restarts the wizard.
// Collected fields survive the toggle so flipping back does not lose
// typed input.
func (f *Form) ToggleView() {
	if f.View == ViewSignup {
		f.View = ViewLogin
	} else {
		f.View = ViewSignup
	}
	f.Step = StepContact
}

// logCollected records what the prospect entered before scheduling. This
// is the only destination for steps one and two.
func (f *Form) logCollected() {
	log.Printf("onboarding: prospect reached scheduling: name=%q email=%q company=%q clarity=%s referral=%q phone=%q",
		f.Fields.FullName, f.Fields.Email, f.Fields.CompanyName, f.Fields.DelegationClarity,
		f.Fields.ReferralSource, f.Fields.Phone)
}

// EmbedConfig is the scheduling widget configuration handed to the
// client on the final step.
type EmbedConfig struct {
	Namespace string `json:"namespace"`
	CalLink   string `json:"cal_link"`
	Layout    string `json:"layout"`
}

// Embed returns the scheduling embed settings.
func Embed() EmbedConfig {
	return EmbedConfig{Namespace: CalNamespace, CalLink: CalLink, Layout: CalLayout}
}

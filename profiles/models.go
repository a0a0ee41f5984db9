// Package profiles stores the per-user profile row: the display names,
// contact details, and avatar URL rendered on the dashboard. Every row is
// keyed by the owning user's id, one row per user.
package profiles

import "time"

// Profile is the persisted profile record. Email is not stored here; it
// lives on the account and is only joined into responses for display.
type Profile struct {
	ID        string    `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	AvatarURL string    `json:"avatar_url"`
	Phone     string    `json:"phone"`
	Company   string    `json:"company"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Patch describes a partial profile update. Nil fields are left untouched;
// non-nil fields are written, including explicit empty strings.
type Patch struct {
	FirstName *string
	LastName  *string
	AvatarURL *string
	Phone     *string
	Company   *string
}

// IsEmpty reports whether the patch would change nothing.
func (p Patch) IsEmpty() bool {
	return p.FirstName == nil && p.LastName == nil && p.AvatarURL == nil &&
		p.Phone == nil && p.Company == nil
}

// StringPtr is a convenience for building patches from literals.
func StringPtr(s string) *string {
	return &s
}

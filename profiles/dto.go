package profiles

// UpdateProfileRequest is the PATCH payload for /rest/profiles/me. Absent
// fields are omitted from the update; email is intentionally not accepted
// here, it belongs to the account and never changes through this surface.
type UpdateProfileRequest struct {
	FirstName *string `json:"first_name" validate:"omitempty,max=50"`
	LastName  *string `json:"last_name" validate:"omitempty,max=50"`
	AvatarURL *string `json:"avatar_url" validate:"omitempty,max=500"`
	Phone     *string `json:"phone" validate:"omitempty,max=14"`
	Company   *string `json:"company" validate:"omitempty,max=100"`
}

// Patch converts the request into a store patch.
func (r UpdateProfileRequest) Patch() Patch {
	return Patch{
		FirstName: r.FirstName,
		LastName:  r.LastName,
		AvatarURL: r.AvatarURL,
		Phone:     r.Phone,
		Company:   r.Company,
	}
}

// ProfileResponse is the profile row joined with the account email for
// display. The email is read from the verified token, not the database.
type ProfileResponse struct {
	Profile
	Email string `json:"email,omitempty"`
}

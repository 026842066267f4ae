package models

import "strings"

// Profile is the cached view of a user account.
type Profile struct {
	ID         int64   `json:"id"`
	FirstName  string  `json:"first_name"`
	LastName   string  `json:"last_name"`
	MiddleName *string `json:"middle_name"`
	Phone      string  `json:"phone"`
	RoleID     int64   `json:"role_id"`
	PageID     *int64  `json:"page_id"`
	IsVerified bool    `json:"is_verified"`
}

// NameUpdate carries a rename request.
type NameUpdate struct {
	FirstName  string  `json:"first_name"`
	LastName   string  `json:"last_name"`
	MiddleName *string `json:"middle_name"`
}

// Normalize trims whitespace and reports whether both required names are set.
func (u *NameUpdate) Normalize() bool {
	u.FirstName = strings.TrimSpace(u.FirstName)
	u.LastName = strings.TrimSpace(u.LastName)
	if u.MiddleName != nil {
		m := strings.TrimSpace(*u.MiddleName)
		if m == "" {
			u.MiddleName = nil
		} else {
			u.MiddleName = &m
		}
	}
	return u.FirstName != "" && u.LastName != ""
}

// VerificationCode is the cached one-time code for phone verification.
type VerificationCode struct {
	Code string `json:"code"`
}

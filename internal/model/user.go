// Package model defines domain entities for the application.
package model

import "time"

// User is a registered member of the community.
// Every user created through registration is linked to exactly one
// Planning Center person via PCOPersonID.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Never serialize
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Phone        *string   `json:"phone,omitempty"`
	PCOPersonID  *string   `json:"pco_person_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// HasExternalIdentity reports whether the user is linked to a directory person.
func (u *User) HasExternalIdentity() bool {
	return u.PCOPersonID != nil && *u.PCOPersonID != ""
}

// FullName returns "First Last".
func (u *User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	default:
		return u.FirstName + " " + u.LastName
	}
}

// ProfileUpdate holds the mutable profile fields.
// Nil fields are left untouched.
type ProfileUpdate struct {
	FirstName *string
	LastName  *string
	Phone     *string
}

// IsEmpty reports whether the update changes nothing.
func (p ProfileUpdate) IsEmpty() bool {
	return p.FirstName == nil && p.LastName == nil && p.Phone == nil
}

// Member is the public projection of a user listed in a community.
type Member struct {
	ID        string  `json:"id"`
	Email     string  `json:"email"`
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Phone     *string `json:"phone,omitempty"`
}

package model

import "time"

// Role determines which screen flow and capabilities apply to a signed-in
// user. Exactly one role is assigned at signup (or defaulted on first social
// login) and never changes through this service.
type Role string

const (
	RolePatient   Role = "patient"
	RoleClinician Role = "clinician"
)

// Valid reports whether the role is one of the recognized values.
func (r Role) Valid() bool {
	return r == RolePatient || r == RoleClinician
}

// Profile is the application-owned document associated one-to-one with a
// session user. Its ID equals the session user's identifier; the "users"
// collection holds at most one profile per account.
type Profile struct {
	ID          string     `bson:"_id"`
	Email       string     `bson:"email"`
	Role        Role       `bson:"role"`
	FirstName   string     `bson:"first_name"`
	LastName    string     `bson:"last_name"`
	DateOfBirth *time.Time `bson:"date_of_birth,omitempty"`
	PhoneNumber string     `bson:"phone_number,omitempty"`
	CreatedAt   time.Time  `bson:"created_at"`
	UpdatedAt   time.Time  `bson:"updated_at"`
}

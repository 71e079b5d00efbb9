package session

import (
	"strings"
	"time"

	"github.com/daobinhgiang/bedtrack/internal/model"
)

// DefaultProfilePolicy builds the profile to persist for a user who signed
// in through a social provider for the first time.
type DefaultProfilePolicy func(user *model.SessionUser) *model.Profile

// PatientDefaultProfile gives first-time social sign-ins a patient profile,
// splitting the provider display name into first and last name.
func PatientDefaultProfile(user *model.SessionUser) *model.Profile {
	firstName, lastName := splitDisplayName(user.DisplayName)

	return &model.Profile{
		ID:        user.ID,
		Email:     user.Email,
		Role:      model.RolePatient,
		FirstName: firstName,
		LastName:  lastName,
		CreatedAt: time.Now(),
	}
}

// splitDisplayName splits at the first space. A single word becomes the
// first name.
func splitDisplayName(displayName string) (string, string) {
	name := strings.TrimSpace(displayName)
	if name == "" {
		return "", ""
	}

	first, last, found := strings.Cut(name, " ")
	if !found {
		return first, ""
	}
	return first, strings.TrimSpace(last)
}

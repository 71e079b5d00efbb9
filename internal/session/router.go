package session

import "github.com/daobinhgiang/bedtrack/internal/model"

// Flow names the top-level app surface a client should render.
type Flow string

const (
	FlowLoading   Flow = "loading"
	FlowUnauth    Flow = "unauth"
	FlowPatient   Flow = "patient"
	FlowClinician Flow = "clinician"
)

// SelectFlow picks the flow for the current session snapshot. A signed-in
// user whose profile carries an unrecognized role falls back to the unauth
// flow rather than landing in the wrong one.
func SelectFlow(snapshot Snapshot) Flow {
	if snapshot.Loading {
		return FlowLoading
	}
	if !snapshot.IsAuthenticated || snapshot.Profile == nil {
		return FlowUnauth
	}

	switch snapshot.Profile.Role {
	case model.RolePatient:
		return FlowPatient
	case model.RoleClinician:
		return FlowClinician
	default:
		return FlowUnauth
	}
}

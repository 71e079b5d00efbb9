package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/daobinhgiang/bedtrack/internal/session"
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, logger *zerolog.Logger, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			logger.Error().Err(err).Msg("failed to encode JSON response")
		}
	}
}

// writeError maps a session error kind onto an HTTP status. Anything
// unclassified becomes a generic 500 without leaking internals.
func writeError(w http.ResponseWriter, logger *zerolog.Logger, err error) {
	var sessErr *session.Error
	if !errors.As(err, &sessErr) {
		logger.Error().Err(err).Msg("unhandled error")
		writeJSON(w, logger, http.StatusInternalServerError, errorResponse{
			Error:   "unknown",
			Message: "Something went wrong. Please try again.",
		})
		return
	}

	status := http.StatusInternalServerError
	switch sessErr.Kind {
	case session.KindInvalidCredentials:
		status = http.StatusUnauthorized
	case session.KindAccountConflict:
		status = http.StatusConflict
	case session.KindWeakPassword:
		status = http.StatusBadRequest
	case session.KindAccountDisabled:
		status = http.StatusForbidden
	case session.KindRateLimited:
		status = http.StatusTooManyRequests
	case session.KindProfileMissing:
		status = http.StatusForbidden
	case session.KindSocialFlowCancelled:
		status = http.StatusBadRequest
	}

	writeJSON(w, logger, status, errorResponse{
		Error:   sessErr.Kind.String(),
		Message: sessErr.Message,
	})
}

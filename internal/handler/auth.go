package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	entranslations "github.com/go-playground/validator/v10/translations/en"
	"github.com/rs/zerolog"

	"github.com/daobinhgiang/bedtrack/internal/credential"
	"github.com/daobinhgiang/bedtrack/internal/model"
	"github.com/daobinhgiang/bedtrack/internal/session"
)

// PasswordResetService is the slice of the credential backend the handler
// uses for the reset flow.
type PasswordResetService interface {
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, tokenStr, newPassword string) error
}

// AuthHandler serves the auth and session endpoints. Each request is routed
// to the calling client's own controller through the registry.
type AuthHandler struct {
	registry *ClientRegistry
	reset    PasswordResetService
	validate *validator.Validate
	trans    ut.Translator
	logger   *zerolog.Logger
}

func NewAuthHandler(registry *ClientRegistry, reset PasswordResetService, logger *zerolog.Logger) *AuthHandler {
	validate := validator.New(validator.WithRequiredStructEnabled())

	enLocale := en.New()
	uni := ut.New(enLocale, enLocale)
	trans, _ := uni.GetTranslator("en")
	if err := entranslations.RegisterDefaultTranslations(validate, trans); err != nil {
		logger.Fatal().Err(err).Msg("failed to register validator translations")
	}

	return &AuthHandler{
		registry: registry,
		reset:    reset,
		validate: validate,
		trans:    trans,
		logger:   logger,
	}
}

// decodeAndValidate parses the request body and runs struct validation,
// answering 400 with translated field messages on failure.
func (h *AuthHandler) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, h.logger, http.StatusBadRequest, errorResponse{
			Error:   "invalid_request",
			Message: "Request body is not valid JSON.",
		})
		return false
	}

	if err := h.validate.Struct(dst); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			messages := make([]string, 0, len(validationErrs))
			for _, fieldErr := range validationErrs {
				messages = append(messages, fieldErr.Translate(h.trans))
			}
			writeJSON(w, h.logger, http.StatusBadRequest, errorResponse{
				Error:   "validation_error",
				Message: strings.Join(messages, " "),
			})
			return false
		}

		writeError(w, h.logger, err)
		return false
	}

	return true
}

func (h *AuthHandler) clientSession(w http.ResponseWriter, r *http.Request) *ClientSession {
	clientID, err := ClientIDFromContext(r.Context())
	if err != nil {
		writeJSON(w, h.logger, http.StatusInternalServerError, errorResponse{
			Error:   "unknown",
			Message: "Something went wrong. Please try again.",
		})
		return nil
	}
	return h.registry.Get(clientID)
}

// HandleSignup creates an account with its profile and signs the client in.
// POST /auth/signup
func (h *AuthHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	sess := h.clientSession(w, r)
	if sess == nil {
		return
	}

	params := session.SignupParams{
		Email:       req.Email,
		Password:    req.Password,
		Role:        model.Role(req.Role),
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		PhoneNumber: req.PhoneNumber,
	}

	if req.DateOfBirth != "" {
		dob, err := time.Parse("2006-01-02", req.DateOfBirth)
		if err != nil {
			writeJSON(w, h.logger, http.StatusBadRequest, errorResponse{
				Error:   "validation_error",
				Message: "Date of birth must be in YYYY-MM-DD format.",
			})
			return
		}
		params.DateOfBirth = &dob
	}

	if err := sess.Ctrl.Signup(r.Context(), params); err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, h.logger, http.StatusCreated, h.sessionResponse(sess))
}

// HandleLogin verifies a password credential.
// POST /auth/login
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	sess := h.clientSession(w, r)
	if sess == nil {
		return
	}

	if err := sess.Ctrl.Login(r.Context(), req.Email, req.Password); err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, h.sessionResponse(sess))
}

// HandleLogout signs the client out.
// POST /auth/logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	sess := h.clientSession(w, r)
	if sess == nil {
		return
	}

	if err := sess.Ctrl.Logout(r.Context()); err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, h.sessionResponse(sess))
}

// HandleGoogleLogin signs in with a Google credential obtained by the
// client through the popup flow.
// POST /auth/google
func (h *AuthHandler) HandleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	var req googleLoginRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	sess := h.clientSession(w, r)
	if sess == nil {
		return
	}

	if err := sess.Ctrl.LoginWithGoogle(r.Context(), req.IDToken, req.AccessToken); err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, h.sessionResponse(sess))
}

// HandleGoogleRedirect starts the Google redirect flow.
// GET /auth/google/redirect
func (h *AuthHandler) HandleGoogleRedirect(w http.ResponseWriter, r *http.Request) {
	sess := h.clientSession(w, r)
	if sess == nil {
		return
	}

	writeJSON(w, h.logger, http.StatusOK, redirectResponse{URL: sess.Ctrl.BeginGoogleRedirect()})
}

// HandleGoogleCallback finishes the Google redirect flow.
// GET /auth/google/callback?state=...&code=...
func (h *AuthHandler) HandleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	sess := h.clientSession(w, r)
	if sess == nil {
		return
	}

	state := r.URL.Query().Get("state")
	code := r.URL.Query().Get("code")

	// A provider error (the user backed out of the consent screen) runs
	// through the controller with an empty state, which records the
	// cancellation in the session like any other failed attempt.
	if errParam := r.URL.Query().Get("error"); errParam != "" {
		state, code = "", ""
	}

	if err := sess.Ctrl.HandleGoogleCallback(r.Context(), state, code); err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, h.sessionResponse(sess))
}

// HandleSession reports the client's current session and which flow it
// should render.
// GET /auth/session
func (h *AuthHandler) HandleSession(w http.ResponseWriter, r *http.Request) {
	sess := h.clientSession(w, r)
	if sess == nil {
		return
	}

	// Resolve any redirect sign-in that finished while the client was away.
	if err := sess.Ctrl.CompleteGoogleRedirect(r.Context()); err != nil {
		h.logger.Warn().Err(err).Msg("failed to complete pending redirect sign-in")
	}

	writeJSON(w, h.logger, http.StatusOK, h.sessionResponse(sess))
}

// HandleRefreshProfile re-reads the signed-in user's profile.
// POST /auth/session/refresh
func (h *AuthHandler) HandleRefreshProfile(w http.ResponseWriter, r *http.Request) {
	sess := h.clientSession(w, r)
	if sess == nil {
		return
	}

	if err := sess.Ctrl.RefreshProfile(r.Context()); err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, h.sessionResponse(sess))
}

// HandleClearError drops the client's last error message.
// POST /auth/session/clear-error
func (h *AuthHandler) HandleClearError(w http.ResponseWriter, r *http.Request) {
	sess := h.clientSession(w, r)
	if sess == nil {
		return
	}

	sess.Ctrl.ClearError()
	writeJSON(w, h.logger, http.StatusOK, h.sessionResponse(sess))
}

// HandlePasswordResetRequest starts the password reset flow. Unknown emails
// answer the same as known ones.
// POST /auth/password-reset/request
func (h *AuthHandler) HandlePasswordResetRequest(w http.ResponseWriter, r *http.Request) {
	var req passwordResetRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.reset.RequestPasswordReset(r.Context(), req.Email); err != nil {
		h.logger.Error().Err(err).Msg("failed to request password reset")
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, h.logger, http.StatusAccepted, map[string]string{
		"message": "If an account exists for that email, a reset link has been sent.",
	})
}

// HandlePasswordResetConfirm redeems a reset token.
// POST /auth/password-reset/confirm
func (h *AuthHandler) HandlePasswordResetConfirm(w http.ResponseWriter, r *http.Request) {
	var req passwordResetConfirmRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.reset.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		writeResetError(w, h.logger, err)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, map[string]string{
		"message": "Your password has been updated.",
	})
}

func writeResetError(w http.ResponseWriter, logger *zerolog.Logger, err error) {
	switch {
	case errors.Is(err, credential.ErrWeakPassword):
		writeJSON(w, logger, http.StatusBadRequest, errorResponse{
			Error:   "weak_password",
			Message: "Password must be at least 8 characters long.",
		})
	case errors.Is(err, credential.ErrResetTokenNotFound),
		errors.Is(err, credential.ErrInvalidResetToken):
		writeJSON(w, logger, http.StatusUnauthorized, errorResponse{
			Error:   "invalid_token",
			Message: "This reset link is not valid. Please request a new one.",
		})
	case errors.Is(err, credential.ErrResetTokenUsed):
		writeJSON(w, logger, http.StatusConflict, errorResponse{
			Error:   "token_used",
			Message: "This reset link has already been used.",
		})
	case errors.Is(err, credential.ErrResetTokenExpired):
		writeJSON(w, logger, http.StatusUnauthorized, errorResponse{
			Error:   "token_expired",
			Message: "This reset link has expired. Please request a new one.",
		})
	default:
		logger.Error().Err(err).Msg("failed to reset password")
		writeJSON(w, logger, http.StatusInternalServerError, errorResponse{
			Error:   "unknown",
			Message: "Something went wrong. Please try again.",
		})
	}
}

func (h *AuthHandler) sessionResponse(sess *ClientSession) sessionResponse {
	snap := sess.Ctrl.Snapshot()

	resp := sessionResponse{
		Loading: snap.Loading,
		Error:   snap.Err,
		Flow:    string(session.SelectFlow(snap)),
	}

	if snap.User != nil {
		resp.User = &sessionUserResponse{
			ID:          snap.User.ID,
			Email:       snap.User.Email,
			DisplayName: snap.User.DisplayName,
		}
	}

	if snap.Profile != nil {
		resp.Profile = &profileResponse{
			ID:          snap.Profile.ID,
			Email:       snap.Profile.Email,
			Role:        string(snap.Profile.Role),
			FirstName:   snap.Profile.FirstName,
			LastName:    snap.Profile.LastName,
			DateOfBirth: snap.Profile.DateOfBirth,
			PhoneNumber: snap.Profile.PhoneNumber,
		}
	}

	return resp
}

package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/daobinhgiang/bedtrack/internal/auth"
)

// RouterDeps bundles what NewRouter needs.
type RouterDeps struct {
	Registry          *ClientRegistry
	Reset             PasswordResetService
	JWTAuth           auth.JWTAuthenticator
	ClientTokenSecret string
	Logger            *zerolog.Logger
}

// NewRouter wires the auth endpoints behind the client cookie middleware.
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, deps.Logger, http.StatusOK, map[string]string{"status": "ok"})
	})

	authHandler := NewAuthHandler(deps.Registry, deps.Reset, deps.Logger)
	identifier := NewClientIdentifier(deps.JWTAuth, deps.ClientTokenSecret, deps.Logger)

	r.Group(func(r chi.Router) {
		r.Use(identifier.Middleware)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", authHandler.HandleSignup)
			r.Post("/login", authHandler.HandleLogin)
			r.Post("/logout", authHandler.HandleLogout)

			r.Post("/google", authHandler.HandleGoogleLogin)
			r.Get("/google/redirect", authHandler.HandleGoogleRedirect)
			r.Get("/google/callback", authHandler.HandleGoogleCallback)

			r.Get("/session", authHandler.HandleSession)
			r.Post("/session/refresh", authHandler.HandleRefreshProfile)
			r.Post("/session/clear-error", authHandler.HandleClearError)

			r.Post("/password-reset/request", authHandler.HandlePasswordResetRequest)
			r.Post("/password-reset/confirm", authHandler.HandlePasswordResetConfirm)
		})
	})

	return r
}

package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/daobinhgiang/bedtrack/internal/auth"
)

const clientCookieName = "bedtrack_client"

const clientCookieTTL = 30 * 24 * time.Hour

type contextKey string

const clientIDKey contextKey = "client_id"

var errNoClientID = errors.New("no client id in context")

// ClientIdentifier assigns each browser a stable client id carried in a
// signed cookie. The id keys the client registry, so one browser always
// lands on the same controller.
type ClientIdentifier struct {
	jwtAuth auth.JWTAuthenticator
	secret  string
	issuer  string
	logger  *zerolog.Logger
}

func NewClientIdentifier(jwtAuth auth.JWTAuthenticator, secret string, logger *zerolog.Logger) *ClientIdentifier {
	return &ClientIdentifier{
		jwtAuth: jwtAuth,
		secret:  secret,
		logger:  logger,
	}
}

// Middleware reads the client cookie, minting a fresh one when it is
// missing or no longer valid.
func (c *ClientIdentifier) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID := c.clientIDFromCookie(r)
		if clientID == "" {
			clientID = uuid.NewString()
			if err := c.setClientCookie(w, clientID); err != nil {
				c.logger.Error().Err(err).Msg("failed to issue client cookie")
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}
		}

		ctx := context.WithValue(r.Context(), clientIDKey, clientID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (c *ClientIdentifier) clientIDFromCookie(r *http.Request) string {
	cookie, err := r.Cookie(clientCookieName)
	if err != nil || cookie.Value == "" {
		return ""
	}

	claims := &jwt.RegisteredClaims{}
	if _, err := c.jwtAuth.ValidateTokenWithClaims(cookie.Value, c.secret, claims); err != nil {
		return ""
	}

	return claims.Subject
}

func (c *ClientIdentifier) setClientCookie(w http.ResponseWriter, clientID string) error {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   clientID,
		Issuer:    c.jwtAuth.Issuer(),
		Audience:  jwt.ClaimStrings{c.jwtAuth.Audience()},
		ExpiresAt: jwt.NewNumericDate(now.Add(clientCookieTTL)),
		IssuedAt:  jwt.NewNumericDate(now),
	}

	token, err := c.jwtAuth.GenerateToken(claims, c.secret)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     clientCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(clientCookieTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return nil
}

// ClientIDFromContext returns the client id the middleware stored.
func ClientIDFromContext(ctx context.Context) (string, error) {
	clientID, ok := ctx.Value(clientIDKey).(string)
	if !ok || clientID == "" {
		return "", errNoClientID
	}
	return clientID, nil
}

package credential

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/daobinhgiang/bedtrack/internal/model"
	"github.com/daobinhgiang/bedtrack/internal/repository"
	"github.com/daobinhgiang/bedtrack/internal/security"
)

// RequestPasswordReset starts the reset flow for an email address. To
// prevent enumeration, an unknown email is a silent success.
func (b *Backend) RequestPasswordReset(ctx context.Context, email string) error {
	account, err := b.accounts.GetAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil
		}
		return err
	}

	if err := b.resetTokens.InvalidateAccountTokens(ctx, account.ID.Hex()); err != nil {
		return err
	}

	tokenStr, jti, err := b.generateResetToken(account.ID.Hex())
	if err != nil {
		return err
	}

	resetToken := &model.ResetToken{
		AccountID: account.ID.Hex(),
		JTI:       jti,
		Email:     account.Email,
		ExpiresAt: time.Now().Add(b.cfg.ResetTokenTTL),
	}

	if _, err := b.resetTokens.CreateToken(ctx, resetToken); err != nil {
		return err
	}

	if b.mailer == nil {
		b.logger.Warn().Str("account_id", account.ID.Hex()).Msg("mailer not configured, skipping reset email")
		return nil
	}

	resetLink := fmt.Sprintf("%s?token=%s", b.cfg.ResetURL, tokenStr)
	htmlBody := fmt.Sprintf(`
		<p>Hi,</p>
		<p>We received a request to reset the password for your account.</p>
		<p>If you made this request, click the link below to choose a new password:</p>

		<p><a href="%s">%s</a></p>

		<p>This link expires in %s.</p>
		<p>If you did not request a password reset, you can safely ignore this email.</p>
	`, resetLink, resetLink, b.cfg.ResetTokenTTL)

	if err := b.mailer.SendHTML([]string{account.Email}, "Password Reset Request", htmlBody); err != nil {
		return err
	}

	return nil
}

// ResetPassword redeems a reset token and replaces the account password.
func (b *Backend) ResetPassword(ctx context.Context, tokenStr, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return ErrWeakPassword
	}

	claims := &jwt.RegisteredClaims{}
	if _, err := b.jwtAuth.ValidateTokenWithClaims(tokenStr, b.cfg.ResetTokenSecret, claims); err != nil {
		return ErrInvalidResetToken
	}
	if claims.ID == "" {
		return ErrInvalidResetToken
	}

	resetToken, err := b.resetTokens.GetTokenByJTI(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ErrResetTokenNotFound
		}
		return err
	}

	if resetToken.Used {
		return ErrResetTokenUsed
	}
	if time.Now().After(resetToken.ExpiresAt) {
		return ErrResetTokenExpired
	}

	passwordHash, err := security.HashPassword(newPassword)
	if err != nil {
		return err
	}

	if _, err := b.accounts.UpdateAccount(ctx, resetToken.AccountID, repository.UpdateAccountParams{
		PasswordHash: &passwordHash,
	}); err != nil {
		return err
	}

	if err := b.resetTokens.MarkTokenAsUsed(ctx, claims.ID); err != nil {
		return err
	}

	b.logger.Info().Str("account_id", resetToken.AccountID).Msg("password reset completed")

	return nil
}

// generateResetToken creates a reset JWT with a random JTI.
func (b *Backend) generateResetToken(accountID string) (string, string, error) {
	jti, err := generateJTI()
	if err != nil {
		return "", "", err
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		ID:        jti,
		Subject:   accountID,
		Issuer:    b.cfg.TokenIssuer,
		Audience:  jwt.ClaimStrings{b.cfg.TokenIssuer},
		ExpiresAt: jwt.NewNumericDate(now.Add(b.cfg.ResetTokenTTL)),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
	}

	tokenStr, err := b.jwtAuth.GenerateToken(claims, b.cfg.ResetTokenSecret)
	if err != nil {
		return "", "", err
	}

	return tokenStr, jti, nil
}

func generateJTI() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

package mailer

import (
	"fmt"

	"github.com/rs/zerolog"
)

// Sender is the part of Mailer the notifier needs; it exists so tests can
// substitute a fake.
type Sender interface {
	SendHTML(to []string, subject, htmlBody string) error
}

// SupportNotifier alerts the support inbox when signup creates a credential
// whose profile could not be persisted. These accounts need manual
// reconciliation; the service never retries or rolls back on its own.
type SupportNotifier struct {
	sender       Sender
	supportEmail string
	logger       *zerolog.Logger
}

func NewSupportNotifier(sender Sender, supportEmail string, logger *zerolog.Logger) *SupportNotifier {
	return &SupportNotifier{
		sender:       sender,
		supportEmail: supportEmail,
		logger:       logger,
	}
}

// NotifyOrphanedAccount reports an account that exists without a profile.
func (n *SupportNotifier) NotifyOrphanedAccount(accountID, email string) error {
	htmlBody := fmt.Sprintf(`
		<p>Signup created account %s (%s) but the profile write failed.</p>
		<p>The account has no profile document and cannot log in until one is
		created. Please reconcile it manually.</p>
	`, accountID, email)

	if err := n.sender.SendHTML([]string{n.supportEmail}, "Orphaned credential needs reconciliation", htmlBody); err != nil {
		n.logger.Error().Err(err).Str("account_id", accountID).Msg("failed to send orphaned account alert")
		return err
	}

	return nil
}

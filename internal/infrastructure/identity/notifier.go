package identity

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/verdantmart/identity-gateway/internal/core/domain"
)

// ResetNotifier delivers an issued password reset to its owner.
type ResetNotifier interface {
	SendReset(ctx context.Context, reset *domain.PasswordReset) error
}

// LogNotifier records resets in the log instead of delivering them.
type LogNotifier struct {
	log zerolog.Logger
}

func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) SendReset(_ context.Context, reset *domain.PasswordReset) error {
	n.log.Info().
		Str("principal_id", reset.PrincipalID).
		Time("expires_at", reset.ExpiresAt).
		Msg("password reset issued")
	return nil
}

package ports

import (
	"context"
	"time"

	"github.com/verdantmart/identity-gateway/internal/core/domain"
)

// CredentialRepository persists the identity directory's credentials.
type CredentialRepository interface {
	Create(ctx context.Context, cred *domain.Credential) (*domain.Credential, error)
	FindByEmail(ctx context.Context, email string) (*domain.Credential, error)
	FindByProvider(ctx context.Context, provider, subject string) (*domain.Credential, error)
	TouchSignIn(ctx context.Context, principalID string, at time.Time) error
	TouchSignOut(ctx context.Context, principalID string, at time.Time) error
}

// ResetRepository stores issued password reset tokens.
type ResetRepository interface {
	Save(ctx context.Context, reset *domain.PasswordReset) error
}

// Package identity implements the live identity backend: a credential
// directory over the document store and a per-browser client that publishes
// auth-state changes.
package identity

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/verdantmart/identity-gateway/internal/core/domain"
	"github.com/verdantmart/identity-gateway/internal/core/ports"
)

const (
	defaultResetTTL = time.Hour
	// minBackendPasswordLength mirrors the hosted backend's own floor, below the
	// sign-up policy enforced by the auth operations.
	minBackendPasswordLength = 6
)

// Directory is the identity service shared by every live client.
type Directory struct {
	creds    ports.CredentialRepository
	resets   ports.ResetRepository
	verifier *ProviderVerifier
	notifier ResetNotifier
	resetTTL time.Duration
	now      func() time.Time
	log      zerolog.Logger
}

// DirectoryConfig groups the Directory's collaborators.
type DirectoryConfig struct {
	Credentials ports.CredentialRepository
	Resets      ports.ResetRepository
	Verifier    *ProviderVerifier
	Notifier    ResetNotifier
	ResetTTL    time.Duration
}

func NewDirectory(cfg DirectoryConfig, log zerolog.Logger) *Directory {
	ttl := cfg.ResetTTL
	if ttl <= 0 {
		ttl = defaultResetTTL
	}
	notifier := cfg.Notifier
	if notifier == nil {
		notifier = NewLogNotifier(log)
	}
	return &Directory{
		creds:    cfg.Credentials,
		resets:   cfg.Resets,
		verifier: cfg.Verifier,
		notifier: notifier,
		resetTTL: ttl,
		now:      time.Now,
		log:      log,
	}
}

// Register creates a password credential.
func (d *Directory) Register(ctx context.Context, email, password, displayName string) (*domain.Principal, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", domain.ErrValidation)
	}
	if len(password) < minBackendPasswordLength {
		return nil, domain.ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := d.now().UTC()
	cred, err := d.creds.Create(ctx, &domain.Credential{
		Email:        email,
		DisplayName:  strings.TrimSpace(displayName),
		PasswordHash: string(hash),
		CreatedAt:    now,
		LastSignInAt: now,
	})
	if err != nil {
		return nil, err
	}
	return cred.Principal(), nil
}

// Authenticate verifies an email/password pair. Unknown emails and wrong
// passwords are indistinguishable to the caller.
func (d *Directory) Authenticate(ctx context.Context, email, password string) (*domain.Principal, error) {
	cred, err := d.creds.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if cred.PasswordHash == "" {
		return nil, domain.ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)) != nil {
		return nil, domain.ErrInvalidCredentials
	}

	d.touchSignIn(ctx, cred.PrincipalID)
	return cred.Principal(), nil
}

// Federate verifies a provider assertion and returns its principal, creating
// the credential on first login.
func (d *Directory) Federate(ctx context.Context, assertion string) (*domain.Principal, error) {
	if d.verifier == nil {
		return nil, fmt.Errorf("%w: no federated provider configured", domain.ErrBackendConfig)
	}
	id, err := d.verifier.Verify(assertion)
	if err != nil {
		return nil, err
	}

	cred, err := d.creds.FindByProvider(ctx, id.Provider, id.Subject)
	if err == nil {
		d.touchSignIn(ctx, cred.PrincipalID)
		return cred.Principal(), nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}

	now := d.now().UTC()
	cred, err = d.creds.Create(ctx, &domain.Credential{
		Email:           normalizeEmail(id.Email),
		DisplayName:     id.Name,
		PhotoURL:        id.Picture,
		Provider:        id.Provider,
		ProviderSubject: id.Subject,
		CreatedAt:       now,
		LastSignInAt:    now,
	})
	if err != nil {
		return nil, err
	}
	d.log.Info().Str("principal_id", cred.PrincipalID).Str("provider", id.Provider).Msg("federated credential created")
	return cred.Principal(), nil
}

// SignOut records the end of a principal's session.
func (d *Directory) SignOut(ctx context.Context, principalID string) error {
	return d.creds.TouchSignOut(ctx, principalID, d.now().UTC())
}

// IssueReset creates a reset token and hands it to the notifier. Unknown
// emails succeed silently.
func (d *Directory) IssueReset(ctx context.Context, email string) error {
	cred, err := d.creds.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			d.log.Debug().Msg("password reset requested for unknown email")
			return nil
		}
		return err
	}

	token, err := newResetToken()
	if err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}
	now := d.now().UTC()
	reset := &domain.PasswordReset{
		Token:       token,
		PrincipalID: cred.PrincipalID,
		Email:       cred.Email,
		ExpiresAt:   now.Add(d.resetTTL),
		CreatedAt:   now,
	}
	if err := d.resets.Save(ctx, reset); err != nil {
		return fmt.Errorf("save reset: %w", err)
	}
	return d.notifier.SendReset(ctx, reset)
}

func (d *Directory) touchSignIn(ctx context.Context, principalID string) {
	if err := d.creds.TouchSignIn(ctx, principalID, d.now().UTC()); err != nil {
		d.log.Warn().Err(err).Str("principal_id", principalID).Msg("failed to record sign in")
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func newResetToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/verdantmart/identity-gateway/internal/core/domain"
)

// ---------------------------------------------------------------------------
// Stubs
// ---------------------------------------------------------------------------

type stubCredentialRepo struct {
	byEmail    map[string]*domain.Credential
	seq        int
	signIns    []string
	signOuts   []string
	signOutErr error
}

func newStubCredentialRepo() *stubCredentialRepo {
	return &stubCredentialRepo{byEmail: make(map[string]*domain.Credential)}
}

func cloneCred(c *domain.Credential) *domain.Credential {
	cp := *c
	return &cp
}

func (r *stubCredentialRepo) Create(_ context.Context, cred *domain.Credential) (*domain.Credential, error) {
	if _, ok := r.byEmail[cred.Email]; ok {
		return nil, domain.ErrUserExists
	}
	r.seq++
	stored := cloneCred(cred)
	stored.PrincipalID = fmt.Sprintf("p%d", r.seq)
	r.byEmail[stored.Email] = stored
	return cloneCred(stored), nil
}

func (r *stubCredentialRepo) FindByEmail(_ context.Context, email string) (*domain.Credential, error) {
	c, ok := r.byEmail[email]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneCred(c), nil
}

func (r *stubCredentialRepo) FindByProvider(_ context.Context, provider, subject string) (*domain.Credential, error) {
	for _, c := range r.byEmail {
		if c.Provider == provider && c.ProviderSubject == subject {
			return cloneCred(c), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubCredentialRepo) TouchSignIn(_ context.Context, id string, _ time.Time) error {
	r.signIns = append(r.signIns, id)
	return nil
}

func (r *stubCredentialRepo) TouchSignOut(_ context.Context, id string, _ time.Time) error {
	if r.signOutErr != nil {
		return r.signOutErr
	}
	r.signOuts = append(r.signOuts, id)
	return nil
}

type stubResetRepo struct {
	saved []*domain.PasswordReset
}

func (r *stubResetRepo) Save(_ context.Context, reset *domain.PasswordReset) error {
	r.saved = append(r.saved, reset)
	return nil
}

type captureNotifier struct {
	sent []*domain.PasswordReset
}

func (n *captureNotifier) SendReset(_ context.Context, reset *domain.PasswordReset) error {
	n.sent = append(n.sent, reset)
	return nil
}

const (
	testIssuer = "https://accounts.example.com"
	testSecret = "federation-secret"
)

func newTestDirectory(repo *stubCredentialRepo) (*Directory, *stubResetRepo, *captureNotifier) {
	resets := &stubResetRepo{}
	notifier := &captureNotifier{}
	dir := NewDirectory(DirectoryConfig{
		Credentials: repo,
		Resets:      resets,
		Verifier:    NewProviderVerifier("google", testIssuer, testSecret),
		Notifier:    notifier,
	}, zerolog.Nop())
	return dir, resets, notifier
}

func signAssertion(t *testing.T, secret, issuer, subject, email string, ttl time.Duration) string {
	t.Helper()
	claims := jwt.MapClaims{
		"iss":     issuer,
		"sub":     subject,
		"email":   email,
		"name":    "Fed User",
		"picture": "https://example.com/p.png",
		"exp":     time.Now().Add(ttl).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign assertion: %v", err)
	}
	return signed
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestDirectory_RegisterHashesPassword(t *testing.T) {
	repo := newStubCredentialRepo()
	dir, _, _ := newTestDirectory(repo)

	p, err := dir.Register(context.Background(), "  Alice@Example.com ", "s3cret-pass", "Alice")
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if p.Email != "alice@example.com" {
		t.Fatalf("email not normalised: %q", p.Email)
	}

	stored := repo.byEmail["alice@example.com"]
	if stored.PasswordHash == "s3cret-pass" {
		t.Fatal("expected password to be hashed")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("s3cret-pass")); err != nil {
		t.Fatalf("stored hash does not match password: %v", err)
	}
}

func TestDirectory_RegisterValidation(t *testing.T) {
	dir, _, _ := newTestDirectory(newStubCredentialRepo())

	if _, err := dir.Register(context.Background(), "", "longenough", "x"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if _, err := dir.Register(context.Background(), "a@example.com", "123", "x"); !errors.Is(err, domain.ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}
}

func TestDirectory_RegisterDuplicate(t *testing.T) {
	dir, _, _ := newTestDirectory(newStubCredentialRepo())
	ctx := context.Background()

	if _, err := dir.Register(ctx, "bob@example.com", "password1", "Bob"); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if _, err := dir.Register(ctx, "BOB@example.com", "password2", "Bob"); !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestDirectory_Authenticate(t *testing.T) {
	repo := newStubCredentialRepo()
	dir, _, _ := newTestDirectory(repo)
	ctx := context.Background()

	registered, err := dir.Register(ctx, "carol@example.com", "goodpass", "Carol")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	p, err := dir.Authenticate(ctx, "carol@example.com", "goodpass")
	if err != nil {
		t.Fatalf("authenticate failed: %v", err)
	}
	if p.ID != registered.ID {
		t.Fatalf("unexpected principal %+v", p)
	}
	if len(repo.signIns) != 1 {
		t.Fatalf("expected sign in recorded, got %v", repo.signIns)
	}

	if _, err := dir.Authenticate(ctx, "carol@example.com", "badpass"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for wrong password, got %v", err)
	}
	if _, err := dir.Authenticate(ctx, "ghost@example.com", "goodpass"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}
}

func TestDirectory_FederateCreatesOnce(t *testing.T) {
	repo := newStubCredentialRepo()
	dir, _, _ := newTestDirectory(repo)
	ctx := context.Background()

	assertion := signAssertion(t, testSecret, testIssuer, "google-123", "fed@example.com", time.Minute)

	first, err := dir.Federate(ctx, assertion)
	if err != nil {
		t.Fatalf("first federate failed: %v", err)
	}
	second, err := dir.Federate(ctx, assertion)
	if err != nil {
		t.Fatalf("second federate failed: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected same principal, got %s and %s", first.ID, second.ID)
	}
	if len(repo.byEmail) != 1 {
		t.Fatalf("expected one credential, got %d", len(repo.byEmail))
	}
	if first.PhotoURL != "https://example.com/p.png" {
		t.Fatalf("picture claim not mapped: %+v", first)
	}

	// Federated credentials cannot be used with a password.
	if _, err := dir.Authenticate(ctx, "fed@example.com", ""); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestDirectory_FederateRejectsBadAssertions(t *testing.T) {
	dir, _, _ := newTestDirectory(newStubCredentialRepo())
	ctx := context.Background()

	cases := map[string]string{
		"wrong secret": signAssertion(t, "other", testIssuer, "s", "e@example.com", time.Minute),
		"wrong issuer": signAssertion(t, testSecret, "https://evil.example.com", "s", "e@example.com", time.Minute),
		"expired":      signAssertion(t, testSecret, testIssuer, "s", "e@example.com", -time.Minute),
		"no subject":   signAssertion(t, testSecret, testIssuer, "", "e@example.com", time.Minute),
		"garbage":      "not-a-jwt",
	}
	for name, assertion := range cases {
		if _, err := dir.Federate(ctx, assertion); !errors.Is(err, domain.ErrInvalidAssertion) {
			t.Errorf("%s: expected ErrInvalidAssertion, got %v", name, err)
		}
	}
}

func TestDirectory_FederateWithoutConfig(t *testing.T) {
	dir := NewDirectory(DirectoryConfig{
		Credentials: newStubCredentialRepo(),
		Verifier:    NewProviderVerifier("google", "", ""),
	}, zerolog.Nop())

	if _, err := dir.Federate(context.Background(), "x"); !errors.Is(err, domain.ErrBackendConfig) {
		t.Fatalf("expected ErrBackendConfig, got %v", err)
	}
}

func TestDirectory_IssueReset(t *testing.T) {
	repo := newStubCredentialRepo()
	dir, resets, notifier := newTestDirectory(repo)
	ctx := context.Background()

	if _, err := dir.Register(ctx, "dave@example.com", "password", "Dave"); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if err := dir.IssueReset(ctx, "Dave@Example.com"); err != nil {
		t.Fatalf("IssueReset returned error: %v", err)
	}
	if len(resets.saved) != 1 || len(notifier.sent) != 1 {
		t.Fatalf("expected one saved and sent reset, got %d/%d", len(resets.saved), len(notifier.sent))
	}
	if len(resets.saved[0].Token) != 64 || strings.Trim(resets.saved[0].Token, "0123456789abcdef") != "" {
		t.Fatalf("unexpected token %q", resets.saved[0].Token)
	}

	if err := dir.IssueReset(ctx, "nobody@example.com"); err != nil {
		t.Fatalf("unknown email should succeed silently, got %v", err)
	}
	if len(resets.saved) != 1 {
		t.Fatal("no reset should be issued for an unknown email")
	}
}

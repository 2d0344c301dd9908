package identity

import (
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/verdantmart/identity-gateway/internal/core/domain"
)

// DefaultProvider names the federated provider when none is configured.
const DefaultProvider = "google"

// FederatedIdentity is what a verified provider assertion vouches for.
type FederatedIdentity struct {
	Provider string
	Subject  string
	Email    string
	Name     string
	Picture  string
}

type assertionClaims struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
	jwt.RegisteredClaims
}

// ProviderVerifier checks HS256 assertions minted by the federated login relay.
type ProviderVerifier struct {
	provider string
	issuer   string
	secret   []byte
}

func NewProviderVerifier(provider, issuer, secret string) *ProviderVerifier {
	if provider == "" {
		provider = DefaultProvider
	}
	return &ProviderVerifier{provider: provider, issuer: issuer, secret: []byte(secret)}
}

// Verify parses assertion and returns the identity it carries.
func (v *ProviderVerifier) Verify(assertion string) (*FederatedIdentity, error) {
	if len(v.secret) == 0 || v.issuer == "" {
		return nil, fmt.Errorf("%w: federated provider secret or issuer not set", domain.ErrBackendConfig)
	}

	var claims assertionClaims
	_, err := jwt.ParseWithClaims(strings.TrimSpace(assertion), &claims, func(token *jwt.Token) (interface{}, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(v.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidAssertion, err)
	}
	if claims.Subject == "" || claims.Email == "" {
		return nil, fmt.Errorf("%w: subject and email are required", domain.ErrInvalidAssertion)
	}

	return &FederatedIdentity{
		Provider: v.provider,
		Subject:  claims.Subject,
		Email:    claims.Email,
		Name:     claims.Name,
		Picture:  claims.Picture,
	}, nil
}

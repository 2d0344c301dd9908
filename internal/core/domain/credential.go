package domain

import "time"

// Credential is the identity directory's record of a principal.
// Password-based principals carry a hash; federated ones carry the provider subject.
type Credential struct {
	PrincipalID     string
	Email           string
	DisplayName     string
	PhotoURL        string
	PasswordHash    string
	Provider        string
	ProviderSubject string
	CreatedAt       time.Time
	LastSignInAt    time.Time
	LastSignOutAt   time.Time
}

// Principal projects the credential onto the identity exposed to sessions.
func (c *Credential) Principal() *Principal {
	return &Principal{
		ID:          c.PrincipalID,
		Email:       c.Email,
		DisplayName: c.DisplayName,
		PhotoURL:    c.PhotoURL,
	}
}

// PasswordReset is an issued, single-use reset token.
type PasswordReset struct {
	Token       string
	PrincipalID string
	Email       string
	ExpiresAt   time.Time
	CreatedAt   time.Time
}

package mock

import (
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/verdantmart/identity-gateway/internal/core/domain"
)

// DemoPassword is shared by every demo account.
const DemoPassword = "demo1234"

// Fixed identity returned by the mock federated sign-in.
const (
	GooglePrincipalID = "mock-google-user"
	GoogleEmail       = "google.user@demo.verdantmart.app"
	GoogleDisplayName = "Google User"
)

// Credential is a demo login shortcut.
type Credential struct {
	Role     domain.Role `json:"role"`
	Email    string      `json:"email"`
	Password string      `json:"password"`
}

// Fixture is a canned account: principal, password and profile.
type Fixture struct {
	Principal domain.Principal
	Password  string
	Profile   domain.Profile
}

var fixtureEpoch = time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)

// DemoFixtures returns one account per role.
func DemoFixtures() []Fixture {
	out := make([]Fixture, 0, len(domain.Roles))
	for i, role := range domain.Roles {
		p := domain.Principal{
			ID:          "demo-" + role.String(),
			Email:       role.String() + "@demo.verdantmart.app",
			DisplayName: "Demo " + strings.ToUpper(role.String()[:1]) + role.String()[1:],
		}
		profile := domain.NewProfile(&p, role, nil, fixtureEpoch)
		profile.SustainabilityScore = 40 + 10*i
		profile.CarbonSavedKg = 12.5 * float64(i+1)
		out = append(out, Fixture{Principal: p, Password: DemoPassword, Profile: *profile})
	}
	return out
}

// DemoCredentials lists the login shortcuts for the demo accounts.
func DemoCredentials() []Credential {
	fixtures := DemoFixtures()
	out := make([]Credential, 0, len(fixtures))
	for _, f := range fixtures {
		out = append(out, Credential{Role: f.Profile.Role, Email: f.Principal.Email, Password: f.Password})
	}
	return out
}

// DemoCredential returns the shortcut for role.
func DemoCredential(role domain.Role) (Credential, bool) {
	for _, c := range DemoCredentials() {
		if c.Role == role {
			return c, true
		}
	}
	return Credential{}, false
}

// Directory is the account list shared by every mock backend instance.
// Accounts created by sign-up are added so they can sign in later, unless
// the email is already taken.
type Directory struct {
	mu       sync.RWMutex
	accounts map[string]Fixture // keyed by lower-cased email
}

// NewDirectory seeds a directory with fixtures.
func NewDirectory(fixtures []Fixture) *Directory {
	d := &Directory{accounts: make(map[string]Fixture, len(fixtures))}
	for _, f := range fixtures {
		d.accounts[strings.ToLower(f.Principal.Email)] = f
	}
	return d
}

// Lookup returns the principal whose email and password both match.
func (d *Directory) Lookup(email, password string) (*domain.Principal, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	f, ok := d.accounts[strings.ToLower(strings.TrimSpace(email))]
	if !ok || f.Password != password {
		return nil, false
	}
	p := f.Principal
	return &p, true
}

// Register returns a fresh principal and never fails. The account is only
// stored when no account holds the email yet; existing accounts, the demo
// ones included, are never replaced.
func (d *Directory) Register(email, password, displayName string) *domain.Principal {
	p := domain.Principal{
		ID:          "mock-" + strings.ToLower(ulid.Make().String()),
		Email:       strings.TrimSpace(email),
		DisplayName: displayName,
	}
	key := strings.ToLower(p.Email)
	d.mu.Lock()
	if _, taken := d.accounts[key]; !taken {
		d.accounts[key] = Fixture{Principal: p, Password: password}
	}
	d.mu.Unlock()
	return &p
}

// Contains reports whether an account exists for email.
func (d *Directory) Contains(email string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.accounts[strings.ToLower(strings.TrimSpace(email))]
	return ok
}

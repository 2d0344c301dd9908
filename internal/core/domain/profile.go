package domain

import "time"

const (
	// ConsumerWelcomePoints is granted to new consumer profiles.
	ConsumerWelcomePoints = 100
	// DefaultLanguage is the preference language of a new profile.
	DefaultLanguage = "en"
)

// Consent records the privacy choices of a profile.
type Consent struct {
	Marketing   bool      `json:"marketing" bson:"marketing"`
	Cookies     bool      `json:"cookies" bson:"cookies"`
	DataSharing bool      `json:"data_sharing" bson:"data_sharing"`
	LastUpdated time.Time `json:"last_updated" bson:"last_updated"`
}

// ConsentUpdate is a partial Consent; nil fields are left untouched.
type ConsentUpdate struct {
	Marketing   *bool `json:"marketing,omitempty"`
	Cookies     *bool `json:"cookies,omitempty"`
	DataSharing *bool `json:"data_sharing,omitempty"`
}

// Merge overlays the set fields of u on c and stamps LastUpdated with now.
func (c Consent) Merge(u ConsentUpdate, now time.Time) Consent {
	if u.Marketing != nil {
		c.Marketing = *u.Marketing
	}
	if u.Cookies != nil {
		c.Cookies = *u.Cookies
	}
	if u.DataSharing != nil {
		c.DataSharing = *u.DataSharing
	}
	c.LastUpdated = now.UTC()
	return c
}

// Accessibility holds the accessibility flags of a profile.
type Accessibility struct {
	HighContrast  bool `json:"high_contrast" bson:"high_contrast"`
	LargeText     bool `json:"large_text" bson:"large_text"`
	ReducedMotion bool `json:"reduced_motion" bson:"reduced_motion"`
	ScreenReader  bool `json:"screen_reader" bson:"screen_reader"`
}

// Preferences holds user-facing preferences.
type Preferences struct {
	Language      string        `json:"language" bson:"language"`
	Accessibility Accessibility `json:"accessibility" bson:"accessibility"`
}

// PreferencesUpdate is a partial Preferences; nil fields are left untouched.
type PreferencesUpdate struct {
	Language      *string `json:"language,omitempty"`
	HighContrast  *bool   `json:"high_contrast,omitempty"`
	LargeText     *bool   `json:"large_text,omitempty"`
	ReducedMotion *bool   `json:"reduced_motion,omitempty"`
	ScreenReader  *bool   `json:"screen_reader,omitempty"`
}

// Empty reports whether u sets no field.
func (u PreferencesUpdate) Empty() bool {
	return u.Language == nil && u.HighContrast == nil && u.LargeText == nil &&
		u.ReducedMotion == nil && u.ScreenReader == nil
}

// Merge overlays the set fields of u on p.
func (p Preferences) Merge(u PreferencesUpdate) Preferences {
	if u.Language != nil {
		p.Language = *u.Language
	}
	if u.HighContrast != nil {
		p.Accessibility.HighContrast = *u.HighContrast
	}
	if u.LargeText != nil {
		p.Accessibility.LargeText = *u.LargeText
	}
	if u.ReducedMotion != nil {
		p.Accessibility.ReducedMotion = *u.ReducedMotion
	}
	if u.ScreenReader != nil {
		p.Accessibility.ScreenReader = *u.ScreenReader
	}
	return p
}

// Profile is the application record keyed by principal id.
type Profile struct {
	ID                  string            `json:"id"`
	Email               string            `json:"email"`
	DisplayName         string            `json:"display_name"`
	PhotoURL            string            `json:"photo_url,omitempty"`
	Role                Role              `json:"role"`
	CreatedAt           time.Time         `json:"created_at"`
	RewardPoints        int               `json:"reward_points"`
	SustainabilityScore int               `json:"sustainability_score"`
	CarbonSavedKg       float64           `json:"carbon_saved_kg"`
	Consent             Consent           `json:"consent"`
	Preferences         Preferences       `json:"preferences"`
	Extra               map[string]string `json:"extra,omitempty"`
}

// Clone returns a deep copy of p, or nil when p is nil.
func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}
	c := *p
	if p.Extra != nil {
		c.Extra = make(map[string]string, len(p.Extra))
		for k, v := range p.Extra {
			c.Extra[k] = v
		}
	}
	return &c
}

// ProfilePatch is a partial profile document. Only the non-nil sub-records
// are written.
type ProfilePatch struct {
	Preferences *Preferences
	Consent     *Consent
}

// Fields names the document fields patch writes.
func (pp ProfilePatch) Fields() []string {
	var out []string
	if pp.Preferences != nil {
		out = append(out, "preferences")
	}
	if pp.Consent != nil {
		out = append(out, "consent")
	}
	return out
}

// Apply returns a copy of p with the sub-records of patch written over it.
func (p *Profile) Apply(patch ProfilePatch) *Profile {
	c := p.Clone()
	if patch.Preferences != nil {
		c.Preferences = *patch.Preferences
	}
	if patch.Consent != nil {
		c.Consent = *patch.Consent
	}
	return c
}

// InitialRewardPoints returns the reward points a new profile of role r starts with.
func InitialRewardPoints(r Role) int {
	if r == RoleConsumer {
		return ConsumerWelcomePoints
	}
	return 0
}

// NewProfile builds the record written on first sign-up or first federated login.
func NewProfile(p *Principal, role Role, extra map[string]string, now time.Time) *Profile {
	profile := &Profile{
		ID:           p.ID,
		Email:        p.Email,
		DisplayName:  p.DisplayName,
		PhotoURL:     p.PhotoURL,
		Role:         role,
		CreatedAt:    now.UTC(),
		RewardPoints: InitialRewardPoints(role),
		Consent:      Consent{LastUpdated: now.UTC()},
		Preferences:  Preferences{Language: DefaultLanguage},
	}
	if len(extra) > 0 {
		profile.Extra = make(map[string]string, len(extra))
		for k, v := range extra {
			profile.Extra[k] = v
		}
	}
	return profile
}

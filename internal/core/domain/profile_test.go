package domain

import (
	"testing"
	"time"
)

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func TestNewProfile_RewardPointsByRole(t *testing.T) {
	p := &Principal{ID: "u1", Email: "a@example.com", DisplayName: "A"}
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	for _, role := range Roles {
		profile := NewProfile(p, role, nil, now)
		want := 0
		if role == RoleConsumer {
			want = 100
		}
		if profile.RewardPoints != want {
			t.Errorf("role %s: expected %d points, got %d", role, want, profile.RewardPoints)
		}
		if profile.Role != role {
			t.Errorf("expected role %s, got %s", role, profile.Role)
		}
		if profile.Preferences.Language != DefaultLanguage {
			t.Errorf("expected default language, got %q", profile.Preferences.Language)
		}
		if !profile.CreatedAt.Equal(now) {
			t.Errorf("unexpected created_at %v", profile.CreatedAt)
		}
	}
}

func TestNewProfile_CopiesExtra(t *testing.T) {
	extra := map[string]string{"business_name": "Green Grocer"}
	profile := NewProfile(&Principal{ID: "u1"}, RoleRetailer, extra, time.Now())
	extra["business_name"] = "changed"

	if profile.Extra["business_name"] != "Green Grocer" {
		t.Fatalf("extra fields not copied: %v", profile.Extra)
	}
}

func TestPreferencesMerge_DisjointIsCommutative(t *testing.T) {
	base := Preferences{Language: "en"}
	a := PreferencesUpdate{Language: strPtr("es")}
	b := PreferencesUpdate{HighContrast: boolPtr(true), LargeText: boolPtr(true)}

	ab := base.Merge(a).Merge(b)
	ba := base.Merge(b).Merge(a)

	if ab != ba {
		t.Fatalf("merge not commutative: %+v vs %+v", ab, ba)
	}
	if ab.Language != "es" || !ab.Accessibility.HighContrast || !ab.Accessibility.LargeText {
		t.Fatalf("expected union of both updates, got %+v", ab)
	}
	if ab.Accessibility.ReducedMotion || ab.Accessibility.ScreenReader {
		t.Fatalf("untouched fields changed: %+v", ab)
	}
}

func TestPreferencesUpdate_Empty(t *testing.T) {
	if !(PreferencesUpdate{}).Empty() {
		t.Fatal("zero update should be empty")
	}
	if (PreferencesUpdate{ScreenReader: boolPtr(false)}).Empty() {
		t.Fatal("update with a field set should not be empty")
	}
}

func TestConsentMerge(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	c := Consent{Marketing: true, Cookies: true}

	got := c.Merge(ConsentUpdate{Marketing: boolPtr(false), DataSharing: boolPtr(true)}, now)

	if got.Marketing || !got.Cookies || !got.DataSharing {
		t.Fatalf("unexpected merge result: %+v", got)
	}
	if !got.LastUpdated.Equal(now) {
		t.Fatalf("expected last_updated %v, got %v", now, got.LastUpdated)
	}
}

func TestProfileClone_DeepCopiesExtra(t *testing.T) {
	p := &Profile{ID: "u1", Extra: map[string]string{"k": "v"}}
	c := p.Clone()
	c.Extra["k"] = "other"

	if p.Extra["k"] != "v" {
		t.Fatal("clone shares the extra map")
	}
	if (*Profile)(nil).Clone() != nil {
		t.Fatal("nil clone should be nil")
	}
}

func TestProfile_ApplyWritesOnlyPatchedRecords(t *testing.T) {
	base := NewProfile(&Principal{ID: "u1"}, RoleConsumer, map[string]string{"k": "v"}, time.Now())
	prefs := base.Preferences.Merge(PreferencesUpdate{Language: strPtr("fr")})

	patch := ProfilePatch{Preferences: &prefs}
	got := base.Apply(patch)

	if got.Preferences.Language != "fr" {
		t.Fatalf("preferences not applied: %+v", got.Preferences)
	}
	if got.Consent != base.Consent || got.RewardPoints != base.RewardPoints || got.Extra["k"] != "v" {
		t.Fatalf("unpatched fields changed: %+v", got)
	}
	if base.Preferences.Language != DefaultLanguage {
		t.Fatal("Apply mutated the receiver")
	}
	if fields := patch.Fields(); len(fields) != 1 || fields[0] != "preferences" {
		t.Fatalf("unexpected fields %v", fields)
	}
}

package ports

import (
	"context"

	"github.com/verdantmart/identity-gateway/internal/core/domain"
)

// ProfileRepository is the document store for profiles, keyed by principal id.
type ProfileRepository interface {
	// Get returns domain.ErrUserNotFound when no profile exists.
	Get(ctx context.Context, id string) (*domain.Profile, error)
	// Set replaces the stored document with profile, creating it if needed.
	Set(ctx context.Context, profile *domain.Profile) error
	// Merge writes only the sub-records patch carries onto the document of
	// id. Every other stored field is left untouched.
	Merge(ctx context.Context, id string, patch domain.ProfilePatch) error
}

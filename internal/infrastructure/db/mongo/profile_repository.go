package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/verdantmart/identity-gateway/internal/core/domain"
	"github.com/verdantmart/identity-gateway/internal/core/ports"
)

const collectionProfiles = "users"

// ProfileRepository implements ports.ProfileRepository using MongoDB.
// Documents are keyed by the principal id.
type ProfileRepository struct {
	coll *mongo.Collection
}

var _ ports.ProfileRepository = (*ProfileRepository)(nil)

func NewProfileRepository(db *mongo.Database) *ProfileRepository {
	return &ProfileRepository{coll: db.Collection(collectionProfiles)}
}

type mongoProfile struct {
	ID                  string             `bson:"_id"`
	Email               string             `bson:"email"`
	DisplayName         string             `bson:"display_name"`
	PhotoURL            string             `bson:"photo_url,omitempty"`
	Role                string             `bson:"role"`
	CreatedAt           time.Time          `bson:"created_at"`
	RewardPoints        int                `bson:"reward_points"`
	SustainabilityScore int                `bson:"sustainability_score"`
	CarbonSavedKg       float64            `bson:"carbon_saved_kg"`
	Consent             domain.Consent     `bson:"consent"`
	Preferences         domain.Preferences `bson:"preferences"`
	Extra               map[string]string  `bson:"extra,omitempty"`
}

func (r *ProfileRepository) Get(ctx context.Context, id string) (*domain.Profile, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var mp mongoProfile
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&mp); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find profile: %w", err)
	}
	return mp.toDomain(), nil
}

// Set replaces the stored document with profile, inserting it when absent.
func (r *ProfileRepository) Set(ctx context.Context, profile *domain.Profile) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := fromDomainProfile(profile)
	_, err := r.coll.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("replace profile: %w", err)
	}
	return nil
}

// Merge $sets only the sub-documents patch carries.
func (r *ProfileRepository) Merge(ctx context.Context, id string, patch domain.ProfilePatch) error {
	set := patchFields(patch)
	if len(set) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("merge profile: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func patchFields(patch domain.ProfilePatch) bson.M {
	set := bson.M{}
	if patch.Preferences != nil {
		set["preferences"] = *patch.Preferences
	}
	if patch.Consent != nil {
		set["consent"] = *patch.Consent
	}
	return set
}

func fromDomainProfile(p *domain.Profile) mongoProfile {
	return mongoProfile{
		ID:                  p.ID,
		Email:               p.Email,
		DisplayName:         p.DisplayName,
		PhotoURL:            p.PhotoURL,
		Role:                string(p.Role),
		CreatedAt:           p.CreatedAt.UTC(),
		RewardPoints:        p.RewardPoints,
		SustainabilityScore: p.SustainabilityScore,
		CarbonSavedKg:       p.CarbonSavedKg,
		Consent:             p.Consent,
		Preferences:         p.Preferences,
		Extra:               p.Extra,
	}
}

func (mp *mongoProfile) toDomain() *domain.Profile {
	role, err := domain.ParseRole(mp.Role)
	if err != nil {
		role = domain.RoleUser
	}
	return &domain.Profile{
		ID:                  mp.ID,
		Email:               mp.Email,
		DisplayName:         mp.DisplayName,
		PhotoURL:            mp.PhotoURL,
		Role:                role,
		CreatedAt:           mp.CreatedAt.UTC(),
		RewardPoints:        mp.RewardPoints,
		SustainabilityScore: mp.SustainabilityScore,
		CarbonSavedKg:       mp.CarbonSavedKg,
		Consent:             mp.Consent,
		Preferences:         mp.Preferences,
		Extra:               mp.Extra,
	}
}

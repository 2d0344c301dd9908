package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/verdantmart/identity-gateway/internal/core/domain"
	"github.com/verdantmart/identity-gateway/internal/core/ports"
)

const collectionCredentials = "auth_credentials"

// CredentialRepository implements ports.CredentialRepository using MongoDB.
type CredentialRepository struct {
	coll *mongo.Collection
}

var _ ports.CredentialRepository = (*CredentialRepository)(nil)

func NewCredentialRepository(db *mongo.Database) *CredentialRepository {
	return &CredentialRepository{coll: db.Collection(collectionCredentials)}
}

type mongoCredential struct {
	ID              primitive.ObjectID `bson:"_id,omitempty"`
	Email           string             `bson:"email"`
	DisplayName     string             `bson:"display_name"`
	PhotoURL        string             `bson:"photo_url,omitempty"`
	PasswordHash    string             `bson:"password_hash,omitempty"`
	Provider        string             `bson:"provider,omitempty"`
	ProviderSubject string             `bson:"provider_subject,omitempty"`
	CreatedAt       int64              `bson:"created_at"`
	LastSignInAt    int64              `bson:"last_sign_in_at,omitempty"`
	LastSignOutAt   int64              `bson:"last_sign_out_at,omitempty"`
}

func (r *CredentialRepository) Create(ctx context.Context, cred *domain.Credential) (*domain.Credential, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := mongoCredential{
		Email:           cred.Email,
		DisplayName:     cred.DisplayName,
		PhotoURL:        cred.PhotoURL,
		PasswordHash:    cred.PasswordHash,
		Provider:        cred.Provider,
		ProviderSubject: cred.ProviderSubject,
		CreatedAt:       timeToUnix(cred.CreatedAt),
		LastSignInAt:    timeToUnix(cred.LastSignInAt),
	}

	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrUserExists
		}
		return nil, fmt.Errorf("insert credential: %w", err)
	}

	id, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return nil, fmt.Errorf("insert credential: unexpected id type %T", res.InsertedID)
	}
	doc.ID = id
	return doc.toDomain(), nil
}

func (r *CredentialRepository) FindByEmail(ctx context.Context, email string) (*domain.Credential, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *CredentialRepository) FindByProvider(ctx context.Context, provider, subject string) (*domain.Credential, error) {
	return r.findOne(ctx, bson.M{"provider": provider, "provider_subject": subject})
}

func (r *CredentialRepository) TouchSignIn(ctx context.Context, principalID string, at time.Time) error {
	return r.touch(ctx, principalID, "last_sign_in_at", at)
}

func (r *CredentialRepository) TouchSignOut(ctx context.Context, principalID string, at time.Time) error {
	return r.touch(ctx, principalID, "last_sign_out_at", at)
}

func (r *CredentialRepository) findOne(ctx context.Context, filter bson.M) (*domain.Credential, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var mc mongoCredential
	if err := r.coll.FindOne(ctx, filter).Decode(&mc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find credential: %w", err)
	}
	return mc.toDomain(), nil
}

func (r *CredentialRepository) touch(ctx context.Context, principalID, field string, at time.Time) error {
	oid, err := primitive.ObjectIDFromHex(principalID)
	if err != nil {
		return domain.ErrUserNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.coll.UpdateByID(ctx, oid, bson.M{"$set": bson.M{field: timeToUnix(at)}})
	if err != nil {
		return fmt.Errorf("update credential: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (mc *mongoCredential) toDomain() *domain.Credential {
	return &domain.Credential{
		PrincipalID:     mc.ID.Hex(),
		Email:           mc.Email,
		DisplayName:     mc.DisplayName,
		PhotoURL:        mc.PhotoURL,
		PasswordHash:    mc.PasswordHash,
		Provider:        mc.Provider,
		ProviderSubject: mc.ProviderSubject,
		CreatedAt:       unixToTime(mc.CreatedAt),
		LastSignInAt:    unixToTime(mc.LastSignInAt),
		LastSignOutAt:   unixToTime(mc.LastSignOutAt),
	}
}

func unixToTime(ts int64) time.Time {
	if ts == 0 {
		return time.Time{}
	}
	return time.Unix(ts, 0).UTC()
}

func timeToUnix(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

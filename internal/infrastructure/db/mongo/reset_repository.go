package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/verdantmart/identity-gateway/internal/core/domain"
)

const collectionResets = "password_resets"

// ResetRepository stores issued password reset tokens. Documents expire
// through the TTL index on expires_at.
type ResetRepository struct {
	coll *mongo.Collection
}

func NewResetRepository(db *mongo.Database) *ResetRepository {
	return &ResetRepository{coll: db.Collection(collectionResets)}
}

type mongoReset struct {
	Token       string    `bson:"token"`
	PrincipalID string    `bson:"principal_id"`
	Email       string    `bson:"email"`
	ExpiresAt   time.Time `bson:"expires_at"`
	CreatedAt   time.Time `bson:"created_at"`
}

func (r *ResetRepository) Save(ctx context.Context, reset *domain.PasswordReset) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := mongoReset{
		Token:       reset.Token,
		PrincipalID: reset.PrincipalID,
		Email:       reset.Email,
		ExpiresAt:   reset.ExpiresAt.UTC(),
		CreatedAt:   reset.CreatedAt.UTC(),
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert reset: %w", err)
	}
	return nil
}

package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/daobinhgiang/bedtrack/internal/model"
)

// ProfileRepository is the profile store: one document per account, keyed by
// the session user identifier. Get returns (nil, nil) when no profile
// exists; absence is a domain state, not an error.
type ProfileRepository interface {
	Get(ctx context.Context, id string) (*model.Profile, error)
	Put(ctx context.Context, profile *model.Profile) error
}

const profileCollection = "users"

type profileMongoRepository struct {
	db *mongo.Database
}

func NewProfileMongoRepository(db *mongo.Database) ProfileRepository {
	return &profileMongoRepository{db: db}
}

func (r *profileMongoRepository) Get(ctx context.Context, id string) (*model.Profile, error) {
	result := r.db.Collection(profileCollection).FindOne(ctx, bson.M{"_id": id})
	if err := result.Err(); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}

	var profile model.Profile
	if err := result.Decode(&profile); err != nil {
		return nil, err
	}

	return &profile, nil
}

func (r *profileMongoRepository) Put(ctx context.Context, profile *model.Profile) error {
	if profile.ID == "" {
		return errors.New("profile ID is required")
	}

	profile.UpdatedAt = time.Now()
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = profile.UpdatedAt
	}

	_, err := r.db.Collection(profileCollection).ReplaceOne(
		ctx,
		bson.M{"_id": profile.ID},
		profile,
		options.Replace().SetUpsert(true),
	)
	return err
}

package repository

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/daobinhgiang/bedtrack/internal/model"
)

// ResetTokenRepository defines the interface for password reset token
// operations.
type ResetTokenRepository interface {
	// CreateToken stores a newly issued reset token.
	CreateToken(ctx context.Context, token *model.ResetToken) (*model.ResetToken, error)

	// GetTokenByJTI retrieves a token by its JTI.
	GetTokenByJTI(ctx context.Context, jti string) (*model.ResetToken, error)

	// MarkTokenAsUsed marks a token as redeemed.
	MarkTokenAsUsed(ctx context.Context, jti string) error

	// InvalidateAccountTokens marks all unused tokens of an account as used.
	InvalidateAccountTokens(ctx context.Context, accountID string) error
}

const resetTokenCollection = "reset_tokens"

type resetTokenMongoRepository struct {
	db *mongo.Database
}

// NewResetTokenMongoRepository creates a MongoDB repository for password
// reset tokens. Expired tokens are reaped by a TTL index.
func NewResetTokenMongoRepository(
	ctx context.Context,
	logger *zerolog.Logger,
	db *mongo.Database,
) ResetTokenRepository {
	collection := db.Collection(resetTokenCollection)

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "jti", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "account_id", Value: 1}},
		},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create reset token indexes")
	}

	return &resetTokenMongoRepository{db: db}
}

func (r *resetTokenMongoRepository) CreateToken(
	ctx context.Context,
	token *model.ResetToken,
) (*model.ResetToken, error) {
	now := time.Now()
	token.CreatedAt = now
	token.UpdatedAt = now
	token.Used = false

	result, err := r.db.Collection(resetTokenCollection).InsertOne(ctx, token)
	if err != nil {
		return nil, err
	}

	if objectID, ok := result.InsertedID.(bson.ObjectID); ok {
		token.ID = objectID
	}

	return token, nil
}

func (r *resetTokenMongoRepository) GetTokenByJTI(ctx context.Context, jti string) (*model.ResetToken, error) {
	var token model.ResetToken
	err := r.db.Collection(resetTokenCollection).FindOne(ctx, bson.M{"jti": jti}).Decode(&token)
	if err != nil {
		return nil, err
	}

	return &token, nil
}

func (r *resetTokenMongoRepository) MarkTokenAsUsed(ctx context.Context, jti string) error {
	update := bson.M{
		"$set": bson.M{
			"used":       true,
			"updated_at": time.Now(),
		},
	}

	_, err := r.db.Collection(resetTokenCollection).UpdateOne(ctx, bson.M{"jti": jti}, update)
	return err
}

func (r *resetTokenMongoRepository) InvalidateAccountTokens(ctx context.Context, accountID string) error {
	filter := bson.M{
		"account_id": accountID,
		"used":       false,
	}
	update := bson.M{
		"$set": bson.M{
			"used":       true,
			"updated_at": time.Now(),
		},
	}

	_, err := r.db.Collection(resetTokenCollection).UpdateMany(ctx, filter, update)
	return err
}

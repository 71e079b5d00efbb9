package model

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// ResetToken records an issued password reset token by its JTI so that a
// token can only be redeemed once and can be invalidated server-side.
type ResetToken struct {
	ID        bson.ObjectID `bson:"_id,omitempty"`
	AccountID string        `bson:"account_id"`
	JTI       string        `bson:"jti"`
	Email     string        `bson:"email"`
	Used      bool          `bson:"used"`
	ExpiresAt time.Time     `bson:"expires_at"`
	CreatedAt time.Time     `bson:"created_at"`
	UpdatedAt time.Time     `bson:"updated_at"`
}

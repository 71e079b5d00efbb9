package model

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Identity maps an account to an external provider identity (Google, etc.).
// Password accounts have no identity record; a social sign-in always has
// exactly one per provider.
type Identity struct {
	ID          bson.ObjectID `bson:"_id,omitempty"`
	AccountID   string        `bson:"account_id"`
	Provider    string        `bson:"provider"`
	ProviderID  string        `bson:"provider_id"`
	Email       string        `bson:"email"`
	LastLoginAt time.Time     `bson:"last_login_at"`
	CreatedAt   time.Time     `bson:"created_at"`
	UpdatedAt   time.Time     `bson:"updated_at"`
}

package model

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Account is the credential-service record behind a session user. It carries
// authentication material only; everything the application knows about a
// person lives in their Profile.
type Account struct {
	ID           bson.ObjectID `bson:"_id,omitempty"`
	Email        string        `bson:"email"`
	PasswordHash string        `bson:"password_hash,omitempty"`
	DisplayName  string        `bson:"display_name,omitempty"`
	Disabled     bool          `bson:"disabled"`
	CreatedAt    time.Time     `bson:"created_at"`
	UpdatedAt    time.Time     `bson:"updated_at"`
}

// SessionUser is the opaque identity handle the credential service hands out
// once a person is authenticated. Email and DisplayName may be empty for
// accounts created through a social provider that withheld them.
type SessionUser struct {
	ID          string
	Email       string
	DisplayName string
}

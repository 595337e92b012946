package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Identity is a named subject stored in mongo. The embedding is optional:
// an identity may exist before any face has been enrolled for it.
type Identity struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name      string             `bson:"name" json:"name"`
	Role      string             `bson:"role,omitempty" json:"role,omitempty"`
	Embedding []float64          `bson:"embedding,omitempty" json:"embedding,omitempty"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}

package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/openlock/access-services/internal/locksvc/models"
)

const identityCollection = "identities"

// IdentityStore keeps named subjects and their face embeddings in mongo.
type IdentityStore struct {
	coll *mongo.Collection
}

func NewIdentityStore(db *mongo.Database) *IdentityStore {
	return &IdentityStore{coll: db.Collection(identityCollection)}
}

func (s *IdentityStore) List(ctx context.Context) ([]*models.Identity, error) {
	cur, err := s.coll.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to list identities: %w", err)
	}
	defer cur.Close(ctx)

	var identities []*models.Identity
	if err := cur.All(ctx, &identities); err != nil {
		return nil, fmt.Errorf("failed to decode identities: %w", err)
	}

	return identities, nil
}

func (s *IdentityStore) GetByName(ctx context.Context, name string) (*models.Identity, error) {
	var identity models.Identity
	err := s.coll.FindOne(ctx, bson.M{"name": name}).Decode(&identity)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get identity by name: %w", err)
	}

	return &identity, nil
}

// Upsert writes the embedding for a subject, creating the identity if needed.
func (s *IdentityStore) Upsert(ctx context.Context, name string, embedding []float64) (*models.Identity, error) {
	now := time.Now().UTC()

	filter := bson.M{"name": name}
	update := bson.M{
		"$set": bson.M{
			"name":       name,
			"embedding":  embedding,
			"updated_at": now,
		},
		"$setOnInsert": bson.M{
			"created_at": now,
		},
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var identity models.Identity
	err := s.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&identity)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert identity: %w", err)
	}

	return &identity, nil
}

package service

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/openlock/access-services/internal/locksvc/models"
)

// Reserved subject names in recognition results.
const (
	SubjectNoFace  = "NoFace"  // the frame carried no embedding at all
	SubjectUnknown = "Unknown" // nobody scored above the acceptance threshold
)

// Face enrollment outcomes.
const (
	FaceCreated = "CREATED"
	FaceExists  = "FACE_EXISTS"
)

// CosineSimilarity returns dot(a,b)/(|a|*|b|). Mismatched lengths and
// zero-norm vectors score -1 so they can never win a match.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) {
		return -1
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return -1
	}

	return dot / denom
}

type IdentityStore interface {
	List(ctx context.Context) ([]*models.Identity, error)
	Upsert(ctx context.Context, name string, embedding []float64) (*models.Identity, error)
}

// MatchResult is the outcome of matching one presented embedding.
type MatchResult struct {
	Subject string
	Score   float64
}

// Known reports whether the result names an actual identity.
func (m MatchResult) Known() bool {
	return m.Subject != SubjectNoFace && m.Subject != SubjectUnknown
}

// Recognizer matches presented embeddings against stored identities and
// guards enrollment against near-duplicate faces.
type Recognizer struct {
	identities      IdentityStore
	acceptThreshold float64
	dedupThreshold  float64
}

func NewRecognizer(identities IdentityStore, acceptThreshold, dedupThreshold float64) *Recognizer {
	return &Recognizer{
		identities:      identities,
		acceptThreshold: acceptThreshold,
		dedupThreshold:  dedupThreshold,
	}
}

// Match finds the best-scoring identity for the embedding. A nil or empty
// embedding means the upstream detector saw no face.
func (r *Recognizer) Match(ctx context.Context, embedding []float64) (MatchResult, error) {
	if len(embedding) == 0 {
		return MatchResult{Subject: SubjectNoFace, Score: 0}, nil
	}

	best, score, err := r.bestMatch(ctx, embedding, "")
	if err != nil {
		return MatchResult{}, err
	}

	if best == "" || score < r.acceptThreshold {
		return MatchResult{Subject: SubjectUnknown, Score: score}, nil
	}

	return MatchResult{Subject: best, Score: score}, nil
}

// FaceEnrollResult reports how a face registration was handled.
type FaceEnrollResult struct {
	Status   string // CREATED or FACE_EXISTS
	Existing string // set on FACE_EXISTS: the already-enrolled identity
	Score    float64
	Identity *models.Identity // set on CREATED
}

// Enroll saves the embedding for the named subject unless another identity
// already matches it at or above the dedup threshold. Re-enrolling the same
// name replaces that subject's own embedding.
func (r *Recognizer) Enroll(ctx context.Context, name string, embedding []float64) (*FaceEnrollResult, error) {
	best, score, err := r.bestMatch(ctx, embedding, name)
	if err != nil {
		return nil, err
	}

	if best != "" && score >= r.dedupThreshold {
		return &FaceEnrollResult{
			Status:   FaceExists,
			Existing: best,
			Score:    score,
		}, nil
	}

	identity, err := r.identities.Upsert(ctx, name, embedding)
	if err != nil {
		return nil, err
	}

	return &FaceEnrollResult{Status: FaceCreated, Identity: identity}, nil
}

// bestMatch scans all stored embeddings, skipping the named identity when
// skip is non-empty.
func (r *Recognizer) bestMatch(ctx context.Context, embedding []float64, skip string) (string, float64, error) {
	identities, err := r.identities.List(ctx)
	if err != nil {
		return "", -1, err
	}

	bestName := ""
	bestScore := -1.0
	for _, identity := range identities {
		if len(identity.Embedding) == 0 {
			continue
		}
		if skip != "" && identity.Name == skip {
			continue
		}

		score := CosineSimilarity(embedding, identity.Embedding)
		if score > bestScore {
			bestScore = score
			bestName = identity.Name
		}
	}

	return bestName, bestScore, nil
}

// Cooldown suppresses repeated face grants per device while a continuous
// recognition stream keeps re-matching the same person.
type Cooldown struct {
	interval time.Duration

	mu   sync.Mutex
	last map[int64]time.Time
}

func NewCooldown(interval time.Duration) *Cooldown {
	return &Cooldown{
		interval: interval,
		last:     make(map[int64]time.Time),
	}
}

// Allow reports whether a grant attempt may proceed for the device, and
// starts the cooldown when it does.
func (c *Cooldown) Allow(deviceID int64, now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if last, ok := c.last[deviceID]; ok && now.Sub(last) < c.interval {
		return false
	}

	c.last[deviceID] = now
	return true
}

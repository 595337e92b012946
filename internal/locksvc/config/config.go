package config

import (
	"os"
	"strconv"
	"time"
)

// Policy holds the decision parameters for the coordinator. All values are
// process-wide; per-device tuning is not supported.
type Policy struct {
	AcceptThreshold float64       // minimum cosine score to accept a face match
	DedupThreshold  float64       // score at or above which a new enrollment is a duplicate
	AuthWindow      time.Duration // max spread between the two factors under AND policy
	FaceCooldown    time.Duration // suppress repeated face grants per device
	EnrollTTL       time.Duration // armed enrollment session expiry
}

func LoadPolicy() Policy {
	return Policy{
		AcceptThreshold: envFloat("FACE_ACCEPT_THRESHOLD", 0.9),
		DedupThreshold:  envFloat("FACE_DEDUP_THRESHOLD", 0.8),
		AuthWindow:      envDuration("AUTH_WINDOW", 10*time.Second),
		FaceCooldown:    envDuration("FACE_COOLDOWN", 5*time.Second),
		EnrollTTL:       envDuration("ENROLL_TTL", 120*time.Second),
	}
}

func envFloat(key string, def float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return def
	}
	return v
}

func envDuration(key string, def time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return v
}

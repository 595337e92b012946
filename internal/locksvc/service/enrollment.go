package service

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/openlock/access-services/internal/locksvc/models"
)

// Card enrollment outcomes.
const (
	EnrollCreated = "CREATED"
	EnrollExisted = "EXISTED"
)

type CardStore interface {
	GetByUID(ctx context.Context, uid string) (*models.Card, error)
	Create(ctx context.Context, uid, label string) (*models.Card, error)
	UpdateLabel(ctx context.Context, id int64, label string) error
}

type BindingStore interface {
	Exists(ctx context.Context, deviceID, cardID int64) (bool, error)
	Create(ctx context.Context, deviceID, cardID int64) error
}

type session struct {
	label    string
	deadline time.Time
}

// Sessions holds the armed card-enrollment state, one session per device.
// Arming a device never disturbs another device's in-flight session. A
// session is consumed by exactly one scan, cancelled explicitly, or expires
// after the TTL; expiry is checked lazily on the next scan.
type Sessions struct {
	cards    CardStore
	bindings BindingStore
	ttl      time.Duration

	mu       sync.Mutex
	byDevice map[int64]*session
}

func NewSessions(cards CardStore, bindings BindingStore, ttl time.Duration) *Sessions {
	return &Sessions{
		cards:    cards,
		bindings: bindings,
		ttl:      ttl,
		byDevice: make(map[int64]*session),
	}
}

// Start arms enrollment for a device. A previous armed session on the same
// device is overwritten, last writer wins.
func (s *Sessions) Start(deviceID int64, label string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.byDevice[deviceID] = &session{
		label:    label,
		deadline: time.Now().Add(s.ttl),
	}
}

func (s *Sessions) Cancel(deviceID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.byDevice, deviceID)
}

// Armed reports whether the device has a live (non-expired) session.
func (s *Sessions) Armed(deviceID int64, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.byDevice[deviceID]
	if !ok {
		return false
	}
	if now.After(sess.deadline) {
		delete(s.byDevice, deviceID)
		log.Infof("enrollment session for device %d expired unconsumed", deviceID)
		return false
	}
	return true
}

// ConsumeResult reports how a scan was consumed by an armed session.
type ConsumeResult struct {
	Outcome string // CREATED or EXISTED
	Card    *models.Card
}

// ConsumeCard binds the scanned card to the armed device. The session is
// disarmed before any store write happens: one scan consumes it regardless
// of outcome, including a failed write.
func (s *Sessions) ConsumeCard(ctx context.Context, deviceID int64, uid string, now time.Time) (*ConsumeResult, error) {
	s.mu.Lock()
	sess, ok := s.byDevice[deviceID]
	if ok {
		delete(s.byDevice, deviceID)
	}
	s.mu.Unlock()

	if !ok || now.After(sess.deadline) {
		return nil, nil
	}

	card, err := s.cards.GetByUID(ctx, uid)
	if err != nil {
		return nil, err
	}
	if card == nil {
		card, err = s.cards.Create(ctx, uid, sess.label)
		if err != nil {
			return nil, err
		}
	} else if sess.label != "" && card.Label != sess.label {
		if err := s.cards.UpdateLabel(ctx, card.ID, sess.label); err != nil {
			return nil, err
		}
		card.Label = sess.label
	}

	exists, err := s.bindings.Exists(ctx, deviceID, card.ID)
	if err != nil {
		return nil, err
	}
	if exists {
		return &ConsumeResult{Outcome: EnrollExisted, Card: card}, nil
	}

	if err := s.bindings.Create(ctx, deviceID, card.ID); err != nil {
		return nil, err
	}

	return &ConsumeResult{Outcome: EnrollCreated, Card: card}, nil
}

package service

import (
	"sync"
	"time"

	"github.com/openlock/access-services/internal/locksvc/models"
)

type combinedState struct {
	rfidDone bool
	faceDone bool
	rfidAt   time.Time
	faceAt   time.Time
}

func (st *combinedState) clear() {
	st.rfidDone = false
	st.faceDone = false
	st.rfidAt = time.Time{}
	st.faceAt = time.Time{}
}

// CombinedAuth tracks factor successes per device for AND-policy unlocks.
// Staleness is evaluated lazily on the next factor success; no timer runs.
type CombinedAuth struct {
	window time.Duration

	mu     sync.Mutex
	states map[int64]*combinedState
}

func NewCombinedAuth(window time.Duration) *CombinedAuth {
	return &CombinedAuth{
		window: window,
		states: make(map[int64]*combinedState),
	}
}

// FactorSuccess records one factor success and reports whether the device
// now has both factors inside the window. On a grant the state is cleared so
// stale timestamps can never be replayed. If either factor is outside the
// window the whole state resets and both factors must be presented again.
func (c *CombinedAuth) FactorSuccess(deviceID int64, factor string, now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	st, ok := c.states[deviceID]
	if !ok {
		st = &combinedState{}
		c.states[deviceID] = st
	}

	switch factor {
	case models.FactorRFID:
		st.rfidDone = true
		st.rfidAt = now
	case models.FactorFace:
		st.faceDone = true
		st.faceAt = now
	default:
		return false
	}

	if !st.rfidDone || !st.faceDone {
		return false
	}

	if now.Sub(st.rfidAt) > c.window || now.Sub(st.faceAt) > c.window {
		st.clear()
		return false
	}

	st.clear()
	return true
}

package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/openlock/access-services/internal/locksvc/models"
)

const window = 10 * time.Second

func TestCombinedAuth_SingleFactorWaits(t *testing.T) {
	c := NewCombinedAuth(window)
	now := time.Now()

	assert.False(t, c.FactorSuccess(1, models.FactorRFID, now))
}

func TestCombinedAuth_GrantsWithinWindow(t *testing.T) {
	c := NewCombinedAuth(window)
	now := time.Now()

	assert.False(t, c.FactorSuccess(1, models.FactorRFID, now))
	assert.True(t, c.FactorSuccess(1, models.FactorFace, now.Add(window-time.Millisecond)))
}

func TestCombinedAuth_GrantClearsState(t *testing.T) {
	c := NewCombinedAuth(window)
	now := time.Now()

	c.FactorSuccess(1, models.FactorRFID, now)
	assert.True(t, c.FactorSuccess(1, models.FactorFace, now.Add(time.Second)))

	// a grant consumes both factors, stale timestamps cannot be replayed
	assert.False(t, c.FactorSuccess(1, models.FactorRFID, now.Add(2*time.Second)))
}

func TestCombinedAuth_StaleWindowResets(t *testing.T) {
	c := NewCombinedAuth(window)
	now := time.Now()

	assert.False(t, c.FactorSuccess(1, models.FactorRFID, now))
	assert.False(t, c.FactorSuccess(1, models.FactorFace, now.Add(window+time.Millisecond)))

	// the reset cleared both factors, a lone card success starts over
	assert.False(t, c.FactorSuccess(1, models.FactorRFID, now.Add(window+2*time.Second)))
}

func TestCombinedAuth_ScenarioCardThenFace(t *testing.T) {
	c := NewCombinedAuth(window)
	t0 := time.Now()

	// RFID at t=0, face at t=5s, window 10s
	assert.False(t, c.FactorSuccess(7, models.FactorRFID, t0))
	assert.True(t, c.FactorSuccess(7, models.FactorFace, t0.Add(5*time.Second)))
}

func TestCombinedAuth_ScenarioFaceTooLate(t *testing.T) {
	c := NewCombinedAuth(window)
	t0 := time.Now()

	assert.False(t, c.FactorSuccess(7, models.FactorRFID, t0))
	assert.False(t, c.FactorSuccess(7, models.FactorFace, t0.Add(15*time.Second)))
	assert.False(t, c.FactorSuccess(7, models.FactorRFID, t0.Add(16*time.Second)))
}

func TestCombinedAuth_DevicesIndependent(t *testing.T) {
	c := NewCombinedAuth(window)
	now := time.Now()

	c.FactorSuccess(1, models.FactorRFID, now)
	c.FactorSuccess(2, models.FactorFace, now)

	// neither device has both factors
	assert.False(t, c.FactorSuccess(1, models.FactorRFID, now.Add(time.Second)))
	assert.False(t, c.FactorSuccess(2, models.FactorFace, now.Add(time.Second)))

	assert.True(t, c.FactorSuccess(1, models.FactorFace, now.Add(2*time.Second)))
	assert.True(t, c.FactorSuccess(2, models.FactorRFID, now.Add(2*time.Second)))
}

func TestCombinedAuth_UnknownFactorIgnored(t *testing.T) {
	c := NewCombinedAuth(window)
	now := time.Now()

	assert.False(t, c.FactorSuccess(1, "IRIS", now))
	c.FactorSuccess(1, models.FactorRFID, now)
	assert.True(t, c.FactorSuccess(1, models.FactorFace, now.Add(time.Second)))
}

package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openlock/access-services/internal/locksvc/store"
)

func TestResolver_Idempotent(t *testing.T) {
	devices := newFakeDeviceStore()
	r := NewDeviceResolver(devices)

	first, err := r.Resolve(context.Background(), store.ChannelReader, "chip-01")
	require.NoError(t, err)

	second, err := r.Resolve(context.Background(), store.ChannelReader, "chip-01")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
}

func TestResolver_ClaimsOldestUnbound(t *testing.T) {
	devices := newFakeDeviceStore()
	oldest := devices.addUnbound("Front Door")
	devices.addUnbound("Back Door")

	r := NewDeviceResolver(devices)

	resolved, err := r.Resolve(context.Background(), store.ChannelReader, "chip-01")
	require.NoError(t, err)

	assert.Equal(t, oldest.ID, resolved.ID)
	require.NotNil(t, resolved.ReaderChipId)
	assert.Equal(t, "chip-01", *resolved.ReaderChipId)
}

func TestResolver_ProvisionsWhenNoCandidate(t *testing.T) {
	devices := newFakeDeviceStore()
	r := NewDeviceResolver(devices)

	resolved, err := r.Resolve(context.Background(), store.ChannelReader, "chip-abcdef")
	require.NoError(t, err)

	assert.Equal(t, "Device cdef", resolved.Name)
	require.NotNil(t, resolved.ReaderChipId)
	assert.Equal(t, "chip-abcdef", *resolved.ReaderChipId)
}

func TestResolver_ChannelsIndependent(t *testing.T) {
	devices := newFakeDeviceStore()
	device := devices.addUnbound("Front Door")

	r := NewDeviceResolver(devices)

	byReader, err := r.Resolve(context.Background(), store.ChannelReader, "reader-01")
	require.NoError(t, err)
	assert.Equal(t, device.ID, byReader.ID)

	// the camera channel of the same device is still unbound
	byCamera, err := r.Resolve(context.Background(), store.ChannelCamera, "cam-01")
	require.NoError(t, err)
	assert.Equal(t, device.ID, byCamera.ID)

	require.NotNil(t, byCamera.ReaderChipId)
	require.NotNil(t, byCamera.CameraChipId)
}

func TestResolver_ConcurrentDistinctChips(t *testing.T) {
	devices := newFakeDeviceStore()
	devices.addUnbound("Front Door")
	devices.addUnbound("Back Door")

	r := NewDeviceResolver(devices)

	var wg sync.WaitGroup
	results := make([]int64, 2)
	chips := []string{"chip-01", "chip-02"}

	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			d, err := r.Resolve(context.Background(), store.ChannelReader, chips[i])
			if assert.NoError(t, err) {
				results[i] = d.ID
			}
		}(i)
	}
	wg.Wait()

	assert.NotEqual(t, results[0], results[1], "two different chips must never claim the same device")
}

func TestResolver_ConcurrentSameChip(t *testing.T) {
	devices := newFakeDeviceStore()
	r := NewDeviceResolver(devices)

	var wg sync.WaitGroup
	results := make([]int64, 4)

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			d, err := r.Resolve(context.Background(), store.ChannelReader, "chip-01")
			if assert.NoError(t, err) {
				results[i] = d.ID
			}
		}(i)
	}
	wg.Wait()

	for _, id := range results[1:] {
		assert.Equal(t, results[0], id)
	}
}

func TestResolver_LookupDoesNotProvision(t *testing.T) {
	devices := newFakeDeviceStore()
	r := NewDeviceResolver(devices)

	d, err := r.Lookup(context.Background(), store.ChannelReader, "chip-01")
	require.NoError(t, err)
	assert.Nil(t, d)
	assert.Empty(t, devices.devices)
}

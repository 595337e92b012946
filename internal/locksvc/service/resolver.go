package service

import (
	"context"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/openlock/access-services/internal/locksvc/models"
	"github.com/openlock/access-services/internal/locksvc/store"
)

// DeviceStore is the slice of the device store the resolver needs.
type DeviceStore interface {
	GetByChipId(ctx context.Context, channel store.Channel, chipId string) (*models.Device, error)
	ClaimChip(ctx context.Context, channel store.Channel, chipId string) (*models.Device, error)
	Create(ctx context.Context, name string, channel store.Channel, chipId string) (*models.Device, error)
}

// DeviceResolver maps a raw hardware chip id to a logical device. Resolution
// order: exact chip match, then claim of the oldest device with no binding on
// the channel, then provisioning a brand-new device. Step 3 always succeeds,
// so resolution never reports an unknown device.
type DeviceResolver struct {
	devices DeviceStore

	// one claim at a time per channel, so two first-reports of different
	// chip ids never claim the same unbound device
	readerMu sync.Mutex
	cameraMu sync.Mutex
}

func NewDeviceResolver(devices DeviceStore) *DeviceResolver {
	return &DeviceResolver{devices: devices}
}

func (r *DeviceResolver) Resolve(ctx context.Context, channel store.Channel, chipId string) (*models.Device, error) {
	device, err := r.devices.GetByChipId(ctx, channel, chipId)
	if err != nil {
		return nil, err
	}
	if device != nil {
		return device, nil
	}

	mu := r.channelMu(channel)
	mu.Lock()
	defer mu.Unlock()

	// re-check under the lock, a concurrent report may have claimed already
	device, err = r.devices.GetByChipId(ctx, channel, chipId)
	if err != nil {
		return nil, err
	}
	if device != nil {
		return device, nil
	}

	device, err = r.devices.ClaimChip(ctx, channel, chipId)
	if err != nil {
		return nil, err
	}
	if device != nil {
		log.Infof("claimed %s chip %s for existing device %d", channel, chipId, device.ID)
		return device, nil
	}

	device, err = r.devices.Create(ctx, deviceName(chipId), channel, chipId)
	if err != nil {
		return nil, err
	}
	log.Infof("provisioned new device %d for %s chip %s", device.ID, channel, chipId)

	return device, nil
}

// Lookup finds the device bound to a chip id without claiming or
// provisioning. Used for reports that must not create devices, like door
// state updates. Returns nil when the chip id is unknown.
func (r *DeviceResolver) Lookup(ctx context.Context, channel store.Channel, chipId string) (*models.Device, error) {
	return r.devices.GetByChipId(ctx, channel, chipId)
}

func (r *DeviceResolver) channelMu(channel store.Channel) *sync.Mutex {
	if channel == store.ChannelCamera {
		return &r.cameraMu
	}
	return &r.readerMu
}

func deviceName(chipId string) string {
	suffix := chipId
	if len(suffix) > 4 {
		suffix = suffix[len(suffix)-4:]
	}
	return fmt.Sprintf("Device %s", suffix)
}

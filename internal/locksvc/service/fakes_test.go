package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/openlock/access-services/internal/locksvc/models"
	"github.com/openlock/access-services/internal/locksvc/store"
)

// In-memory store fakes so the decision pipeline can be exercised without
// postgres or mongo.

type fakeIdentityStore struct {
	mu         sync.Mutex
	identities []*models.Identity
}

func newFakeIdentityStore() *fakeIdentityStore {
	return &fakeIdentityStore{}
}

func (f *fakeIdentityStore) add(name string, embedding []float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.identities = append(f.identities, &models.Identity{Name: name, Embedding: embedding})
}

func (f *fakeIdentityStore) get(name string) *models.Identity {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, identity := range f.identities {
		if identity.Name == name {
			return identity
		}
	}
	return nil
}

func (f *fakeIdentityStore) List(ctx context.Context) ([]*models.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.Identity, len(f.identities))
	copy(out, f.identities)
	return out, nil
}

func (f *fakeIdentityStore) Upsert(ctx context.Context, name string, embedding []float64) (*models.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, identity := range f.identities {
		if identity.Name == name {
			identity.Embedding = embedding
			return identity, nil
		}
	}
	identity := &models.Identity{Name: name, Embedding: embedding}
	f.identities = append(f.identities, identity)
	return identity, nil
}

type fakeDeviceStore struct {
	mu      sync.Mutex
	nextID  int64
	devices []*models.Device
}

func newFakeDeviceStore() *fakeDeviceStore {
	return &fakeDeviceStore{nextID: 1}
}

func (f *fakeDeviceStore) addUnbound(name string) *models.Device {
	f.mu.Lock()
	defer f.mu.Unlock()
	d := &models.Device{
		ID:        f.nextID,
		Name:      name,
		Policy:    models.PolicyOR,
		DoorState: models.DoorClosed,
		CreatedAt: time.Now().Add(time.Duration(f.nextID) * time.Millisecond),
	}
	f.nextID++
	f.devices = append(f.devices, d)
	return d
}

func chipField(d *models.Device, channel store.Channel) **string {
	if channel == store.ChannelCamera {
		return &d.CameraChipId
	}
	return &d.ReaderChipId
}

func (f *fakeDeviceStore) GetByChipId(ctx context.Context, channel store.Channel, chipId string) (*models.Device, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range f.devices {
		chip := *chipField(d, channel)
		if chip != nil && *chip == chipId {
			return d, nil
		}
	}
	return nil, nil
}

func (f *fakeDeviceStore) ClaimChip(ctx context.Context, channel store.Channel, chipId string) (*models.Device, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var oldest *models.Device
	for _, d := range f.devices {
		if *chipField(d, channel) != nil {
			continue
		}
		if oldest == nil || d.CreatedAt.Before(oldest.CreatedAt) {
			oldest = d
		}
	}
	if oldest == nil {
		return nil, nil
	}
	chip := chipId
	*chipField(oldest, channel) = &chip
	return oldest, nil
}

func (f *fakeDeviceStore) Create(ctx context.Context, name string, channel store.Channel, chipId string) (*models.Device, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d := &models.Device{
		ID:        f.nextID,
		Name:      name,
		Policy:    models.PolicyOR,
		DoorState: models.DoorClosed,
		CreatedAt: time.Now(),
	}
	f.nextID++
	if chipId != "" {
		chip := chipId
		*chipField(d, channel) = &chip
	}
	f.devices = append(f.devices, d)
	return d, nil
}

func (f *fakeDeviceStore) UpdateDoorState(ctx context.Context, id int64, doorState string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range f.devices {
		if d.ID == id {
			d.DoorState = doorState
			return nil
		}
	}
	return errors.New("device not found")
}

type fakeCardStore struct {
	mu     sync.Mutex
	nextID int64
	cards  []*models.Card
}

func newFakeCardStore() *fakeCardStore {
	return &fakeCardStore{nextID: 1}
}

func (f *fakeCardStore) GetByUID(ctx context.Context, uid string) (*models.Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.cards {
		if c.UID == uid {
			return c, nil
		}
	}
	return nil, nil
}

func (f *fakeCardStore) Create(ctx context.Context, uid, label string) (*models.Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := &models.Card{ID: f.nextID, UID: uid, Label: label}
	f.nextID++
	f.cards = append(f.cards, c)
	return c, nil
}

func (f *fakeCardStore) UpdateLabel(ctx context.Context, id int64, label string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.cards {
		if c.ID == id {
			c.Label = label
			return nil
		}
	}
	return errors.New("card not found")
}

type bindingKey struct {
	deviceID int64
	cardID   int64
}

type fakeBindingStore struct {
	mu       sync.Mutex
	bindings map[bindingKey]bool
}

func newFakeBindingStore() *fakeBindingStore {
	return &fakeBindingStore{bindings: make(map[bindingKey]bool)}
}

func (f *fakeBindingStore) Exists(ctx context.Context, deviceID, cardID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bindings[bindingKey{deviceID, cardID}], nil
}

func (f *fakeBindingStore) Create(ctx context.Context, deviceID, cardID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bindings[bindingKey{deviceID, cardID}] = true
	return nil
}

func (f *fakeBindingStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.bindings)
}

type fakeLogStore struct {
	mu     sync.Mutex
	nextID int64
	logs   []*models.AccessLog
	fail   bool
}

func newFakeLogStore() *fakeLogStore {
	return &fakeLogStore{nextID: 1}
}

func (f *fakeLogStore) Create(ctx context.Context, deviceID int64, subject, factor, result string) (*models.AccessLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return nil, errors.New("audit write failed")
	}
	rec := &models.AccessLog{
		ID:        f.nextID,
		DeviceID:  deviceID,
		Subject:   subject,
		Factor:    factor,
		Result:    result,
		CreatedAt: time.Now(),
	}
	f.nextID++
	f.logs = append(f.logs, rec)
	return rec, nil
}

func (f *fakeLogStore) records() []*models.AccessLog {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.AccessLog, len(f.logs))
	copy(out, f.logs)
	return out
}

type notification struct {
	msgType string
	payload interface{}
}

type fakeNotifier struct {
	mu            sync.Mutex
	notifications []notification
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{}
}

func (f *fakeNotifier) Notify(msgType string, payload interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notifications = append(f.notifications, notification{msgType: msgType, payload: payload})
}

func (f *fakeNotifier) byType(msgType string) []notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []notification
	for _, n := range f.notifications {
		if n.msgType == msgType {
			out = append(out, n)
		}
	}
	return out
}

type fakeUnlocker struct {
	mu      sync.Mutex
	unlocks []string
}

func newFakeUnlocker() *fakeUnlocker {
	return &fakeUnlocker{}
}

func (f *fakeUnlocker) Unlock(chipId string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unlocks = append(f.unlocks, chipId)
	return nil
}

func (f *fakeUnlocker) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.unlocks)
}

// flush waits until every task queued before it on the device's inbox has
// run, relying on FIFO ordering.
func flush(d *Dispatcher, deviceID int64) {
	done := make(chan struct{})
	d.Enqueue(deviceID, func() { close(done) })
	<-done
}

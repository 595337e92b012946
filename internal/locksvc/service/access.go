package service

import (
	"context"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/openlock/access-services/internal/comm"
	"github.com/openlock/access-services/internal/locksvc/models"
	"github.com/openlock/access-services/internal/locksvc/store"
)

// Notifier fans one outcome out to dashboard subscribers. Implementations
// must not block decision processing on a slow subscriber.
type Notifier interface {
	Notify(msgType string, payload interface{})
}

// Unlocker issues the open command on a device's control channel.
type Unlocker interface {
	Unlock(chipId string) error
}

type AccessLogWriter interface {
	Create(ctx context.Context, deviceID int64, subject, factor, result string) (*models.AccessLog, error)
}

type DoorStateWriter interface {
	UpdateDoorState(ctx context.Context, id int64, doorState string) error
}

const storeTimeout = 10 * time.Second

// AccessService is the decision coordinator: it routes raw hardware events
// to enrollment or authentication, applies the device's OR/AND policy and
// publishes the outcome. State mutation happens on the device's dispatcher
// queue; durable writes and notifications follow after state is released.
type AccessService struct {
	Resolver   *DeviceResolver
	Sessions   *Sessions
	Recognizer *Recognizer
	Cooldown   *Cooldown
	Combined   *CombinedAuth
	Dispatcher *Dispatcher

	Cards    CardStore
	Bindings BindingStore
	Devices  DoorStateWriter
	Logs     AccessLogWriter

	Notifier Notifier
	Unlocker Unlocker
}

// HandleCardScan processes one card report from a reader board.
func (s *AccessService) HandleCardScan(rpt comm.CardScanReport) {
	if err := rpt.Validate(); err != nil {
		log.Errorf("dropping malformed card scan: %s", err)
		return
	}
	if rpt.ChipId == "" {
		// a scan with no board id cannot be routed to a device
		log.Warnf("card scan %s carries no chip_id, dropping", rpt.UID)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	device, err := s.Resolver.Resolve(ctx, store.ChannelReader, rpt.ChipId)
	if err != nil {
		log.Errorf("Error [Resolver.Resolve] %s", err)
		return
	}

	s.Dispatcher.Enqueue(device.ID, func() {
		s.processCardScan(device, rpt.UID)
	})
}

func (s *AccessService) processCardScan(device *models.Device, uid string) {
	now := time.Now()
	armed := s.Sessions.Armed(device.ID, now)

	mode := "NORMAL"
	if armed {
		mode = "REGISTER"
	}
	s.Notifier.Notify("card-scan", comm.ScanNotice{
		UID:      uid,
		Mode:     mode,
		DeviceId: deviceIdStr(device.ID),
	})

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	if armed {
		s.consumeEnrollment(ctx, device, uid, now)
		return
	}

	s.authenticateCard(ctx, device, uid)
}

func (s *AccessService) consumeEnrollment(ctx context.Context, device *models.Device, uid string, now time.Time) {
	res, err := s.Sessions.ConsumeCard(ctx, device.ID, uid, now)
	if err != nil {
		log.Errorf("Error [Sessions.ConsumeCard] %s", err)
		s.Notifier.Notify("card-registered", comm.CardRegistered{
			UID:      uid,
			DeviceId: deviceIdStr(device.ID),
			Status:   "FAILED",
		})
		return
	}
	if res == nil {
		// session expired between the armed check and consumption;
		// fall back to normal authentication
		s.authenticateCard(ctx, device, uid)
		return
	}

	s.Notifier.Notify("card-registered", comm.CardRegistered{
		UID:      uid,
		DeviceId: deviceIdStr(device.ID),
		Status:   res.Outcome,
		Name:     res.Card.Label,
	})
}

func (s *AccessService) authenticateCard(ctx context.Context, device *models.Device, uid string) {
	card, err := s.Cards.GetByUID(ctx, uid)
	if err != nil {
		log.Errorf("Error [Cards.GetByUID] %s", err)
		s.notifyFailed(device, uid)
		return
	}

	bound := false
	if card != nil {
		bound, err = s.Bindings.Exists(ctx, device.ID, card.ID)
		if err != nil {
			log.Errorf("Error [Bindings.Exists] %s", err)
			s.notifyFailed(device, uid)
			return
		}
	}

	if !bound {
		s.deny(ctx, device, uid, models.FactorRFID)
		return
	}

	s.factorSuccess(ctx, device, models.FactorRFID, uid)
}

// HandleEmbedding processes one recognition frame from the AI worker.
func (s *AccessService) HandleEmbedding(rpt comm.EmbeddingReport) {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	match, err := s.Recognizer.Match(ctx, rpt.Embedding)
	if err != nil {
		log.Errorf("Error [Recognizer.Match] %s", err)
		return
	}

	s.Notifier.Notify("recognize-result", comm.RecognizeResult{
		Name:  match.Subject,
		Score: match.Score,
	})

	if !match.Known() {
		return
	}

	if rpt.ChipCamId == "" {
		log.Warnf("recognized %s but frame carries no chip_cam_id, no device to unlock", match.Subject)
		return
	}

	device, err := s.Resolver.Resolve(ctx, store.ChannelCamera, rpt.ChipCamId)
	if err != nil {
		log.Errorf("Error [Resolver.Resolve] %s", err)
		return
	}

	s.Dispatcher.Enqueue(device.ID, func() {
		if !s.Cooldown.Allow(device.ID, time.Now()) {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		s.factorSuccess(ctx, device, models.FactorFace, match.Subject)
	})
}

// factorSuccess applies the device policy to one successful factor. Under
// OR any factor grants immediately; under AND the combined window decides.
func (s *AccessService) factorSuccess(ctx context.Context, device *models.Device, factor, subject string) {
	if device.Policy == models.PolicyAND {
		granted := s.Combined.FactorSuccess(device.ID, factor, time.Now())
		if !granted {
			// waiting for the other factor, or a stale window just reset
			return
		}
		s.grant(ctx, device, subject, models.FactorCombined)
		return
	}

	s.grant(ctx, device, subject, factor)
}

// grant writes the audit record and, only if that sticks, unlocks and
// notifies. A failed audit write surfaces as FAILED, not as a grant.
func (s *AccessService) grant(ctx context.Context, device *models.Device, subject, factor string) {
	rec, err := s.Logs.Create(ctx, device.ID, subject, factor, models.ResultSuccess)
	if err != nil {
		log.Errorf("Error [Logs.Create] %s", err)
		s.notifyFailed(device, subject)
		return
	}

	s.Notifier.Notify("access-log", accessLogNotice(device, rec))
	s.Notifier.Notify("access-decision", comm.AccessDecision{
		Subject:  subject,
		DeviceId: deviceIdStr(device.ID),
		Status:   "ALLOWED",
	})

	chipId := controlChipId(device)
	if chipId == "" {
		log.Errorf("device %d granted but has no control chip bound", device.ID)
		return
	}
	if err := s.Unlocker.Unlock(chipId); err != nil {
		log.Errorf("Error [Unlocker.Unlock] %s", err)
	}
}

func (s *AccessService) deny(ctx context.Context, device *models.Device, subject, factor string) {
	rec, err := s.Logs.Create(ctx, device.ID, subject, factor, models.ResultFalse)
	if err != nil {
		log.Errorf("Error [Logs.Create] %s", err)
		s.notifyFailed(device, subject)
		return
	}

	s.Notifier.Notify("access-log", accessLogNotice(device, rec))
	s.Notifier.Notify("access-decision", comm.AccessDecision{
		Subject:  subject,
		DeviceId: deviceIdStr(device.ID),
		Status:   "DENIED",
	})
}

// notifyFailed reports a persistence failure, distinct from a deny.
func (s *AccessService) notifyFailed(device *models.Device, subject string) {
	s.Notifier.Notify("access-decision", comm.AccessDecision{
		Subject:  subject,
		DeviceId: deviceIdStr(device.ID),
		Status:   "FAILED",
	})
}

// HandleDoorStatus records a door state report from the lock sensor.
func (s *AccessService) HandleDoorStatus(rpt comm.DoorStatusReport) {
	if err := rpt.Validate(); err != nil {
		log.Errorf("dropping malformed door status: %s", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	device, err := s.Resolver.Lookup(ctx, store.ChannelReader, rpt.ChipId)
	if err != nil {
		log.Errorf("Error [Resolver.Lookup] %s", err)
		return
	}

	notice := comm.DoorStatusNotice{ChipId: rpt.ChipId, Door: rpt.Door}

	if device == nil {
		// not mapped yet, still let the dashboard see the raw report
		s.Notifier.Notify("door-status", notice)
		return
	}

	notice.DeviceId = deviceIdStr(device.ID)

	s.Dispatcher.Enqueue(device.ID, func() {
		if device.DoorState != rpt.Door {
			ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
			defer cancel()
			if err := s.Devices.UpdateDoorState(ctx, device.ID, rpt.Door); err != nil {
				log.Errorf("Error [Devices.UpdateDoorState] %s", err)
			}
		}
		s.Notifier.Notify("door-status", notice)
	})
}

// HandleCameraOnline binds a camera board announcing itself to a device.
func (s *AccessService) HandleCameraOnline(rpt comm.CameraOnline) {
	if err := rpt.Validate(); err != nil {
		log.Errorf("dropping malformed camera announcement: %s", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	device, err := s.Resolver.Resolve(ctx, store.ChannelCamera, rpt.ChipCamId)
	if err != nil {
		log.Errorf("Error [Resolver.Resolve] %s", err)
		return
	}

	s.Notifier.Notify("camera-online", comm.CameraOnlineNotice{
		ChipCamId: rpt.ChipCamId,
		DeviceId:  deviceIdStr(device.ID),
	})
}

// HandleFaceRegisterResult saves the final embedding from a face
// registration run, guarding against near-duplicate identities.
func (s *AccessService) HandleFaceRegisterResult(rpt comm.RegisterResult) {
	if err := rpt.Validate(); err != nil {
		log.Errorf("dropping malformed register result: %s", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	res, err := s.Recognizer.Enroll(ctx, rpt.Name, rpt.Embedding)
	if err != nil {
		log.Errorf("Error [Recognizer.Enroll] %s", err)
		s.Notifier.Notify("face-registered", comm.FaceRegistered{
			Name:   rpt.Name,
			Status: "FAILED",
		})
		return
	}

	notice := comm.FaceRegistered{Name: rpt.Name, Status: res.Status}
	if res.Status == FaceExists {
		notice.Existing = res.Existing
		notice.Score = res.Score
	}
	s.Notifier.Notify("face-registered", notice)
}

// HandleRegisterProgress relays face registration progress to the dashboard.
func (s *AccessService) HandleRegisterProgress(rpt comm.RegisterProgress) {
	s.Notifier.Notify("register-progress", rpt)
}

func deviceIdStr(id int64) string {
	return strconv.FormatInt(id, 10)
}

func controlChipId(device *models.Device) string {
	if device.ReaderChipId != nil && *device.ReaderChipId != "" {
		return *device.ReaderChipId
	}
	if device.CameraChipId != nil && *device.CameraChipId != "" {
		return *device.CameraChipId
	}
	return ""
}

func accessLogNotice(device *models.Device, rec *models.AccessLog) comm.AccessLogNotice {
	return comm.AccessLogNotice{
		Id:         strconv.FormatInt(rec.ID, 10),
		DeviceId:   deviceIdStr(device.ID),
		DeviceName: device.Name,
		Subject:    rec.Subject,
		Factor:     rec.Factor,
		Result:     rec.Result,
		CreatedAt:  rec.CreatedAt,
	}
}

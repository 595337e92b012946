package broker

import (
	"encoding/json"

	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"

	"github.com/openlock/access-services/internal/comm"
	"github.com/openlock/access-services/internal/locksvc/service"
)

// Subjects the field devices publish on and listen to.
const (
	SubjectCardScan     = "lock.card.scan"
	SubjectDoorStatus   = "lock.door.status"
	SubjectCameraOnline = "lock.camera.online"
	subjectCommand      = "lock.command." // + chip id
)

// UnlockPayload is the opaque open instruction a lock board understands.
const UnlockPayload = "OPEN"

// Broker consumes field-device reports from NATS and publishes unlock
// commands back. Payloads are validated here, at the boundary, before any
// event type is constructed; malformed reports are dropped with a log line.
type Broker struct {
	Conn   *nats.Conn
	Access *service.AccessService
}

func NewBroker(nc *nats.Conn) *Broker {
	return &Broker{Conn: nc}
}

// Subscribe attaches the broker to all inbound device subjects.
func (b *Broker) Subscribe() ([]*nats.Subscription, error) {
	var subs []*nats.Subscription

	sub, err := b.Conn.Subscribe(SubjectCardScan, b.handleCardScan)
	if err != nil {
		return nil, err
	}
	subs = append(subs, sub)

	sub, err = b.Conn.Subscribe(SubjectDoorStatus, b.handleDoorStatus)
	if err != nil {
		return nil, err
	}
	subs = append(subs, sub)

	sub, err = b.Conn.Subscribe(SubjectCameraOnline, b.handleCameraOnline)
	if err != nil {
		return nil, err
	}
	subs = append(subs, sub)

	return subs, nil
}

func (b *Broker) handleCardScan(msgNat *nats.Msg) {
	rpt := comm.CardScanReport{}
	if err := json.Unmarshal(msgNat.Data, &rpt); err != nil {
		log.Errorf("Error unmarshalling card scan: %s", err)
		return
	}

	log.Infof("card scan uid=%s chip_id=%s", rpt.UID, rpt.ChipId)
	b.Access.HandleCardScan(rpt)
}

func (b *Broker) handleDoorStatus(msgNat *nats.Msg) {
	rpt := comm.DoorStatusReport{}
	if err := json.Unmarshal(msgNat.Data, &rpt); err != nil {
		log.Errorf("Error unmarshalling door status: %s", err)
		return
	}

	log.Infof("door status chip_id=%s door=%s", rpt.ChipId, rpt.Door)
	b.Access.HandleDoorStatus(rpt)
}

func (b *Broker) handleCameraOnline(msgNat *nats.Msg) {
	rpt := comm.CameraOnline{}
	if err := json.Unmarshal(msgNat.Data, &rpt); err != nil {
		log.Errorf("Error unmarshalling camera announcement: %s", err)
		return
	}

	log.Infof("camera online chip_cam_id=%s", rpt.ChipCamId)
	b.Access.HandleCameraOnline(rpt)
}

// Unlock publishes the open command on the device's control subject. It
// satisfies service.Unlocker.
func (b *Broker) Unlock(chipId string) error {
	err := b.Conn.Publish(subjectCommand+chipId, []byte(UnlockPayload))
	if err != nil {
		log.Errorf("Error publishing unlock for chip %s: %s", chipId, err)
		return err
	}

	return nil
}

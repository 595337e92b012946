package comm

import (
	"encoding/json"
	"errors"
	"time"
)

// WSMessage is the envelope for every websocket frame exchanged with the
// dashboard and the AI worker.
type WSMessage struct {
	Type     string          `json:"type"` // e.g. "recognize-embedding", "access-log"
	Data     json.RawMessage `json:"data"`
	SocketId string          `json:"socketid"`
}

var (
	ErrMissingUID    = errors.New("card scan report missing uid")
	ErrMissingChipId = errors.New("report missing chip_id")
	ErrBadDoorState  = errors.New("door state must be OPEN or CLOSED")
)

// CardScanReport arrives on the card scan subject from a reader board.
type CardScanReport struct {
	UID    string `json:"uid"`
	ChipId string `json:"chip_id,omitempty"`
}

func (r *CardScanReport) Validate() error {
	if r.UID == "" {
		return ErrMissingUID
	}
	return nil
}

// DoorStatusReport arrives on the door status subject from the lock sensor.
type DoorStatusReport struct {
	ChipId string `json:"chip_id"`
	Door   string `json:"door"` // "OPEN" | "CLOSED"
}

func (r *DoorStatusReport) Validate() error {
	if r.ChipId == "" {
		return ErrMissingChipId
	}
	if r.Door != "OPEN" && r.Door != "CLOSED" {
		return ErrBadDoorState
	}
	return nil
}

// CameraOnline announces a camera board joining the stream.
type CameraOnline struct {
	ChipCamId string `json:"chip_cam_id"`
}

func (r *CameraOnline) Validate() error {
	if r.ChipCamId == "" {
		return ErrMissingChipId
	}
	return nil
}

// EmbeddingReport carries a face embedding from the AI worker. A nil or
// empty embedding means the detector saw no face in the frame.
type EmbeddingReport struct {
	Embedding []float64 `json:"embedding"`
	ChipCamId string    `json:"chip_cam_id,omitempty"`
}

// RegisterProgress is relayed from the AI worker to the dashboard while a
// face registration is collecting frames.
type RegisterProgress struct {
	Name    string `json:"name"`
	Current int    `json:"current"`
	Total   int    `json:"total"`
	NoFace  bool   `json:"no_face"`
}

// RegisterResult is the AI worker's final embedding for a face registration.
type RegisterResult struct {
	Name      string    `json:"name"`
	Embedding []float64 `json:"embedding"`
}

func (r *RegisterResult) Validate() error {
	if r.Name == "" {
		return errors.New("register result missing name")
	}
	if len(r.Embedding) == 0 {
		return errors.New("register result missing embedding")
	}
	return nil
}

// ScanNotice tells the dashboard a card was observed, and in which mode.
type ScanNotice struct {
	UID      string `json:"uid"`
	Mode     string `json:"mode"` // "NORMAL" | "REGISTER"
	DeviceId string `json:"device_id,omitempty"`
}

// CardRegistered reports the outcome of a card enrollment scan.
type CardRegistered struct {
	UID      string `json:"uid"`
	DeviceId string `json:"device_id"`
	Status   string `json:"status"` // "CREATED" | "EXISTED"
	Name     string `json:"name,omitempty"`
}

// FaceRegistered reports the outcome of a face enrollment.
type FaceRegistered struct {
	Name     string  `json:"name"`
	Status   string  `json:"status"` // "CREATED" | "FACE_EXISTS" | "FAILED"
	Existing string  `json:"existing,omitempty"`
	Score    float64 `json:"score,omitempty"`
}

// AccessLogNotice mirrors one persisted audit record for the dashboard feed.
type AccessLogNotice struct {
	Id         string    `json:"_id,omitempty"`
	DeviceId   string    `json:"device_id"`
	DeviceName string    `json:"device_name,omitempty"`
	Subject    string    `json:"subject,omitempty"`
	Factor     string    `json:"method"` // "RFID" | "FACE" | "COMBINED"
	Result     string    `json:"result"` // "SUCCESS" | "FALSE"
	CreatedAt  time.Time `json:"createdAt"`
}

// AccessDecision is the per-event allow/deny signal for the dashboard.
type AccessDecision struct {
	UID      string `json:"uid,omitempty"`
	Subject  string `json:"subject,omitempty"`
	DeviceId string `json:"device_id,omitempty"`
	Status   string `json:"status"` // "ALLOWED" | "DENIED" | "FAILED"
}

// DoorStatusNotice relays a door state change to the dashboard.
type DoorStatusNotice struct {
	ChipId   string `json:"chip_id"`
	DeviceId string `json:"device_id,omitempty"`
	Door     string `json:"door"`
}

// CameraOnlineNotice tells the dashboard a camera board was mapped to a
// device.
type CameraOnlineNotice struct {
	ChipCamId string `json:"chip_cam_id"`
	DeviceId  string `json:"device_id"`
}

// RecognizeResult reports the latest face match to the dashboard, whether
// or not it triggered a decision.
type RecognizeResult struct {
	Name  string  `json:"name"` // "NoFace" | "Unknown" | identity name
	Score float64 `json:"score"`
}

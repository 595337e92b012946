package models

import "time"

// Device policy values.
const (
	PolicyOR  = "OR"  // any single factor unlocks
	PolicyAND = "AND" // both factors required within the auth window
)

// Door states as reported by the lock sensor.
const (
	DoorOpen   = "OPEN"
	DoorClosed = "CLOSED"
)

type Device struct {
	ID           int64     `json:"id"`             // Primary key
	Name         string    `json:"name"`           // Display name, generated on auto-provision
	ReaderChipId *string   `json:"reader_chip_id"` // Hardware id of the card reader board, claimed once
	CameraChipId *string   `json:"camera_chip_id"` // Hardware id of the camera board, claimed once
	Policy       string    `json:"policy"`         // 'OR' or 'AND'
	DoorState    string    `json:"door_state"`     // 'OPEN' or 'CLOSED'
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

package models

import "time"

// DeviceCardBinding authorizes a card on a device. Creation is idempotent:
// re-binding an existing pair is a no-op.
type DeviceCardBinding struct {
	ID        int64     `json:"id"`        // Primary key
	DeviceID  int64     `json:"device_id"` // FK to devices(id)
	CardID    int64     `json:"card_id"`   // FK to cards(id)
	CreatedAt time.Time `json:"created_at"`
}

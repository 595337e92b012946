package models

import "time"

// Authentication factors recorded on an access attempt.
const (
	FactorRFID     = "RFID"
	FactorFace     = "FACE"
	FactorCombined = "COMBINED"
)

// Access attempt results.
const (
	ResultSuccess = "SUCCESS"
	ResultFalse   = "FALSE"
)

// AccessLog is one append-only audit record, written exactly once per
// physical event and never mutated.
type AccessLog struct {
	ID        int64     `json:"id"`        // Primary key
	DeviceID  int64     `json:"device_id"` // FK to devices(id)
	Subject   string    `json:"subject"`   // card uid or identity name, empty when unknown
	Factor    string    `json:"factor"`    // 'RFID', 'FACE' or 'COMBINED'
	Result    string    `json:"result"`    // 'SUCCESS' or 'FALSE'
	CreatedAt time.Time `json:"created_at"`
}

package models

import "time"

type Card struct {
	ID        int64     `json:"id"`    // Primary key
	UID       string    `json:"uid"`   // Card code reported by the reader, globally unique
	Label     string    `json:"label"` // Optional friendly name set at enrollment
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

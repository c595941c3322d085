package models

import "time"

// Room represents a bookable physical meeting room.
// Rooms are reference data: immutable after creation.
type Room struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	CalendarID string    `json:"calendar_id,omitempty"`
	QRCodeURL  string    `json:"qr_code_url,omitempty"`
	CreatedAt  time.Time `json:"created_at,omitzero"`
}

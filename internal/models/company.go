package models

import "time"

// Company represents a client company that bookings are made for.
// Static reference data.
type Company struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at,omitzero"`
}

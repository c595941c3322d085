package models

// RoomStatus represents the current status of a room for display purposes.
// It is derived at query time and never persisted.
type RoomStatus struct {
	RoomID           string   `json:"room_id"`
	RoomName         string   `json:"room_name"`
	Available        bool     `json:"available"`
	CurrentBooking   *Booking `json:"current_booking,omitempty"`
	NextBooking      *Booking `json:"next_booking,omitempty"`
	MinutesUntilFree int      `json:"minutes_until_free"`
	TodayCount       int      `json:"today_count"`
}

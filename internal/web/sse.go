package web

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/availhq/avail/internal/models"
	"github.com/r3labs/sse/v2"
)

// updatesStream is the stream clients subscribe to for live room updates
const updatesStream = "updates"

// SSEManager pushes room update events to connected browsers. Clients
// listen for "update" events and refresh the room list via HTMX.
type SSEManager struct {
	server *sse.Server
}

// NewSSEManager creates a new server-sent events manager
func NewSSEManager() *SSEManager {
	server := sse.New()
	server.AutoReplay = false
	server.CreateStream(updatesStream)

	return &SSEManager{server: server}
}

// ServeHTTP implements the http.Handler interface for SSE connections.
// The stream name is fixed server-side so clients cannot subscribe to
// arbitrary streams.
func (sm *SSEManager) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	query.Set("stream", updatesStream)
	r.URL.RawQuery = query.Encode()

	sm.server.ServeHTTP(w, r)
}

// NotifyBookingUpdate tells all connected clients that a booking changed
func (sm *SSEManager) NotifyBookingUpdate(booking *models.Booking) {
	log.Printf("Publishing SSE update for booking %s", booking.ID)

	sm.server.Publish(updatesStream, &sse.Event{
		ID:    []byte(fmt.Sprintf("%d", time.Now().UnixNano())),
		Event: []byte("update"),
		Data:  []byte("Update available"),
	})
}

// Shutdown closes all client connections
func (sm *SSEManager) Shutdown() {
	sm.server.Close()
}

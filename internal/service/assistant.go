package service

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/availhq/avail/internal/ai"
	"github.com/availhq/avail/internal/models"
)

// AIClient is the subset of the assistant API used by the Assistant
type AIClient interface {
	ParseBookingIntent(ctx context.Context, text, roomID string) (*ai.BookingIntent, error)
	ExplainConflict(ctx context.Context, start, end time.Time, conflicts []*models.Booking) string
	Ask(ctx context.Context, question, roomID string) (string, error)
}

// Confidence below this threshold turns a parsed intent into a
// clarification question instead of a booking confirmation.
const intentConfidenceThreshold = 0.7

// bookingKeywords route a question into intent parsing
var bookingKeywords = []string{"book", "reserve", "schedule", "meeting"}

// Assistant answers natural-language questions about rooms and turns
// booking-shaped requests into pre-filled booking links. A nil client is
// allowed; every method then returns its degraded answer.
type Assistant struct {
	client AIClient
}

// NewAssistant creates an Assistant backed by the given client, which
// may be nil when no assistant API is configured
func NewAssistant(client AIClient) *Assistant {
	return &Assistant{client: client}
}

// Enabled reports whether an assistant API client is configured
func (a *Assistant) Enabled() bool {
	return a.client != nil
}

// Answer responds to a user question scoped to a room. Questions that
// look like booking requests are parsed into an intent first; confident
// intents get a confirmation link, uncertain ones a clarification
// question. Everything else goes to the general Q&A path.
func (a *Assistant) Answer(ctx context.Context, question, roomID string) string {
	question = strings.TrimSpace(question)
	if question == "" {
		return "Please ask a question."
	}
	if a.client == nil {
		return "The assistant is not configured. Use the booking form instead."
	}

	if looksLikeBookingRequest(question) {
		intent, err := a.client.ParseBookingIntent(ctx, question, roomID)
		if err == nil {
			if intent.Confidence > intentConfidenceThreshold {
				return a.confirmIntent(intent, roomID)
			}
			return clarifyIntent(intent)
		}
		// Intent parsing failed; fall through to general Q&A.
	}

	answer, err := a.client.Ask(ctx, question, roomID)
	if err != nil {
		return "The assistant is unavailable right now. Please try again later or use the booking form."
	}
	return answer
}

// ExplainConflict explains a booking conflict, via the assistant API
// when configured and the canned message otherwise
func (a *Assistant) ExplainConflict(ctx context.Context, start, end time.Time, conflicts []*models.Booking) string {
	if a.client == nil {
		return ai.FallbackConflictMessage(conflicts)
	}
	return a.client.ExplainConflict(ctx, start, end, conflicts)
}

func (a *Assistant) confirmIntent(intent *ai.BookingIntent, roomID string) string {
	params := url.Values{}
	params.Set("date", intent.Date)
	params.Set("start_time", intent.StartTime)
	params.Set("duration", strconv.Itoa(intent.DurationMinutes))
	params.Set("title", intent.Title)
	if intent.Company != "" {
		params.Set("company", intent.Company)
	}

	return fmt.Sprintf(
		"I understood: %q on %s at %s for %d minutes. Confirm here: /room/%s/book?%s",
		intent.Title, intent.Date, intent.StartTime, intent.DurationMinutes,
		roomID, params.Encode())
}

func clarifyIntent(intent *ai.BookingIntent) string {
	if len(intent.Ambiguity) == 0 {
		return "I'm not sure I understood your booking request. Could you rephrase it with a date, time and title?"
	}
	return fmt.Sprintf("I need a bit more detail before booking: %s.",
		strings.Join(intent.Ambiguity, "; "))
}

func looksLikeBookingRequest(question string) bool {
	lower := strings.ToLower(question)
	for _, keyword := range bookingKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

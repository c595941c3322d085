// Package ai wraps the external chat-completions API used by the
// booking assistant. The assistant is a convenience feature: callers are
// expected to degrade gracefully when these calls fail.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/availhq/avail/internal/config"
	"github.com/availhq/avail/internal/models"
)

// BookingIntent is the structured form of a natural-language booking request
type BookingIntent struct {
	Title           string   `json:"title"`
	Date            string   `json:"date"`       // YYYY-MM-DD
	StartTime       string   `json:"start_time"` // HH:MM
	DurationMinutes int      `json:"duration_minutes"`
	Company         string   `json:"company,omitempty"`
	Confidence      float64  `json:"confidence"`
	Ambiguity       []string `json:"ambiguity"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Client calls the chat-completions API
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewClient creates a new assistant API client
func NewClient(cfg config.AIConfig) *Client {
	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

const intentSystemPrompt = `You are a booking assistant for a meeting room system. Current time: %s

Parse the user's booking request into JSON format.

Return ONLY valid JSON with this exact structure:
{
  "title": "meeting title",
  "date": "YYYY-MM-DD",
  "start_time": "HH:MM",
  "duration_minutes": number (15, 30, 45, 60, etc.),
  "company": "company id or null if not specified",
  "confidence": 0.0 to 1.0,
  "ambiguity": ["list of unclear details or empty array"]
}

Rules:
- Resolve "tomorrow", "today", etc. relative to current time
- Default to 30 minutes if duration not specified
- Default to 9:00 AM if time not specified for business hours
- If company is not mentioned, set to null
- Lower confidence if key details are missing`

// ParseBookingIntent parses a natural-language booking request into a
// structured intent. The model may wrap its JSON in a Markdown code fence;
// the fence is stripped before parsing.
func (c *Client) ParseBookingIntent(ctx context.Context, text, roomID string) (*BookingIntent, error) {
	messages := []chatMessage{
		{Role: "system", Content: fmt.Sprintf(intentSystemPrompt, time.Now().UTC().Format(time.RFC3339))},
		{Role: "user", Content: fmt.Sprintf("Parse this booking request for room %s: %q", roomID, text)},
	}

	content, err := c.complete(ctx, messages, 0.3)
	if err != nil {
		return nil, err
	}

	var intent BookingIntent
	if err := json.Unmarshal([]byte(StripCodeFence(content)), &intent); err != nil {
		return nil, fmt.Errorf("failed to parse intent response: %w", err)
	}
	return &intent, nil
}

// ExplainConflict asks the model to explain why a booking cannot be made
// and to suggest alternatives. It never fails: on any error a generic
// message listing the conflicting bookings is returned instead.
func (c *Client) ExplainConflict(ctx context.Context, start, end time.Time, conflicts []*models.Booking) string {
	var list strings.Builder
	for _, b := range conflicts {
		fmt.Fprintf(&list, "- %q from %s to %s\n", b.Title,
			b.StartTime.UTC().Format("15:04"), b.EndTime.UTC().Format("15:04"))
	}

	messages := []chatMessage{
		{Role: "system", Content: "You are a helpful assistant for a meeting room booking system. Explain conflicts clearly and suggest 3 alternative time slots. Be concise and friendly."},
		{Role: "user", Content: fmt.Sprintf(
			"Explain why this booking cannot be made:\n\nRequested: %s to %s\n\nConflicting bookings:\n%s\nBe concise. Suggest 3 alternative time slots.",
			start.UTC().Format("2006-01-02 15:04"), end.UTC().Format("2006-01-02 15:04"), list.String())},
	}

	content, err := c.complete(ctx, messages, 0.7)
	if err != nil {
		return FallbackConflictMessage(conflicts)
	}
	return content
}

// Ask answers a general availability question, optionally scoped to a room
func (c *Client) Ask(ctx context.Context, question, roomID string) (string, error) {
	roomContext := ""
	if roomID != "" {
		roomContext = fmt.Sprintf(" for room %s", roomID)
	}

	messages := []chatMessage{
		{Role: "system", Content: "You are Avail, a meeting room booking assistant. You help users check room availability and make bookings. Be concise and helpful. If you need actual booking data, tell the user you need to check the system."},
		{Role: "user", Content: fmt.Sprintf("Question%s: %s", roomContext, question)},
	}

	return c.complete(ctx, messages, 0.7)
}

// complete performs one chat-completions call and returns the first
// choice's content
func (c *Client) complete(ctx context.Context, messages []chatMessage, temperature float64) (string, error) {
	payload, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: temperature,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("assistant API error (status %d): %s", resp.StatusCode, string(body))
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("assistant API returned no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}

// StripCodeFence removes a surrounding Markdown code fence, if present,
// so fenced and unfenced JSON responses parse identically
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// FallbackConflictMessage is the canned explanation used when the
// assistant API is unavailable
func FallbackConflictMessage(conflicts []*models.Booking) string {
	titles := make([]string, len(conflicts))
	for i, b := range conflicts {
		titles[i] = b.Title
	}
	return fmt.Sprintf("Room is already booked: %s. Please choose a different time.",
		strings.Join(titles, ", "))
}

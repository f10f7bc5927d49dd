package types

import "encoding/json"

// Event is one entry in a game's TTL log. Timestamps are unix
// milliseconds in server time; consumers must treat any event with
// Expire <= now as absent.
type Event struct {
	Timestamp int64           `json:"timestamp"`
	Expire    int64           `json:"expire"`
	Code      string          `json:"code"`
	UserID    string          `json:"userId"`
	Content   json.RawMessage `json:"content,omitempty"`
}

// User is a player profile document.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

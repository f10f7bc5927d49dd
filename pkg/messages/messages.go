// Package messages defines the wire protocol between the store server
// and its clients. Every frame is one Message envelope; request/response
// pairs are matched by ID.
package messages

import "encoding/json"

// Message types.
const (
	// Client to server.
	MessageTypeOnce        = "once"
	MessageTypeWrite       = "write"
	MessageTypeSet         = "set"
	MessageTypeSubscribe   = "sub"
	MessageTypeUnsubscribe = "unsub"
	MessageTypeHook        = "hook"
	MessageTypeUnhook      = "unhook"
	MessageTypeServerTime  = "time"

	// Server to client.
	MessageTypeResult = "result"
	MessageTypeUpdate = "update"
)

// Message represents a generic protocol frame.
type Message struct {
	ID      uint64          `json:"id,omitempty"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Once requests a single read of a document.
type Once struct {
	Key string `json:"key"`
}

// Write is one optimistic commit attempt: install Value at Key if the
// document is still at Version. The server answers with a Result; a
// conflicted write carries the fresh value so the client can retry.
type Write struct {
	Key     string          `json:"key"`
	Version uint64          `json:"version"`
	Value   json.RawMessage `json:"value,omitempty"`
}

// Set overwrites a document unconditionally.
type Set struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value,omitempty"`
}

// Subscribe opens a live read of Key under the client-chosen Sub id.
type Subscribe struct {
	Key string `json:"key"`
	Sub uint64 `json:"sub"`
}

// Unsubscribe closes a live read.
type Unsubscribe struct {
	Sub uint64 `json:"sub"`
}

// Hook registers an on-disconnect write under the client-chosen Hook id.
type Hook struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value,omitempty"`
	Hook  uint64          `json:"hook"`
}

// Unhook cancels an on-disconnect write.
type Unhook struct {
	Hook uint64 `json:"hook"`
}

// Result answers any request. Which fields are set depends on the
// request type.
type Result struct {
	Value     json.RawMessage `json:"value,omitempty"`
	Version   uint64          `json:"version,omitempty"`
	Committed bool            `json:"committed,omitempty"`
	Millis    int64           `json:"millis,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// Update pushes a new document snapshot for a subscription.
type Update struct {
	Sub   uint64          `json:"sub"`
	Value json.RawMessage `json:"value,omitempty"`
}

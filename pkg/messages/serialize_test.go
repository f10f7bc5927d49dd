package messages

import (
	"encoding/json"
	"testing"
)

func TestSerializeDeserializeMessage(t *testing.T) {
	tests := []struct {
		name    string
		message *Message
		wantErr bool
	}{
		{
			name: "write request",
			message: &Message{
				ID:      7,
				Type:    MessageTypeWrite,
				Payload: mustMarshal(t, &Write{Key: "games/abc12345", Version: 3, Value: json.RawMessage(`{"title":"my game"}`)}),
			},
			wantErr: false,
		},
		{
			name: "update with empty payload",
			message: &Message{
				Type:    MessageTypeUpdate,
				Payload: mustMarshal(t, &Update{Sub: 2}),
			},
			wantErr: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := SerializeMessage(tt.message)
			if (err != nil) != tt.wantErr {
				t.Errorf("SerializeMessage() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			got, err := DeserializeMessage(b)
			if (err != nil) != tt.wantErr {
				t.Errorf("DeserializeMessage() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			if got.ID != tt.message.ID || got.Type != tt.message.Type {
				t.Errorf("DeserializeMessage() = %v, want %v", got, tt.message)
			}
			if string(got.Payload) != string(tt.message.Payload) {
				t.Errorf("DeserializeMessage() payload = %s, want %s", got.Payload, tt.message.Payload)
			}
		})
	}
}

func mustMarshal(t *testing.T, v interface{}) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("failed to marshal payload: %v", err)
	}
	return b
}

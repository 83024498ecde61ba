package signal

import "encoding/json"

// Type discriminates lifecycle signals.
type Type string

const (
	// Ready means the remote flow finished loading and can be shown.
	Ready Type = "ready"
	// Finish means the user completed the verification flow.
	Finish Type = "finish"
	// Close means the user abandoned the flow.
	Close Type = "close"
)

// Message is one inbound lifecycle signal. Raw preserves the full payload;
// nothing beyond the type discriminator is validated.
type Message struct {
	Type Type
	Raw  json.RawMessage
}

// Decode extracts a Message from an untyped payload. It returns false for
// payloads that are not JSON objects or lack a "type" field; such payloads
// are ignored by the router.
func Decode(data []byte) (Message, bool) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil || probe.Type == "" {
		return Message{}, false
	}
	return Message{Type: Type(probe.Type), Raw: append(json.RawMessage(nil), data...)}, true
}

// Channel delivers inbound lifecycle signals. Implementations must deliver
// messages in arrival order with a single handler invocation in flight at a
// time.
type Channel interface {
	// Subscribe registers a handler and returns a cancel function. Cancel is
	// idempotent.
	Subscribe(handler func(Message)) (cancel func())
}

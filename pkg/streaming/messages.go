package streaming

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/itnt/extension/pkg/core"
)

// Message type constants of the streaming protocol.
const (
	TypeHello       = "hello"
	TypeLabelCreate = "label_create"
	TypeLabelUpdate = "label_update"
	TypeLabelMove   = "label_move"
	TypeLabelDelete = "label_delete"
	TypeLabelClear  = "label_clear"
	TypeLabelGone   = "label_gone"
	TypeLifecycle   = "lifecycle_event"
	TypeJournalEnd  = "journal_end"
)

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// AckMessage is the server's acknowledgement response.
type AckMessage struct {
	Type string `json:"type"` // always "ack"
	For  string `json:"for"`  // the message type being acknowledged
}

// HelloPayload introduces the sender after every (re)connect.
type HelloPayload struct {
	Client  string `json:"client"`
	Version string `json:"version"`
	Role    string `json:"role"`
}

// LabelPayload addresses one floating label. Fields not relevant to the
// message type are omitted.
type LabelPayload struct {
	ID    string   `json:"id"`
	World string   `json:"world,omitempty"`
	X     *float64 `json:"x,omitempty"`
	Y     *float64 `json:"y,omitempty"`
	Z     *float64 `json:"z,omitempty"`
	Text  string   `json:"text,omitempty"`
}

// LifecyclePayload is one journal entry.
type LifecyclePayload struct {
	TrackingID string         `json:"trackingId,omitempty"`
	TypeID     string         `json:"typeId"`
	Kind       string         `json:"kind"`
	World      string         `json:"world"`
	X          float64        `json:"x"`
	Y          float64        `json:"y"`
	Z          float64        `json:"z"`
	Igniter    string         `json:"igniter,omitempty"`
	Reason     string         `json:"reason,omitempty"`
	Time       time.Time      `json:"time"`
	Detail     map[string]any `json:"detail,omitempty"`
}

// Marshal builds a JSON-encoded Envelope from a message type and payload.
func Marshal(msgType string, payload any) ([]byte, error) {
	env := Envelope{Type: msgType}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
		}
		env.Payload = raw
	}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}

// NewLifecyclePayload converts a journal entry to its wire form.
func NewLifecyclePayload(e core.LifecycleEvent) LifecyclePayload {
	p := LifecyclePayload{
		TypeID:  e.TypeID,
		Kind:    string(e.Kind),
		World:   e.Position.World,
		X:       e.Position.X,
		Y:       e.Position.Y,
		Z:       e.Position.Z,
		Igniter: e.Igniter,
		Reason:  e.Reason,
		Time:    e.Time,
		Detail:  e.Detail,
	}
	if !e.TrackingID.IsZero() {
		p.TrackingID = e.TrackingID.String()
	}
	return p
}

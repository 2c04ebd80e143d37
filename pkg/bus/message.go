// Package bus implements the coordination bus: best-effort publish over
// three subscription modes (broadcast, topic, direct) shared by every
// session, agent, and the IPC front door.
package bus

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Variant discriminates the UnifiedMessage union. Topic is derived from
// Variant except for Direct, which bypasses topic routing entirely.
type Variant string

const (
	VariantSession      Variant = "session"
	VariantCoordination Variant = "coordination"
	VariantTask         Variant = "task"
	VariantEvent        Variant = "event"
	VariantIpc          Variant = "ipc"
	VariantDirect       Variant = "direct"
)

// Topic returns the topic name derived from the variant, or "" for
// Direct, which is routed by ToAgent instead.
func (v Variant) Topic() string {
	if v == VariantDirect {
		return ""
	}
	return string(v)
}

// UnifiedMessage is the single envelope every bus subscriber receives,
// regardless of subscription mode.
type UnifiedMessage struct {
	ID        string          `json:"id"`
	Variant   Variant         `json:"variant"`
	Kind      string          `json:"kind"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`

	// FromAgent/ToAgent are populated only for Variant == Direct.
	FromAgent string `json:"from_agent,omitempty"`
	ToAgent   string `json:"to_agent,omitempty"`
}

// New constructs a UnifiedMessage with a fresh id and the current time.
func New(variant Variant, kind string, payload any) (UnifiedMessage, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return UnifiedMessage{}, err
	}
	return UnifiedMessage{
		ID:        uuid.NewString(),
		Variant:   variant,
		Kind:      kind,
		Payload:   raw,
		Timestamp: time.Now(),
	}, nil
}

// Package transcript models the chat transcript and reduces its tool events
// into a client profile.
package transcript

import (
	"encoding/json"
	"time"
)

// Role of a transcript entry author.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ToolState is the lifecycle state of a tool call.
type ToolState string

const (
	StatePending  ToolState = "pending"
	StateComplete ToolState = "complete"
)

// Message is one transcript entry.
type Message struct {
	ID        string      `json:"id,omitempty"`
	Role      Role        `json:"role"`
	Text      string      `json:"text,omitempty"`
	Parts     []ToolEvent `json:"parts,omitempty"`
	CreatedAt *time.Time  `json:"created_at,omitempty"`
}

// ToolEvent is one observed tool invocation.
type ToolEvent struct {
	ToolName string         `json:"tool_name"`
	State    ToolState      `json:"state"`
	Input    map[string]any `json:"input,omitempty"`
}

// Complete reports whether the call finished.
func (e ToolEvent) Complete() bool {
	return e.State == StateComplete
}

// UnmarshalJSON never fails. A part that is not an object, or whose
// tool_name or state is not a string, decodes to an empty event the reducer
// skips. Input that is not an object decodes to nil.
func (e *ToolEvent) UnmarshalJSON(data []byte) error {
	*e = ToolEvent{}
	var raw struct {
		ToolName json.RawMessage `json:"tool_name"`
		State    json.RawMessage `json:"state"`
		Input    json.RawMessage `json:"input"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}
	name, okName := rawString(raw.ToolName)
	st, okState := rawString(raw.State)
	if !okName || !okState {
		return nil
	}
	e.ToolName = name
	e.State = ToolState(st)
	if len(raw.Input) > 0 {
		var input map[string]any
		if err := json.Unmarshal(raw.Input, &input); err == nil {
			e.Input = input
		}
	}
	return nil
}

// rawString decodes a JSON string. An absent value is "" and ok.
func rawString(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// TurnCount is the number of user messages in the transcript.
func TurnCount(msgs []Message) int {
	n := 0
	for _, m := range msgs {
		if m.Role == RoleUser {
			n++
		}
	}
	return n
}

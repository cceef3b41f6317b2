package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Note is a single audit trail entry stored in a jsonb array column.
type Note struct {
	At      time.Time `json:"at"`
	Actor   string    `json:"actor,omitempty"`
	Message string    `json:"message"`
}

// Notes is an append-only audit trail persisted as jsonb.
type Notes []Note

// Append returns the trail with a new entry stamped at the given time.
func (n Notes) Append(at time.Time, actor, message string) Notes {
	return append(n, Note{At: at.UTC(), Actor: actor, Message: message})
}

// Last returns the most recent entry, if any.
func (n Notes) Last() (Note, bool) {
	if len(n) == 0 {
		return Note{}, false
	}
	return n[len(n)-1], true
}

func (n Notes) Value() (driver.Value, error) {
	if n == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]Note(n))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (n *Notes) Scan(value interface{}) error {
	if value == nil {
		*n = Notes{}
		return nil
	}
	raw, ok := toBytes(value)
	if !ok {
		return fmt.Errorf("notes: unsupported scan type %T", value)
	}
	var out []Note
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			return fmt.Errorf("notes: %w", err)
		}
	}
	*n = out
	return nil
}

// JSONMap is a free-form jsonb object column.
type JSONMap map[string]any

func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(map[string]any(m))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (m *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*m = JSONMap{}
		return nil
	}
	raw, ok := toBytes(value)
	if !ok {
		return fmt.Errorf("json map: unsupported scan type %T", value)
	}
	out := map[string]any{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			return fmt.Errorf("json map: %w", err)
		}
	}
	*m = out
	return nil
}

// String returns the string value stored under key, if present.
func (m JSONMap) String(key string) string {
	if m == nil {
		return ""
	}
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func toBytes(value interface{}) ([]byte, bool) {
	switch v := value.(type) {
	case []byte:
		return v, true
	case string:
		return []byte(v), true
	default:
		return nil, false
	}
}

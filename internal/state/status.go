package state

import "strings"

const (
	// ErrorPrefix tags status entries written by error messages.
	ErrorPrefix = "ERROR: "
	// CompleteStatus is the status text the backend sends when an entity's stream ends.
	CompleteStatus = "Simulation Complete"
)

// StatusTable holds the latest status string per entity.
type StatusTable struct {
	m map[string]string
}

func NewStatusTable() *StatusTable {
	return &StatusTable{m: make(map[string]string)}
}

func (t *StatusTable) Set(key, status string) { t.m[key] = status }

// SetError records a recoverable per-entity fault.
func (t *StatusTable) SetError(key, msg string) { t.m[key] = ErrorPrefix + msg }

func (t *StatusTable) Get(key string) (string, bool) {
	s, ok := t.m[key]
	return s, ok
}

func (t *StatusTable) Reset() { t.m = make(map[string]string) }

// IsError reports whether a status string carries the error tag.
func IsError(status string) bool { return strings.HasPrefix(status, ErrorPrefix) }

// IsComplete reports whether a status string marks the end of an entity's stream.
func IsComplete(status string) bool { return status == CompleteStatus }

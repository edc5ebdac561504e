package logger

import (
	"strings"
	"sync"

	"github.com/goccy/go-json"
)

// LogEntry is a parsed log line kept for the logs endpoint.
type LogEntry struct {
	Timestamp string         `json:"timestamp"`
	Level     string         `json:"level"`
	Component string         `json:"component,omitempty"`
	Message   string         `json:"message"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// Tail is an io.Writer that keeps the most recent zerolog JSON entries.
type Tail struct {
	mu      sync.RWMutex
	entries []LogEntry
	next    int
	full    bool
}

// NewTail creates a tail holding up to size entries.
func NewTail(size int) *Tail {
	return &Tail{entries: make([]LogEntry, max(size, 1))}
}

// Write implements io.Writer. Malformed lines are dropped.
func (t *Tail) Write(p []byte) (int, error) {
	entry, ok := parseLogEntry(p)
	if !ok {
		return len(p), nil
	}

	t.mu.Lock()
	t.entries[t.next] = entry
	t.next = (t.next + 1) % len(t.entries)
	if t.next == 0 {
		t.full = true
	}
	t.mu.Unlock()
	return len(p), nil
}

// Entries returns the buffered entries at level, oldest first. An empty
// level returns every entry.
func (t *Tail) Entries(level string) []LogEntry {
	level = strings.ToLower(level)

	t.mu.RLock()
	defer t.mu.RUnlock()

	ordered := t.entries[:t.next]
	if t.full {
		ordered = append(t.entries[t.next:len(t.entries):len(t.entries)], t.entries[:t.next]...)
	}

	out := make([]LogEntry, 0, len(ordered))
	for _, e := range ordered {
		if level == "" || e.Level == level {
			out = append(out, e)
		}
	}
	return out
}

func parseLogEntry(data []byte) (LogEntry, bool) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return LogEntry{}, false
	}

	entry := LogEntry{Fields: make(map[string]any)}
	take := func(key string) string {
		s, _ := raw[key].(string)
		delete(raw, key)
		return s
	}

	entry.Timestamp = take(zerologTimeKey)
	entry.Level = take("level")
	entry.Component = take("component")
	entry.Message = take("message")

	for k, v := range raw {
		entry.Fields[k] = v
	}
	if len(entry.Fields) == 0 {
		entry.Fields = nil
	}
	return entry, true
}

const zerologTimeKey = "time"

package content

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Timestamp is a time column that accepts the textual forms the backends
// produce: RFC 3339, timestamps without a zone, SQLite's space-separated
// CURRENT_TIMESTAMP and bare dates. Zone-less values are read as UTC.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// At wraps t.
func At(t time.Time) *Timestamp {
	return &Timestamp{Time: t.UTC()}
}

// ParseTimestamp parses any accepted layout.
func ParseTimestamp(s string) (Timestamp, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Timestamp{Time: t.UTC()}, nil
		}
	}
	return Timestamp{}, fmt.Errorf("content: unrecognised timestamp %q", s)
}

// MarshalJSON renders the time as RFC 3339 in UTC.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}

// UnmarshalJSON accepts null, any accepted layout or a Unix timestamp in
// seconds.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) || len(data) == 0 {
		return nil
	}
	if data[0] != '"' {
		var secs int64
		if err := json.Unmarshal(data, &secs); err != nil {
			return fmt.Errorf("content: timestamp: %w", err)
		}
		t.Time = time.Unix(secs, 0).UTC()
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("content: timestamp: %w", err)
	}
	if s == "" {
		return nil
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

package logging

import (
	"strings"
	"time"
)

// MetadataTimeFormat matches the UTC string form used in entry metadata.
const MetadataTimeFormat = "Mon, 02 Jan 2006 15:04:05 GMT"

// Entry is an immutable log record held by the sink.
type Entry struct {
	Time    time.Time `json:"time"`
	Level   Level     `json:"level"`
	Origin  string    `json:"origin"`
	Message string    `json:"message"`
	Params  []any     `json:"params,omitempty"`
}

// Metadata renders "<utc time> | <level> | <origin>".
func (e Entry) Metadata() string {
	var b strings.Builder
	b.WriteString(e.Time.UTC().Format(MetadataTimeFormat))
	b.WriteString(" | ")
	b.WriteString(e.Level.String())
	b.WriteString(" | ")
	b.WriteString(e.Origin)
	return b.String()
}

// EntryView is the wire form of an Entry with metadata precomputed.
type EntryView struct {
	Metadata string `json:"metadata"`
	Level    Level  `json:"level"`
	Origin   string `json:"origin"`
	Message  string `json:"message"`
	Params   []any  `json:"params,omitempty"`
	Time     string `json:"time"`
}

// View returns the JSON-facing representation of e.
func (e Entry) View() EntryView {
	return EntryView{
		Metadata: e.Metadata(),
		Level:    e.Level,
		Origin:   e.Origin,
		Message:  e.Message,
		Params:   e.Params,
		Time:     e.Time.UTC().Format(time.RFC3339Nano),
	}
}

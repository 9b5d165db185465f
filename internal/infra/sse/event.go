// Package sse implements the server-push wire format the relay speaks:
// one event per block, blocks separated by a blank line, every physical
// payload line carrying its own "data:" marker.
package sse

// Kind discriminates stream events.
type Kind string

const (
	KindMeta  Kind = "meta"  // JSON: mode, language, direction; exactly once, first
	KindToken Kind = "token" // raw text fragment, not JSON-wrapped
	KindDone  Kind = "done"  // JSON: meta fields + final answer and disclaimer
	KindError Kind = "error" // plain text message
)

// Event is one wire-level stream event. Transient: never stored.
type Event struct {
	Kind Kind
	Data string
}

// Meta is the payload of the first event of every stream.
type Meta struct {
	Mode      string `json:"mode"`
	Language  string `json:"language"`
	Direction string `json:"direction"`
}

// Done is the payload of the successful terminal event.
type Done struct {
	Mode       string `json:"mode"`
	Language   string `json:"language"`
	Direction  string `json:"direction"`
	Answer     string `json:"answer"`
	Disclaimer string `json:"disclaimer,omitempty"`
}

package sse

import (
	"encoding/json"
	"fmt"
	"io"
)

// Relay enforces stream ordering on top of Writer: exactly one meta event
// first, zero or more tokens, exactly one terminal event (done or error).
// Once a write fails the peer is assumed gone; the abort callback fires
// once and later writes become no-ops so the producer can wind down.
type Relay struct {
	w       *Writer
	onAbort func()

	state   relayState
	aborted bool
}

type relayState int

const (
	stateOpen relayState = iota
	stateMetaSent
	stateStreaming
	stateClosed
)

// NewRelay wraps w. onAbort may be nil; it is called at most once, from
// whichever write first observes the broken peer.
func NewRelay(w io.Writer, onAbort func()) *Relay {
	return &Relay{w: NewWriter(w), onAbort: onAbort}
}

// Meta sends the opening event. Must be the first call.
func (r *Relay) Meta(m Meta) error {
	if r.state != stateOpen {
		return fmt.Errorf("sse: meta after state %d", r.state)
	}
	payload, err := json.Marshal(m)
	if err != nil {
		return err
	}
	r.state = stateMetaSent
	return r.send(Event{Kind: KindMeta, Data: string(payload)})
}

// Token forwards one raw text fragment. Valid only between Meta and the
// terminal event.
func (r *Relay) Token(fragment string) error {
	if r.state != stateMetaSent && r.state != stateStreaming {
		return fmt.Errorf("sse: token in state %d", r.state)
	}
	r.state = stateStreaming
	return r.send(Event{Kind: KindToken, Data: fragment})
}

// Done sends the successful terminal event and closes the relay.
func (r *Relay) Done(d Done) error {
	if r.state == stateClosed {
		return fmt.Errorf("sse: done after close")
	}
	payload, err := json.Marshal(d)
	if err != nil {
		return err
	}
	r.state = stateClosed
	return r.send(Event{Kind: KindDone, Data: string(payload)})
}

// Error sends the failure terminal event and closes the relay. Safe to
// call regardless of prior progress; a second terminal call is rejected.
func (r *Relay) Error(msg string) error {
	if r.state == stateClosed {
		return fmt.Errorf("sse: error after close")
	}
	r.state = stateClosed
	return r.send(Event{Kind: KindError, Data: msg})
}

// Started reports whether anything was written to the peer yet. While
// false, the caller can still fall back to a plain HTTP error response.
func (r *Relay) Started() bool { return r.state != stateOpen }

// Closed reports whether a terminal event was sent.
func (r *Relay) Closed() bool { return r.state == stateClosed }

// Aborted reports whether a write failed mid-stream.
func (r *Relay) Aborted() bool { return r.aborted }

func (r *Relay) send(ev Event) error {
	if r.aborted {
		return nil
	}
	if err := r.w.WriteEvent(ev); err != nil {
		r.aborted = true
		if r.onAbort != nil {
			r.onAbort()
		}
		return nil
	}
	return nil
}

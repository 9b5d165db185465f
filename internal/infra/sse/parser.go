package sse

import (
	"bufio"
	"io"
	"strings"
)

// Parser decodes the wire format back into events. It is the inverse of
// Writer and keeps the protocol testable independently of any transport.
type Parser struct {
	s *bufio.Scanner
}

func NewParser(r io.Reader) *Parser {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &Parser{s: s}
}

// Next returns the next event, or io.EOF when the stream is exhausted.
// Unknown field lines inside a block are ignored.
func (p *Parser) Next() (Event, error) {
	var (
		ev      Event
		data    []string
		sawAny  bool
		sawData bool
	)

	for p.s.Scan() {
		line := p.s.Text()
		if line == "" {
			if sawAny {
				break
			}
			continue // leading blank lines between blocks
		}
		sawAny = true
		switch {
		case strings.HasPrefix(line, "event:"):
			ev.Kind = Kind(strings.TrimSpace(strings.TrimPrefix(line, "event:")))
		case strings.HasPrefix(line, "data:"):
			v := strings.TrimPrefix(line, "data:")
			v = strings.TrimPrefix(v, " ")
			data = append(data, v)
			sawData = true
		}
	}
	if err := p.s.Err(); err != nil {
		return Event{}, err
	}
	if !sawAny {
		return Event{}, io.EOF
	}
	if sawData {
		ev.Data = strings.Join(data, "\n")
	}
	return ev, nil
}

package httputil

import (
	"bufio"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Event is one Server-Sent Event. Multi-line data fields are joined with
// newlines.
type Event struct {
	Name string
	Data string
}

// maxEventLine is the longest single SSE line accepted from an upstream.
const maxEventLine = 1 << 20

// ReadEvents parses an SSE stream and calls fn for every event that carries
// data. Comment lines and unknown fields are ignored. A non-nil error from
// fn stops reading and is returned as is.
func ReadEvents(r io.Reader, fn func(Event) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxEventLine)

	var ev Event
	var data []string
	flush := func() error {
		defer func() { ev, data = Event{}, data[:0] }()
		if len(data) == 0 {
			return nil
		}
		ev.Data = strings.Join(data, "\n")
		return fn(ev)
	}

	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			if err := flush(); err != nil {
				return err
			}
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "event":
			ev.Name = value
		case "data":
			data = append(data, value)
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read event stream: %w", err)
	}
	return flush()
}

// EventWriter writes Server-Sent Events to an HTTP response.
type EventWriter struct {
	w       io.Writer
	flusher http.Flusher
}

// NewEventWriter sets the SSE response headers on w and returns a writer for
// it. Headers are sent with the first event.
func NewEventWriter(w http.ResponseWriter) *EventWriter {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")

	ew := &EventWriter{w: w}
	if f, ok := w.(http.Flusher); ok {
		ew.flusher = f
	}
	return ew
}

// Send writes one event and flushes it to the client. data must not
// contain a blank line; JSON without indentation is always safe.
func (ew *EventWriter) Send(name string, data []byte) error {
	if name != "" {
		if _, err := fmt.Fprintf(ew.w, "event: %s\n", name); err != nil {
			return err
		}
	}
	for line := range strings.SplitSeq(string(data), "\n") {
		if _, err := fmt.Fprintf(ew.w, "data: %s\n", line); err != nil {
			return err
		}
	}
	if _, err := io.WriteString(ew.w, "\n"); err != nil {
		return err
	}
	if ew.flusher != nil {
		ew.flusher.Flush()
	}
	return nil
}

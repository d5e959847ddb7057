package httputil

import (
	"errors"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
)

func TestReadEvents(t *testing.T) {
	stream := strings.Join([]string{
		": keep-alive",
		"event: message_start",
		`data: {"type":"message_start"}`,
		"",
		`data: {"a":1}`,
		"",
		"data: line one",
		"data: line two",
		"",
		"event: ping",
		"",
		"data: [DONE]",
	}, "\n")

	var got []Event
	err := ReadEvents(strings.NewReader(stream), func(ev Event) error {
		got = append(got, ev)
		return nil
	})
	if err != nil {
		t.Fatalf("ReadEvents: %v", err)
	}

	want := []Event{
		{Name: "message_start", Data: `{"type":"message_start"}`},
		{Data: `{"a":1}`},
		{Data: "line one\nline two"},
		{Data: "[DONE]"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("events = %#v, want %#v", got, want)
	}
}

func TestReadEventsStopsOnCallbackError(t *testing.T) {
	stop := errors.New("stop")
	calls := 0
	err := ReadEvents(strings.NewReader("data: 1\n\ndata: 2\n\n"), func(Event) error {
		calls++
		return stop
	})
	if !errors.Is(err, stop) || calls != 1 {
		t.Errorf("err = %v, calls = %d", err, calls)
	}
}

func TestEventWriterRoundTrip(t *testing.T) {
	rec := httptest.NewRecorder()
	ew := NewEventWriter(rec)

	if err := ew.Send("snapshot", []byte(`{"seq":1}`)); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if err := ew.Send("done", []byte("a\nb")); err != nil {
		t.Fatalf("Send: %v", err)
	}

	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}
	if !rec.Flushed {
		t.Error("events were not flushed")
	}

	var got []Event
	_ = ReadEvents(rec.Body, func(ev Event) error {
		got = append(got, ev)
		return nil
	})
	want := []Event{{Name: "snapshot", Data: `{"seq":1}`}, {Name: "done", Data: "a\nb"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("events = %#v, want %#v", got, want)
	}
}

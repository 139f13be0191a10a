package events

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// RawEvent is what ReadEventLog decodes each line into: every event's
// BaseEvent fields plus whatever type-specific fields the marshaled
// struct also carried, still available as raw JSON for callers that
// care about one particular event type.
type RawEvent struct {
	BaseEvent
	Raw json.RawMessage `json:"-"`
}

// UnmarshalJSON decodes the common BaseEvent fields and keeps the full
// line around in Raw so callers can re-decode into a concrete event
// struct when EventType indicates one they know how to handle.
func (r *RawEvent) UnmarshalJSON(data []byte) error {
	r.Raw = append(json.RawMessage(nil), data...)
	return json.Unmarshal(data, &r.BaseEvent)
}

// Recorder subscribes to an EventBus and appends every event it
// publishes to a file as newline-delimited JSON (§6.1), one line per
// event, so a run's full event history can be replayed later without
// having kept a live subscriber around.
type Recorder struct {
	f *os.File
	w *bufio.Writer
}

// NewRecorder opens path for appending (creating it if necessary) and
// returns a Recorder ready to have events fed to it via Record or Run.
func NewRecorder(path string) (*Recorder, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return nil, fmt.Errorf("opening event log %s: %w", path, err)
	}
	return &Recorder{f: f, w: bufio.NewWriter(f)}, nil
}

// Record appends one event as a single JSON line, flushing immediately
// so a crash between ticks loses at most the in-flight write.
func (r *Recorder) Record(event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding event %s: %w", event.EventType(), err)
	}
	if _, err := r.w.Write(data); err != nil {
		return err
	}
	if err := r.w.WriteByte('\n'); err != nil {
		return err
	}
	return r.w.Flush()
}

// Run drains bus's subscription until ctx is canceled or the channel
// closes, recording every event it sees. Intended to run on its own
// goroutine for the lifetime of a run.
func (r *Recorder) Run(ctx context.Context, bus *EventBus) {
	ch := bus.Subscribe()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			_ = r.Record(event)
		}
	}
}

// Close flushes any buffered data and closes the underlying file.
func (r *Recorder) Close() error {
	if err := r.w.Flush(); err != nil {
		r.f.Close()
		return err
	}
	return r.f.Close()
}

// ReadEventLog decodes every line of an NDJSON event log written by
// Recorder, in file order, skipping lines that fail to decode (a log
// truncated mid-write by a crash still yields every complete line
// before the break).
func ReadEventLog(path string) ([]RawEvent, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening event log %s: %w", path, err)
	}
	defer f.Close()

	var events []RawEvent
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var raw RawEvent
		if err := json.Unmarshal(line, &raw); err != nil {
			continue
		}
		events = append(events, raw)
	}
	if err := scanner.Err(); err != nil {
		return events, fmt.Errorf("reading event log %s: %w", path, err)
	}
	return events, nil
}

package statusapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hugo-lorenzo-mato/cursorflow/internal/core"
	"github.com/hugo-lorenzo-mato/cursorflow/internal/events"
)

type fakePublisher struct {
	runID  string
	states []core.LaneRunState
}

func (f fakePublisher) RunSnapshot(_ context.Context, runID string) ([]core.LaneRunState, error) {
	if runID != f.runID {
		return nil, core.ErrNotFound("run", runID)
	}
	return f.states, nil
}

func TestHandleLaneStatus_ReturnsSnapshot(t *testing.T) {
	pub := fakePublisher{runID: "r1", states: []core.LaneRunState{
		{LaneName: "A", Status: core.LaneStatusRunning},
		{LaneName: "B", Status: core.LaneStatusCompleted},
	}}
	srv := New(pub, events.New(10), nil)
	ts := httptest.NewServer(srv)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/runs/r1/lanes")
	if err != nil {
		t.Fatalf("GET /runs/r1/lanes: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var states []core.LaneRunState
	if err := json.NewDecoder(resp.Body).Decode(&states); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(states) != 2 {
		t.Fatalf("states = %d, want 2", len(states))
	}
}

func TestHandleLaneStatus_UnknownRunIs404(t *testing.T) {
	pub := fakePublisher{runID: "r1"}
	srv := New(pub, events.New(10), nil)
	ts := httptest.NewServer(srv)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/runs/missing/lanes")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestHandleEvents_StreamsMatchingRunEvents(t *testing.T) {
	bus := events.New(10)
	pub := fakePublisher{runID: "r1"}
	srv := New(pub, bus, nil)
	ts := httptest.NewServer(srv)
	defer ts.Close()

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/runs/r1/events", nil)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("GET /runs/r1/events: %v", err)
	}
	defer resp.Body.Close()

	time.Sleep(20 * time.Millisecond) // let the handler subscribe
	bus.Publish(events.NewRunStartedEvent("r1", 2, 2))
	bus.Publish(events.NewRunStartedEvent("other-run", 1, 1))

	buf := make([]byte, 4096)
	n, _ := resp.Body.Read(buf)
	body := string(buf[:n])

	if !strings.Contains(body, "run_started") {
		t.Fatalf("body = %q, want it to contain the r1 run_started event", body)
	}
	if strings.Contains(body, "other-run") {
		t.Fatalf("body = %q, want events from other runs filtered out", body)
	}
}

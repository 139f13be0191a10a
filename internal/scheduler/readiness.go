package scheduler

import (
	"strconv"

	"github.com/hugo-lorenzo-mato/cursorflow/internal/core"
)

// laneSets is the scheduler's authoritative bookkeeping of which set
// every known lane currently belongs to. Membership is mutually
// exclusive: a lane name appears in at most one of the four maps.
type laneSets struct {
	running   map[string]bool
	completed map[string]bool
	failed    map[string]bool
	blocked   map[string]bool
}

func newLaneSets() laneSets {
	return laneSets{
		running:   make(map[string]bool),
		completed: make(map[string]bool),
		failed:    make(map[string]bool),
		blocked:   make(map[string]bool),
	}
}

func (s laneSets) inAnySet(name string) bool {
	return s.running[name] || s.completed[name] || s.failed[name] || s.blocked[name]
}

func (s laneSets) terminalCount() int {
	return len(s.completed) + len(s.failed) + len(s.blocked)
}

// readiness is the outcome of evaluating one lane's dependency edges
// against the current laneSets and sibling run states.
type readiness struct {
	ready bool
	// failLane is set when a dependency's failure propagates to this
	// lane (fail-fast propagation, §4.2 rule 2).
	failLane   bool
	failReason string
	// waitingOn names the first unsatisfied dependency, for
	// lane_waiting events and diagnostics. Empty when ready or failed.
	waitingOn string
}

// evaluateReadiness applies the §4.2 readiness predicate to lane given
// its planned startIndex, the run-wide membership sets, and every
// lane's current run state (needed to resolve task-level edges against
// a sibling that is still running).
func evaluateReadiness(lane *core.Lane, startIndex int, sets laneSets, states map[string]*core.LaneRunState) readiness {
	if sets.inAnySet(lane.Name) {
		return readiness{ready: false}
	}

	edges := lane.Dependencies
	if startIndex == 0 && len(lane.Tasks) > 0 {
		edges = append(append([]string{}, edges...), lane.Tasks[0].Dependencies...)
	}

	for _, edge := range edges {
		target, qualifier, err := core.ParseDependencyEdge(edge)
		if err != nil {
			// Load-time validation should have already rejected this;
			// treat as permanently unsatisfied rather than start a
			// lane whose gate cannot be evaluated.
			return readiness{ready: false, waitingOn: edge}
		}

		if qualifier == "" {
			if sets.completed[target] {
				continue
			}
			if sets.failed[target] {
				return readiness{failLane: true, failReason: "dependency " + target + " failed"}
			}
			return readiness{ready: false, waitingOn: target}
		}

		// Task-level edge "target:qualifier".
		if sets.completed[target] {
			continue
		}
		if satisfiesTaskEdge(states[target], qualifier) {
			continue
		}
		if sets.failed[target] {
			return readiness{failLane: true, failReason: "dependency " + target + ":" + qualifier + " failed"}
		}
		return readiness{ready: false, waitingOn: target + ":" + qualifier}
	}

	return readiness{ready: true}
}

// satisfiesTaskEdge reports whether qualifier (a task name or a
// non-negative 0-based index) is satisfied by target's current run
// state: either the task name is already in CompletedTaskNames, or the
// qualifier parses as an index strictly less than CurrentTaskIndex.
func satisfiesTaskEdge(state *core.LaneRunState, qualifier string) bool {
	if state == nil {
		return false
	}
	if state.HasCompletedTask(qualifier) {
		return true
	}
	if n, err := strconv.Atoi(qualifier); err == nil && n >= 0 && state.CurrentTaskIndex > n {
		return true
	}
	return false
}

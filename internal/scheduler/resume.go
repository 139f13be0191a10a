package scheduler

import "github.com/hugo-lorenzo-mato/cursorflow/internal/core"

// ResumeState reloads each lane's persisted state.json from runDir (if
// present) and re-derives the live membership sets from its Status,
// implementing the best-effort resume scaffolding named in §9.1: no
// child process is assumed to have survived a coordinator restart, so a
// lane found mid-flight (pending/waiting/running) is simply reset to
// retry from its last recorded task index on the next Tick.
func (s *Scheduler) ResumeState(runDir string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for name := range s.lanes {
		st, err := core.LoadLaneRunState(core.StatePath(runDir, name))
		if err != nil {
			continue
		}
		s.startIndex[name] = st.CurrentTaskIndex

		switch st.Status {
		case core.LaneStatusCompleted:
			s.sets.completed[name] = true
		case core.LaneStatusFailed:
			s.sets.failed[name] = true
		case core.LaneStatusBlocked:
			s.sets.blocked[name] = true
		default:
			st.Status = core.LaneStatusWaiting
		}
		s.states[name] = st
	}
}

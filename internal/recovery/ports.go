package recovery

import (
	"time"

	"github.com/hugo-lorenzo-mato/cursorflow/internal/supervisor"
)

// Signaler is the narrow slice of internal/supervisor.Supervisor the
// recovery controller depends on. Defined locally, mirroring
// internal/scheduler.Spawner, so tests can substitute a fake supervisor.
type Signaler interface {
	Signal(h *supervisor.Handle, kind supervisor.SignalKind) error
	WriteIntervention(h *supervisor.Handle, text string) error
	ActivityTimestamp(h *supervisor.Handle) time.Time
}

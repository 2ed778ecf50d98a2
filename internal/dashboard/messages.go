package dashboard

import (
	"time"

	"github.com/rxtech-lab/argo-scalper/internal/types"
)

// snapshotMsg carries a fresh engine snapshot into the model.
type snapshotMsg struct {
	Snapshot types.EngineSnapshot
}

// tickMsg schedules the next snapshot poll.
type tickMsg time.Time

package pipeline

import (
	"sync"

	"corkboard/internal/store"
)

// tracker is the join barrier for one processing job. The cleanup decision
// is made inside the same critical section that records a stage result, so
// two stages finishing at the same instant can never both claim it.
type tracker struct {
	mu       sync.Mutex
	metadata store.StageStatus
	darkmode store.StageStatus
	cleaned  bool
}

func newTracker() *tracker {
	return &tracker{
		metadata: store.StagePending,
		darkmode: store.StagePending,
	}
}

// setMetadata records the metadata stage outcome and reports whether this
// completion is the one that must run cleanup.
func (t *tracker) setMetadata(status store.StageStatus) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.metadata = status
	return t.claimCleanupLocked()
}

// setDarkMode records the alternate-theme stage outcome and reports whether
// this completion is the one that must run cleanup.
func (t *tracker) setDarkMode(status store.StageStatus) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.darkmode = status
	return t.claimCleanupLocked()
}

func (t *tracker) claimCleanupLocked() bool {
	if t.cleaned {
		return false
	}
	if !t.metadata.Terminal() || !t.darkmode.Terminal() {
		return false
	}
	t.cleaned = true
	return true
}

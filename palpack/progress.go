package palpack

import "sync"

// Phase names a pass over the entries of a library.
type Phase string

const (
	PhaseCompress   Phase = "compress"
	PhaseWrite      Phase = "write"
	PhaseDecompress Phase = "decompress"
	PhaseExport     Phase = "export"
)

// ProgressCallback is called as a pass advances.
// current: items finished so far in this phase (0 announces the total)
// total: number of items the phase will process
type ProgressCallback func(phase Phase, current int, total int)

// EntriesDone converts a progress count into the number of finished entries.
// The write phase reports the metadata block as its first step.
func EntriesDone(phase Phase, current int) int {
	if phase == PhaseWrite && current > 0 {
		return current - 1
	}
	return current
}

// MultiProgress fans one event out to every non-nil callback.
func MultiProgress(callbacks ...ProgressCallback) ProgressCallback {
	var active []ProgressCallback
	for _, cb := range callbacks {
		if cb != nil {
			active = append(active, cb)
		}
	}
	if len(active) == 0 {
		return nil
	}
	return func(phase Phase, current, total int) {
		for _, cb := range active {
			cb(phase, current, total)
		}
	}
}

// phaseCounter serializes callbacks coming from concurrent workers and turns
// completions into a monotonic count.
type phaseCounter struct {
	mu       sync.Mutex
	phase    Phase
	total    int
	done     int
	callback ProgressCallback
}

func newPhaseCounter(phase Phase, total int, callback ProgressCallback) *phaseCounter {
	c := &phaseCounter{phase: phase, total: total, callback: callback}
	if callback != nil {
		callback(phase, 0, total)
	}
	return c
}

func (c *phaseCounter) step() {
	if c.callback == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.done++
	c.callback(c.phase, c.done, c.total)
}

package executor

import "sync/atomic"

// Termination states of a single run. Each transition happens at most once.
const (
	stateRunning int32 = iota
	stateGracePeriod
	stateForceKilling
	stateResolved
)

type termination struct {
	state atomic.Int32
}

func (t *termination) advance(from, to int32) bool {
	return t.state.CompareAndSwap(from, to)
}

// resolve moves to the final state from wherever the run currently is.
// It returns false if the run was already resolved.
func (t *termination) resolve() bool {
	for {
		cur := t.state.Load()
		if cur == stateResolved {
			return false
		}
		if t.state.CompareAndSwap(cur, stateResolved) {
			return true
		}
	}
}

func (t *termination) current() int32 {
	return t.state.Load()
}

package runtime

import "sync/atomic"

// FrameLoop repeats a step once per animation frame until the step reports
// it is finished or the loop is cancelled.
type FrameLoop struct {
	sched Scheduler
	step  func() bool
	state atomic.Int32
}

const (
	loopRunning int32 = iota
	loopDone
	loopCancelled
)

// StartFrameLoop schedules step on the next frame. step returns false to end
// the loop.
func StartFrameLoop(s Scheduler, step func() bool) *FrameLoop {
	l := &FrameLoop{sched: s, step: step}
	s.RequestAnimationFrame(l.tick)
	return l
}

func (l *FrameLoop) tick() {
	if l.state.Load() != loopRunning {
		return
	}
	if !l.step() {
		l.state.CompareAndSwap(loopRunning, loopDone)
		return
	}
	if l.state.Load() == loopRunning {
		l.sched.RequestAnimationFrame(l.tick)
	}
}

// Cancel stops the loop before its next frame. It is synchronous and
// idempotent; cancelling a finished loop does nothing.
func (l *FrameLoop) Cancel() {
	if l == nil {
		return
	}
	l.state.CompareAndSwap(loopRunning, loopCancelled)
}

// Running reports whether the loop will run another frame.
func (l *FrameLoop) Running() bool {
	return l != nil && l.state.Load() == loopRunning
}

package playback

import "time"

type Timer interface {
	Stop() bool
}

// Scheduler runs f after d on the machine's event loop.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// LoopScheduler fires timers through post, which must hand f to the loop
// that owns the machine.
type LoopScheduler struct {
	post func(func())
}

func NewLoopScheduler(post func(func())) *LoopScheduler {
	return &LoopScheduler{post: post}
}

func (s *LoopScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, func() { s.post(f) })
}

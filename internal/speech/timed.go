// Package speech provides narration engines: a timed engine that estimates
// speaking time for headless sessions, and a websocket hub that forwards
// utterances to a browser doing the actual speech synthesis.
package speech

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/park285/chess-audio-guide/internal/narration"
	"go.uber.org/zap"
)

const (
	DefaultWPM         = 160
	DefaultMinDuration = 600 * time.Millisecond
)

// EstimateDuration approximates how long text takes to read aloud.
func EstimateDuration(text string, wpm int, floor time.Duration) time.Duration {
	if wpm <= 0 {
		wpm = DefaultWPM
	}
	words := len(strings.Fields(text))
	d := time.Duration(words) * time.Minute / time.Duration(wpm)
	if d < floor {
		return floor
	}
	return d
}

// Sink receives each utterance as it starts. Say runs on its own goroutine.
type Sink interface {
	Say(ctx context.Context, u narration.Utterance) error
}

// Timed completes each utterance after its estimated speaking time. Pause
// keeps the remaining time; Cancel drops the utterance silently.
type Timed struct {
	mu       sync.Mutex
	listener narration.Listener
	sink     Sink
	logger   *zap.Logger
	wpm      int
	floor    time.Duration

	current   uint64
	active    bool
	paused    bool
	gen       uint64
	timer     *time.Timer
	started   time.Time
	remaining time.Duration
	volume    float64
}

type TimedOption func(*Timed)

func WithWPM(wpm int) TimedOption {
	return func(t *Timed) {
		if wpm > 0 {
			t.wpm = wpm
		}
	}
}

func WithMinDuration(d time.Duration) TimedOption {
	return func(t *Timed) { t.floor = d }
}

func WithSink(s Sink) TimedOption {
	return func(t *Timed) { t.sink = s }
}

func WithTimedLogger(l *zap.Logger) TimedOption {
	return func(t *Timed) {
		if l != nil {
			t.logger = l
		}
	}
}

func NewTimed(opts ...TimedOption) *Timed {
	t := &Timed{
		wpm:    DefaultWPM,
		floor:  DefaultMinDuration,
		logger: zap.NewNop(),
		volume: 1,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Timed) Attach(l narration.Listener) {
	t.mu.Lock()
	t.listener = l
	t.mu.Unlock()
}

func (t *Timed) Speak(u narration.Utterance) error {
	t.mu.Lock()
	t.stopLocked()
	t.current = u.ID
	t.active = true
	t.paused = false
	t.volume = u.Volume
	t.remaining = EstimateDuration(u.Text, t.wpm, t.floor)
	t.armLocked()
	sink := t.sink
	t.mu.Unlock()

	if sink != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := sink.Say(ctx, u); err != nil {
				t.logger.Warn("speech_sink_failed", zap.Uint64("utterance_id", u.ID), zap.Error(err))
			}
		}()
	}
	return nil
}

func (t *Timed) armLocked() {
	t.gen++
	gen := t.gen
	t.started = time.Now()
	t.timer = time.AfterFunc(t.remaining, func() { t.fire(gen) })
}

func (t *Timed) stopLocked() {
	t.gen++
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

func (t *Timed) fire(gen uint64) {
	t.mu.Lock()
	if gen != t.gen || !t.active || t.paused {
		t.mu.Unlock()
		return
	}
	t.active = false
	t.timer = nil
	id, l := t.current, t.listener
	t.mu.Unlock()

	if l != nil {
		l.Ended(id)
	}
}

func (t *Timed) Pause() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.active || t.paused {
		return nil
	}
	t.stopLocked()
	t.remaining = max(t.remaining-time.Since(t.started), 0)
	t.paused = true
	return nil
}

func (t *Timed) Resume() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.active || !t.paused {
		return nil
	}
	t.paused = false
	t.armLocked()
	return nil
}

func (t *Timed) Cancel() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
	t.active = false
	t.paused = false
	return nil
}

func (t *Timed) SetVolume(v float64) error {
	t.mu.Lock()
	t.volume = v
	t.mu.Unlock()
	return nil
}

var _ narration.Engine = (*Timed)(nil)

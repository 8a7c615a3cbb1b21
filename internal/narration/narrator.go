// Package narration turns a speech engine into a single-slot narrator with
// at-most-once completion.
package narration

import (
	"errors"

	"go.uber.org/zap"
)

var ErrEngineUnavailable = errors.New("speech engine unavailable")

// Utterance is one piece of text handed to a speech engine.
type Utterance struct {
	ID     uint64  `json:"id"`
	Text   string  `json:"text"`
	Volume float64 `json:"volume"`
}

// Listener receives engine events. Implementations must be safe to call from
// any goroutine.
type Listener interface {
	Ended(id uint64)
	Failed(id uint64, err error)
}

// Engine is the platform speech boundary. Calls return quickly; audio runs
// asynchronously and finishes by calling the attached Listener.
type Engine interface {
	Attach(l Listener)
	Speak(u Utterance) error
	Pause() error
	Resume() error
	Cancel() error
	SetVolume(v float64) error
}

// Dispatcher runs fn on the narrator's owning event loop.
type Dispatcher func(fn func())

// State of the current utterance.
type State int

const (
	Idle State = iota
	Speaking
	Paused
)

func (s State) String() string {
	switch s {
	case Speaking:
		return "speaking"
	case Paused:
		return "paused"
	default:
		return "idle"
	}
}

// Narrator must only be used from the goroutine its Dispatcher runs on.
// Ended and Failed are the exception: they hop onto that goroutine first.
type Narrator struct {
	engine     Engine
	dispatch   Dispatcher
	onComplete func()
	logger     *zap.Logger

	nextID  uint64
	pending uint64
	state   State
	volume  float64
}

type Option func(*Narrator)

func WithLogger(l *zap.Logger) Option {
	return func(n *Narrator) {
		if l != nil {
			n.logger = l
		}
	}
}

func WithVolume(v float64) Option {
	return func(n *Narrator) { n.volume = clamp(v) }
}

// New attaches the narrator to engine. dispatch may be nil when the caller
// already serialises engine callbacks.
func New(engine Engine, dispatch Dispatcher, opts ...Option) *Narrator {
	if dispatch == nil {
		dispatch = func(fn func()) { fn() }
	}
	n := &Narrator{
		engine:   engine,
		dispatch: dispatch,
		logger:   zap.NewNop(),
		volume:   0.8,
	}
	for _, opt := range opts {
		opt(n)
	}
	if engine != nil {
		engine.Attach(n)
	}
	return n
}

// OnComplete registers the callback for non-superseded completions.
func (n *Narrator) OnComplete(fn func()) { n.onComplete = fn }

// Speak supersedes whatever is in flight.
func (n *Narrator) Speak(text string) {
	if n.state != Idle {
		n.cancelEngine()
	}
	n.nextID++
	id := n.nextID
	n.pending = id
	n.state = Speaking

	if n.engine == nil {
		n.fail(id, ErrEngineUnavailable)
		return
	}
	u := Utterance{ID: id, Text: text, Volume: n.volume}
	if err := n.engine.Speak(u); err != nil {
		n.fail(id, err)
	}
}

// fail reports err asynchronously so Speak never re-enters its caller.
func (n *Narrator) fail(id uint64, err error) {
	n.logger.Warn("narration_failed", zap.Uint64("utterance_id", id), zap.Error(err))
	n.state = Idle
	n.dispatch(func() { n.complete(id) })
}

func (n *Narrator) Pause() {
	if n.state != Speaking {
		return
	}
	if err := n.engine.Pause(); err != nil {
		n.logger.Warn("narration_pause_failed", zap.Error(err))
		return
	}
	n.state = Paused
}

func (n *Narrator) Resume() {
	if n.state != Paused {
		return
	}
	if err := n.engine.Resume(); err != nil {
		n.logger.Warn("narration_resume_failed", zap.Error(err))
		return
	}
	n.state = Speaking
}

// Stop cancels unconditionally; the stopped utterance never completes.
func (n *Narrator) Stop() {
	n.pending = 0
	n.state = Idle
	n.cancelEngine()
}

func (n *Narrator) cancelEngine() {
	if n.engine == nil {
		return
	}
	if err := n.engine.Cancel(); err != nil {
		n.logger.Warn("narration_cancel_failed", zap.Error(err))
	}
}

// SetVolume applies to the utterance in flight and to later ones.
func (n *Narrator) SetVolume(v float64) {
	n.volume = clamp(v)
	if n.engine == nil {
		return
	}
	if err := n.engine.SetVolume(n.volume); err != nil {
		n.logger.Warn("narration_volume_failed", zap.Error(err))
	}
}

func (n *Narrator) Volume() float64 { return n.volume }
func (n *Narrator) State() State    { return n.state }
func (n *Narrator) Paused() bool    { return n.state == Paused }
func (n *Narrator) Speaking() bool  { return n.state == Speaking }

// Ended implements Listener.
func (n *Narrator) Ended(id uint64) {
	n.dispatch(func() { n.complete(id) })
}

// Failed implements Listener. A failed utterance counts as finished so
// playback keeps moving.
func (n *Narrator) Failed(id uint64, err error) {
	n.dispatch(func() {
		if id != n.pending {
			return
		}
		n.logger.Warn("narration_failed", zap.Uint64("utterance_id", id), zap.Error(err))
		n.complete(id)
	})
}

func (n *Narrator) complete(id uint64) {
	if id == 0 || id != n.pending {
		return
	}
	n.pending = 0
	n.state = Idle
	if n.onComplete != nil {
		n.onComplete()
	}
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

var _ Listener = (*Narrator)(nil)

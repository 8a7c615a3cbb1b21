package guide

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/park285/chess-audio-guide/internal/match"
	"github.com/park285/chess-audio-guide/internal/narration"
	"github.com/park285/chess-audio-guide/internal/playback"
	"github.com/park285/chess-audio-guide/internal/rules"
	"github.com/park285/chess-audio-guide/internal/speech"
	"go.uber.org/zap"
)

const eventQueueSize = 64

// Session is one listener's playback. Every field below the loop marker is
// owned by the goroutine started in start and must only be touched from
// closures passed to do or post.
type Session struct {
	id       string
	events   chan func()
	quit     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	lastSeen atomic.Int64
	hub      *speech.Hub
	onChange func(*Session)

	// overflow for post once events is full; drained in order by one goroutine
	backlogMu sync.Mutex
	backlog   []func()
	draining  bool

	// loop
	board    *rules.Board
	narrator *narration.Narrator
	machine  *playback.Machine
	recorder *match.Recorder
	studyID  string
	upload   *playback.Sequence
}

func newSession(id string, engine narration.Engine, opts playback.Options, logger *zap.Logger) *Session {
	s := &Session{
		id:     id,
		events: make(chan func(), eventQueueSize),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	s.touch()
	if hub, ok := engine.(*speech.Hub); ok {
		s.hub = hub
	}

	logger = logger.With(zap.String("session_id", id))
	s.board, _ = rules.NewBoard("")
	s.narrator = narration.New(engine, s.post,
		narration.WithLogger(logger),
		narration.WithVolume(opts.Volume),
	)
	opts.Logger = logger
	s.machine = playback.New(s.board, s.narrator, playback.NewLoopScheduler(s.postTimer), opts)
	s.narrator.OnComplete(s.machine.HandleNarrationEnd)
	s.recorder = match.NewRecorder(logger)
	_ = s.recorder.NewMatch("")
	return s
}

func (s *Session) ID() string { return s.id }

// Hub is the browser narration hub, or nil when the session speaks headlessly.
func (s *Session) Hub() *speech.Hub { return s.hub }

func (s *Session) start() {
	go func() {
		defer close(s.done)
		for {
			select {
			case fn := <-s.events:
				fn()
			case <-s.quit:
				return
			}
		}
	}()
}

// stop ends the loop after silencing narration.
func (s *Session) stop() {
	s.stopOnce.Do(func() {
		_ = s.do(context.Background(), func() error {
			s.machine.Stop()
			return nil
		})
		close(s.quit)
	})
	<-s.done
}

// post queues fn without blocking the caller, which may be the loop itself.
// Posted closures run in the order they were posted. Closures sent through do
// may run ahead of a backlog.
func (s *Session) post(fn func()) {
	s.backlogMu.Lock()
	defer s.backlogMu.Unlock()
	if len(s.backlog) == 0 {
		select {
		case s.events <- fn:
			return
		default:
		}
	}
	s.backlog = append(s.backlog, fn)
	if !s.draining {
		s.draining = true
		go s.drain()
	}
}

// drain feeds the backlog into events. The head stays queued until it is
// sent so later posts cannot overtake it.
func (s *Session) drain() {
	for {
		s.backlogMu.Lock()
		if len(s.backlog) == 0 {
			s.draining = false
			s.backlogMu.Unlock()
			return
		}
		fn := s.backlog[0]
		s.backlogMu.Unlock()

		select {
		case s.events <- fn:
		case <-s.quit:
			s.backlogMu.Lock()
			s.backlog = nil
			s.draining = false
			s.backlogMu.Unlock()
			return
		}

		s.backlogMu.Lock()
		s.backlog[0] = nil
		s.backlog = s.backlog[1:]
		s.backlogMu.Unlock()
	}
}

// postTimer runs a timer callback and reports the resulting change.
func (s *Session) postTimer(fn func()) {
	s.post(func() {
		fn()
		if s.onChange != nil {
			s.onChange(s)
		}
	})
}

// do runs fn on the loop and waits for it.
func (s *Session) do(ctx context.Context, fn func() error) error {
	result := make(chan error, 1)
	select {
	case s.events <- func() { result <- fn() }:
	case <-s.quit:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	s.touch()
	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) touch() { s.lastSeen.Store(time.Now().UnixNano()) }

func (s *Session) idleSince(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, s.lastSeen.Load()))
}

// Package playback steps a board through a move sequence and narrates each step.
//
// A Machine is not safe for concurrent use. All calls, including timer
// callbacks fired through the Scheduler and narration completions, must run on
// one goroutine.
package playback

import (
	"errors"
	"fmt"
	"time"

	"github.com/park285/chess-audio-guide/internal/domain"
	"github.com/park285/chess-audio-guide/internal/match"
	"github.com/park285/chess-audio-guide/internal/narration"
	"github.com/park285/chess-audio-guide/internal/rules"
	"go.uber.org/zap"
)

var (
	ErrInvalidMove   = rules.ErrInvalidMove
	ErrAtStart       = errors.New("already at starting position")
	ErrInvalidVolume = errors.New("volume must be within [0,1]")
	ErrEmptySequence = errors.New("sequence has no moves")
)

const (
	DefaultStudyDelay      = time.Second
	DefaultSimulationDelay = 8 * time.Second
	DefaultVolume          = 0.8
)

// Rules is the move-application boundary.
type Rules interface {
	Reset(fen string) error
	Apply(spec string) (rules.Ply, error)
	FEN() string
}

// Narrator is the speech boundary.
type Narrator interface {
	Speak(text string)
	Pause()
	Resume()
	Stop()
	SetVolume(v float64)
	State() narration.State
}

// Pacing controls auto-advance. With AwaitNarration the next step waits for
// narration to finish and then Delay; without it, steps are Delay apart.
type Pacing struct {
	Delay          time.Duration
	AwaitNarration bool
}

type Options struct {
	Study      Pacing
	Simulation Pacing
	Volume     float64
	Announcer  Announcer
	Logger     *zap.Logger
}

func DefaultOptions() Options {
	return Options{
		Study:      Pacing{Delay: DefaultStudyDelay, AwaitNarration: true},
		Simulation: Pacing{Delay: DefaultSimulationDelay},
		Volume:     DefaultVolume,
	}
}

type Machine struct {
	rules     Rules
	narrator  Narrator
	sched     Scheduler
	announcer Announcer
	logger    *zap.Logger
	opts      Options

	seq     Sequence
	pacing  Pacing
	index   int
	playing bool
	volume  float64
	log     *match.Log

	timer Timer
	token uint64
}

func New(r Rules, n Narrator, s Scheduler, opts Options) *Machine {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Announcer == nil {
		opts.Announcer = NewCatalogAnnouncer(nil)
	}
	if opts.Study.Delay <= 0 {
		opts.Study.Delay = DefaultStudyDelay
	}
	if opts.Simulation.Delay <= 0 {
		opts.Simulation.Delay = DefaultSimulationDelay
	}
	if opts.Volume < 0 || opts.Volume > 1 {
		opts.Volume = DefaultVolume
	}
	return &Machine{
		rules:     r,
		narrator:  n,
		sched:     s,
		announcer: opts.Announcer,
		logger:    opts.Logger,
		opts:      opts,
		index:     -1,
		volume:    opts.Volume,
		log:       match.NewLog(),
	}
}

// HandleNarrationEnd is the narrator's completion hook. Only sequences paced
// by narration react to it.
func (m *Machine) HandleNarrationEnd() {
	if !m.pacing.AwaitNarration {
		return
	}
	m.OnNarrationComplete()
}

// Load replaces the active sequence and returns to its starting position.
func (m *Machine) Load(seq Sequence) error {
	if len(seq.Steps) == 0 {
		return ErrEmptySequence
	}
	if err := m.rules.Reset(seq.StartFEN); err != nil {
		return err
	}
	m.cancelPending()
	m.narrator.Stop()
	m.seq = seq
	m.pacing = m.pacingFor(seq.Kind)
	m.index = -1
	m.playing = false
	m.log.Begin()
	m.logger.Info("playback_loaded",
		zap.String("sequence_id", seq.ID),
		zap.String("kind", string(seq.Kind)),
		zap.Int("steps", len(seq.Steps)),
	)
	return nil
}

func (m *Machine) pacingFor(k Kind) Pacing {
	if k == KindUpload {
		return m.opts.Simulation
	}
	return m.opts.Study
}

func (m *Machine) loaded() bool { return len(m.seq.Steps) > 0 }

func (m *Machine) atEnd() bool { return m.index == len(m.seq.Steps)-1 }

// Advance applies the next step. At the end it only stops playback and
// announces the end of the sequence.
func (m *Machine) Advance() error {
	if !m.loaded() {
		return ErrEmptySequence
	}
	if m.atEnd() {
		m.finish()
		return nil
	}

	step := m.seq.Steps[m.index+1]
	ply, err := m.applyStep(step)
	if err != nil {
		m.playing = false
		m.cancelPending()
		m.logger.Warn("playback_move_rejected",
			zap.String("sequence_id", m.seq.ID),
			zap.Int("index", m.index+1),
			zap.Error(err),
		)
		return err
	}

	m.cancelPending()
	m.index++
	if m.seq.Records() {
		m.log.Append(domain.MatchMove{
			Number:   step.Number,
			Notation: step.Notation,
			Comment:  step.Commentary,
			Plies:    uciOf(ply),
			SAN:      sanOf(ply),
		})
	}
	m.logger.Debug("playback_advance",
		zap.String("sequence_id", m.seq.ID),
		zap.Int("index", m.index),
		zap.String("fen", m.rules.FEN()),
	)
	m.narrator.Speak(m.announcer.Step(m.seq, step))
	if m.playing && !m.pacing.AwaitNarration {
		m.OnNarrationComplete()
	}
	return nil
}

// applyStep plays every ply of step. A rejected ply aborts the rest; plies
// before it stay applied.
func (m *Machine) applyStep(step Step) ([]rules.Ply, error) {
	out := make([]rules.Ply, 0, len(step.Plies))
	for _, p := range step.Plies {
		ply, err := m.rules.Apply(p)
		if err != nil {
			return out, fmt.Errorf("step %d %q: %w", step.Number, p, err)
		}
		out = append(out, ply)
	}
	return out, nil
}

// Retreat steps back one move by replaying from the start position.
func (m *Machine) Retreat() error {
	if !m.loaded() {
		return ErrEmptySequence
	}
	if m.index < 0 {
		return ErrAtStart
	}
	m.cancelPending()
	m.narrator.Stop()
	m.playing = false

	target := m.index - 1
	if err := m.replay(target); err != nil {
		return err
	}
	m.index = target
	if m.seq.Records() {
		m.log.Truncate(target + 1)
	}
	if m.index >= 0 {
		m.narrator.Speak(m.announcer.Step(m.seq, m.seq.Steps[m.index]))
	} else {
		m.narrator.Speak(m.announcer.Start(m.seq))
	}
	return nil
}

func (m *Machine) replay(target int) error {
	if err := m.rules.Reset(m.seq.StartFEN); err != nil {
		return err
	}
	for i := 0; i <= target; i++ {
		if _, err := m.applyStep(m.seq.Steps[i]); err != nil {
			return fmt.Errorf("replay: %w", err)
		}
	}
	return nil
}

// Play starts or resumes auto-advance.
func (m *Machine) Play() error {
	if !m.loaded() {
		return ErrEmptySequence
	}
	if m.playing {
		m.narrator.Resume()
		return nil
	}
	if m.narrator.State() == narration.Paused {
		m.narrator.Resume()
		m.playing = true
		if !m.pacing.AwaitNarration {
			m.OnNarrationComplete()
		}
		return nil
	}
	if m.index == -1 {
		if err := m.Advance(); err != nil {
			return err
		}
	}
	m.playing = true
	// nothing in flight means no completion will arrive to drive the next step
	if !m.pacing.AwaitNarration || m.narrator.State() == narration.Idle {
		m.OnNarrationComplete()
	}
	return nil
}

// Pause holds narration where it is and disarms auto-advance.
func (m *Machine) Pause() {
	m.cancelPending()
	m.narrator.Pause()
	m.playing = false
}

// OnNarrationComplete schedules the next step while playing.
func (m *Machine) OnNarrationComplete() {
	if !m.playing || !m.loaded() {
		return
	}
	if !m.atEnd() {
		m.schedule(m.pacing.Delay, func() {
			if err := m.Advance(); err != nil {
				m.logger.Warn("playback_auto_advance_failed", zap.Error(err))
			}
		})
		return
	}
	if m.pacing.AwaitNarration {
		m.finish()
		return
	}
	m.schedule(m.pacing.Delay, m.finish)
}

func (m *Machine) finish() {
	m.cancelPending()
	m.playing = false
	m.narrator.Speak(m.announcer.End(m.seq))
	m.logger.Info("playback_finished", zap.String("sequence_id", m.seq.ID))
}

func (m *Machine) SetVolume(v float64) error {
	if v < 0 || v > 1 {
		return fmt.Errorf("%w: %v", ErrInvalidVolume, v)
	}
	m.volume = v
	m.narrator.SetVolume(v)
	return nil
}

// Restore replays silently to index, used after a process restart.
func (m *Machine) Restore(index int, volume float64) error {
	if !m.loaded() {
		return ErrEmptySequence
	}
	if index < -1 || index >= len(m.seq.Steps) {
		return fmt.Errorf("restore index %d out of range", index)
	}
	if err := m.rules.Reset(m.seq.StartFEN); err != nil {
		return err
	}
	m.log.Begin()
	for i := 0; i <= index; i++ {
		step := m.seq.Steps[i]
		plies, err := m.applyStep(step)
		if err != nil {
			return fmt.Errorf("restore: %w", err)
		}
		if m.seq.Records() {
			m.log.Append(domain.MatchMove{Number: step.Number, Notation: step.Notation, Comment: step.Commentary, Plies: uciOf(plies), SAN: sanOf(plies)})
		}
	}
	m.index = index
	if volume >= 0 && volume <= 1 {
		m.volume = volume
		m.narrator.SetVolume(volume)
	}
	return nil
}

// Stop halts playback and narration without moving.
func (m *Machine) Stop() {
	m.cancelPending()
	m.narrator.Stop()
	m.playing = false
}

func (m *Machine) schedule(d time.Duration, fn func()) {
	m.cancelPending()
	token := m.token
	m.timer = m.sched.AfterFunc(d, func() {
		if token != m.token {
			return
		}
		m.timer = nil
		fn()
	})
}

func (m *Machine) cancelPending() {
	m.token++
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

// State is a read-only view of the machine.
type State struct {
	SequenceID string  `json:"sequence_id"`
	Title      string  `json:"title"`
	Kind       Kind    `json:"kind"`
	Index      int     `json:"current_move_index"`
	Total      int     `json:"total"`
	Playing    bool    `json:"is_playing"`
	Volume     float64 `json:"volume"`
	FEN        string  `json:"fen"`
	Current    *Step   `json:"current,omitempty"`
	Narration  string  `json:"narration"`
	AtStart    bool    `json:"at_start"`
	AtEnd      bool    `json:"at_end"`
}

func (m *Machine) State() State {
	st := State{
		SequenceID: m.seq.ID,
		Title:      m.seq.Title,
		Kind:       m.seq.Kind,
		Index:      m.index,
		Total:      len(m.seq.Steps),
		Playing:    m.playing,
		Volume:     m.volume,
		FEN:        m.rules.FEN(),
		Narration:  m.narrator.State().String(),
		AtStart:    m.index == -1,
		AtEnd:      m.loaded() && m.atEnd(),
	}
	if m.index >= 0 && m.index < len(m.seq.Steps) {
		step := m.seq.Steps[m.index]
		st.Current = &step
	}
	return st
}

func (m *Machine) Sequence() Sequence { return m.seq }

// Match returns the match recorded while simulating an upload.
func (m *Machine) Match() (domain.Match, bool) {
	if !m.seq.Records() {
		return domain.Match{}, false
	}
	return m.log.Snapshot(), true
}

func uciOf(plies []rules.Ply) []string {
	out := make([]string, len(plies))
	for i, p := range plies {
		out[i] = p.UCI
	}
	return out
}

func sanOf(plies []rules.Ply) []string {
	out := make([]string, len(plies))
	for i, p := range plies {
		out[i] = p.SAN
	}
	return out
}

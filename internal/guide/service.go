// Package guide runs listening sessions: each session owns a board, a
// narrator and a playback machine driven from a single event loop.
package guide

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/park285/chess-audio-guide/internal/archive"
	"github.com/park285/chess-audio-guide/internal/catalog"
	"github.com/park285/chess-audio-guide/internal/domain"
	"github.com/park285/chess-audio-guide/internal/msgcat"
	"github.com/park285/chess-audio-guide/internal/narration"
	"github.com/park285/chess-audio-guide/internal/playback"
	"github.com/park285/chess-audio-guide/internal/render"
	"github.com/park285/chess-audio-guide/internal/store"
	"github.com/park285/chess-audio-guide/internal/upload"
	"go.uber.org/zap"
)

var (
	ErrSessionNotFound = errors.New("listening session not found")
	ErrSessionClosed   = errors.New("listening session closed")
	ErrNothingRecorded = errors.New("no recorded moves to archive")
	ErrUnknownMode     = errors.New("unknown upload mode")
)

const defaultIdleTTL = 30 * time.Minute

// UploadMode selects what an upload does with its entries.
type UploadMode string

const (
	// UploadSimulate plays the entries back with narration.
	UploadSimulate UploadMode = "simulate"
	// UploadImport replaces the recorded match without playback.
	UploadImport UploadMode = "import"
)

// BoardView selects which board BoardPNG draws.
type BoardView string

const (
	BoardPlayback BoardView = "playback"
	BoardMatch    BoardView = "match"
)

// EngineFactory creates the speech engine for a new session.
type EngineFactory func(sessionID string) narration.Engine

// SnapshotStore persists sessions across restarts.
type SnapshotStore interface {
	Save(ctx context.Context, snap *store.Snapshot) error
	Load(ctx context.Context, id string) (*store.Snapshot, error)
	Delete(ctx context.Context, id string) error
}

// Relay receives a notice and a board image whenever a sequence is loaded.
type Relay interface {
	SendText(ctx context.Context, room, text string) error
	SendImage(ctx context.Context, room string, png []byte) error
}

type Config struct {
	Playback       playback.Options
	IdleTTL        time.Duration
	UploadMaxBytes int64
	RelayRoom      string
}

type Deps struct {
	Catalog  *catalog.Catalog
	Messages *msgcat.Catalog
	Engines  EngineFactory
	Store    SnapshotStore
	Archive  archive.Repository
	Renderer render.BoardRenderer
	Relay    Relay
	Logger   *zap.Logger
}

type Service struct {
	cfg      Config
	catalog  *catalog.Catalog
	messages *msgcat.Catalog
	engines  EngineFactory
	store    SnapshotStore
	archive  archive.Repository
	renderer render.BoardRenderer
	relay    Relay
	logger   *zap.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewService(cfg Config, deps Deps) (*Service, error) {
	if deps.Catalog == nil {
		return nil, errors.New("guide: study catalog is required")
	}
	if deps.Engines == nil {
		return nil, errors.New("guide: engine factory is required")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Messages == nil {
		deps.Messages = msgcat.Default()
	}
	if deps.Archive == nil {
		deps.Archive = archive.NewMemoryRepository()
	}
	if deps.Renderer == nil {
		deps.Renderer = render.NewPNGRenderer()
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = defaultIdleTTL
	}
	if cfg.UploadMaxBytes <= 0 {
		cfg.UploadMaxBytes = upload.DefaultMaxBytes
	}
	if cfg.Playback.Announcer == nil {
		cfg.Playback.Announcer = playback.NewCatalogAnnouncer(deps.Messages)
	}
	return &Service{
		cfg:      cfg,
		catalog:  deps.Catalog,
		messages: deps.Messages,
		engines:  deps.Engines,
		store:    deps.Store,
		archive:  deps.Archive,
		renderer: deps.Renderer,
		relay:    deps.Relay,
		logger:   deps.Logger,
		sessions: make(map[string]*Session),
	}, nil
}

func (s *Service) Studies() []domain.Study { return s.catalog.List() }

func (s *Service) Study(id string) (domain.Study, error) { return s.catalog.Get(id) }

// CreateSession starts an empty session at the initial position.
func (s *Service) CreateSession(ctx context.Context) (View, error) {
	s.mu.Lock()
	sess := s.spawnLocked(uuid.NewString())
	s.mu.Unlock()
	s.logger.Info("session_created", zap.String("session_id", sess.id))
	return s.view(ctx, sess)
}

// spawnLocked starts a session; s.mu must be held.
func (s *Service) spawnLocked(id string) *Session {
	sess := newSession(id, s.engines(id), s.cfg.Playback, s.logger)
	sess.onChange = s.persistLocked
	sess.start()
	s.sessions[id] = sess
	return sess
}

// Session returns a live session, restoring it from the snapshot store when
// it is not in memory.
func (s *Service) Session(ctx context.Context, id string) (*Session, error) {
	id = strings.TrimSpace(id)
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if ok {
		return sess, nil
	}
	if s.store == nil || id == "" {
		return nil, ErrSessionNotFound
	}
	snap, err := s.store.Load(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	if snap == nil {
		return nil, ErrSessionNotFound
	}

	s.mu.Lock()
	if sess, ok := s.sessions[id]; ok {
		s.mu.Unlock()
		return sess, nil
	}
	sess = s.spawnLocked(id)
	// queued before the session is visible to anyone else
	restored := make(chan error, 1)
	sess.post(func() { restored <- s.restoreLocked(sess, snap) })
	s.mu.Unlock()

	if err := <-restored; err != nil {
		s.logger.Warn("session_restore_failed", zap.String("session_id", id), zap.Error(err))
	} else {
		s.logger.Info("session_restored", zap.String("session_id", id), zap.Int("index", snap.Index))
	}
	return sess, nil
}

func (s *Service) restoreLocked(sess *Session, snap *store.Snapshot) error {
	if snap.Recorded != nil {
		if err := sess.recorder.Restore(*snap.Recorded); err != nil {
			return err
		}
	}
	var seq playback.Sequence
	switch {
	case snap.Upload != nil:
		seq = *snap.Upload
		sess.upload = snap.Upload
	case snap.StudyID != "":
		st, err := s.catalog.Get(snap.StudyID)
		if err != nil {
			return err
		}
		seq = playback.FromStudy(st)
		sess.studyID = st.ID
	default:
		return nil
	}
	if err := sess.machine.Load(seq); err != nil {
		return err
	}
	return sess.machine.Restore(snap.Index, snap.Volume)
}

// persistLocked saves sess; it runs on the session loop.
func (s *Service) persistLocked(sess *Session) {
	if s.store == nil {
		return
	}
	st := sess.machine.State()
	rec := sess.recorder.Match()
	snap := &store.Snapshot{
		SessionID: sess.id,
		StudyID:   sess.studyID,
		Upload:    sess.upload,
		Index:     st.Index,
		Volume:    st.Volume,
		Recorded:  &rec,
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.store.Save(ctx, snap); err != nil {
		s.logger.Warn("session_persist_failed", zap.String("session_id", sess.id), zap.Error(err))
	}
}

// mutate runs fn on the session loop, persists the outcome and returns the
// resulting view. The view is returned even when fn fails.
func (s *Service) mutate(ctx context.Context, id string, fn func(sess *Session) error) (View, error) {
	sess, err := s.Session(ctx, id)
	if err != nil {
		return View{}, err
	}
	var v View
	err = sess.do(ctx, func() error {
		opErr := fn(sess)
		s.persistLocked(sess)
		v = s.viewLocked(sess)
		return opErr
	})
	if errors.Is(err, ErrSessionClosed) {
		return View{}, ErrSessionNotFound
	}
	return v, err
}

func (s *Service) State(ctx context.Context, id string) (View, error) {
	sess, err := s.Session(ctx, id)
	if err != nil {
		return View{}, err
	}
	return s.view(ctx, sess)
}

func (s *Service) view(ctx context.Context, sess *Session) (View, error) {
	var v View
	err := sess.do(ctx, func() error {
		v = s.viewLocked(sess)
		return nil
	})
	return v, err
}

func (s *Service) LoadStudy(ctx context.Context, id, studyID string) (View, error) {
	st, err := s.catalog.Get(studyID)
	if err != nil {
		return View{}, err
	}
	v, err := s.mutate(ctx, id, func(sess *Session) error {
		if err := sess.machine.Load(playback.FromStudy(st)); err != nil {
			return err
		}
		sess.studyID = st.ID
		sess.upload = nil
		return nil
	})
	if err == nil {
		s.announce(id, st.Title)
	}
	return v, err
}

func (s *Service) Advance(ctx context.Context, id string) (View, error) {
	return s.mutate(ctx, id, func(sess *Session) error { return sess.machine.Advance() })
}

func (s *Service) Retreat(ctx context.Context, id string) (View, error) {
	return s.mutate(ctx, id, func(sess *Session) error { return sess.machine.Retreat() })
}

func (s *Service) Play(ctx context.Context, id string) (View, error) {
	return s.mutate(ctx, id, func(sess *Session) error { return sess.machine.Play() })
}

func (s *Service) Pause(ctx context.Context, id string) (View, error) {
	return s.mutate(ctx, id, func(sess *Session) error {
		sess.machine.Pause()
		return nil
	})
}

func (s *Service) SetVolume(ctx context.Context, id string, v float64) (View, error) {
	return s.mutate(ctx, id, func(sess *Session) error { return sess.machine.SetVolume(v) })
}

// Upload parses r and either simulates it or imports it as the recorded
// match. A malformed upload changes nothing.
func (s *Service) Upload(ctx context.Context, id string, r io.Reader, mode UploadMode, title string) (View, error) {
	if mode == "" {
		mode = UploadSimulate
	}
	if mode != UploadSimulate && mode != UploadImport {
		return View{}, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
	entries, err := upload.ParseReader(r, s.cfg.UploadMaxBytes)
	if err != nil {
		return View{}, err
	}
	if strings.TrimSpace(title) == "" {
		title = "Uploaded match"
	}

	if mode == UploadImport {
		return s.mutate(ctx, id, func(sess *Session) error {
			rec := sess.recorder
			if err := rec.NewMatch(""); err != nil {
				return err
			}
			_, err := upload.ApplyEntries(rec.Board(), rec.Log(), entries)
			rec.Log().SetResult(rec.Board().Outcome())
			return err
		})
	}

	seq, err := upload.ToSequence(uuid.NewString(), title, entries)
	if err != nil {
		return View{}, err
	}
	v, err := s.mutate(ctx, id, func(sess *Session) error {
		if err := sess.machine.Load(seq); err != nil {
			return err
		}
		sess.studyID = ""
		sess.upload = &seq
		return nil
	})
	if err == nil {
		s.announce(id, title)
	}
	return v, err
}

// EnterMove records one manually entered move.
func (s *Service) EnterMove(ctx context.Context, id, move, comment string) (domain.MatchMove, View, error) {
	var mv domain.MatchMove
	v, err := s.mutate(ctx, id, func(sess *Session) error {
		var err error
		mv, err = sess.recorder.Enter(move, strings.TrimSpace(comment))
		return err
	})
	return mv, v, err
}

// NewMatch discards the recorded match and starts a fresh one.
func (s *Service) NewMatch(ctx context.Context, id string) (View, error) {
	return s.mutate(ctx, id, func(sess *Session) error { return sess.recorder.NewMatch("") })
}

// ArchiveMatch stores the recorded match, or the match recorded while
// simulating an upload when fromPlayback is set.
func (s *Service) ArchiveMatch(ctx context.Context, id string, fromPlayback bool) (*domain.ArchivedMatch, error) {
	sess, err := s.Session(ctx, id)
	if err != nil {
		return nil, err
	}
	var m domain.Match
	var title string
	source := "manual"
	err = sess.do(ctx, func() error {
		if fromPlayback {
			rec, ok := sess.machine.Match()
			if !ok {
				return ErrNothingRecorded
			}
			m, title, source = rec, sess.machine.Sequence().Title, "upload"
			return nil
		}
		m = sess.recorder.Match()
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(m.Moves) == 0 {
		return nil, ErrNothingRecorded
	}
	archived := archive.FromMatch(m, id, source, title, time.Now())
	if err := s.archive.SaveMatch(ctx, archived); err != nil {
		return nil, fmt.Errorf("archive match: %w", err)
	}
	s.logger.Info("match_archived",
		zap.String("session_id", id),
		zap.String("match_id", archived.ID),
		zap.Int("moves", len(m.Moves)),
	)
	return archived, nil
}

func (s *Service) GetMatch(ctx context.Context, matchID string) (*domain.ArchivedMatch, error) {
	return s.archive.GetMatch(ctx, matchID)
}

func (s *Service) RecentMatches(ctx context.Context, sessionID string, limit int) ([]*domain.ArchivedMatch, error) {
	return s.archive.RecentMatches(ctx, sessionID, limit)
}

// BoardPNG renders the playback board or the recorded match board.
func (s *Service) BoardPNG(ctx context.Context, id string, which BoardView) ([]byte, error) {
	sess, err := s.Session(ctx, id)
	if err != nil {
		return nil, err
	}
	var job renderJob
	if err := sess.do(ctx, func() error {
		job = s.renderJobLocked(sess, which)
		return nil
	}); err != nil {
		return nil, err
	}
	return s.renderer.RenderPNG(ctx, job.board, job.opts)
}

// Close stops a session and forgets its snapshot.
func (s *Service) Close(ctx context.Context, id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	sess.stop()
	if s.store != nil {
		if err := s.store.Delete(ctx, id); err != nil {
			return err
		}
	}
	s.logger.Info("session_closed", zap.String("session_id", id))
	return nil
}

// Reap stops sessions idle longer than the configured TTL. Their snapshots
// stay in the store so they can be resumed.
func (s *Service) Reap(now time.Time) int {
	var idle []*Session
	s.mu.Lock()
	for id, sess := range s.sessions {
		if sess.idleSince(now) > s.cfg.IdleTTL {
			idle = append(idle, sess)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()
	for _, sess := range idle {
		sess.stop()
		s.logger.Info("session_reaped", zap.String("session_id", sess.id))
	}
	return len(idle)
}

// RunReaper calls Reap every interval until ctx is done.
func (s *Service) RunReaper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.Reap(now)
		}
	}
}

// Shutdown stops every session.
func (s *Service) Shutdown() {
	s.mu.Lock()
	all := make([]*Session, 0, len(s.sessions))
	for id, sess := range s.sessions {
		all = append(all, sess)
		delete(s.sessions, id)
	}
	s.mu.Unlock()
	for _, sess := range all {
		sess.stop()
	}
}

// announce posts the loaded title and opening board to the relay room.
func (s *Service) announce(id, title string) {
	if s.relay == nil || strings.TrimSpace(s.cfg.RelayRoom) == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		text := s.messages.Text("relay.intro", map[string]any{"Title": title}, title)
		if err := s.relay.SendText(ctx, s.cfg.RelayRoom, text); err != nil {
			s.logger.Warn("relay_intro_failed", zap.String("session_id", id), zap.Error(err))
			return
		}
		img, err := s.BoardPNG(ctx, id, BoardPlayback)
		if err != nil {
			s.logger.Warn("relay_board_render_failed", zap.String("session_id", id), zap.Error(err))
			return
		}
		if err := s.relay.SendImage(ctx, s.cfg.RelayRoom, img); err != nil {
			s.logger.Warn("relay_board_failed", zap.String("session_id", id), zap.Error(err))
		}
	}()
}

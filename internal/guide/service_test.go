package guide

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/park285/chess-audio-guide/internal/catalog"
	"github.com/park285/chess-audio-guide/internal/narration"
	"github.com/park285/chess-audio-guide/internal/playback"
	"github.com/park285/chess-audio-guide/internal/rules"
	"github.com/park285/chess-audio-guide/internal/speech"
	"github.com/park285/chess-audio-guide/internal/store"
	"github.com/park285/chess-audio-guide/internal/upload"
)

// silentEngine accepts utterances and never finishes them.
type silentEngine struct{}

func (silentEngine) Attach(narration.Listener)       {}
func (silentEngine) Speak(narration.Utterance) error { return nil }
func (silentEngine) Pause() error                    { return nil }
func (silentEngine) Resume() error                   { return nil }
func (silentEngine) Cancel() error                   { return nil }
func (silentEngine) SetVolume(float64) error         { return nil }

type memStore struct {
	mu    sync.Mutex
	snaps map[string]store.Snapshot
}

func newMemStore() *memStore { return &memStore{snaps: make(map[string]store.Snapshot)} }

func (m *memStore) Save(_ context.Context, snap *store.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snaps[snap.SessionID] = *snap
	return nil
}

func (m *memStore) Load(_ context.Context, id string) (*store.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap, ok := m.snaps[id]
	if !ok {
		return nil, nil
	}
	return &snap, nil
}

func (m *memStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.snaps, id)
	return nil
}

func newTestService(t *testing.T, engines EngineFactory, st SnapshotStore) *Service {
	t.Helper()
	cat, err := catalog.New("")
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	if engines == nil {
		engines = func(string) narration.Engine { return silentEngine{} }
	}
	opts := playback.DefaultOptions()
	opts.Study.Delay = time.Millisecond
	opts.Simulation.Delay = time.Millisecond
	svc, err := NewService(Config{Playback: opts}, Deps{Catalog: cat, Engines: engines, Store: st})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	t.Cleanup(svc.Shutdown)
	return svc
}

func placement(fen string) string {
	return strings.Join(strings.Fields(fen)[:2], " ")
}

func TestStudyStepping(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil, nil)
	v, err := svc.CreateSession(ctx)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	id := v.SessionID
	if _, err := svc.LoadStudy(ctx, id, "kings-gambit"); err != nil {
		t.Fatalf("LoadStudy: %v", err)
	}
	for i := 0; i < 3; i++ {
		if v, err = svc.Advance(ctx, id); err != nil {
			t.Fatalf("Advance: %v", err)
		}
	}
	if got := placement(v.Playback.FEN); got != "rnbqkbnr/pppp1ppp/8/4p3/4PP2/8/PPPP2PP/RNBQKBNR b" {
		t.Fatalf("fen=%s", got)
	}
	if v.Playback.Index != 2 || v.Progress != "Move 3 of 9" {
		t.Fatalf("index=%d progress=%q", v.Playback.Index, v.Progress)
	}
	if !strings.Contains(strings.ToLower(v.Opening.Title), "king's gambit") {
		t.Fatalf("opening=%+v", v.Opening)
	}

	if v, err = svc.Retreat(ctx, id); err != nil || v.Playback.Index != 1 {
		t.Fatalf("Retreat: index=%d err=%v", v.Playback.Index, err)
	}
}

func TestUnknownSessionAndStudy(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil, nil)
	if _, err := svc.Advance(ctx, "nope"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("err=%v", err)
	}
	v, _ := svc.CreateSession(ctx)
	if _, err := svc.LoadStudy(ctx, v.SessionID, "missing"); !errors.Is(err, catalog.ErrStudyNotFound) {
		t.Fatalf("err=%v", err)
	}
	if _, err := svc.Retreat(ctx, v.SessionID); !errors.Is(err, playback.ErrEmptySequence) {
		t.Fatalf("err=%v", err)
	}
}

func TestPlayRunsToEnd(t *testing.T) {
	ctx := context.Background()
	// fast enough that every utterance lands on the 1ms floor
	engines := func(string) narration.Engine {
		return speech.NewTimed(speech.WithWPM(1_000_000), speech.WithMinDuration(time.Millisecond))
	}
	svc := newTestService(t, engines, nil)
	v, _ := svc.CreateSession(ctx)
	id := v.SessionID
	if _, err := svc.LoadStudy(ctx, id, "ruy-lopez"); err != nil {
		t.Fatalf("LoadStudy: %v", err)
	}
	if _, err := svc.Play(ctx, id); err != nil {
		t.Fatalf("Play: %v", err)
	}
	deadline := time.Now().Add(5 * time.Second)
	for {
		v, err := svc.State(ctx, id)
		if err != nil {
			t.Fatalf("State: %v", err)
		}
		if v.Playback.AtEnd && !v.Playback.Playing {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("playback stalled at %d playing=%v", v.Playback.Index, v.Playback.Playing)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestUploadSimulateAndMalformed(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil, nil)
	v, _ := svc.CreateSession(ctx)
	id := v.SessionID

	body := `[{"move":"1. e4 e5","commentary":"Open game."},{"move":"2. Nf3 Nc6","commentary":"Knights out."}]`
	v, err := svc.Upload(ctx, id, strings.NewReader(body), UploadSimulate, "Club game")
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if v.Playback.Kind != playback.KindUpload || v.Playback.Total != 2 {
		t.Fatalf("state=%+v", v.Playback)
	}
	if v, err = svc.Advance(ctx, id); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if v.Simulated == nil || len(v.Simulated.Moves) != 1 || len(v.Simulated.Moves[0].Plies) != 2 {
		t.Fatalf("simulated=%+v", v.Simulated)
	}

	before := v.Playback.FEN
	if _, err := svc.Upload(ctx, id, strings.NewReader(`[{"commentary":"x"}]`), UploadSimulate, ""); !errors.Is(err, upload.ErrMalformedUpload) {
		t.Fatalf("err=%v", err)
	}
	v, _ = svc.State(ctx, id)
	if v.Playback.FEN != before || v.Playback.Title != "Club game" {
		t.Fatalf("malformed upload changed state: %+v", v.Playback)
	}
}

func TestUploadImportAndArchive(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil, nil)
	v, _ := svc.CreateSession(ctx)
	id := v.SessionID

	body := `[{"move":"1. e4 e5","commentary":"center"},{"move":"2. Nf3"}]`
	v, err := svc.Upload(ctx, id, strings.NewReader(body), UploadImport, "")
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if len(v.Recorded.Moves) != 2 {
		t.Fatalf("recorded=%+v", v.Recorded)
	}
	if _, _, err := svc.EnterMove(ctx, id, "Nc6", "developing"); err != nil {
		t.Fatalf("EnterMove: %v", err)
	}
	if _, _, err := svc.EnterMove(ctx, id, "Ke2", ""); err != nil {
		t.Fatalf("EnterMove legal king move: %v", err)
	}
	if _, _, err := svc.EnterMove(ctx, id, "Qxf7", ""); !errors.Is(err, rules.ErrInvalidMove) {
		t.Fatalf("err=%v", err)
	}

	archived, err := svc.ArchiveMatch(ctx, id, false)
	if err != nil {
		t.Fatalf("ArchiveMatch: %v", err)
	}
	got, err := svc.GetMatch(ctx, archived.ID)
	if err != nil {
		t.Fatalf("GetMatch: %v", err)
	}
	if !strings.Contains(got.PGN, "1. e4 e5 {center} 2. Nf3 Nc6 {developing}") {
		t.Fatalf("pgn=%s", got.PGN)
	}
	if _, err := svc.ArchiveMatch(ctx, id, true); !errors.Is(err, ErrNothingRecorded) {
		t.Fatalf("err=%v", err)
	}

	v, err = svc.NewMatch(ctx, id)
	if err != nil || len(v.Recorded.Moves) != 0 || v.Recorded.ID == archived.ID {
		t.Fatalf("NewMatch: %+v err=%v", v.Recorded, err)
	}
}

func TestSnapshotRestoreAcrossServices(t *testing.T) {
	ctx := context.Background()
	st := newMemStore()
	first := newTestService(t, nil, st)
	v, _ := first.CreateSession(ctx)
	id := v.SessionID
	if _, err := first.LoadStudy(ctx, id, "ruy-lopez"); err != nil {
		t.Fatalf("LoadStudy: %v", err)
	}
	_, _ = first.Advance(ctx, id)
	v, _ = first.Advance(ctx, id)
	if _, err := first.SetVolume(ctx, id, 0.3); err != nil {
		t.Fatalf("SetVolume: %v", err)
	}
	first.Shutdown()

	second := newTestService(t, nil, st)
	restored, err := second.State(ctx, id)
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	if restored.Playback.Index != 1 || restored.Playback.FEN != v.Playback.FEN || restored.Playback.Volume != 0.3 {
		t.Fatalf("restored=%+v", restored.Playback)
	}
	if restored.StudyID != "ruy-lopez" || restored.Playback.Playing {
		t.Fatalf("restored=%+v", restored)
	}
}

func TestSetVolumeRejectsOutOfRange(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil, nil)
	v, _ := svc.CreateSession(ctx)
	if _, err := svc.SetVolume(ctx, v.SessionID, 1.5); !errors.Is(err, playback.ErrInvalidVolume) {
		t.Fatalf("err=%v", err)
	}
}

func TestBoardPNG(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil, nil)
	v, _ := svc.CreateSession(ctx)
	_, _ = svc.LoadStudy(ctx, v.SessionID, "kings-gambit")
	_, _ = svc.Advance(ctx, v.SessionID)
	for _, which := range []BoardView{BoardPlayback, BoardMatch} {
		data, err := svc.BoardPNG(ctx, v.SessionID, which)
		if err != nil {
			t.Fatalf("BoardPNG(%s): %v", which, err)
		}
		if _, err := png.Decode(bytes.NewReader(data)); err != nil {
			t.Fatalf("decode: %v", err)
		}
	}
}

func TestReapAndClose(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil, nil)
	a, _ := svc.CreateSession(ctx)
	b, _ := svc.CreateSession(ctx)
	if n := svc.Reap(time.Now()); n != 0 {
		t.Fatalf("reaped %d fresh sessions", n)
	}
	if err := svc.Close(ctx, a.SessionID); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if n := svc.Reap(time.Now().Add(time.Hour)); n != 1 {
		t.Fatalf("reaped %d", n)
	}
	if _, err := svc.State(ctx, b.SessionID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("err=%v", err)
	}
}

package store

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/park285/chess-audio-guide/internal/domain"
	"github.com/park285/chess-audio-guide/internal/playback"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewStore(rdb, time.Hour), mr
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	snap := &Snapshot{
		SessionID: "s1",
		Upload: &playback.Sequence{ID: "u1", Kind: playback.KindUpload, Steps: []playback.Step{
			{Number: 1, Plies: []string{"e4", "e5"}, Notation: "e4 e5", Commentary: "center fight"},
		}},
		Index:    0,
		Volume:   0.4,
		Recorded: &domain.Match{ID: "m1", Moves: []domain.MatchMove{{Number: 1, Notation: "d4", Plies: []string{"d2d4"}}}},
	}
	if err := s.Save(ctx, snap); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := s.Load(ctx, "s1")
	if err != nil || got == nil {
		t.Fatalf("Load: %v %v", got, err)
	}
	if got.Upload == nil || got.Upload.Steps[0].Commentary != "center fight" || got.Volume != 0.4 {
		t.Fatalf("snapshot=%+v", got)
	}
	if got.Recorded == nil || got.Recorded.Moves[0].Plies[0] != "d2d4" {
		t.Fatalf("recorded=%+v", got.Recorded)
	}
}

func TestLoadMissingReturnsNil(t *testing.T) {
	s, _ := newTestStore(t)
	got, err := s.Load(context.Background(), "nope")
	if err != nil || got != nil {
		t.Fatalf("got=%v err=%v", got, err)
	}
}

func TestTTLAndIndexPruning(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()
	_ = s.Save(ctx, &Snapshot{SessionID: "a", StudyID: "kings-gambit"})
	_ = s.Save(ctx, &Snapshot{SessionID: "b", StudyID: "ruy-lopez"})
	if ttl := mr.TTL(s.keySession("a")); ttl != time.Hour {
		t.Fatalf("ttl=%v", ttl)
	}
	mr.Del(s.keySession("a"))
	ids, err := s.SessionIDs(ctx)
	if err != nil {
		t.Fatalf("SessionIDs: %v", err)
	}
	if len(ids) != 1 || ids[0] != "b" {
		t.Fatalf("ids=%v", ids)
	}
	if err := s.Delete(ctx, "b"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	ids, _ = s.SessionIDs(ctx)
	if len(ids) != 0 {
		t.Fatalf("ids after delete=%v", ids)
	}
}

package archive

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/park285/chess-audio-guide/internal/domain"
)

func sampleMatch() domain.Match {
	return domain.Match{
		ID:        "m1",
		CreatedAt: time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC),
		Moves: []domain.MatchMove{
			{Number: 1, Notation: "e4 e5", Comment: "center fight", Plies: []string{"e2e4", "e7e5"}, SAN: []string{"e4", "e5"}},
			{Number: 2, Notation: "Nf3", Comment: "develop {fast}", Plies: []string{"g1f3"}, SAN: []string{"Nf3"}},
			{Number: 3, Notation: "Nc6", Plies: []string{"b8c6"}, SAN: []string{"Nc6"}},
		},
	}
}

func TestFromMatchBuildsPGN(t *testing.T) {
	a := FromMatch(sampleMatch(), "s1", "upload", "Club game", time.Now())
	if len(a.MovesUCI) != 4 || len(a.Comments) != 4 || a.Comments[1] != "center fight" {
		t.Fatalf("archived=%+v", a)
	}
	want := "1. e4 e5 {center fight} 2. Nf3 {develop (fast)} 2... Nc6 *"
	if !strings.HasSuffix(a.PGN, want) {
		t.Fatalf("pgn movetext:\n%s\nwant suffix %q", a.PGN, want)
	}
	if !strings.Contains(a.PGN, `[Event "Club game"]`) || !strings.Contains(a.PGN, `[Date "2026.03.04"]`) {
		t.Fatalf("pgn headers:\n%s", a.PGN)
	}
}

func TestMemoryRepository(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	base := time.Now()
	for i, id := range []string{"a", "b", "c"} {
		m := sampleMatch()
		m.ID = id
		if err := repo.SaveMatch(ctx, FromMatch(m, "s1", "manual", "", base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("SaveMatch: %v", err)
		}
	}
	recent, err := repo.RecentMatches(ctx, "s1", 2)
	if err != nil {
		t.Fatalf("RecentMatches: %v", err)
	}
	if len(recent) != 2 || recent[0].ID != "c" || recent[1].ID != "b" {
		t.Fatalf("recent=%v", recent)
	}
	got, err := repo.GetMatch(ctx, "a")
	if err != nil || got.PGN == "" {
		t.Fatalf("GetMatch: %v %+v", err, got)
	}
	got.MovesSAN[0] = "mutated"
	again, _ := repo.GetMatch(ctx, "a")
	if again.MovesSAN[0] != "e4" {
		t.Fatalf("repository leaked internal slice")
	}
	if _, err := repo.GetMatch(ctx, "zzz"); !errors.Is(err, ErrMatchNotFound) {
		t.Fatalf("err=%v", err)
	}
}

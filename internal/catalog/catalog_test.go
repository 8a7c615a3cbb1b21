package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/park285/chess-audio-guide/internal/playback"
	"github.com/park285/chess-audio-guide/internal/rules"
)

func TestEmbeddedStudies(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	list := c.List()
	if len(list) != 2 || list[0].ID != "kings-gambit" || list[1].ID != "ruy-lopez" {
		t.Fatalf("unexpected studies %+v", list)
	}
	if _, err := c.Get("missing"); !errors.Is(err, ErrStudyNotFound) {
		t.Fatalf("err=%v", err)
	}
}

func TestKingsGambitThreeSteps(t *testing.T) {
	c, _ := New("")
	st, err := c.Get("kings-gambit")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	board, _ := rules.NewBoard(st.StartFEN)
	seq := playback.FromStudy(st)
	for _, step := range seq.Steps[:3] {
		for _, p := range step.Plies {
			if _, err := board.Apply(p); err != nil {
				t.Fatalf("Apply(%q): %v", p, err)
			}
		}
	}
	if got := strings.Join(strings.Fields(board.FEN())[:2], " "); got != "rnbqkbnr/pppp1ppp/8/4p3/4PP2/8/PPPP2PP/RNBQKBNR b" {
		t.Fatalf("FEN %q", board.FEN())
	}
}

func TestOverrideDir(t *testing.T) {
	dir := t.TempDir()
	body := `studies:
  - id: scandinavian
    title: Scandinavian
    moves:
      - {move: e4, notation: e4, commentary: "King pawn."}
      - {move: d5, notation: d5, commentary: "Immediate challenge."}
`
	if err := os.WriteFile(filepath.Join(dir, "extra.yaml"), []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	c, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	st, err := c.Get("scandinavian")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if st.StartFEN == "" || len(c.List()) != 3 {
		t.Fatalf("override not merged: %+v", st)
	}
}

func TestIllegalStudyRejected(t *testing.T) {
	dir := t.TempDir()
	body := "studies:\n  - id: broken\n    title: Broken\n    moves:\n      - {move: e2e5}\n"
	_ = os.WriteFile(filepath.Join(dir, "broken.yml"), []byte(body), 0o644)
	if _, err := New(dir); !errors.Is(err, rules.ErrInvalidMove) {
		t.Fatalf("err=%v", err)
	}
}

package match

import (
	"errors"
	"testing"

	"github.com/park285/chess-audio-guide/internal/domain"
	"github.com/park285/chess-audio-guide/internal/rules"
)

func TestRecorderNumbersManualMoves(t *testing.T) {
	r := NewRecorder(nil)
	if _, err := r.Enter("e4", "king pawn"); err != nil {
		t.Fatalf("Enter: %v", err)
	}
	if _, err := r.Enter("c7c5", ""); err != nil {
		t.Fatalf("Enter: %v", err)
	}
	m := r.Match()
	if len(m.Moves) != 2 || m.Moves[0].Number != 1 || m.Moves[1].Number != 2 {
		t.Fatalf("unexpected moves %+v", m.Moves)
	}
	if m.Moves[0].Comment != "king pawn" || m.Moves[1].SAN[0] != "c5" {
		t.Fatalf("unexpected records %+v", m.Moves)
	}
}

func TestRecorderRejectsIllegalMove(t *testing.T) {
	r := NewRecorder(nil)
	_, _ = r.Enter("e4", "")
	fen := r.Board().FEN()
	if _, err := r.Enter("e4", ""); !errors.Is(err, rules.ErrInvalidMove) {
		t.Fatalf("err=%v, want ErrInvalidMove", err)
	}
	if r.Board().FEN() != fen || len(r.Match().Moves) != 1 {
		t.Fatalf("rejected move changed state")
	}
}

func TestNewMatchResets(t *testing.T) {
	r := NewRecorder(nil)
	_, _ = r.Enter("d4", "")
	first := r.Match().ID
	if err := r.NewMatch(""); err != nil {
		t.Fatalf("NewMatch: %v", err)
	}
	m := r.Match()
	if m.ID == first || len(m.Moves) != 0 {
		t.Fatalf("match not reset: %+v", m)
	}
	if len(r.Board().History()) != 0 {
		t.Fatalf("board not reset")
	}
}

func TestRestoreReplaysPlies(t *testing.T) {
	r := NewRecorder(nil)
	_, _ = r.Enter("e4", "")
	_, _ = r.Enter("e5", "")
	saved := r.Match()

	other := NewRecorder(nil)
	if err := other.Restore(saved); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if other.Board().FEN() != r.Board().FEN() || other.Match().ID != saved.ID {
		t.Fatalf("restore mismatch")
	}
}

func TestLogTruncateAndSnapshotIsolation(t *testing.T) {
	l := NewLog()
	l.Append(testMove(1, "e2e4"))
	l.Append(testMove(2, "e7e5"))
	snap := l.Snapshot()
	snap.Moves[0].Plies[0] = "mutated"
	l.Truncate(1)
	if l.Len() != 1 || l.Snapshot().Moves[0].Plies[0] != "e2e4" {
		t.Fatalf("log state leaked or truncate failed: %+v", l.Snapshot())
	}
}

func TestPlyLabel(t *testing.T) {
	cases := map[int]string{1: "1.", 2: "1...", 3: "2.", 10: "5...", 0: ""}
	for ply, want := range cases {
		if got := PlyLabel(ply); got != want {
			t.Fatalf("PlyLabel(%d)=%q want %q", ply, got, want)
		}
	}
}

func testMove(n int, uci string) domain.MatchMove {
	return domain.MatchMove{Number: n, Notation: uci, Plies: []string{uci}, SAN: []string{uci}}
}

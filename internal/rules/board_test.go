package rules

import (
	"errors"
	"strings"
	"testing"

	nchess "github.com/corentings/chess/v2"
	"github.com/park285/chess-audio-guide/internal/domain"
)

func placementAndTurn(fen string) (string, string) {
	fields := strings.Fields(fen)
	if len(fields) < 2 {
		return fen, ""
	}
	return fields[0], fields[1]
}

func TestApplyAcceptsUCIAndSAN(t *testing.T) {
	b, err := NewBoard("")
	if err != nil {
		t.Fatalf("NewBoard: %v", err)
	}
	for _, mv := range []string{"e2e4", "e5", "F2F4"} {
		if _, err := b.Apply(mv); err != nil {
			t.Fatalf("Apply(%q): %v", mv, err)
		}
	}
	placement, turn := placementAndTurn(b.FEN())
	if placement != "rnbqkbnr/pppp1ppp/8/4p3/4PP2/8/PPPP2PP/RNBQKBNR" || turn != "b" {
		t.Fatalf("unexpected position %q", b.FEN())
	}
	hist := b.History()
	if len(hist) != 3 || hist[0].UCI != "e2e4" || hist[1].SAN != "e5" || hist[2].UCI != "f2f4" {
		t.Fatalf("unexpected history %+v", hist)
	}
}

func TestApplyRejectsIllegalWithoutMutation(t *testing.T) {
	b, _ := NewBoard("")
	if _, err := b.Apply("e2e4"); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	before := b.FEN()
	for _, mv := range []string{"e5e5", "Ke3", "", "zz"} {
		if _, err := b.Apply(mv); !errors.Is(err, ErrInvalidMove) {
			t.Fatalf("Apply(%q) err=%v, want ErrInvalidMove", mv, err)
		}
	}
	if b.FEN() != before {
		t.Fatalf("position changed after rejected moves: %q -> %q", before, b.FEN())
	}
	if len(b.History()) != 1 {
		t.Fatalf("history grew after rejection: %+v", b.History())
	}
}

func TestCastlingFromUCI(t *testing.T) {
	b, _ := NewBoard(domain.StartFEN)
	for _, mv := range []string{"e2e4", "e7e5", "g1f3", "b8c6", "f1b5", "a7a6", "b5a4", "g8f6", "e1g1"} {
		if _, err := b.Apply(mv); err != nil {
			t.Fatalf("Apply(%q): %v", mv, err)
		}
	}
	last, ok := b.LastPly()
	if !ok || last.SAN != "O-O" {
		t.Fatalf("expected castling SAN, got %+v", last)
	}
	placement, _ := placementAndTurn(b.FEN())
	if !strings.HasSuffix(placement, "RNBQ1RK1") {
		t.Fatalf("king/rook not castled: %q", placement)
	}
}

func TestResetInvalidFENKeepsBoard(t *testing.T) {
	b, _ := NewBoard("")
	_, _ = b.Apply("d4")
	before := b.FEN()
	if err := b.Reset("not a fen"); !errors.Is(err, ErrInvalidFEN) {
		t.Fatalf("Reset err=%v, want ErrInvalidFEN", err)
	}
	if b.FEN() != before {
		t.Fatalf("board changed on invalid reset")
	}
	if err := b.Reset(""); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if b.StartFEN() != domain.StartFEN || len(b.History()) != 0 {
		t.Fatalf("reset did not restore the initial position")
	}
}

func TestOpeningNamesRuyLopez(t *testing.T) {
	b, _ := NewBoard("")
	for _, mv := range []string{"e4", "e5", "Nf3", "Nc6", "Bb5"} {
		if _, err := b.Apply(mv); err != nil {
			t.Fatalf("Apply(%q): %v", mv, err)
		}
	}
	code, title := b.Opening()
	if code == "" || !strings.Contains(strings.ToLower(title), "ruy lopez") {
		t.Fatalf("unexpected opening %q %q", code, title)
	}
}

func TestLastMoveSquares(t *testing.T) {
	b, _ := NewBoard("")
	if _, _, ok := b.LastMove(); ok {
		t.Fatalf("fresh board reported a last move")
	}
	if _, err := b.Apply("Nf3"); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	from, to, ok := b.LastMove()
	if !ok || from != nchess.G1 || to != nchess.F3 {
		t.Fatalf("from=%v to=%v ok=%v", from, to, ok)
	}
}

package guidepresenter

import (
	"strings"
	"testing"

	"github.com/park285/chess-audio-guide/internal/domain"
	"github.com/park285/chess-audio-guide/internal/guide"
	"github.com/park285/chess-audio-guide/internal/playback"
	"github.com/park285/chess-audio-guide/pkg/guidedto"
)

func TestToDTOStateCopiesCurrentStep(t *testing.T) {
	step := playback.Step{Number: 1, Notation: "e4", Commentary: "King pawn.", Plies: []string{"e2e4"}}
	v := guide.View{
		SessionID: "s1",
		Playback:  playback.State{Title: "Ruy Lopez", Index: 0, Total: 9, FEN: "x", Current: &step, Volume: 0.8},
		Opening:   guide.Opening{Code: "B00", Title: "King's Pawn"},
		Recorded:  domain.Match{ID: "m1"},
	}
	dto := ToDTOState(v)
	if dto.Playback.Current == nil || dto.Playback.Current.Commentary != "King pawn." || dto.Playback.TotalMoves != 9 {
		t.Fatalf("dto=%+v", dto.Playback)
	}
	step.Plies[0] = "mutated"
	if dto.Playback.Current.Plies[0] != "e2e4" {
		t.Fatalf("plies shared with source")
	}
	if dto.Opening == nil || dto.Opening.Code != "B00" || dto.Match.ID != "m1" {
		t.Fatalf("dto=%+v", dto)
	}
}

func TestFormatterMatchKeepsRecentMoves(t *testing.T) {
	m := guidedto.Match{}
	for i := 0; i < 8; i++ {
		m.Moves = append(m.Moves, guidedto.MatchMove{SAN: []string{"m" + string(rune('a'+i))}})
	}
	got := NewFormatter().Match(m)
	if !strings.HasPrefix(got, "Recorded: … mc") || !strings.HasSuffix(got, "mh") {
		t.Fatalf("got %q", got)
	}
}

func TestFormatterStatus(t *testing.T) {
	st := guidedto.SessionState{
		FEN:      "fen",
		Turn:     "black",
		Progress: "Move 1 of 9",
		Playback: guidedto.Playback{Title: "King's Gambit", IsPlaying: true, Volume: 0.5, Current: &guidedto.Step{Number: 1, Notation: "e4"}},
	}
	got := NewFormatter().Status(st)
	for _, want := range []string{"King's Gambit · Move 1 of 9", "1. e4", "black to move · playing, volume 50%"} {
		if !strings.Contains(got, want) {
			t.Fatalf("missing %q in %q", want, got)
		}
	}
}

func TestFormatterStatusUploadedNotation(t *testing.T) {
	st := guidedto.SessionState{
		FEN:      "fen",
		Turn:     "white",
		Playback: guidedto.Playback{Current: &guidedto.Step{Number: 1, Notation: "1. e4 e5"}},
	}
	got := NewFormatter().Status(st)
	if !strings.Contains(got, "• 1. e4 e5\n") || strings.Contains(got, "1. 1.") {
		t.Fatalf("got %q", got)
	}
}

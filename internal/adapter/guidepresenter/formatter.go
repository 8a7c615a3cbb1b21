package guidepresenter

import (
	"fmt"
	"strings"

	"github.com/park285/chess-audio-guide/internal/playback"
	"github.com/park285/chess-audio-guide/pkg/guidedto"
)

const recentMovesLimit = 6

// Formatter renders DTOs as plain text blocks for terminals and chat relays.
type Formatter struct{}

func NewFormatter() *Formatter { return &Formatter{} }

func (f *Formatter) Studies(list []guidedto.StudySummary) string {
	if len(list) == 0 {
		return "No studies available."
	}
	var sb strings.Builder
	for _, st := range list {
		sb.WriteString(fmt.Sprintf("%-14s %s (%d moves)\n", st.ID, st.Title, st.Moves))
		if d := strings.TrimSpace(st.Description); d != "" {
			sb.WriteString("               " + d + "\n")
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (f *Formatter) Status(st guidedto.SessionState) string {
	var sb strings.Builder
	pb := st.Playback
	if pb.Title != "" {
		sb.WriteString(pb.Title)
		if st.Progress != "" {
			sb.WriteString(" · " + st.Progress)
		}
		sb.WriteString("\n")
	}
	if cur := pb.Current; cur != nil {
		if playback.HasMoveNumber(cur.Notation) {
			sb.WriteString("• " + cur.Notation)
		} else {
			sb.WriteString(fmt.Sprintf("• %d. %s", cur.Number, cur.Notation))
		}
		if cur.Commentary != "" {
			sb.WriteString(" · " + cur.Commentary)
		}
		sb.WriteString("\n")
	}
	if st.Opening != nil {
		sb.WriteString(fmt.Sprintf("• Opening: %s %s\n", st.Opening.Code, st.Opening.Title))
	}
	sb.WriteString(fmt.Sprintf("• %s to move · %s\n", st.Turn, formatPlayback(pb)))
	sb.WriteString("• FEN: " + st.FEN)
	return sb.String()
}

func (f *Formatter) Match(m guidedto.Match) string {
	if len(m.Moves) == 0 {
		return "No moves recorded."
	}
	var sb strings.Builder
	sb.WriteString("Recorded: " + formatRecentMoves(m.Moves))
	if m.Result != "" {
		sb.WriteString(" " + m.Result)
	}
	return sb.String()
}

func formatPlayback(pb guidedto.Playback) string {
	switch {
	case pb.IsPlaying:
		return fmt.Sprintf("playing, volume %.0f%%", pb.Volume*100)
	case pb.AtEnd:
		return "finished"
	default:
		return fmt.Sprintf("paused, volume %.0f%%", pb.Volume*100)
	}
}

func formatRecentMoves(moves []guidedto.MatchMove) string {
	parts := make([]string, 0, len(moves))
	for _, mv := range moves {
		parts = append(parts, strings.Join(mv.SAN, " "))
	}
	if len(parts) <= recentMovesLimit {
		return strings.Join(parts, " ")
	}
	return "… " + strings.Join(parts[len(parts)-recentMovesLimit:], " ")
}

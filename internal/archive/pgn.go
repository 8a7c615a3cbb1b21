package archive

import (
	"fmt"
	"strings"
	"time"

	"github.com/park285/chess-audio-guide/internal/domain"
)

// FromMatch prepares a recorded match for archiving. Comments are aligned with
// plies; an entry's comment sits on its last ply.
func FromMatch(m domain.Match, sessionID, source, title string, now time.Time) *domain.ArchivedMatch {
	out := &domain.ArchivedMatch{
		ID:         m.ID,
		SessionID:  sessionID,
		Source:     source,
		Title:      strings.TrimSpace(title),
		Result:     m.Result,
		CreatedAt:  m.CreatedAt,
		ArchivedAt: now,
	}
	for _, mv := range m.Moves {
		out.MovesUCI = append(out.MovesUCI, mv.Plies...)
		for i, san := range mv.SAN {
			out.MovesSAN = append(out.MovesSAN, san)
			comment := ""
			if i == len(mv.SAN)-1 {
				comment = mv.Comment
			}
			out.Comments = append(out.Comments, comment)
		}
	}
	out.PGN = BuildPGN(out)
	return out
}

func mapResultToPGN(result string) string {
	switch strings.ToLower(strings.TrimSpace(result)) {
	case "1-0", "white":
		return "1-0"
	case "0-1", "black":
		return "0-1"
	case "1/2-1/2", "draw":
		return "1/2-1/2"
	default:
		return "*"
	}
}

// BuildPGN renders m with PGN comments for annotated plies.
func BuildPGN(m *domain.ArchivedMatch) string {
	if m == nil {
		return ""
	}
	var b strings.Builder
	date := m.CreatedAt
	if date.IsZero() {
		date = time.Now()
	}
	event := sanitizePGN(m.Title)
	if event == "" {
		event = "Recorded match"
	}
	result := mapResultToPGN(m.Result)

	b.WriteString(fmt.Sprintf("[Event \"%s\"]\n", event))
	b.WriteString("[Site \"Chess Audio Guide\"]\n")
	b.WriteString(fmt.Sprintf("[Date \"%04d.%02d.%02d\"]\n", date.Year(), int(date.Month()), date.Day()))
	b.WriteString("[White \"?\"]\n")
	b.WriteString("[Black \"?\"]\n")
	if src := sanitizePGN(m.Source); src != "" {
		b.WriteString(fmt.Sprintf("[Annotator \"%s\"]\n", src))
	}
	b.WriteString(fmt.Sprintf("[Result \"%s\"]\n\n", result))

	for i, san := range m.MovesSAN {
		if i%2 == 0 {
			b.WriteString(fmt.Sprintf("%d. ", i/2+1))
		}
		b.WriteString(strings.TrimSpace(san))
		b.WriteString(" ")
		if i < len(m.Comments) {
			if c := sanitizeComment(m.Comments[i]); c != "" {
				b.WriteString("{" + c + "} ")
				if i%2 == 0 && i+1 < len(m.MovesSAN) {
					b.WriteString(fmt.Sprintf("%d... ", i/2+1))
				}
			}
		}
	}
	b.WriteString(result)
	return b.String()
}

func sanitizePGN(s string) string {
	s = strings.ReplaceAll(s, "\\", " ")
	s = strings.ReplaceAll(s, "\"", "'")
	return strings.TrimSpace(s)
}

func sanitizeComment(s string) string {
	s = strings.NewReplacer("{", "(", "}", ")", "\n", " ", "\r", " ").Replace(s)
	return strings.TrimSpace(s)
}

package playback

import (
	"strings"

	"github.com/park285/chess-audio-guide/internal/msgcat"
)

// Announcer produces narration text.
type Announcer interface {
	Step(seq Sequence, step Step) string
	Start(seq Sequence) string
	End(seq Sequence) string
}

type catalogAnnouncer struct {
	cat *msgcat.Catalog
}

func NewCatalogAnnouncer(cat *msgcat.Catalog) Announcer {
	if cat == nil {
		cat = msgcat.Default()
	}
	return &catalogAnnouncer{cat: cat}
}

func (a *catalogAnnouncer) Step(seq Sequence, step Step) string {
	data := map[string]any{
		"Notation":   step.Notation,
		"Commentary": step.Commentary,
		"Number":     step.Number,
		"Numbered":   HasMoveNumber(step.Notation),
	}
	fallback := step.Notation + "."
	if c := strings.TrimSpace(step.Commentary); c != "" {
		fallback += " " + c
	}
	key := "narration.move"
	if seq.Kind == KindUpload {
		key = "narration.upload_move"
	}
	return a.cat.Text(key, data, fallback)
}

func (a *catalogAnnouncer) Start(Sequence) string {
	return a.cat.Text("narration.start", nil, "Starting position.")
}

func (a *catalogAnnouncer) End(Sequence) string {
	return a.cat.Text("narration.end", nil, "End of study.")
}

// HasMoveNumber reports whether notation already opens with a move number,
// as uploaded notation like "1. e4 e5" does.
func HasMoveNumber(notation string) bool {
	fields := strings.Fields(notation)
	if len(fields) == 0 {
		return false
	}
	tok := fields[0]
	digits := 0
	for digits < len(tok) && tok[digits] >= '0' && tok[digits] <= '9' {
		digits++
	}
	return digits > 0 && digits < len(tok) && tok[digits] == '.'
}

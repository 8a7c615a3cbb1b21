package playback

import (
	"strings"

	"github.com/park285/chess-audio-guide/internal/domain"
)

type Kind string

const (
	KindStudy  Kind = "study"
	KindUpload Kind = "upload"
)

// Step is one advance of the machine. Study moves carry one ply; uploaded
// entries may carry several.
type Step struct {
	Number     int      `json:"number"`
	Plies      []string `json:"plies"`
	Notation   string   `json:"notation"`
	Commentary string   `json:"commentary"`
}

type Sequence struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Kind     Kind   `json:"kind"`
	StartFEN string `json:"start_fen"`
	Steps    []Step `json:"steps"`
}

// Records reports whether advancing this sequence appends to a match.
func (s Sequence) Records() bool { return s.Kind == KindUpload }

func FromStudy(st domain.Study) Sequence {
	seq := Sequence{
		ID:       st.ID,
		Title:    st.Title,
		Kind:     KindStudy,
		StartFEN: st.StartFEN,
		Steps:    make([]Step, 0, len(st.Moves)),
	}
	for i, mv := range st.Moves {
		notation := strings.TrimSpace(mv.Notation)
		if notation == "" {
			notation = strings.TrimSpace(mv.Spec)
		}
		seq.Steps = append(seq.Steps, Step{
			Number:     i + 1,
			Plies:      []string{strings.TrimSpace(mv.Spec)},
			Notation:   notation,
			Commentary: strings.TrimSpace(mv.Commentary),
		})
	}
	return seq
}

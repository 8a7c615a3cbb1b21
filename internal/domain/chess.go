package domain

import "time"

// StartFEN is the standard initial position.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// StudyMove is one authored step of a study.
type StudyMove struct {
	Spec       string `yaml:"move" json:"move"`
	Notation   string `yaml:"notation" json:"notation"`
	Commentary string `yaml:"commentary" json:"commentary"`
}

// Study is an immutable, pre-authored lesson.
type Study struct {
	ID          string      `yaml:"id" json:"id"`
	Title       string      `yaml:"title" json:"title"`
	Description string      `yaml:"description" json:"description"`
	StartFEN    string      `yaml:"fen" json:"fen"`
	Moves       []StudyMove `yaml:"moves" json:"moves"`
}

// MatchMove is one recorded entry of a match. A manual entry carries a single
// ply; an uploaded entry may carry several.
type MatchMove struct {
	Number   int      `json:"number"`
	Notation string   `json:"notation"`
	Comment  string   `json:"comment,omitempty"`
	Plies    []string `json:"plies"`
	SAN      []string `json:"san"`
}

// Match is a recorded or uploaded game.
type Match struct {
	ID        string      `json:"id"`
	CreatedAt time.Time   `json:"created_at"`
	Moves     []MatchMove `json:"moves"`
	Result    string      `json:"result,omitempty"`
}

// MovesUCI flattens every recorded ply in order.
func (m *Match) MovesUCI() []string {
	if m == nil {
		return nil
	}
	out := make([]string, 0, len(m.Moves))
	for _, mv := range m.Moves {
		out = append(out, mv.Plies...)
	}
	return out
}

// MovesSAN flattens every recorded ply in SAN.
func (m *Match) MovesSAN() []string {
	if m == nil {
		return nil
	}
	out := make([]string, 0, len(m.Moves))
	for _, mv := range m.Moves {
		out = append(out, mv.SAN...)
	}
	return out
}

// ArchivedMatch is a match persisted to the archive.
type ArchivedMatch struct {
	ID         string
	SessionID  string
	Source     string
	Title      string
	Result     string
	MovesUCI   []string
	MovesSAN   []string
	Comments   []string
	PGN        string
	CreatedAt  time.Time
	ArchivedAt time.Time
}

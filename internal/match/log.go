package match

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/park285/chess-audio-guide/internal/domain"
)

// Log holds the match being recorded in one session.
type Log struct {
	match domain.Match
	now   func() time.Time
}

func NewLog() *Log {
	l := &Log{now: time.Now}
	l.Begin()
	return l
}

// Begin discards the current match and starts a fresh one.
func (l *Log) Begin() {
	l.match = domain.Match{
		ID:        uuid.NewString(),
		CreatedAt: l.now(),
		Moves:     []domain.MatchMove{},
	}
}

func (l *Log) Append(mv domain.MatchMove) {
	mv.Notation = strings.TrimSpace(mv.Notation)
	mv.Comment = strings.TrimSpace(mv.Comment)
	l.match.Moves = append(l.match.Moves, mv)
}

// Truncate keeps the first n entries.
func (l *Log) Truncate(n int) {
	if n < 0 {
		n = 0
	}
	if n < len(l.match.Moves) {
		l.match.Moves = l.match.Moves[:n]
	}
}

func (l *Log) Len() int { return len(l.match.Moves) }

func (l *Log) SetResult(result string) { l.match.Result = strings.TrimSpace(result) }

// Snapshot returns a deep copy.
func (l *Log) Snapshot() domain.Match {
	out := l.match
	out.Moves = make([]domain.MatchMove, len(l.match.Moves))
	for i, mv := range l.match.Moves {
		mv.Plies = append([]string(nil), mv.Plies...)
		mv.SAN = append([]string(nil), mv.SAN...)
		out.Moves[i] = mv
	}
	return out
}

// Restore replaces the log wholesale, e.g. from a stored snapshot.
func (l *Log) Restore(m domain.Match) {
	if strings.TrimSpace(m.ID) == "" {
		m.ID = uuid.NewString()
	}
	if m.Moves == nil {
		m.Moves = []domain.MatchMove{}
	}
	l.match = m
}

// PlyLabel formats a ply counter as "N." for White and "N..." for Black.
func PlyLabel(ply int) string {
	if ply < 1 {
		return ""
	}
	turn := (ply + 1) / 2
	if ply%2 == 1 {
		return strconv.Itoa(turn) + "."
	}
	return strconv.Itoa(turn) + "..."
}

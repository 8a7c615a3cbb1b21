package match

import (
	"fmt"

	"github.com/park285/chess-audio-guide/internal/domain"
	"github.com/park285/chess-audio-guide/internal/rules"
	"go.uber.org/zap"
)

// Recorder records a match from manually entered moves.
type Recorder struct {
	board  *rules.Board
	log    *Log
	logger *zap.Logger
}

func NewRecorder(logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	board, _ := rules.NewBoard("")
	return &Recorder{board: board, log: NewLog(), logger: logger}
}

// NewMatch resets the board to fen and starts an empty match.
func (r *Recorder) NewMatch(fen string) error {
	if err := r.board.Reset(fen); err != nil {
		return err
	}
	r.log.Begin()
	r.logger.Info("match_started", zap.String("match_id", r.log.match.ID))
	return nil
}

// Enter applies one move and records it with the next ply number.
func (r *Recorder) Enter(spec, comment string) (domain.MatchMove, error) {
	ply, err := r.board.Apply(spec)
	if err != nil {
		return domain.MatchMove{}, err
	}
	mv := domain.MatchMove{
		Number:   r.log.Len() + 1,
		Notation: spec,
		Comment:  comment,
		Plies:    []string{ply.UCI},
		SAN:      []string{ply.SAN},
	}
	r.log.Append(mv)
	if result := r.board.Outcome(); result != "" {
		r.log.SetResult(result)
	}
	r.logger.Debug("match_move_recorded",
		zap.String("match_id", r.log.match.ID),
		zap.String("label", PlyLabel(mv.Number)),
		zap.String("uci", ply.UCI),
	)
	return mv, nil
}

// Restore rebuilds board and log from a stored match.
func (r *Recorder) Restore(m domain.Match) error {
	board, err := rules.NewBoard("")
	if err != nil {
		return err
	}
	for _, mv := range m.Moves {
		for _, p := range mv.Plies {
			if _, err := board.Apply(p); err != nil {
				return fmt.Errorf("restore match %s: %w", m.ID, err)
			}
		}
	}
	r.board = board
	r.log.Restore(m)
	return nil
}

func (r *Recorder) Match() domain.Match { return r.log.Snapshot() }
func (r *Recorder) Board() *rules.Board { return r.board }
func (r *Recorder) Log() *Log           { return r.log }

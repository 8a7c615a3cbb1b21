package rules

import (
	"errors"
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"
	"github.com/corentings/chess/v2/opening"
	"github.com/park285/chess-audio-guide/internal/domain"
)

var (
	ErrInvalidMove = errors.New("invalid chess move")
	ErrInvalidFEN  = errors.New("invalid FEN")
)

// Ply is a successfully applied half-move in both notations.
type Ply struct {
	UCI string `json:"uci"`
	SAN string `json:"san"`
}

// Board wraps a rules-engine game. A rejected move never mutates it.
type Board struct {
	start string
	game  *nchess.Game
	plies []Ply
}

// NewBoard returns a board at fen, or at the standard initial position when fen is empty.
func NewBoard(fen string) (*Board, error) {
	b := &Board{}
	if err := b.Reset(fen); err != nil {
		return nil, err
	}
	return b, nil
}

// Reset discards the current position. On error the board is left untouched.
func (b *Board) Reset(fen string) error {
	game, start, err := newGame(fen)
	if err != nil {
		return err
	}
	b.game = game
	b.start = start
	b.plies = nil
	return nil
}

func newGame(fen string) (*nchess.Game, string, error) {
	text := strings.TrimSpace(fen)
	if text == "" || text == "startpos" || text == domain.StartFEN {
		return nchess.NewGame(), domain.StartFEN, nil
	}
	option, err := nchess.FEN(text)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %q: %v", ErrInvalidFEN, text, err)
	}
	return nchess.NewGame(option), text, nil
}

// ValidateFEN reports whether fen can seed a board.
func ValidateFEN(fen string) error {
	_, _, err := newGame(fen)
	return err
}

// Apply decodes spec as UCI, falling back to SAN, and plays it.
func (b *Board) Apply(spec string) (Ply, error) {
	text := strings.TrimSpace(spec)
	if text == "" {
		return Ply{}, fmt.Errorf("%w: empty move", ErrInvalidMove)
	}

	pos := b.game.Position()
	uci := nchess.UCINotation{}
	san := nchess.AlgebraicNotation{}

	move, err := uci.Decode(pos, strings.ToLower(text))
	if err != nil {
		move, err = san.Decode(pos, text)
		if err != nil {
			return Ply{}, fmt.Errorf("%w: %s", ErrInvalidMove, text)
		}
	}

	next := b.game.Clone()
	if err := next.Move(move, nil); err != nil {
		return Ply{}, fmt.Errorf("%w: %s", ErrInvalidMove, text)
	}

	ply := Ply{
		UCI: strings.ToLower(uci.Encode(pos, move)),
		SAN: san.Encode(pos, move),
	}
	b.game = next
	b.plies = append(b.plies, ply)
	return ply, nil
}

// FEN reflects the last successful move.
func (b *Board) FEN() string { return b.game.FEN() }

// StartFEN is the position the board was last reset to.
func (b *Board) StartFEN() string { return b.start }

// History returns the applied plies in order.
func (b *Board) History() []Ply { return append([]Ply(nil), b.plies...) }

// Position exposes the current engine position for rendering.
func (b *Board) Position() *nchess.Position { return b.game.Position() }

// LastPly returns the most recent ply, if any.
func (b *Board) LastPly() (Ply, bool) {
	if len(b.plies) == 0 {
		return Ply{}, false
	}
	return b.plies[len(b.plies)-1], true
}

// LastMove returns the squares of the most recent ply.
func (b *Board) LastMove() (from, to nchess.Square, ok bool) {
	moves := b.game.Moves()
	if len(moves) == 0 {
		return nchess.NoSquare, nchess.NoSquare, false
	}
	mv := moves[len(moves)-1]
	return mv.S1(), mv.S2(), true
}

// Turn reports the side to move, "white" or "black".
func (b *Board) Turn() string {
	return strings.ToLower(b.game.Position().Turn().String())
}

// Outcome returns the game result token ("1-0", "0-1", "1/2-1/2") or "" while ongoing.
func (b *Board) Outcome() string {
	switch b.game.Outcome() {
	case nchess.WhiteWon:
		return "1-0"
	case nchess.BlackWon:
		return "0-1"
	case nchess.Draw:
		return "1/2-1/2"
	default:
		return ""
	}
}

var ecoBook = opening.NewBookECO()

// Opening names the ECO opening reached by the applied moves. Boards seeded
// from a custom FEN have no opening.
func (b *Board) Opening() (code, title string) {
	if ecoBook == nil || b.start != domain.StartFEN || len(b.plies) == 0 {
		return "", ""
	}
	if eco := ecoBook.Find(b.game.Moves()); eco != nil {
		return eco.Code(), eco.Title()
	}
	return "", ""
}

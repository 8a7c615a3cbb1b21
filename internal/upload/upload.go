// Package upload parses uploaded JSON move lists and turns them into
// simulation sequences or recorded matches.
package upload

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/park285/chess-audio-guide/internal/domain"
	"github.com/park285/chess-audio-guide/internal/match"
	"github.com/park285/chess-audio-guide/internal/playback"
	"github.com/park285/chess-audio-guide/internal/rules"
)

var ErrMalformedUpload = errors.New("malformed upload")

// DefaultMaxBytes bounds an upload read through ParseReader.
const DefaultMaxBytes = 1 << 20

// Entry is one uploaded move-list item. Unknown keys are kept in Metadata.
type Entry struct {
	Move       string         `json:"move"`
	Commentary string         `json:"commentary,omitempty"`
	MoveNumber int            `json:"moveNumber,omitempty"`
	Notation   string         `json:"notation,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// ParseReader reads at most limit bytes (DefaultMaxBytes when limit <= 0).
func ParseReader(r io.Reader, limit int64) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultMaxBytes
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read: %v", ErrMalformedUpload, err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: larger than %d bytes", ErrMalformedUpload, limit)
	}
	return Parse(data)
}

// Parse accepts a single object or an array of objects.
func Parse(data []byte) ([]Entry, error) {
	text, err := decodeText(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedUpload, err)
	}
	text = bytes.TrimSpace(text)
	if len(text) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrMalformedUpload)
	}

	var raws []map[string]json.RawMessage
	switch text[0] {
	case '[':
		if err := json.Unmarshal(text, &raws); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedUpload, err)
		}
	case '{':
		var one map[string]json.RawMessage
		if err := json.Unmarshal(text, &one); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedUpload, err)
		}
		raws = append(raws, one)
	default:
		return nil, fmt.Errorf("%w: expected object or array", ErrMalformedUpload)
	}
	if len(raws) == 0 {
		return nil, fmt.Errorf("%w: no entries", ErrMalformedUpload)
	}

	entries := make([]Entry, 0, len(raws))
	for i, raw := range raws {
		e, err := decodeEntry(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: entry %d: %v", ErrMalformedUpload, i, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func decodeEntry(raw map[string]json.RawMessage) (Entry, error) {
	if raw == nil {
		return Entry{}, errors.New("not an object")
	}
	var e Entry
	mv, ok := raw["move"]
	if !ok {
		return Entry{}, errors.New("missing move")
	}
	if err := json.Unmarshal(mv, &e.Move); err != nil {
		return Entry{}, errors.New("move must be a string")
	}
	if strings.TrimSpace(e.Move) == "" {
		return Entry{}, errors.New("move is empty")
	}
	if c, ok := raw["commentary"]; ok {
		if err := json.Unmarshal(c, &e.Commentary); err != nil {
			return Entry{}, errors.New("commentary must be a string")
		}
	}
	if n, ok := raw["moveNumber"]; ok {
		if err := json.Unmarshal(n, &e.MoveNumber); err != nil {
			return Entry{}, errors.New("moveNumber must be an integer")
		}
	}
	if n, ok := raw["notation"]; ok {
		_ = json.Unmarshal(n, &e.Notation)
	}
	for k, v := range raw {
		switch k {
		case "move", "commentary", "moveNumber", "notation":
			continue
		}
		var val any
		if err := json.Unmarshal(v, &val); err != nil {
			continue
		}
		if e.Metadata == nil {
			e.Metadata = make(map[string]any)
		}
		e.Metadata[k] = val
	}
	e.Move = strings.TrimSpace(e.Move)
	e.Commentary = strings.TrimSpace(e.Commentary)
	return e, nil
}

var moveNumberToken = regexp.MustCompile(`^(\d+)\.+(.*)$`)

// SplitPlies strips move numbers from move and splits it into plies. The
// number of a leading move-number token, if any, is returned.
func SplitPlies(move string) (int, []string) {
	number := 0
	var plies []string
	for i, tok := range strings.Fields(move) {
		if m := moveNumberToken.FindStringSubmatch(tok); m != nil {
			if i == 0 {
				number, _ = strconv.Atoi(m[1])
			}
			tok = m[2]
		}
		if tok == "" || isResultToken(tok) {
			continue
		}
		plies = append(plies, tok)
	}
	return number, plies
}

func isResultToken(tok string) bool {
	switch tok {
	case "1-0", "0-1", "1/2-1/2", "*":
		return true
	}
	return false
}

// Label picks the display number for entry i: the parsed move number, the
// explicit moveNumber field, or the running counter.
func Label(e Entry, i int) int {
	n, _ := SplitPlies(e.Move)
	if n > 0 {
		return n
	}
	if e.MoveNumber > 0 {
		return e.MoveNumber
	}
	return i + 1
}

// DisplayNotation is the notation an entry is shown and recorded with: the
// explicit notation field, else the move text as uploaded.
func DisplayNotation(e Entry) string {
	if n := strings.TrimSpace(e.Notation); n != "" {
		return n
	}
	return strings.TrimSpace(e.Move)
}

// ToSequence builds a simulation sequence; one step per entry.
func ToSequence(id, title string, entries []Entry) (playback.Sequence, error) {
	seq := playback.Sequence{
		ID:       id,
		Title:    title,
		Kind:     playback.KindUpload,
		StartFEN: domain.StartFEN,
		Steps:    make([]playback.Step, 0, len(entries)),
	}
	for i, e := range entries {
		_, plies := SplitPlies(e.Move)
		if len(plies) == 0 {
			return playback.Sequence{}, fmt.Errorf("%w: entry %d has no moves", ErrMalformedUpload, i)
		}
		seq.Steps = append(seq.Steps, playback.Step{
			Number:     Label(e, i),
			Plies:      plies,
			Notation:   DisplayNotation(e),
			Commentary: e.Commentary,
		})
	}
	return seq, nil
}

// ApplyEntries plays entries onto board in order, appending one record per entry to
// log. The first rejected token stops the import; tokens of that entry that
// were already applied stay applied and the entry is not recorded.
func ApplyEntries(board *rules.Board, log *match.Log, entries []Entry) (int, error) {
	for i, e := range entries {
		_, tokens := SplitPlies(e.Move)
		mv := domain.MatchMove{
			Number:   Label(e, i),
			Notation: DisplayNotation(e),
			Comment:  e.Commentary,
		}
		for _, tok := range tokens {
			ply, err := board.Apply(tok)
			if err != nil {
				return i, fmt.Errorf("entry %d: %w", i, err)
			}
			mv.Plies = append(mv.Plies, ply.UCI)
			mv.SAN = append(mv.SAN, ply.SAN)
		}
		log.Append(mv)
	}
	return len(entries), nil
}

package render

import (
	"bytes"
	"embed"
	"fmt"
	"image"
	"sync"

	nchess "github.com/corentings/chess/v2"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

//go:embed assets/pieces/*.svg
var pieceFiles embed.FS

var pieceLetters = map[nchess.PieceType]string{
	nchess.King:   "K",
	nchess.Queen:  "Q",
	nchess.Rook:   "R",
	nchess.Bishop: "B",
	nchess.Knight: "N",
	nchess.Pawn:   "P",
}

// spriteSet rasterizes all twelve pieces at one size, once, on first use.
type spriteSet struct {
	size    int
	once    sync.Once
	sprites map[nchess.Piece]*image.RGBA
	err     error
}

func newSpriteSet(size int) *spriteSet {
	return &spriteSet{size: size}
}

func (s *spriteSet) load() error {
	s.once.Do(func() {
		sprites := make(map[nchess.Piece]*image.RGBA, 2*len(pieceLetters))
		for _, c := range []nchess.Color{nchess.White, nchess.Black} {
			for pt := range pieceLetters {
				p := nchess.NewPiece(pt, c)
				img, err := rasterizePiece(pieceAsset(p), s.size)
				if err != nil {
					s.err = err
					return
				}
				sprites[p] = img
			}
		}
		s.sprites = sprites
	})
	return s.err
}

func (s *spriteSet) sprite(p nchess.Piece) (image.Image, error) {
	if err := s.load(); err != nil {
		return nil, err
	}
	img, ok := s.sprites[p]
	if !ok {
		return nil, fmt.Errorf("no sprite for piece %v", p)
	}
	return img, nil
}

func rasterizePiece(name string, size int) (*image.RGBA, error) {
	data, err := pieceFiles.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("read piece asset %s: %w", name, err)
	}
	icon, err := oksvg.ReadIconStream(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse piece svg %s: %w", name, err)
	}
	icon.SetTarget(0, 0, float64(size), float64(size))

	// a fresh RGBA is fully transparent
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	icon.Draw(rasterx.NewDasher(size, size, scanner), 1.0)
	return img, nil
}

func pieceAsset(p nchess.Piece) string {
	side := "b"
	if p.Color() == nchess.White {
		side = "w"
	}
	return "assets/pieces/" + side + pieceLetters[p.Type()] + ".svg"
}

// Package render draws board positions as PNG images with a small HUD.
package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"
	"strings"

	nchess "github.com/corentings/chess/v2"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
)

// LastMove marks the squares of the most recent ply.
type LastMove struct {
	From nchess.Square
	To   nchess.Square
}

type Options struct {
	Header   string
	Progress string
	Caption  string
	LastMove *LastMove
}

type BoardRenderer interface {
	RenderPNG(ctx context.Context, board *nchess.Board, opts Options) ([]byte, error)
}

const (
	squareSize   = 64
	boardSize    = squareSize * 8
	sideMargin   = 32
	topMargin    = 72
	bottomMargin = 64
	panelHeight  = 30
	panelRadius  = 10
	panelPadX    = 16
	panelGap     = 12
	shadowOffset = 4
)

// Width and Height are the fixed output dimensions.
const (
	Width  = boardSize + sideMargin*2
	Height = boardSize + topMargin + bottomMargin
)

type pngRenderer struct {
	face    font.Face
	sprites *spriteSet
}

func NewPNGRenderer() BoardRenderer {
	return &pngRenderer{face: basicfont.Face7x13, sprites: newSpriteSet(squareSize)}
}

func (r *pngRenderer) RenderPNG(ctx context.Context, board *nchess.Board, opts Options) ([]byte, error) {
	if board == nil {
		return nil, errors.New("board is nil")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img := image.NewRGBA(image.Rect(0, 0, Width, Height))
	imagedraw.Draw(img, img.Bounds(), image.NewUniform(backgroundColor), image.Point{}, imagedraw.Src)

	origin := image.Point{X: sideMargin, Y: topMargin}
	boardRect := image.Rect(origin.X, origin.Y, origin.X+boardSize, origin.Y+boardSize)

	imagedraw.Draw(img, boardRect.Add(image.Pt(shadowOffset, shadowOffset*2)), image.NewUniform(boardShadowColor), image.Point{}, imagedraw.Over)
	drawSquares(img, origin)
	if opts.LastMove != nil {
		drawSquareOverlay(img, opts.LastMove.From, origin, lastMoveFill)
		drawSquareOverlay(img, opts.LastMove.To, origin, lastMoveFill)
	}
	if err := r.drawPieces(img, board, origin); err != nil {
		return nil, err
	}
	r.drawCoordinates(img, origin)
	r.drawHUD(img, boardRect, opts)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

var (
	backgroundColor  = color.RGBA{R: 22, G: 24, B: 34, A: 255}
	lightSquare      = color.RGBA{233, 207, 163, 255}
	darkSquare       = color.RGBA{187, 136, 96, 255}
	lastMoveFill     = color.NRGBA{R: 255, G: 228, B: 120, A: 140}
	boardShadowColor = color.NRGBA{0, 0, 0, 60}
	panelColor       = color.NRGBA{R: 28, G: 31, B: 46, A: 250}
	captionColor     = color.NRGBA{R: 32, G: 35, B: 52, A: 245}
	panelShadow      = color.NRGBA{0, 0, 0, 50}
	textPrimary      = color.NRGBA{R: 236, G: 239, B: 255, A: 255}
	textSecondary    = color.NRGBA{R: 204, G: 210, B: 236, A: 255}
	coordinateColor  = color.NRGBA{R: 176, G: 182, B: 204, A: 255}
)

var (
	ranksTopDown   = []nchess.Rank{nchess.Rank8, nchess.Rank7, nchess.Rank6, nchess.Rank5, nchess.Rank4, nchess.Rank3, nchess.Rank2, nchess.Rank1}
	filesLeftRight = []nchess.File{nchess.FileA, nchess.FileB, nchess.FileC, nchess.FileD, nchess.FileE, nchess.FileF, nchess.FileG, nchess.FileH}
)

func drawSquares(dst imagedraw.Image, origin image.Point) {
	for _, rank := range ranksTopDown {
		for _, file := range filesLeftRight {
			sq := nchess.NewSquare(file, rank)
			clr := lightSquare
			if (int(file)+int(rank))%2 == 0 {
				clr = darkSquare
			}
			imagedraw.Draw(dst, squareRect(sq, origin), image.NewUniform(clr), image.Point{}, imagedraw.Src)
		}
	}
}

func (r *pngRenderer) drawPieces(dst imagedraw.Image, board *nchess.Board, origin image.Point) error {
	for sq, piece := range board.SquareMap() {
		if piece == nchess.NoPiece {
			continue
		}
		img, err := r.sprites.sprite(piece)
		if err != nil {
			return err
		}
		imagedraw.Draw(dst, squareRect(sq, origin), img, image.Point{}, imagedraw.Over)
	}
	return nil
}

func drawSquareOverlay(img *image.RGBA, sq nchess.Square, origin image.Point, clr color.Color) {
	imagedraw.Draw(img, squareRect(sq, origin), image.NewUniform(clr), image.Point{}, imagedraw.Over)
}

func squareRect(sq nchess.Square, origin image.Point) image.Rectangle {
	col := int(sq.File())
	row := 7 - int(sq.Rank())
	x := origin.X + col*squareSize
	y := origin.Y + row*squareSize
	return image.Rect(x, y, x+squareSize, y+squareSize)
}

func (r *pngRenderer) drawCoordinates(img *image.RGBA, origin image.Point) {
	drawer := &font.Drawer{Dst: img, Face: r.face, Src: image.NewUniform(coordinateColor)}
	ascent := r.face.Metrics().Ascent.Ceil()
	for row, rank := range ranksTopDown {
		baseline := origin.Y + row*squareSize + squareSize/2 + ascent/2
		drawCenteredText(drawer, rank.String(), origin.X-sideMargin/2, baseline)
	}
	for col, file := range filesLeftRight {
		centerX := origin.X + col*squareSize + squareSize/2
		drawCenteredText(drawer, file.String(), centerX, origin.Y+boardSize+ascent+4)
	}
}

// drawHUD lays out the header (left) and progress (right) panels above the
// board and a caption bar below it.
func (r *pngRenderer) drawHUD(img *image.RGBA, boardRect image.Rectangle, opts Options) {
	drawer := &font.Drawer{Dst: img, Face: r.face}

	header := strings.TrimSpace(opts.Header)
	progress := strings.TrimSpace(opts.Progress)
	caption := strings.TrimSpace(opts.Caption)

	bottom := boardRect.Min.Y - panelGap - shadowOffset
	top := bottom - panelHeight

	progressWidth := 0
	if progress != "" {
		progressWidth = drawer.MeasureString(progress).Round() + panelPadX*2
		rect := image.Rect(boardRect.Max.X-progressWidth, top, boardRect.Max.X, bottom)
		drawPanel(img, rect, panelColor)
		drawCenteredString(drawer, rect, progress, textSecondary)
	}
	if header != "" {
		maxWidth := boardRect.Dx() - progressWidth - panelGap
		width := drawer.MeasureString(header).Round() + panelPadX*2
		if width > maxWidth {
			width = maxWidth
		}
		rect := image.Rect(boardRect.Min.X, top, boardRect.Min.X+width, bottom)
		drawPanel(img, rect, panelColor)
		drawCenteredString(drawer, rect, truncateWithEllipsis(r.face, header, width-panelPadX*2), textPrimary)
	}
	if caption != "" {
		captionTop := boardRect.Max.Y + 24
		rect := image.Rect(boardRect.Min.X, captionTop, boardRect.Max.X, captionTop+panelHeight)
		drawPanel(img, rect, captionColor)
		drawCenteredString(drawer, rect, truncateWithEllipsis(r.face, caption, rect.Dx()-panelPadX*2), textPrimary)
	}
}

func drawPanel(img *image.RGBA, rect image.Rectangle, clr color.Color) {
	drawRoundedPanel(img, rect.Add(image.Pt(0, shadowOffset)), panelRadius, panelShadow)
	drawRoundedPanel(img, rect, panelRadius, clr)
}

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

	nchess "github.com/corentings/chess/v2"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/park285/mystic-pawn/internal/board"
	"github.com/park285/mystic-pawn/internal/trainer"
)

var ErrNilOptions = errors.New("render options are nil")

const (
	DefaultSquareSize = 64
	minSquareSize     = 16
	fileLetters       = "ABCDEFGH"
)

type Options struct {
	Theme           trainer.Theme
	WhiteQueenOnTop bool
	// Target marks the square to name in coordinates mode, in the displayed frame.
	Target *board.Position
	// Highlight is a square of the displayed board tinted according to Feedback.
	Highlight *board.Position
	Feedback  trainer.Feedback
}

// OptionsFromSnapshot renders the board exactly as the player currently sees it.
func OptionsFromSnapshot(s trainer.Snapshot) *Options {
	opts := &Options{
		Theme:           s.Settings.Theme,
		WhiteQueenOnTop: s.WhiteQueenOnTop,
		Feedback:        s.Feedback,
	}
	if s.IsActive && s.Settings.GameMode == trainer.ModeCoordinates {
		target := s.Target.Oriented(s.WhiteQueenOnTop)
		opts.Target = &target
	}
	if s.Feedback != trainer.FeedbackNone && s.LastAnswer != nil {
		hl := *s.LastAnswer
		opts.Highlight = &hl
	}
	return opts
}

type BoardRenderer interface {
	RenderPNG(ctx context.Context, opts *Options) ([]byte, error)
}

type pngBoardRenderer struct {
	squareSize int
}

// NewBoardRenderer returns a renderer drawing squares of squareSize pixels.
// Sizes below 16 fall back to DefaultSquareSize.
func NewBoardRenderer(squareSize int) BoardRenderer {
	if squareSize < minSquareSize {
		squareSize = DefaultSquareSize
	}
	return &pngBoardRenderer{squareSize: squareSize}
}

func (r *pngBoardRenderer) RenderPNG(ctx context.Context, opts *Options) ([]byte, error) {
	if opts == nil {
		return nil, ErrNilOptions
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	squareSize := r.squareSize
	margin := squareSize / 2
	boardSize := squareSize * board.Size
	total := boardSize + margin*2
	origin := image.Point{X: margin, Y: margin}
	palette := PaletteFor(opts.Theme)

	img := image.NewRGBA(image.Rect(0, 0, total, total))
	imagedraw.Draw(img, img.Bounds(), image.NewUniform(palette.Border), image.Point{}, imagedraw.Src)

	drawSquares(img, palette, squareSize, origin)
	if err := drawPieces(img, queenBoard(), opts.WhiteQueenOnTop, squareSize, origin); err != nil {
		return nil, err
	}
	drawTarget(img, opts.Target, squareSize, origin)
	drawHighlight(img, opts, squareSize, origin)
	drawCoordinates(img, palette, squareSize, origin, margin)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	var pngBuf bytes.Buffer
	if err := png.Encode(&pngBuf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return pngBuf.Bytes(), nil
}

// squareRect maps a displayed-frame position to pixels; rank 0 is the bottom row.
func squareRect(p board.Position, squareSize int, origin image.Point) image.Rectangle {
	x := origin.X + p.File*squareSize
	y := origin.Y + (board.Size-1-p.Rank)*squareSize
	return image.Rect(x, y, x+squareSize, y+squareSize)
}

// Light squares are those with an odd file+rank sum, as on a real board where h1 is light.
func squareColor(p board.Position, palette Palette) color.Color {
	if (p.File+p.Rank)%2 == 1 {
		return palette.Light
	}
	return palette.Dark
}

func drawSquares(dst imagedraw.Image, palette Palette, squareSize int, origin image.Point) {
	for rank := 0; rank < board.Size; rank++ {
		for file := 0; file < board.Size; file++ {
			p := board.Position{File: file, Rank: rank}
			imagedraw.Draw(dst, squareRect(p, squareSize, origin), image.NewUniform(squareColor(p, palette)), image.Point{}, imagedraw.Src)
		}
	}
}

// drawPieces walks the displayed squares and looks each one up in the canonical board,
// so a flipped orientation puts the white queen at the top.
func drawPieces(dst imagedraw.Image, b *nchess.Board, flipped bool, squareSize int, origin image.Point) error {
	for rank := 0; rank < board.Size; rank++ {
		for file := 0; file < board.Size; file++ {
			shown := board.Position{File: file, Rank: rank}
			piece := b.Piece(shown.Oriented(flipped).Square())
			if piece == nchess.NoPiece {
				continue
			}
			img, err := renderPieceImage(piece, squareSize)
			if err != nil {
				return err
			}
			imagedraw.Draw(dst, squareRect(shown, squareSize, origin), img, image.Point{}, imagedraw.Over)
		}
	}
	return nil
}

func drawTarget(img *image.RGBA, target *board.Position, squareSize int, origin image.Point) {
	if target == nil || !target.Valid() {
		return
	}
	imagedraw.Draw(img, squareRect(*target, squareSize, origin), image.NewUniform(targetFill), image.Point{}, imagedraw.Over)
}

func drawHighlight(img *image.RGBA, opts *Options, squareSize int, origin image.Point) {
	if opts.Highlight == nil || !opts.Highlight.Valid() {
		return
	}
	var fill color.Color
	switch opts.Feedback {
	case trainer.FeedbackCorrect:
		fill = correctHighlightFill
	case trainer.FeedbackIncorrect:
		fill = incorrectHighlightFill
	default:
		return
	}
	imagedraw.Draw(img, squareRect(*opts.Highlight, squareSize, origin), image.NewUniform(fill), image.Point{}, imagedraw.Over)
}

func drawCoordinates(dst imagedraw.Image, palette Palette, squareSize int, origin image.Point, margin int) {
	face := basicfont.Face7x13
	drawer := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(palette.Label),
		Face: face,
	}
	ascent := face.Metrics().Ascent.Ceil()
	boardEndY := origin.Y + board.Size*squareSize

	for i := 0; i < board.Size; i++ {
		fileCenter := origin.X + i*squareSize + squareSize/2
		drawCenteredText(drawer, fileLetters[i:i+1], fileCenter, boardEndY+(margin+ascent)/2)

		rankCenter := origin.Y + (board.Size-1-i)*squareSize + squareSize/2
		drawCenteredText(drawer, fmt.Sprint(i+1), origin.X-margin/2, rankCenter+ascent/2)
	}
}

func drawCenteredText(drawer *font.Drawer, text string, centerX, baseline int) {
	if text == "" {
		return
	}
	width := drawer.MeasureString(text).Round()
	drawer.Dot = fixed.P(centerX-width/2, baseline)
	drawer.DrawString(text)
}

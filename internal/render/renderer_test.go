package render

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/park285/mystic-pawn/internal/board"
	"github.com/park285/mystic-pawn/internal/trainer"
)

const testSquare = 64

func renderImage(t *testing.T, opts *Options) image.Image {
	t.Helper()
	data, err := NewBoardRenderer(testSquare).RenderPNG(context.Background(), opts)
	if err != nil {
		t.Fatalf("RenderPNG: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	return img
}

// pixelIn samples a square of the displayed board at (dx, dy) inside it.
func pixelIn(img image.Image, file, rank, dx, dy int) color.RGBA {
	margin := testSquare / 2
	x := margin + file*testSquare + dx
	y := margin + (7-rank)*testSquare + dy
	r, g, b, a := img.At(x, y).RGBA()
	return color.RGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: uint8(a >> 8)}
}

// queenBody is a point inside the queen's base in the 45x45 artwork.
const queenBodyDY = testSquare * 33 / 45

func TestRenderDimensions(t *testing.T) {
	img := renderImage(t, &Options{Theme: trainer.ThemeClassicWood})
	want := testSquare*8 + testSquare
	if b := img.Bounds(); b.Dx() != want || b.Dy() != want {
		t.Fatalf("bounds = %v, want %dx%d", b, want, want)
	}
}

func TestRenderSquareColors(t *testing.T) {
	p := PaletteFor(trainer.ThemeTournamentGreen)
	img := renderImage(t, &Options{Theme: trainer.ThemeTournamentGreen})

	// a1 is dark, h1 is light.
	if got := pixelIn(img, 0, 0, 4, 4); got != p.Dark {
		t.Fatalf("a1 = %v, want dark %v", got, p.Dark)
	}
	if got := pixelIn(img, 7, 0, 4, 4); got != p.Light {
		t.Fatalf("h1 = %v, want light %v", got, p.Light)
	}
	if got := pixelIn(img, 4, 3, 32, 32); got != p.Light {
		t.Fatalf("e4 = %v, want light %v", got, p.Light)
	}
}

func TestRenderQueensFollowOrientation(t *testing.T) {
	white := color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	black := color.RGBA{A: 0xff}

	img := renderImage(t, &Options{Theme: trainer.ThemeOceanBlue})
	if got := pixelIn(img, 3, 0, testSquare/2, queenBodyDY); got != white {
		t.Fatalf("d1 = %v, want white queen", got)
	}
	if got := pixelIn(img, 3, 7, testSquare/2, queenBodyDY); got != black {
		t.Fatalf("d8 = %v, want black queen", got)
	}

	flipped := renderImage(t, &Options{Theme: trainer.ThemeOceanBlue, WhiteQueenOnTop: true})
	if got := pixelIn(flipped, 4, 7, testSquare/2, queenBodyDY); got != white {
		t.Fatalf("flipped e8 = %v, want white queen", got)
	}
	if got := pixelIn(flipped, 4, 0, testSquare/2, queenBodyDY); got != black {
		t.Fatalf("flipped e1 = %v, want black queen", got)
	}
	p := PaletteFor(trainer.ThemeOceanBlue)
	if got := pixelIn(flipped, 3, 0, testSquare/2, queenBodyDY); got != p.Light {
		t.Fatalf("flipped d1 = %v, want empty light square", got)
	}
}

func TestRenderHighlight(t *testing.T) {
	p := PaletteFor(trainer.ThemeBlackWhite)
	e4 := board.Position{File: 4, Rank: 3}

	img := renderImage(t, &Options{Highlight: &e4, Feedback: trainer.FeedbackIncorrect})
	got := pixelIn(img, 4, 3, 32, 32)
	if got == p.Light {
		t.Fatal("highlighted square kept its plain color")
	}
	if got.R <= got.G {
		t.Fatalf("incorrect highlight %v is not red-tinted", got)
	}

	ok := renderImage(t, &Options{Highlight: &e4, Feedback: trainer.FeedbackCorrect})
	if got := pixelIn(ok, 4, 3, 32, 32); got.G <= got.R {
		t.Fatalf("correct highlight %v is not green-tinted", got)
	}

	none := renderImage(t, &Options{Highlight: &e4})
	if got := pixelIn(none, 4, 3, 32, 32); got != p.Light {
		t.Fatalf("highlight without feedback = %v, want plain", got)
	}
}

func TestOptionsFromSnapshot(t *testing.T) {
	sq := board.Position{File: 1, Rank: 2}
	snap := trainer.Snapshot{
		WhiteQueenOnTop: true,
		Feedback:        trainer.FeedbackCorrect,
		LastAnswer:      &sq,
		Settings:        trainer.Settings{Theme: trainer.ThemeClassicWood},
	}
	opts := OptionsFromSnapshot(snap)
	if opts.Theme != trainer.ThemeClassicWood || !opts.WhiteQueenOnTop {
		t.Fatalf("opts = %+v", opts)
	}
	if opts.Highlight == nil || *opts.Highlight != sq {
		t.Fatalf("highlight = %v, want %v", opts.Highlight, sq)
	}

	snap.Feedback = trainer.FeedbackNone
	if OptionsFromSnapshot(snap).Highlight != nil {
		t.Fatal("highlight set without feedback")
	}
}

func TestRenderTargetMark(t *testing.T) {
	p := PaletteFor(trainer.ThemeBlackWhite)
	c6 := board.Position{File: 2, Rank: 5}

	img := renderImage(t, &Options{Target: &c6})
	got := pixelIn(img, 2, 5, 32, 32)
	if got == p.Light || got.B <= got.R {
		t.Fatalf("target square = %v, want blue tint", got)
	}
	if other := pixelIn(img, 3, 5, 32, 32); other != p.Dark {
		t.Fatalf("neighbour d6 = %v, want plain dark", other)
	}
}

func TestOptionsFromSnapshotCoordinatesTarget(t *testing.T) {
	snap := trainer.Snapshot{
		Target:          board.Position{File: 1, Rank: 2},
		WhiteQueenOnTop: true,
		IsActive:        true,
		Settings:        trainer.Settings{GameMode: trainer.ModeCoordinates},
	}
	opts := OptionsFromSnapshot(snap)
	want := board.Position{File: 6, Rank: 5}
	if opts.Target == nil || *opts.Target != want {
		t.Fatalf("target = %v, want displayed %v", opts.Target, want)
	}

	snap.Settings.GameMode = trainer.ModeVisual
	if OptionsFromSnapshot(snap).Target != nil {
		t.Fatal("visual mode must not reveal the target")
	}
	snap.Settings.GameMode = trainer.ModeCoordinates
	snap.IsActive = false
	if OptionsFromSnapshot(snap).Target != nil {
		t.Fatal("target marked outside a round")
	}
}

func TestRenderErrors(t *testing.T) {
	r := NewBoardRenderer(0)
	if _, err := r.RenderPNG(context.Background(), nil); !errors.Is(err, ErrNilOptions) {
		t.Fatalf("nil options err = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.RenderPNG(ctx, &Options{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled err = %v", err)
	}
}

func TestPaletteFallback(t *testing.T) {
	if PaletteFor("nope") != PaletteFor(trainer.ThemeBlackWhite) {
		t.Fatal("unknown theme did not fall back")
	}
	for _, th := range trainer.Themes {
		if _, ok := palettes[th]; !ok {
			t.Fatalf("theme %s has no palette", th)
		}
	}
}

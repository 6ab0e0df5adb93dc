package render

import (
	"image/color"

	"github.com/park285/mystic-pawn/internal/trainer"
)

// Palette holds the colors of one board theme.
type Palette struct {
	Light  color.RGBA
	Dark   color.RGBA
	Border color.RGBA
	// Label is drawn on the border for file and rank captions.
	Label color.RGBA
}

var palettes = map[trainer.Theme]Palette{
	trainer.ThemeBlackWhite: {
		Light:  color.RGBA{R: 0xf5, G: 0xf5, B: 0xf5, A: 0xff},
		Dark:   color.RGBA{R: 0x3a, G: 0x3a, B: 0x3a, A: 0xff},
		Border: color.RGBA{R: 0x1e, G: 0x1e, B: 0x1e, A: 0xff},
		Label:  color.RGBA{R: 0xe0, G: 0xe0, B: 0xe0, A: 0xff},
	},
	trainer.ThemeClassicWood: {
		Light:  color.RGBA{R: 0xf0, G: 0xd9, B: 0xb5, A: 0xff},
		Dark:   color.RGBA{R: 0xb5, G: 0x88, B: 0x63, A: 0xff},
		Border: color.RGBA{R: 0x8b, G: 0x45, B: 0x13, A: 0xff},
		Label:  color.RGBA{R: 0xf5, G: 0xde, B: 0xb3, A: 0xff},
	},
	trainer.ThemeTournamentGreen: {
		Light:  color.RGBA{R: 0xee, G: 0xee, B: 0xd2, A: 0xff},
		Dark:   color.RGBA{R: 0x76, G: 0x96, B: 0x56, A: 0xff},
		Border: color.RGBA{R: 0x4a, G: 0x61, B: 0x35, A: 0xff},
		Label:  color.RGBA{R: 0xee, G: 0xee, B: 0xd2, A: 0xff},
	},
	trainer.ThemeOceanBlue: {
		Light:  color.RGBA{R: 0xde, G: 0xe3, B: 0xe6, A: 0xff},
		Dark:   color.RGBA{R: 0x5b, G: 0x83, B: 0xa6, A: 0xff},
		Border: color.RGBA{R: 0x2c, G: 0x4a, B: 0x66, A: 0xff},
		Label:  color.RGBA{R: 0xde, G: 0xe3, B: 0xe6, A: 0xff},
	},
}

// PaletteFor returns the palette of t, falling back to black and white.
func PaletteFor(t trainer.Theme) Palette {
	if p, ok := palettes[t]; ok {
		return p
	}
	return palettes[trainer.ThemeBlackWhite]
}

var (
	correctHighlightFill   = color.RGBA{R: 0x2e, G: 0xcc, B: 0x71, A: 0x99}
	incorrectHighlightFill = color.RGBA{R: 0xe7, G: 0x4c, B: 0x3c, A: 0x99}
	targetFill             = color.RGBA{R: 0x34, G: 0x98, B: 0xdb, A: 0x99}
)

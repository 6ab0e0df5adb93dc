package board

import (
	"math/rand/v2"
	"strings"

	nchess "github.com/corentings/chess/v2"
)

const (
	// Size is the number of files (and ranks) on the board.
	Size = 8

	files = "ABCDEFGH"
)

// Position is a square on the board. File 0-7 is A-H, Rank 0-7 is 1-8.
type Position struct {
	File int `json:"file"`
	Rank int `json:"rank"`
}

// New returns the position at (file, rank) and false when either is off the board.
func New(file, rank int) (Position, bool) {
	p := Position{File: file, Rank: rank}
	return p, p.Valid()
}

func (p Position) Valid() bool {
	return p.File >= 0 && p.File < Size && p.Rank >= 0 && p.Rank < Size
}

// Notation formats the position as "<File><Rank>", e.g. A1 or E4.
func (p Position) Notation() string {
	if !p.Valid() {
		return ""
	}
	return string([]byte{files[p.File], byte('1' + p.Rank)})
}

func (p Position) String() string { return p.Notation() }

// Mirror rotates the position by 180 degrees.
func (p Position) Mirror() Position {
	return Position{File: Size - 1 - p.File, Rank: Size - 1 - p.Rank}
}

// Oriented maps a position between the canonical frame and the frame of a board
// displayed with the white queen on top. The mapping is its own inverse.
func (p Position) Oriented(whiteQueenOnTop bool) Position {
	if whiteQueenOnTop {
		return p.Mirror()
	}
	return p
}

// Square converts to the chess library square.
func (p Position) Square() nchess.Square {
	return nchess.Square(p.Rank*Size + p.File)
}

// FromSquare converts a chess library square.
func FromSquare(sq nchess.Square) Position {
	return Position{File: int(sq.File()), Rank: int(sq.Rank())}
}

// Parse reads "<letter A-H><digit 1-8>", case-insensitive. Anything else yields false.
func Parse(s string) (Position, bool) {
	if len(s) != 2 {
		return Position{}, false
	}
	f := strings.IndexByte(files, upper(s[0]))
	if f < 0 {
		return Position{}, false
	}
	r := int(s[1]) - '1'
	if r < 0 || r >= Size {
		return Position{}, false
	}
	return Position{File: f, Rank: r}, true
}

func upper(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - ('a' - 'A')
	}
	return c
}

// Random draws one of the 64 squares uniformly.
func Random(rng *rand.Rand) Position {
	n := rng.IntN(Size * Size)
	return Position{File: n % Size, Rank: n / Size}
}

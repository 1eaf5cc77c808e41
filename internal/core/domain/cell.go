package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
)

// DefaultGridSize is the width and height of the default canvas.
const DefaultGridSize = 80

// Point is a grid coordinate.
type Point struct {
	X int
	Y int
}

// Cell is a colored coordinate.
type Cell struct {
	X     int    `json:"x" yaml:"x"`
	Y     int    `json:"y" yaml:"y"`
	Color string `json:"color" yaml:"color"`
}

// Point returns the cell's coordinate.
func (c Cell) Point() Point {
	return Point{X: c.X, Y: c.Y}
}

// Grid describes the canvas bounds. Valid coordinates are
// 0 <= x < Width and 0 <= y < Height.
type Grid struct {
	Width  int
	Height int
}

// DefaultGrid returns the 80x80 grid.
func DefaultGrid() Grid {
	return Grid{Width: DefaultGridSize, Height: DefaultGridSize}
}

// Contains reports whether (x, y) lies inside the grid.
func (g Grid) Contains(x, y int) bool {
	return x >= 0 && y >= 0 && x < g.Width && y < g.Height
}

// Size returns the number of addressable cells.
func (g Grid) Size() int {
	return g.Width * g.Height
}

// Validate checks a cell against the grid and returns it with its color
// normalized. Coordinates are checked first.
func (g Grid) Validate(c Cell) (Cell, error) {
	if !g.Contains(c.X, c.Y) {
		return Cell{}, ErrInvalidCoordinate.WithDetails(
			fmt.Sprintf("(%d,%d) outside %dx%d", c.X, c.Y, g.Width, g.Height))
	}
	color, err := NormalizeColor(c.Color)
	if err != nil {
		return Cell{}, err
	}
	return Cell{X: c.X, Y: c.Y, Color: color}, nil
}

// NormalizeColor accepts "#rgb" or "#rrggbb" (any case) and returns the
// lower-case "#rrggbb" form.
func NormalizeColor(color string) (string, error) {
	if len(color) != 4 && len(color) != 7 || color[0] != '#' {
		return "", ErrInvalidColor.WithDetails(fmt.Sprintf("%q", color))
	}
	hex := strings.ToLower(color[1:])
	for i := 0; i < len(hex); i++ {
		c := hex[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return "", ErrInvalidColor.WithDetails(fmt.Sprintf("%q", color))
		}
	}
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	return "#" + hex, nil
}

// SortCells orders cells by row then column, giving snapshots a stable
// wire and file representation.
func SortCells(cells []Cell) {
	sort.Slice(cells, func(i, j int) bool {
		if cells[i].Y != cells[j].Y {
			return cells[i].Y < cells[j].Y
		}
		return cells[i].X < cells[j].X
	})
}

// maxCoord bounds decoded coordinates so the conversion to int is exact.
const maxCoord = 1 << 31

// DecodeCell decodes one {"x","y","color"} JSON object. A missing,
// non-numeric or fractional coordinate fails with ErrInvalidCoordinate and
// a missing or non-string color with ErrInvalidColor; coordinates are
// checked first. The returned cell keeps every field that did decode, so
// a rejection can echo it. Bounds and color format are left to
// Grid.Validate.
func DecodeCell(data []byte) (Cell, error) {
	var raw struct {
		X     json.RawMessage `json:"x"`
		Y     json.RawMessage `json:"y"`
		Color json.RawMessage `json:"color"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Cell{}, ErrInvalidCoordinate.WithDetails("cell is not an object")
	}

	x, xerr := decodeCoord("x", raw.X)
	y, yerr := decodeCoord("y", raw.Y)
	cell := Cell{X: x, Y: y}

	var cerr error
	if len(raw.Color) == 0 {
		cerr = ErrInvalidColor.WithDetails("color is missing")
	} else if err := json.Unmarshal(raw.Color, &cell.Color); err != nil {
		cerr = ErrInvalidColor.WithDetails(fmt.Sprintf("color %s is not a string", raw.Color))
	}

	switch {
	case xerr != nil:
		return cell, xerr
	case yerr != nil:
		return cell, yerr
	case cerr != nil:
		return cell, cerr
	}
	return cell, nil
}

func decodeCoord(name string, raw json.RawMessage) (int, error) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return 0, ErrInvalidCoordinate.WithDetails(name + " is missing")
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, ErrInvalidCoordinate.WithDetails(fmt.Sprintf("%s=%s is not a number", name, s))
	}
	if f != math.Trunc(f) {
		return 0, ErrInvalidCoordinate.WithDetails(fmt.Sprintf("%s=%s is not an integer", name, s))
	}
	if math.Abs(f) >= maxCoord {
		return 0, ErrInvalidCoordinate.WithDetails(fmt.Sprintf("%s=%s is out of range", name, s))
	}
	return int(f), nil
}

package domain

import (
	"errors"
	"testing"
)

func TestNormalizeColor(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"#ff0000", "#ff0000", false},
		{"#FF00aa", "#ff00aa", false},
		{"#abc", "#aabbcc", false},
		{"#ABC", "#aabbcc", false},
		{"ff0000", "", true},
		{"#ff00", "", true},
		{"#gg0000", "", true},
		{"", "", true},
		{"red", "", true},
		{"#ff00000", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := NormalizeColor(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidColor) {
					t.Fatalf("NormalizeColor(%q) error = %v, want ErrInvalidColor", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NormalizeColor(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("NormalizeColor(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestGrid_Validate(t *testing.T) {
	g := Grid{Width: 10, Height: 10}

	tests := []struct {
		name    string
		cell    Cell
		wantErr error
	}{
		{"origin", Cell{0, 0, "#000"}, nil},
		{"far corner", Cell{9, 9, "#ffffff"}, nil},
		{"x too large", Cell{10, 0, "#ffffff"}, ErrInvalidCoordinate},
		{"y negative", Cell{0, -1, "#ffffff"}, ErrInvalidCoordinate},
		{"bad color", Cell{1, 1, "blue"}, ErrInvalidColor},
		{"both bad reports coordinate", Cell{-1, 1, "blue"}, ErrInvalidCoordinate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := g.Validate(tt.cell)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Validate() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate() unexpected error: %v", err)
			}
			if got.X != tt.cell.X || got.Y != tt.cell.Y || got.Color[0] != '#' || len(got.Color) != 7 {
				t.Errorf("Validate() = %+v", got)
			}
		})
	}
}

func TestSortCells(t *testing.T) {
	cells := []Cell{{2, 1, "#000000"}, {0, 1, "#000000"}, {5, 0, "#000000"}}
	SortCells(cells)

	want := []Point{{5, 0}, {0, 1}, {2, 1}}
	for i, p := range want {
		if cells[i].Point() != p {
			t.Fatalf("cells[%d] = %+v, want %+v", i, cells[i].Point(), p)
		}
	}
}

func TestDecodeCell(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Cell
		wantErr *DomainError
	}{
		{"valid", `{"x":3,"y":4,"color":"#F00"}`, Cell{X: 3, Y: 4, Color: "#F00"}, nil},
		{"integral float", `{"x":3.0,"y":4,"color":"#f00"}`, Cell{X: 3, Y: 4, Color: "#f00"}, nil},
		{"out of bounds decodes", `{"x":-1,"y":900,"color":"#f00"}`, Cell{X: -1, Y: 900, Color: "#f00"}, nil},
		{"fractional x", `{"x":2.5,"y":0,"color":"#f00"}`, Cell{Color: "#f00"}, ErrInvalidCoordinate},
		{"string y", `{"x":1,"y":"one","color":"#f00"}`, Cell{X: 1, Color: "#f00"}, ErrInvalidCoordinate},
		{"null x", `{"x":null,"y":1,"color":"#f00"}`, Cell{Y: 1, Color: "#f00"}, ErrInvalidCoordinate},
		{"missing y", `{"x":1,"color":"#f00"}`, Cell{X: 1, Color: "#f00"}, ErrInvalidCoordinate},
		{"huge x", `{"x":1e300,"y":1,"color":"#f00"}`, Cell{Y: 1, Color: "#f00"}, ErrInvalidCoordinate},
		{"numeric color", `{"x":1,"y":1,"color":255}`, Cell{X: 1, Y: 1}, ErrInvalidColor},
		{"missing color", `{"x":1,"y":1}`, Cell{X: 1, Y: 1}, ErrInvalidColor},
		{"coordinate wins", `{"x":0.5,"y":1,"color":7}`, Cell{Y: 1}, ErrInvalidCoordinate},
		{"not an object", `[1,2]`, Cell{}, ErrInvalidCoordinate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeCell([]byte(tt.input))
			if tt.wantErr == nil && err != nil {
				t.Fatalf("DecodeCell() error = %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("DecodeCell() error = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("DecodeCell() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

package tetris

import (
	"errors"
	"fmt"
)

// Shape identifies one of the seven tetrominoes.
type Shape string

const (
	T Shape = "T"
	O Shape = "O"
	L Shape = "L"
	J Shape = "J"
	I Shape = "I"
	S Shape = "S"
	Z Shape = "Z"
)

// Shapes lists every tetromino in the order the bag refills them.
var Shapes = []Shape{T, J, L, O, S, Z, I}

// Cell is the content of a single square of the stack or of a tetromino grid.
// Empty is 0, pieces use 1 to 7.
type Cell uint8

const Empty Cell = 0

var ErrNotSquare = errors.New("matrix is not square")

// Canonical grids, row-major. Every shape sits in a square box so the
// in-place rotation keeps the matrix valid.
var shapeMap = map[Shape][][]Cell{
	T: {
		{0, 1, 0},
		{1, 1, 1},
		{0, 0, 0},
	},
	O: {
		{2, 2},
		{2, 2},
	},
	L: {
		{0, 0, 3},
		{3, 3, 3},
		{0, 0, 0},
	},
	J: {
		{4, 0, 0},
		{4, 4, 4},
		{0, 0, 0},
	},
	I: {
		{0, 5, 0, 0},
		{0, 5, 0, 0},
		{0, 5, 0, 0},
		{0, 5, 0, 0},
	},
	S: {
		{0, 6, 6},
		{6, 6, 0},
		{0, 0, 0},
	},
	Z: {
		{7, 7, 0},
		{0, 7, 7},
		{0, 0, 0},
	},
}

var cellMap = map[Cell]Shape{1: T, 2: O, 3: L, 4: J, 5: I, 6: S, 7: Z}

// Cell returns the color index the shape is drawn with.
func (s Shape) Cell() Cell {
	for c, sh := range cellMap {
		if sh == s {
			return c
		}
	}
	return Empty
}

// ShapeOf returns the shape a non empty cell belongs to.
func ShapeOf(c Cell) (Shape, bool) {
	s, ok := cellMap[c]
	return s, ok
}

// Matrix is a square grid of cells.
type Matrix [][]Cell

func newMatrix(rows [][]Cell) (Matrix, error) {
	for i, r := range rows {
		if len(r) != len(rows) {
			return nil, fmt.Errorf("row %d has %d cells, want %d: %w", i, len(r), len(rows), ErrNotSquare)
		}
	}
	return Matrix(rows).Copy(), nil
}

// NewMatrix returns a fresh copy of the canonical grid of s.
// It panics on an unknown shape.
func NewMatrix(s Shape) Matrix {
	rows, ok := shapeMap[s]
	if !ok {
		panic(fmt.Sprintf("tetris: unknown shape %q", s))
	}
	m, err := newMatrix(rows)
	if err != nil {
		panic(fmt.Sprintf("tetris: shape %q: %v", s, err))
	}
	return m
}

// Rotate turns the matrix clockwise in place: transpose, then reverse each row.
func (m Matrix) Rotate() {
	for y := range m {
		for x := range y {
			m[x][y], m[y][x] = m[y][x], m[x][y]
		}
	}
	for _, r := range m {
		for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
			r[i], r[j] = r[j], r[i]
		}
	}
}

func (m Matrix) Copy() Matrix {
	if m == nil {
		return nil
	}
	c := make(Matrix, len(m))
	for i := range m {
		c[i] = make([]Cell, len(m[i]))
		copy(c[i], m[i])
	}
	return c
}

// Tetromino is a piece placed on the stack. X and Y are the column and row
// of the grid's top-left corner; rows grow downwards.
type Tetromino struct {
	Shape  Shape
	Grid   Matrix
	X, Y   int
	GhostY int
}

func newTetromino(s Shape) *Tetromino {
	return &Tetromino{Shape: s, Grid: NewMatrix(s)}
}

func (t *Tetromino) copy() *Tetromino {
	if t == nil {
		return nil
	}
	c := *t
	c.Grid = t.Grid.Copy()
	return &c
}

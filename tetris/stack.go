package tetris

const (
	Rows = 20
	Cols = 10
)

// Stack is the playfield. Row 0 is the top, column 0 the left edge.
// A cell is either Empty or holds the color of the piece that settled there.
type Stack [Rows][Cols]Cell

// Collides reports whether grid m placed with its top-left corner at (x, y)
// overlaps settled cells, the side walls or the floor.
// Cells above the top row never collide.
//
//	.	0 1 2 3 4 5 6 7 8 9		.	0 1 2
//	0	. . . J . . . . . .		0	J . .
//	1	. . . J J J . . . .		1	J J J
//	2	. . . . . X . . . .		2	. . .
func (s *Stack) Collides(m Matrix, x, y int) bool {
	for iy, r := range m {
		for ix, c := range r {
			if c == Empty {
				continue
			}
			col, row := x+ix, y+iy
			switch {
			case col < 0 || col >= Cols:
				return true
			case row < 0:
				continue
			case row >= Rows:
				return true
			case s[row][col] != Empty:
				return true
			}
		}
	}
	return false
}

// Merge copies the non empty cells of t into the stack. Cells that are still
// above the top row are dropped.
func (s *Stack) Merge(t *Tetromino) {
	for iy, r := range t.Grid {
		for ix, c := range r {
			row, col := t.Y+iy, t.X+ix
			if c == Empty || row < 0 || row >= Rows || col < 0 || col >= Cols {
				continue
			}
			s[row][col] = c
		}
	}
}

// Sweep removes every full row, shifting the rows above it down and inserting
// empty rows at the top. It returns the number of rows removed.
func (s *Stack) Sweep() int {
	var lines int
	for y := Rows - 1; y >= 0; {
		if !s.full(y) {
			y--
			continue
		}
		// everything above y moves one row down, y is checked again.
		copy(s[1:y+1], s[:y])
		s[0] = [Cols]Cell{}
		lines++
	}
	return lines
}

func (s *Stack) full(y int) bool {
	for _, c := range s[y] {
		if c == Empty {
			return false
		}
	}
	return true
}

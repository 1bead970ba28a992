// Package tetris contains the logic of the game: the stack, the falling
// tetromino, the 7-bag randomizer, line clears, scoring and speed.
package tetris

import (
	"math/rand"
	"sync"
	"time"
)

// Tetris is the complete state of one game.
type Tetris struct {
	// Stack is the playfield. 20 rows x 10 columns.
	// Columns are 0 > 9 left to right and represent the X axis.
	// Rows are 0 > 19 top to bottom and represent the Y axis.
	Stack Stack

	Tetromino     *Tetromino
	NextTetromino *Tetromino

	Score      int
	HighScore  int
	LinesClear int
	Speed      Speed

	Started  bool
	Paused   bool
	GameOver bool
	Ghost    bool

	dropCounter time.Duration
	bag         *bag
	mu          sync.RWMutex
}

func newTetris(r *rand.Rand, level int, ghost bool) *Tetris {
	t := &Tetris{
		Speed: newSpeed(level),
		Ghost: ghost,
		bag:   newBag(r),
	}
	t.NextTetromino = t.bag.draw()
	return t
}

// reset clears the stack, score and speed-ups and spawns the first piece.
// The bag and the prefetched piece survive.
func (t *Tetris) reset() {
	t.Stack = Stack{}
	t.Score = 0
	t.LinesClear = 0
	t.dropCounter = 0
	t.Speed.reset()
	t.Started = true
	t.Paused = false
	t.GameOver = false
	t.spawn()
}

// spawn makes the prefetched piece the current one at the top center of the
// stack. If it doesn't fit the game is over.
func (t *Tetris) spawn() {
	if t.NextTetromino == nil {
		t.NextTetromino = t.bag.draw()
	}
	t.Tetromino = t.NextTetromino
	t.Tetromino.Y = 0
	t.Tetromino.X = Cols/2 - len(t.Tetromino.Grid[0])/2
	if t.collides(t.Tetromino.X, t.Tetromino.Y) {
		t.GameOver = true
		return
	}
	t.NextTetromino = t.bag.draw()
	t.updateGhost()
}

func (t *Tetris) collides(x, y int) bool {
	return t.Stack.Collides(t.Tetromino.Grid, x, y)
}

// move shifts the tetromino dx columns, or not at all if it would collide.
func (t *Tetris) move(dx int) {
	t.Tetromino.X += dx
	if t.collides(t.Tetromino.X, t.Tetromino.Y) {
		t.Tetromino.X -= dx
		return
	}
	t.updateGhost()
}

func (t *Tetris) left()  { t.move(-1) }
func (t *Tetris) right() { t.move(1) }

// rotate turns the tetromino clockwise. When the rotated piece collides it is
// nudged one column right, then one column left; if neither fits the rotation
// is undone.
func (t *Tetris) rotate() {
	tt := t.Tetromino
	tt.Grid.Rotate()
	if t.collides(tt.X, tt.Y) {
		tt.X++
		if t.collides(tt.X, tt.Y) {
			tt.X -= 2
			if t.collides(tt.X, tt.Y) {
				tt.Grid.Rotate()
				tt.Grid.Rotate()
				tt.Grid.Rotate()
				tt.X++
			}
		}
	}
	t.updateGhost()
}

// softDrop moves the tetromino one row down. If it can't move it settles.
// The fall timer starts over either way. It returns the lines cleared.
func (t *Tetris) softDrop() int {
	defer func() { t.dropCounter = 0 }()
	t.Tetromino.Y++
	if !t.collides(t.Tetromino.X, t.Tetromino.Y) {
		return 0
	}
	t.Tetromino.Y--
	return t.settle()
}

// hardDrop moves the tetromino down until it lands and settles it.
func (t *Tetris) hardDrop() int {
	for !t.collides(t.Tetromino.X, t.Tetromino.Y) {
		t.Tetromino.Y++
	}
	t.Tetromino.Y--
	return t.settle()
}

// settle merges the tetromino into the stack, clears full rows, scores them
// and spawns the next piece.
func (t *Tetris) settle() int {
	t.Stack.Merge(t.Tetromino)
	lines := t.Stack.Sweep()
	t.linesCleared(lines)
	t.spawn()
	return lines
}

func (t *Tetris) linesCleared(n int) {
	if n <= 0 {
		return
	}
	t.LinesClear += n
	t.Score += points(n)
	if t.Speed.advance(t.Score) {
		t.dropCounter = 0
	}
}

// ghostY returns the row the tetromino would land on. It doesn't modify the
// game.
func (t *Tetris) ghostY() int {
	y := t.Tetromino.Y
	for !t.collides(t.Tetromino.X, y+1) {
		y++
	}
	return y
}

func (t *Tetris) updateGhost() {
	t.Tetromino.GhostY = t.ghostY()
}

// tick accumulates elapsed time and drops the tetromino one row once the
// interval has passed. It returns the lines cleared, if any.
func (t *Tetris) tick(delta time.Duration) int {
	t.dropCounter += delta
	if t.dropCounter > t.Speed.Interval {
		return t.softDrop()
	}
	return 0
}

// playing reports whether the state accepts ticks and moves.
func (t *Tetris) playing() bool {
	return t.Started && !t.GameOver && !t.Paused && t.Tetromino != nil
}

func (t *Tetris) copy() *Tetris {
	return &Tetris{
		Stack:         t.Stack,
		Tetromino:     t.Tetromino.copy(),
		NextTetromino: t.NextTetromino.copy(),
		Score:         t.Score,
		HighScore:     t.HighScore,
		LinesClear:    t.LinesClear,
		Speed:         t.Speed,
		Started:       t.Started,
		Paused:        t.Paused,
		GameOver:      t.GameOver,
		Ghost:         t.Ghost,
		dropCounter:   t.dropCounter,
	}
}

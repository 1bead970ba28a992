package tetris

import (
	"math/rand"
	"time"
)

// bag hands out tetrominoes using the 7-bag technique: every shape shows up
// exactly once before the bag is refilled and shuffled again.
type bag struct {
	bag    []Shape
	random *rand.Rand
}

func newBag(r *rand.Rand) *bag {
	if r == nil {
		r = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &bag{random: r}
}

// fill refills the bag and shuffles it with Fisher-Yates.
func (b *bag) fill() {
	b.bag = append(b.bag[:0], Shapes...)
	for i := len(b.bag) - 1; i > 0; i-- {
		j := b.random.Intn(i + 1)
		b.bag[i], b.bag[j] = b.bag[j], b.bag[i]
	}
}

func (b *bag) next() Shape {
	if len(b.bag) == 0 {
		b.fill()
	}
	s := b.bag[len(b.bag)-1]
	b.bag = b.bag[:len(b.bag)-1]
	return s
}

func (b *bag) draw() *Tetromino {
	return newTetromino(b.next())
}

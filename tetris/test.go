package tetris

import (
	"io"
	"log/slog"
	"math/rand"
	"sync"
	"time"
)

// MockTicker is a mock implementation of the ticker interface.
type MockTicker struct {
	ch          chan time.Time
	stop, reset bool
	mu          sync.Mutex
}

func NewMockTicker() *MockTicker { return &MockTicker{ch: make(chan time.Time)} }

func (m *MockTicker) C() <-chan time.Time { return m.ch }

// Tick delivers a tick at the given time.
func (m *MockTicker) Tick(at time.Time) { m.ch <- at }

func (m *MockTicker) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stop = true
}

func (m *MockTicker) Reset(time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reset = true
}

func (m *MockTicker) IsReset() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reset
}

func (m *MockTicker) IsStop() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stop
}

// NewTestTetris creates a started game on an empty stack whose current and
// next tetromino are both of the given shape. The bag uses a fixed seed.
func NewTestTetris(shape Shape) *Tetris {
	t := &Tetris{
		Speed:         newSpeed(MinLevel),
		Ghost:         true,
		Started:       true,
		NextTetromino: newTetromino(shape),
		bag:           newBag(rand.New(rand.NewSource(1))),
	}
	t.spawn()
	t.NextTetromino = newTetromino(shape)
	return t
}

// NewTestGame creates a game around a specific Tetris and returns it with a
// manual ticker.
func NewTestGame(t *Tetris, o *Options) (*Game, *MockTicker) {
	ticker := NewMockTicker()
	if o == nil {
		o = &Options{}
	}
	o.Ticker = ticker
	if o.Logger == nil {
		o.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	g := NewGame(o)
	if t != nil {
		g.tetris = t
	}
	return g, ticker
}

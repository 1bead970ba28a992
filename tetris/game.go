package tetris

import (
	"io"
	"log/slog"
	"math/rand"
	"sync"
	"time"
)

// Command is an instruction to the game coming from any input source.
type Command int

const (
	MoveLeft  Command = iota // Moves the Tetromino one step to the left.
	MoveRight                // Moves the Tetromino one step to the right.
	SoftDrop                 // Moves the Tetromino one step down.
	HardDrop                 // Drops the Tetromino down the stack.
	Rotate                   // Rotates the Tetromino clockwise.
	Pause
	Resume
)

var commandNames = map[Command]string{
	MoveLeft:  "left",
	MoveRight: "right",
	SoftDrop:  "down",
	HardDrop:  "drop",
	Rotate:    "rotate",
	Pause:     "pause",
	Resume:    "resume",
}

func (c Command) String() string {
	if n, ok := commandNames[c]; ok {
		return n
	}
	return "unknown"
}

// DefaultFrame is how often the game loop ticks.
const DefaultFrame = 16 * time.Millisecond

type Ticker interface {
	C() <-chan time.Time
	Reset(time.Duration)
	Stop()
}

type wrappedTicker struct {
	ticker *time.Ticker
}

func newWrappedTicker(d time.Duration) *wrappedTicker {
	t := &wrappedTicker{ticker: time.NewTicker(d)}
	t.ticker.Stop()
	return t
}

func (t *wrappedTicker) C() <-chan time.Time   { return t.ticker.C }
func (t *wrappedTicker) Stop()                 { t.ticker.Stop() }
func (t *wrappedTicker) Reset(d time.Duration) { t.ticker.Reset(d) }

// Listener is told about the events the presentation reacts to. It is called
// with the game state locked, so it must not call back into the Game.
type Listener interface {
	LinesCleared(n int)
	GameOver(score int)
}

// HighScores persists the best score between games.
type HighScores interface {
	Get() (int, error)
	Record(score int) error
}

type nopListener struct{}

func (nopListener) LinesCleared(int) {}
func (nopListener) GameOver(int)     {}

type Options struct {
	Ticker     Ticker
	Frame      time.Duration
	HighScores HighScores
	Listener   Listener
	Logger     *slog.Logger
	Random     *rand.Rand
	Level      int
	NoGhost    bool
}

type Game struct {
	updateCh chan *Tetris
	actionCh chan Command
	doneCh   chan bool
	exitedCh chan struct{}

	tetris    *Tetris
	ticker    Ticker
	frame     time.Duration
	lastTick  time.Time
	scores    HighScores
	listener  Listener
	logger    *slog.Logger
	running   bool
	runningMu sync.Mutex
	publishMu sync.Mutex
}

func NewGame(o *Options) *Game {
	if o == nil {
		o = &Options{}
	}
	g := &Game{
		updateCh: make(chan *Tetris, 1),
		actionCh: make(chan Command),
		doneCh:   make(chan bool, 1),
		tetris:   newTetris(o.Random, o.Level, !o.NoGhost),
		ticker:   o.Ticker,
		frame:    o.Frame,
		scores:   o.HighScores,
		listener: o.Listener,
		logger:   o.Logger,
	}
	if g.frame <= 0 {
		g.frame = DefaultFrame
	}
	if g.ticker == nil {
		g.ticker = newWrappedTicker(g.frame)
	}
	if g.listener == nil {
		g.listener = nopListener{}
	}
	if g.logger == nil {
		g.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return g
}

// Start begins a new game. The first call also starts the game loop, which
// runs until Stop is called. Every change is published through GetUpdate().
func (g *Game) Start() {
	g.runningMu.Lock()
	start := !g.running
	if start {
		g.running = true
		g.exitedCh = make(chan struct{})
	}
	exited := g.exitedCh
	g.runningMu.Unlock()

	g.tetris.mu.Lock()
	g.newRound()
	g.publish(g.tetris.copy())
	g.tetris.mu.Unlock()

	if start {
		go g.listen(exited)
	}
}

// Stop ends the game loop.
func (g *Game) Stop() {
	g.runningMu.Lock()
	defer g.runningMu.Unlock()
	if !g.running {
		return
	}
	g.running = false
	g.ticker.Stop()
	g.doneCh <- true
	<-g.exitedCh
}

// Action queues a command for the game loop. It's a no-op if the loop
// isn't running.
func (g *Game) Action(c Command) {
	g.runningMu.Lock()
	defer g.runningMu.Unlock()
	if !g.running {
		return
	}
	g.actionCh <- c
}

// GetUpdate returns the channel snapshots are published on. Only the latest
// snapshot is kept, a slow reader skips the ones it missed.
func (g *Game) GetUpdate() <-chan *Tetris {
	return g.updateCh
}

func (g *Game) publish(u *Tetris) {
	g.publishMu.Lock()
	defer g.publishMu.Unlock()
	select {
	case <-g.updateCh:
	default:
	}
	g.updateCh <- u
}

// NewRound resets the game state and spawns the first tetromino.
func (g *Game) NewRound() {
	g.tetris.mu.Lock()
	defer g.tetris.mu.Unlock()
	g.newRound()
}

func (g *Game) newRound() {
	g.tetris.reset()
	g.lastTick = time.Time{}
	if g.scores != nil {
		hs, err := g.scores.Get()
		if err != nil {
			g.logger.Error("unable to read high score", slog.String("error", err.Error()))
		} else {
			g.tetris.HighScore = max(g.tetris.HighScore, hs)
		}
	}
	g.logger.Debug("new game",
		slog.Int("level", g.tetris.Speed.Level),
		slog.Duration("interval", g.tetris.Speed.Interval),
		slog.Int("highscore", g.tetris.HighScore),
	)
	g.checkGameOver()
}

// Tick advances the fall timer by the elapsed time. Ticks are ignored while
// the game is paused, over or not started.
func (g *Game) Tick(delta time.Duration) {
	g.tetris.mu.Lock()
	defer g.tetris.mu.Unlock()
	g.tick(delta)
}

func (g *Game) tick(delta time.Duration) {
	if !g.tetris.playing() {
		return
	}
	g.afterSettle(g.tetris.tick(delta))
}

// Dispatch applies a command to the game.
func (g *Game) Dispatch(c Command) {
	g.tetris.mu.Lock()
	defer g.tetris.mu.Unlock()
	g.dispatch(c)
}

func (g *Game) dispatch(c Command) {
	t := g.tetris
	if !t.Started || t.GameOver {
		return
	}
	if t.Paused {
		if c == Resume {
			t.Paused = false
			g.logger.Debug("resumed")
		}
		return
	}
	switch c {
	case MoveLeft:
		t.left()
	case MoveRight:
		t.right()
	case Rotate:
		t.rotate()
	case SoftDrop:
		g.afterSettle(t.softDrop())
	case HardDrop:
		g.afterSettle(t.hardDrop())
	case Pause:
		t.Paused = true
		g.logger.Debug("paused")
	}
}

func (g *Game) afterSettle(lines int) {
	if lines > 0 {
		g.logger.Debug("lines cleared",
			slog.Int("lines", lines),
			slog.Int("score", g.tetris.Score),
			slog.Duration("interval", g.tetris.Speed.Interval),
		)
		g.listener.LinesCleared(lines)
	}
	g.checkGameOver()
}

// checkGameOver records the high score and notifies the listener once the
// last spawn failed. Ticks and commands are ignored afterwards so it runs
// once per game.
func (g *Game) checkGameOver() {
	t := g.tetris
	if !t.GameOver {
		return
	}
	if t.Score > t.HighScore {
		t.HighScore = t.Score
		if g.scores != nil {
			if err := g.scores.Record(t.Score); err != nil {
				g.logger.Error("unable to record high score", slog.String("error", err.Error()))
			}
		}
	}
	g.logger.Debug("game over", slog.Int("score", t.Score))
	g.listener.GameOver(t.Score)
}

// Read returns a copy of the current Tetris status that's safe to read concurrently.
func (g *Game) Read() *Tetris {
	g.tetris.mu.RLock()
	defer g.tetris.mu.RUnlock()
	return g.tetris.copy()
}

// SetLevel sets the base speed level, clamped to 1-10.
func (g *Game) SetLevel(level int) {
	g.tetris.mu.Lock()
	defer g.tetris.mu.Unlock()
	g.tetris.Speed.setLevel(level)
	g.tetris.dropCounter = 0
}

// SetInterval overrides the fall interval until the next speed change.
// It never goes below 50ms.
func (g *Game) SetInterval(d time.Duration) {
	g.tetris.mu.Lock()
	defer g.tetris.mu.Unlock()
	g.tetris.Speed.Interval = max(MinInterval, d)
	g.tetris.dropCounter = 0
}

func (g *Game) SetGhost(on bool) {
	g.tetris.mu.Lock()
	defer g.tetris.mu.Unlock()
	g.tetris.Ghost = on
}

// SetDifficulty applies a preset to the level and the ghost piece.
func (g *Game) SetDifficulty(d Difficulty) {
	g.tetris.mu.Lock()
	defer g.tetris.mu.Unlock()
	switch d {
	case Medium:
		g.tetris.Speed.setLevel(7)
		g.tetris.Ghost = false
	default:
		g.tetris.Speed.setLevel(1)
		g.tetris.Ghost = true
	}
	g.tetris.dropCounter = 0
}

func (g *Game) listen(exited chan struct{}) {
	defer close(exited)
	g.ticker.Reset(g.frame)
	for {
		select {
		case now := <-g.ticker.C():
			g.tetris.mu.Lock()
			var delta time.Duration
			if !g.lastTick.IsZero() {
				delta = now.Sub(g.lastTick)
			}
			g.lastTick = now
			// nothing moves while paused or over, so there is nothing to publish.
			if !g.tetris.playing() {
				g.tetris.mu.Unlock()
				continue
			}
			g.tick(delta)
		case c := <-g.actionCh:
			g.tetris.mu.Lock()
			g.dispatch(c)
		case <-g.doneCh:
			return
		}
		g.publish(g.tetris.copy())
		g.tetris.mu.Unlock()
	}
}

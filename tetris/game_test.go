package tetris_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"blockdrop/tetris"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockListener struct {
	mu       sync.Mutex
	lines    []int
	gameOver []int
}

func (m *mockListener) LinesCleared(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lines = append(m.lines, n)
}

func (m *mockListener) GameOver(score int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gameOver = append(m.gameOver, score)
}

type mockHighScores struct {
	score    int
	recorded []int
	err      error
}

func (m *mockHighScores) Get() (int, error) { return m.score, m.err }
func (m *mockHighScores) Record(s int) error {
	m.recorded = append(m.recorded, s)
	return m.err
}

func TestSettleOPiece(t *testing.T) {
	game, _ := tetris.NewTestGame(tetris.NewTestTetris(tetris.O), nil)
	require.Equal(t, 4, game.Read().Tetromino.X)

	// 18 ticks bring the piece to the floor, the 19th settles it.
	for range 19 {
		game.Tick(1001 * time.Millisecond)
	}

	want := tetris.Stack{}
	for _, y := range []int{18, 19} {
		for _, x := range []int{4, 5} {
			want[y][x] = 2
		}
	}
	got := game.Read()
	assert.Equal(t, want, got.Stack)
	assert.Zero(t, got.Score)
	assert.Equal(t, 0, got.Tetromino.Y, "next piece spawned at the top")
}

func TestClearLineWithI(t *testing.T) {
	tts := tetris.NewTestTetris(tetris.I)
	for x := range 9 {
		tts.Stack[19][x] = tetris.J.Cell()
	}
	listener := &mockListener{}
	game, _ := tetris.NewTestGame(tts, &tetris.Options{Listener: listener})

	for range 5 {
		game.Dispatch(tetris.MoveRight)
	}
	require.Equal(t, 8, game.Read().Tetromino.X)
	game.Dispatch(tetris.HardDrop)

	got := game.Read()
	assert.Equal(t, []int{1}, listener.lines)
	assert.Equal(t, 50, got.Score)
	assert.Equal(t, 1, got.LinesClear)
	for x := range 9 {
		assert.Equal(t, tetris.Empty, got.Stack[19][x])
	}
	// the three remaining cells of the I fell one row.
	for _, y := range []int{17, 18, 19} {
		assert.Equal(t, tetris.I.Cell(), got.Stack[y][9])
	}
	assert.Equal(t, tetris.Empty, got.Stack[16][9])
}

func TestGameOver(t *testing.T) {
	tts := tetris.NewTestTetris(tetris.O)
	tts.Stack[2][4] = tetris.T.Cell()
	tts.Score = 300
	tts.HighScore = 100
	listener := &mockListener{}
	scores := &mockHighScores{}
	game, _ := tetris.NewTestGame(tts, &tetris.Options{Listener: listener, HighScores: scores})

	// the O settles on rows 0-1 and the next O has nowhere to spawn.
	game.Dispatch(tetris.SoftDrop)
	got := game.Read()
	require.True(t, got.GameOver)
	assert.Equal(t, []int{300}, listener.gameOver)
	assert.Equal(t, []int{300}, scores.recorded)
	assert.Equal(t, 300, got.HighScore)

	t.Run("ticks and commands are ignored", func(t *testing.T) {
		before := game.Read()
		game.Tick(5 * time.Second)
		game.Dispatch(tetris.HardDrop)
		game.Dispatch(tetris.MoveLeft)
		after := game.Read()
		assert.Equal(t, before.Stack, after.Stack)
		assert.Equal(t, before.Tetromino, after.Tetromino)
		assert.Len(t, listener.gameOver, 1)
	})

	t.Run("a new round clears the stack and score", func(t *testing.T) {
		scores.score = 300
		game.NewRound()
		got := game.Read()
		assert.False(t, got.GameOver)
		assert.Equal(t, tetris.Stack{}, got.Stack)
		assert.Zero(t, got.Score)
		assert.Equal(t, 300, got.HighScore)
	})
}

func TestGameOverKeepsHighScore(t *testing.T) {
	tts := tetris.NewTestTetris(tetris.O)
	tts.Stack[2][4] = tetris.T.Cell()
	tts.Score = 50
	tts.HighScore = 900
	scores := &mockHighScores{}
	game, _ := tetris.NewTestGame(tts, &tetris.Options{HighScores: scores})

	game.Dispatch(tetris.SoftDrop)
	assert.True(t, game.Read().GameOver)
	assert.Empty(t, scores.recorded)
	assert.Equal(t, 900, game.Read().HighScore)
}

func TestHighScoreErrors(t *testing.T) {
	scores := &mockHighScores{score: 10, err: errors.New("disk on fire")}
	game, _ := tetris.NewTestGame(nil, &tetris.Options{HighScores: scores})
	game.NewRound()
	assert.True(t, game.Read().Started, "a failing store doesn't stop the game")
}

func TestPause(t *testing.T) {
	game, _ := tetris.NewTestGame(tetris.NewTestTetris(tetris.T), nil)
	game.Dispatch(tetris.Pause)
	require.True(t, game.Read().Paused)

	game.Tick(5 * time.Second)
	game.Dispatch(tetris.MoveLeft)
	game.Dispatch(tetris.HardDrop)
	got := game.Read()
	assert.Equal(t, 0, got.Tetromino.Y)
	assert.Equal(t, 4, got.Tetromino.X)
	assert.Equal(t, tetris.Stack{}, got.Stack)

	game.Dispatch(tetris.Resume)
	assert.False(t, game.Read().Paused)
	game.Dispatch(tetris.MoveLeft)
	assert.Equal(t, 3, game.Read().Tetromino.X)
	game.Tick(1001 * time.Millisecond)
	assert.Equal(t, 1, game.Read().Tetromino.Y, "resumes from the retained state")
}

func TestCommandsBeforeStart(t *testing.T) {
	game, _ := tetris.NewTestGame(nil, nil)
	for _, c := range []tetris.Command{
		tetris.MoveLeft, tetris.MoveRight, tetris.SoftDrop, tetris.HardDrop,
		tetris.Rotate, tetris.Pause, tetris.Resume,
	} {
		assert.NotPanics(t, func() { game.Dispatch(c) }, c.String())
	}
	game.Tick(time.Hour)
	assert.False(t, game.Read().Started)
	assert.Nil(t, game.Read().Tetromino)
}

func TestOperatorControls(t *testing.T) {
	t.Run("level is clamped", func(t *testing.T) {
		game, _ := tetris.NewTestGame(tetris.NewTestTetris(tetris.T), nil)
		game.SetLevel(12)
		assert.Equal(t, 10, game.Read().Speed.Level)
		assert.Equal(t, 100*time.Millisecond, game.Read().Speed.Interval)
		game.SetLevel(-3)
		assert.Equal(t, 1, game.Read().Speed.Level)
		assert.Equal(t, time.Second, game.Read().Speed.Interval)
	})

	t.Run("interval has a floor", func(t *testing.T) {
		game, _ := tetris.NewTestGame(tetris.NewTestTetris(tetris.T), nil)
		game.SetInterval(10 * time.Millisecond)
		assert.Equal(t, 50*time.Millisecond, game.Read().Speed.Interval)
		game.SetInterval(300 * time.Millisecond)
		assert.Equal(t, 300*time.Millisecond, game.Read().Speed.Interval)
		game.Tick(301 * time.Millisecond)
		assert.Equal(t, 1, game.Read().Tetromino.Y)
	})

	t.Run("speed changes restart the fall timer", func(t *testing.T) {
		game, _ := tetris.NewTestGame(tetris.NewTestTetris(tetris.T), nil)
		game.Tick(900 * time.Millisecond)
		game.SetLevel(2)
		game.Tick(800 * time.Millisecond)
		assert.Equal(t, 0, game.Read().Tetromino.Y)
		game.Tick(101 * time.Millisecond)
		assert.Equal(t, 1, game.Read().Tetromino.Y)
	})

	t.Run("difficulty presets", func(t *testing.T) {
		game, _ := tetris.NewTestGame(tetris.NewTestTetris(tetris.T), nil)
		game.SetDifficulty(tetris.Medium)
		got := game.Read()
		assert.Equal(t, 7, got.Speed.Level)
		assert.Equal(t, 400*time.Millisecond, got.Speed.Interval)
		assert.False(t, got.Ghost)

		game.SetDifficulty(tetris.Easy)
		got = game.Read()
		assert.Equal(t, 1, got.Speed.Level)
		assert.True(t, got.Ghost)

		game.SetGhost(false)
		assert.False(t, game.Read().Ghost)
	})
}

func TestRead(t *testing.T) {
	game, _ := tetris.NewTestGame(tetris.NewTestTetris(tetris.T), nil)
	snapshot := game.Read()
	snapshot.Stack[0][0] = 7
	snapshot.Tetromino.Grid[0][0] = 7
	snapshot.Tetromino.X = 9

	got := game.Read()
	assert.Equal(t, tetris.Empty, got.Stack[0][0])
	assert.Equal(t, tetris.Empty, got.Tetromino.Grid[0][0])
	assert.Equal(t, 4, got.Tetromino.X)
}

func TestStartStop(t *testing.T) {
	game, ticker := tetris.NewTestGame(nil, &tetris.Options{HighScores: &mockHighScores{score: 1000}})
	updates := game.GetUpdate()

	// actions before the loop runs are dropped.
	game.Action(tetris.HardDrop)

	game.Start()
	u := <-updates
	require.True(t, u.Started)
	require.NotNil(t, u.Tetromino)
	assert.Equal(t, 1000, u.HighScore)
	assert.Equal(t, tetris.Stack{}, u.Stack)

	base := time.Now()
	ticker.Tick(base)
	u = <-updates
	assert.Equal(t, 0, u.Tetromino.Y, "the first tick only starts the clock")
	assert.True(t, ticker.IsReset())

	ticker.Tick(base.Add(1001 * time.Millisecond))
	u = <-updates
	assert.Equal(t, 1, u.Tetromino.Y)

	game.Action(tetris.Pause)
	u = <-updates
	assert.True(t, u.Paused)

	ticker.Tick(base.Add(5 * time.Second))
	game.Action(tetris.Resume)
	u = <-updates
	assert.False(t, u.Paused)
	assert.Equal(t, 1, u.Tetromino.Y, "paused games don't fall")

	t.Run("starting again begins a new game on the same loop", func(t *testing.T) {
		game.Action(tetris.HardDrop)
		u := <-updates
		require.NotEqual(t, tetris.Stack{}, u.Stack)

		game.Start()
		u = <-updates
		assert.Equal(t, tetris.Stack{}, u.Stack)
		assert.Zero(t, u.Score)
	})

	game.Stop()
	assert.True(t, ticker.IsStop())
	assert.NotPanics(t, func() { game.Action(tetris.MoveLeft) })
}

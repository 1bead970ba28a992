package client

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"

	"blockdrop/tetris"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func emptyRendered() [tetris.Rows][tetris.Cols]string {
	want := [tetris.Rows][tetris.Cols]string{}
	for y := range want {
		for x := range want[y] {
			want[y][x] = "  "
		}
	}
	return want
}

func TestLocalStack(t *testing.T) {
	blueCell := "\x1b[7m\x1b[34m[]\x1b[0m"
	redCell := "\x1b[7m\x1b[31m[]\x1b[0m"

	t.Run("renders stack, tetromino and ghost", func(t *testing.T) {
		tts := tetris.NewTestTetris(tetris.J)
		tts.Stack[19][0] = tetris.Z.Cell()
		want := emptyRendered()
		want[0][4] = blueCell
		want[1][4] = blueCell
		want[1][5] = blueCell
		want[1][6] = blueCell
		want[18][4] = "[]"
		want[19][4] = "[]"
		want[19][5] = "[]"
		want[19][6] = "[]"
		want[19][0] = redCell
		assert.Equal(t, want, localStack(&templateData{Local: tts}))
	})

	t.Run("ghost can be turned off", func(t *testing.T) {
		tts := tetris.NewTestTetris(tetris.J)
		tts.Ghost = false
		want := emptyRendered()
		want[0][4] = blueCell
		want[1][4] = blueCell
		want[1][5] = blueCell
		want[1][6] = blueCell
		assert.Equal(t, want, localStack(&templateData{Local: tts}))
	})

	t.Run("localStack with nil tetris returns empty spaces", func(t *testing.T) {
		assert.Equal(t, emptyRendered(), localStack(nil))
		assert.Equal(t, emptyRendered(), localStack(&templateData{}))
	})
}

func TestNextPiece(t *testing.T) {
	blue := "\x1b[7m\x1b[34m[]\x1b[0m"
	yellow := "\x1b[7m\x1b[33m[]\x1b[0m"
	cyan := "\x1b[7m\x1b[36m[]\x1b[0m"
	empty := "        "
	tests := []struct {
		shape tetris.Shape
		want  []string
	}{
		{tetris.J, []string{blue + "      ", blue + blue + blue + "  ", empty, empty}},
		{tetris.O, []string{yellow + yellow + "    ", yellow + yellow + "    ", empty, empty}},
		{tetris.I, []string{"  " + cyan + "    ", "  " + cyan + "    ", "  " + cyan + "    ", "  " + cyan + "    "}},
	}
	for _, tt := range tests {
		t.Run(string(tt.shape), func(t *testing.T) {
			td := &templateData{Local: tetris.NewTestTetris(tt.shape)}
			assert.Equal(t, tt.want, nextPiece(td))
		})
	}
	t.Run("nextPiece with nil tetris returns empty spaces", func(t *testing.T) {
		assert.Equal(t, []string{empty, empty, empty, empty}, nextPiece(nil))
	})
}

func TestSide(t *testing.T) {
	tts := tetris.NewTestTetris(tetris.T)
	tts.Score = 450
	tts.HighScore = 300
	tts.LinesClear = 3
	td := &templateData{Local: tts}

	tests := []struct {
		row  int
		want string
	}{
		{0, "  NEXT"},
		{5, ""},
		{7, "  450"},
		{10, "  450"},
		{13, "  3"},
		{16, "  1 (1000ms)"},
		{18, "  ghost on "},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, side(tt.row, td), "row %d", tt.row)
	}
	assert.Equal(t, "  -", side(7, nil))
}

func TestRender(t *testing.T) {
	var buf bytes.Buffer
	r, err := newRender(slog.New(slog.DiscardHandler), &buf, "Blockdrop")
	require.NoError(t, err)

	t.Run("empty frame", func(t *testing.T) {
		buf.Reset()
		r.local(nil)
		out := buf.String()
		assert.True(t, strings.HasPrefix(out, resetPos))
		assert.Contains(t, out, "Blockdrop")
		assert.Equal(t, tetris.Rows+4, strings.Count(out, "\r\n"))
	})

	t.Run("game frame", func(t *testing.T) {
		buf.Reset()
		tts := tetris.NewTestTetris(tetris.T)
		tts.Speed.Interval = 400 * time.Millisecond
		r.local(tts)
		out := buf.String()
		assert.Contains(t, out, "\x1b[7m\x1b[35m[]\x1b[0m")
		assert.Contains(t, out, "SCORE")
		assert.Contains(t, out, "(400ms)")
	})

	t.Run("lobby box", func(t *testing.T) {
		buf.Reset()
		r.lobby(defaultLobby())
		out := buf.String()
		assert.Contains(t, out, "Welcome to Blockdrop")
		assert.Contains(t, out, "\033[9;4H+------")
	})
}

func TestGameOverMessage(t *testing.T) {
	assert.Equal(t, "score 50", gameOver(50, 900)[1])
	assert.Equal(t, "new high score 900!", gameOver(900, 900)[1])
	assert.Equal(t, "score 0", gameOver(0, 0)[1])
}

func TestCenter(t *testing.T) {
	assert.Equal(t, "  ab  ", center("ab", 6))
	assert.Equal(t, " ab  ", center("ab", 5))
	assert.Equal(t, "abc", center("abcdef", 3))
}

package client

import (
	_ "embed"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"text/template"

	"blockdrop/tetris"
)

const (
	// ASCII colors.
	Cyan    = "36"
	Blue    = "34"
	Orange  = "38;5;214"
	Yellow  = "33"
	Green   = "32"
	Red     = "31"
	Magenta = "35"

	resetPos    = "\033[H"      // Reset cursor position to 0,0
	clearScreen = "\033[2J\033[H" // Clear the screen and reset the cursor
	emptyCell   = "  "
	ghostCell   = "[]"

	// the lobby box is drawn over the middle of the board.
	lobbyRow = 9
	lobbyCol = 4
)

//go:embed "layout.tmpl"
var layout string

var colorMap = map[tetris.Shape]string{
	tetris.I: Cyan,
	tetris.J: Blue,
	tetris.L: Orange,
	tetris.O: Yellow,
	tetris.S: Green,
	tetris.Z: Red,
	tetris.T: Magenta,
}

type templateData struct {
	Local *tetris.Tetris
	Title string
}

type render struct {
	writer   io.Writer
	logger   *slog.Logger
	template *template.Template
	*templateData
}

func newRender(l *slog.Logger, w io.Writer, title string) (*render, error) {
	tmp, err := loadTemplate()
	if err != nil {
		return nil, fmt.Errorf("failed to load template: %w", err)
	}
	if w == nil {
		w = os.Stdout
	}
	return &render{
		writer:       w,
		logger:       l,
		template:     tmp,
		templateData: &templateData{Title: title},
	}, nil
}

// local draws the game. A nil game draws the empty frame.
func (r *render) local(t *tetris.Tetris) {
	r.templateData.Local = t
	fmt.Fprint(r.writer, resetPos)
	if err := r.template.Execute(r.writer, r.templateData); err != nil {
		r.logger.Error("unable to execute template in local()", slog.String("error", err.Error()))
	}
}

// lobby draws a message box over the board.
func (r *render) lobby(lines []string) {
	const width = 40
	border := "+" + strings.Repeat("-", width-2) + "+"
	fmt.Fprintf(r.writer, "\033[%d;%dH%s", lobbyRow, lobbyCol, border)
	for i, l := range lines {
		fmt.Fprintf(r.writer, "\033[%d;%dH|%s|", lobbyRow+1+i, lobbyCol, center(l, width-2))
	}
	fmt.Fprintf(r.writer, "\033[%d;%dH%s", lobbyRow+1+len(lines), lobbyCol, border)
}

func (r *render) reset() {
	fmt.Fprint(r.writer, clearScreen)
}

func defaultLobby() []string {
	return []string{
		"Welcome to Blockdrop",
		"",
		"(e)asy   (m)edium   (q)uit",
	}
}

func gameOver(score, highScore int) []string {
	msg := fmt.Sprintf("score %d", score)
	if score > 0 && score >= highScore {
		msg = fmt.Sprintf("new high score %d!", score)
	}
	return []string{
		"Game Over",
		msg,
		"(e)asy   (m)edium   (q)uit",
	}
}

func paused() []string {
	return []string{
		"Paused",
		"",
		"(p) resume   (esc) lobby",
	}
}

func center(s string, width int) string {
	if len(s) >= width {
		return s[:width]
	}
	left := (width - len(s)) / 2
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", width-len(s)-left)
}

func loadTemplate() (*template.Template, error) {
	funcMap := template.FuncMap{
		"localStack": localStack,
		"side":       side,
	}

	// we use the console raw so new lines don't automatically transform into carriage return
	// to fix that we add a carriage return to every new line in the layout.
	// lines are cleared to the end so shorter values don't leave old digits behind.
	l := strings.ReplaceAll(layout, "\n", "\033[K\r\n")
	return template.New("layout").Funcs(funcMap).Parse(l)
}

func block(s tetris.Shape) string {
	return fmt.Sprintf("\x1b[7m\x1b[%sm[]\x1b[0m", colorMap[s])
}

func localStack(t *templateData) [tetris.Rows][tetris.Cols]string {
	rendered := [tetris.Rows][tetris.Cols]string{}
	for y := range rendered {
		for x := range rendered[y] {
			rendered[y][x] = emptyCell
		}
	}
	if t == nil || t.Local == nil {
		return rendered
	}

	// renders the stack
	for y, row := range t.Local.Stack {
		for x, c := range row {
			if s, ok := tetris.ShapeOf(c); ok {
				rendered[y][x] = block(s)
			}
		}
	}

	// renders the ghost and the current tetromino if they exist
	tt := t.Local.Tetromino
	if tt == nil {
		return rendered
	}
	draw := func(y int, cell string) {
		for iy, r := range tt.Grid {
			for ix, c := range r {
				row, col := y+iy, tt.X+ix
				if c == tetris.Empty || row < 0 || row >= tetris.Rows || col < 0 || col >= tetris.Cols {
					continue
				}
				rendered[row][col] = cell
			}
		}
	}
	if t.Local.Ghost && !t.Local.GameOver {
		draw(tt.GhostY, ghostCell)
	}
	draw(tt.Y, block(tt.Shape))
	return rendered
}

// nextPiece renders the next tetromino in a 4x4 box.
func nextPiece(t *templateData) []string {
	rendered := make([]string, 4)
	for i := range rendered {
		rendered[i] = strings.Repeat(emptyCell, 4)
	}
	if t == nil || t.Local == nil || t.Local.NextTetromino == nil {
		return rendered
	}
	next := t.Local.NextTetromino
	for iy, r := range next.Grid {
		row := []string{emptyCell, emptyCell, emptyCell, emptyCell}
		for ix, c := range r {
			if c != tetris.Empty && ix < len(row) {
				row[ix] = block(next.Shape)
			}
		}
		if iy < len(rendered) {
			rendered[iy] = strings.Join(row, "")
		}
	}
	return rendered
}

// side returns the text printed to the right of board row i.
func side(i int, t *templateData) string {
	var local *tetris.Tetris
	if t != nil {
		local = t.Local
	}
	value := func(f func(*tetris.Tetris) string) string {
		if local == nil {
			return "-"
		}
		return f(local)
	}
	switch i {
	case 0:
		return "  NEXT"
	case 1, 2, 3, 4:
		return "  " + nextPiece(t)[i-1]
	case 6:
		return "  SCORE"
	case 7:
		return "  " + value(func(l *tetris.Tetris) string { return fmt.Sprint(l.Score) })
	case 9:
		return "  HIGH SCORE"
	case 10:
		return "  " + value(func(l *tetris.Tetris) string { return fmt.Sprint(max(l.HighScore, l.Score)) })
	case 12:
		return "  LINES"
	case 13:
		return "  " + value(func(l *tetris.Tetris) string { return fmt.Sprint(l.LinesClear) })
	case 15:
		return "  LEVEL"
	case 16:
		return "  " + value(func(l *tetris.Tetris) string {
			return fmt.Sprintf("%d (%dms)", l.Speed.Level, l.Speed.Interval.Milliseconds())
		})
	case 18:
		return "  " + value(func(l *tetris.Tetris) string {
			if l.Ghost {
				return "ghost on "
			}
			return "ghost off"
		})
	}
	return ""
}

package server

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"blockdrop/tetris"

	"google.golang.org/protobuf/types/known/structpb"
)

var ErrBadSnapshot = errors.New("bad snapshot")

// toProto encodes the parts of a game a spectator renders. Rows are strings
// of cell digits, top row first.
func toProto(t *tetris.Tetris) (*structpb.Struct, error) {
	rows := make([]any, tetris.Rows)
	for y := range t.Stack {
		rows[y] = cellsToString(t.Stack[y][:])
	}
	fields := map[string]any{
		"stack":       rows,
		"score":       t.Score,
		"high_score":  t.HighScore,
		"lines":       t.LinesClear,
		"level":       t.Speed.Level,
		"interval_ms": t.Speed.Interval.Milliseconds(),
		"started":     t.Started,
		"paused":      t.Paused,
		"game_over":   t.GameOver,
		"ghost":       t.Ghost,
	}
	if t.Tetromino != nil {
		fields["tetromino"] = tetrominoToMap(t.Tetromino)
	}
	if t.NextTetromino != nil {
		fields["next"] = tetrominoToMap(t.NextTetromino)
	}
	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return s, nil
}

func tetrominoToMap(t *tetris.Tetromino) map[string]any {
	grid := make([]any, len(t.Grid))
	for i, r := range t.Grid {
		grid[i] = cellsToString(r)
	}
	return map[string]any{
		"shape":   string(t.Shape),
		"x":       t.X,
		"y":       t.Y,
		"ghost_y": t.GhostY,
		"grid":    grid,
	}
}

// FromProto decodes a snapshot sent by the spectator service.
func FromProto(s *structpb.Struct) (*tetris.Tetris, error) {
	f := s.GetFields()
	t := &tetris.Tetris{
		Score:      int(f["score"].GetNumberValue()),
		HighScore:  int(f["high_score"].GetNumberValue()),
		LinesClear: int(f["lines"].GetNumberValue()),
		Speed: tetris.Speed{
			Level:    int(f["level"].GetNumberValue()),
			Interval: time.Duration(f["interval_ms"].GetNumberValue()) * time.Millisecond,
		},
		Started:  f["started"].GetBoolValue(),
		Paused:   f["paused"].GetBoolValue(),
		GameOver: f["game_over"].GetBoolValue(),
		Ghost:    f["ghost"].GetBoolValue(),
	}

	rows := f["stack"].GetListValue().GetValues()
	if len(rows) != tetris.Rows {
		return nil, fmt.Errorf("%w: %d rows", ErrBadSnapshot, len(rows))
	}
	for y, r := range rows {
		cells, err := stringToCells(r.GetStringValue())
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", y, err)
		}
		if len(cells) != tetris.Cols {
			return nil, fmt.Errorf("%w: row %d has %d cells", ErrBadSnapshot, y, len(cells))
		}
		copy(t.Stack[y][:], cells)
	}

	var err error
	if v, ok := f["tetromino"]; ok {
		if t.Tetromino, err = tetrominoFromProto(v.GetStructValue()); err != nil {
			return nil, fmt.Errorf("tetromino: %w", err)
		}
	}
	if v, ok := f["next"]; ok {
		if t.NextTetromino, err = tetrominoFromProto(v.GetStructValue()); err != nil {
			return nil, fmt.Errorf("next tetromino: %w", err)
		}
	}
	return t, nil
}

func tetrominoFromProto(s *structpb.Struct) (*tetris.Tetromino, error) {
	f := s.GetFields()
	rows := f["grid"].GetListValue().GetValues()
	grid := make(tetris.Matrix, len(rows))
	for i, r := range rows {
		cells, err := stringToCells(r.GetStringValue())
		if err != nil {
			return nil, err
		}
		if len(cells) != len(rows) {
			return nil, fmt.Errorf("%w: grid is not square", ErrBadSnapshot)
		}
		grid[i] = cells
	}
	return &tetris.Tetromino{
		Shape:  tetris.Shape(f["shape"].GetStringValue()),
		Grid:   grid,
		X:      int(f["x"].GetNumberValue()),
		Y:      int(f["y"].GetNumberValue()),
		GhostY: int(f["ghost_y"].GetNumberValue()),
	}, nil
}

func cellsToString(cells []tetris.Cell) string {
	var b strings.Builder
	for _, c := range cells {
		b.WriteByte('0' + byte(c))
	}
	return b.String()
}

func stringToCells(s string) ([]tetris.Cell, error) {
	cells := make([]tetris.Cell, len(s))
	for i := range len(s) {
		if s[i] < '0' || s[i] > '7' {
			return nil, fmt.Errorf("%w: unexpected cell %q", ErrBadSnapshot, s[i])
		}
		cells[i] = tetris.Cell(s[i] - '0')
	}
	return cells, nil
}

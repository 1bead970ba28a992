package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net"
	"os"
	"time"

	"blockdrop/client"
	"blockdrop/highscore"
	"blockdrop/server"
	"blockdrop/tetris"

	"golang.org/x/term"
	"google.golang.org/grpc"
)

const (
	hideCursor = "\033[2J\033[?25l" // also clear screen
	showCursor = "\033[26;0H\n\r\033[?25h"

	// the board, the side panel and the help line must fit.
	minCols = 72
	minRows = 26
)

type config struct {
	level     int
	interval  time.Duration
	noGhost   bool
	highScore string
	spectate  string
	logFile   string
	debug     bool
}

func parseFlags() *config {
	c := &config{}
	flag.IntVar(&c.level, "level", 0, "override the starting level of both presets (1-10)")
	flag.DurationVar(&c.interval, "interval", 0, "override the fall interval of both presets, e.g. 300ms")
	flag.BoolVar(&c.noGhost, "noghost", false, "start with the ghost piece hidden")
	flag.StringVar(&c.highScore, "highscore", "", "high score file (default under the user config dir)")
	flag.StringVar(&c.spectate, "spectate", "", "serve the game to spectators on this address, e.g. :9000")
	flag.StringVar(&c.logFile, "log", os.DevNull, "log file")
	flag.BoolVar(&c.debug, "debug", false, "enable debug logs")
	flag.Parse()
	return c
}

// scoreLog logs the game events no screen shows.
type scoreLog struct {
	logger *slog.Logger
}

func (s scoreLog) LinesCleared(n int) {
	s.logger.Debug("lines cleared", slog.Int("lines", n))
}

func (s scoreLog) GameOver(score int) {
	s.logger.Info("game over", slog.Int("score", score))
}

// operatorGame keeps the level and interval chosen on the command line
// across the lobby's difficulty presets and new games.
type operatorGame struct {
	*tetris.Game
	level    int
	interval time.Duration
}

func (g operatorGame) SetDifficulty(d tetris.Difficulty) {
	g.Game.SetDifficulty(d)
	if g.level > 0 {
		g.SetLevel(g.level)
	}
}

// Start resets the speed, so the interval is applied after it.
func (g operatorGame) Start() {
	g.Game.Start()
	if g.interval > 0 {
		g.SetInterval(g.interval)
	}
}

func main() {
	cfg := parseFlags()

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		log.Fatal("blockdrop needs an interactive terminal")
	}
	if w, h, err := term.GetSize(int(os.Stdout.Fd())); err == nil && (w < minCols || h < minRows) {
		log.Fatalf("terminal too small: %dx%d, need at least %dx%d", w, h, minCols, minRows)
	}

	logger, closeLog, err := newLogger(cfg.logFile, cfg.debug)
	if err != nil {
		log.Fatal(err)
	}
	defer closeLog()

	path := cfg.highScore
	if path == "" {
		if path, err = highscore.DefaultPath(); err != nil {
			log.Fatal(err)
		}
	}

	game := tetris.NewGame(&tetris.Options{
		HighScores: highscore.NewFile(path),
		Listener:   scoreLog{logger: logger},
		Logger:     logger,
		Level:      cfg.level,
		NoGhost:    cfg.noGhost,
	})
	if cfg.level < 0 || cfg.level > tetris.MaxLevel {
		log.Fatalf("level must be between %d and %d", tetris.MinLevel, tetris.MaxLevel)
	}

	opts := &client.Options{Title: "BLOCKDROP", NoGhost: cfg.noGhost}
	if cfg.spectate != "" {
		spectator, stop, err := serveSpectators(logger, cfg.spectate)
		if err != nil {
			log.Fatal(err)
		}
		defer stop()
		opts.Publisher = spectator
	}

	c, err := client.New(logger, operatorGame{Game: game, level: cfg.level, interval: cfg.interval}, opts)
	if err != nil {
		log.Fatal(err)
	}
	defer c.Close()

	fmt.Print(hideCursor)
	defer fmt.Print(showCursor)
	c.Start()
}

func newLogger(path string, debug bool) (*slog.Logger, func(), error) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	var w io.Writer = io.Discard
	closeFn := func() {}
	if path != os.DevNull {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		w = f
		closeFn = func() { f.Close() }
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})), closeFn, nil
}

func serveSpectators(l *slog.Logger, addr string) (*server.Spectator, func(), error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to listen: %w", err)
	}
	s := grpc.NewServer()
	spectator := server.New(l)
	server.Register(s, spectator)
	go func() {
		l.Info("serving spectators", slog.String("addr", lis.Addr().String()))
		if err := s.Serve(lis); err != nil {
			l.Error("spectator server stopped", slog.String("error", err.Error()))
		}
	}()
	return spectator, func() {
		spectator.Close()
		s.GracefulStop()
	}, nil
}

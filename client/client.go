// Package client runs the game in a terminal: keyboard input in, ANSI frames out.
package client

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"blockdrop/tetris"

	"github.com/eiannone/keyboard"
)

type clientState int

const (
	lobby clientState = iota
	playing
	pausedState
)

type state struct {
	current clientState
	ghost   bool
	mu      sync.Mutex
}

func (s *state) get() clientState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *state) set(c clientState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = c
}

// toggleGhost flips the ghost flag and returns the new value.
func (s *state) toggleGhost() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ghost = !s.ghost
	return s.ghost
}

func (s *state) setGhost(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ghost = on
}

type tetrisGame interface {
	Start()
	Stop()
	GetUpdate() <-chan *tetris.Tetris
	Action(tetris.Command)
	SetDifficulty(tetris.Difficulty)
	SetGhost(bool)
}

type renderer interface {
	local(*tetris.Tetris)
	lobby([]string)
	reset()
}

// Publisher receives every snapshot the client draws.
type Publisher interface {
	Publish(*tetris.Tetris)
}

type Client struct {
	tetris    tetrisGame
	render    renderer
	publisher Publisher
	logger    *slog.Logger
	kbCh      <-chan keyboard.KeyEvent
	state     *state
	doneCh    chan struct{}
}

type Options struct {
	Title     string
	Writer    io.Writer
	Publisher Publisher
	NoGhost   bool
}

func New(l *slog.Logger, g tetrisGame, o *Options) (*Client, error) {
	r, err := newRender(l, o.Writer, o.Title)
	if err != nil {
		return nil, fmt.Errorf("failed to load renderer: %w", err)
	}
	kb, err := keyboard.GetKeys(20)
	if err != nil {
		return nil, fmt.Errorf("failed to open keyboard: %w", err)
	}
	return &Client{
		tetris:    g,
		render:    r,
		publisher: o.Publisher,
		logger:    l,
		kbCh:      kb,
		state:     &state{current: lobby, ghost: !o.NoGhost},
		doneCh:    make(chan struct{}),
	}, nil
}

// Start shows the lobby and blocks until the player quits.
func (c *Client) Start() {
	c.render.reset()
	c.render.local(nil)
	c.render.lobby(defaultLobby())
	go c.listenTetris()
	c.listenKB()
	close(c.doneCh)
	c.tetris.Stop()
}

// Close releases the keyboard.
func (c *Client) Close() error {
	return keyboard.Close()
}

func (c *Client) listenKB() {
	for {
		event, ok := <-c.kbCh
		if !ok {
			c.logger.Error("Keyboard events channel closed unexpectedly")
			return
		}
		if event.Err != nil {
			c.logger.Error("keysEvents error", slog.String("error", event.Err.Error()))
			return
		}
		if event.Key == keyboard.KeyCtrlC {
			return
		}
		switch c.state.get() {
		case lobby:
			switch event.Rune {
			case 'e':
				c.newGame(tetris.Easy)
			case 'm':
				c.newGame(tetris.Medium)
			case 'q':
				return
			}
		case pausedState:
			switch {
			case event.Rune == 'p':
				c.state.set(playing)
				c.tetris.Action(tetris.Resume)
			case event.Key == keyboard.KeyEsc:
				c.toLobby()
			}
		case playing:
			switch {
			case event.Rune == 'p':
				c.state.set(pausedState)
				c.tetris.Action(tetris.Pause)
			case event.Rune == 'g':
				c.tetris.SetGhost(c.state.toggleGhost())
			case event.Key == keyboard.KeyEsc:
				c.toLobby()
			default:
				if a, ok := command(event); ok {
					c.tetris.Action(a)
				}
			}
		}
	}
}

// command maps a key to a game command.
func command(event keyboard.KeyEvent) (tetris.Command, bool) {
	switch {
	case event.Key == keyboard.KeyArrowDown || event.Rune == 's':
		return tetris.SoftDrop, true
	case event.Key == keyboard.KeyArrowLeft || event.Rune == 'a':
		return tetris.MoveLeft, true
	case event.Key == keyboard.KeyArrowRight || event.Rune == 'd':
		return tetris.MoveRight, true
	case event.Key == keyboard.KeyArrowUp || event.Rune == 'w' || event.Rune == 'q':
		return tetris.Rotate, true
	case event.Key == keyboard.KeySpace:
		return tetris.HardDrop, true
	}
	return 0, false
}

func (c *Client) newGame(d tetris.Difficulty) {
	c.logger.Debug("starting game", slog.String("difficulty", string(d)))
	c.tetris.SetDifficulty(d)
	c.state.setGhost(d == tetris.Easy)
	c.state.set(playing)
	c.render.reset()
	c.tetris.Start()
}

// toLobby pauses the game behind the lobby. Starting a game from there
// begins a new one.
func (c *Client) toLobby() {
	c.state.set(lobby)
	c.tetris.Action(tetris.Pause)
	c.render.lobby(defaultLobby())
}

func (c *Client) listenTetris() {
	updates := c.tetris.GetUpdate()
	for {
		select {
		case u := <-updates:
			if c.publisher != nil {
				c.publisher.Publish(u)
			}
			if c.state.get() == lobby {
				// the game left running behind the lobby isn't drawn.
				continue
			}
			c.render.local(u)
			switch {
			case u.GameOver:
				c.state.set(lobby)
				c.render.lobby(gameOver(u.Score, u.HighScore))
			case u.Paused:
				c.render.lobby(paused())
			}
		case <-c.doneCh:
			return
		}
	}
}

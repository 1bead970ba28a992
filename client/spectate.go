package client

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"blockdrop/tetris"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type snapshotSource interface {
	Recv() (*tetris.Tetris, error)
}

// Spectate draws the snapshots of a remote game as they arrive. It returns
// once the game stops publishing or the stream is canceled.
func Spectate(l *slog.Logger, src snapshotSource, o *Options) error {
	r, err := newRender(l, o.Writer, o.Title)
	if err != nil {
		return fmt.Errorf("failed to load renderer: %w", err)
	}
	r.reset()
	r.local(nil)
	r.lobby(waiting())
	for {
		t, err := src.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				l.Debug("spectator stream closed with EOF")
				r.lobby(ended())
				return nil
			}
			st, ok := status.FromError(err)
			if ok && st.Code() == codes.Canceled {
				l.Debug("spectator stream closed with Cancel", slog.String("msg", st.Message()))
				return nil
			}
			return fmt.Errorf("failed to receive snapshot: %w", err)
		}
		r.local(t)
		switch {
		case t.GameOver:
			r.lobby(gameOver(t.Score, t.HighScore))
		case t.Paused:
			r.lobby([]string{"Paused", "", ""})
		case !t.Started:
			r.lobby(waiting())
		}
	}
}

func waiting() []string {
	return []string{"Spectating", "", "waiting for the game to start..."}
}

func ended() []string {
	return []string{"Spectating", "", "the game has ended"}
}

package server

import (
	"context"
	"io"
	"log"
	"log/slog"
	"net"
	"testing"
	"time"

	"blockdrop/tetris"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

func TestSpectatorWatch(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	spectator := New(slog.New(slog.DiscardHandler))
	conn, closer := testServer(spectator)
	defer closer()

	first := tetris.NewTestTetris(tetris.J)
	spectator.Publish(first)

	watcher, err := Watch(ctx, conn)
	require.NoError(t, err)

	t.Run("joining spectators get the latest snapshot", func(t *testing.T) {
		got, err := watcher.Recv()
		require.NoError(t, err)
		assert.Equal(t, first.Stack, got.Stack)
		assert.Equal(t, first.Tetromino, got.Tetromino)
	})

	t.Run("watchers get an id", func(t *testing.T) {
		id, err := watcher.ID()
		require.NoError(t, err)
		_, err = uuid.Parse(id)
		assert.NoError(t, err)
	})

	t.Run("published snapshots are streamed", func(t *testing.T) {
		second := tetris.NewTestTetris(tetris.O)
		second.Stack[19][0] = tetris.T.Cell()
		second.Score = 450
		spectator.Publish(second)
		got, err := watcher.Recv()
		require.NoError(t, err)
		assert.Equal(t, second.Stack, got.Stack)
		assert.Equal(t, 450, got.Score)
		assert.Equal(t, tetris.O, got.Tetromino.Shape)
	})

	t.Run("closing the spectator ends the stream", func(t *testing.T) {
		spectator.Close()
		_, err := watcher.Recv()
		assert.ErrorIs(t, err, io.EOF)
		assert.NotPanics(t, func() { spectator.Publish(tetris.NewTestTetris(tetris.T)) })
	})
}

func TestSnapshot(t *testing.T) {
	tts := tetris.NewTestTetris(tetris.I)
	tts.Stack[19] = [tetris.Cols]tetris.Cell{1, 2, 3, 4, 5, 6, 7, 0, 1, 2}
	tts.Score = 1200
	tts.HighScore = 5000
	tts.LinesClear = 12
	tts.Paused = true

	msg, err := toProto(tts)
	require.NoError(t, err)
	assert.Equal(t, "1234567012", msg.GetFields()["stack"].GetListValue().GetValues()[19].GetStringValue())

	got, err := FromProto(msg)
	require.NoError(t, err)
	assert.Equal(t, tts.Stack, got.Stack)
	assert.Equal(t, tts.Tetromino, got.Tetromino)
	assert.Equal(t, tts.NextTetromino, got.NextTetromino)
	assert.Equal(t, tts.Speed.Level, got.Speed.Level)
	assert.Equal(t, tts.Speed.Interval, got.Speed.Interval)
	assert.Equal(t, 1200, got.Score)
	assert.Equal(t, 5000, got.HighScore)
	assert.Equal(t, 12, got.LinesClear)
	assert.True(t, got.Paused)
	assert.True(t, got.Started)

	t.Run("bad cells are rejected", func(t *testing.T) {
		msg.GetFields()["stack"].GetListValue().GetValues()[3] = structpb.NewStringValue("00000x0000")
		_, err := FromProto(msg)
		assert.ErrorIs(t, err, ErrBadSnapshot)
	})
}

func testServer(s WatchServer) (*grpc.ClientConn, func()) {
	lis := bufconn.Listen(1024 * 1024)
	srv := grpc.NewServer()
	Register(srv, s)
	go func() {
		if err := srv.Serve(lis); err != nil {
			log.Printf("unable to serve: %v", err)
		}
	}()

	conn, err := grpc.NewClient("passthrough:///bufnet", grpc.WithContextDialer(func(context.Context, string) (net.Conn, error) {
		return lis.Dial()
	}), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		log.Printf("error connecting to server: %v", err)
	}

	closer := func() {
		if err := conn.Close(); err != nil {
			log.Printf("error closing client: %v", err)
		}
		srv.Stop()
		if err := lis.Close(); err != nil {
			log.Printf("error closing listener: %v", err)
		}
	}
	return conn, closer
}

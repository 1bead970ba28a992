// Package server streams the state of a running game to spectators over gRPC.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"blockdrop/tetris"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	serviceName  = "blockdrop.Spectator"
	watchMethod  = "/" + serviceName + "/Watch"
	WatcherIDKey = "watcher-id"

	// snapshots queued per spectator before new ones are dropped.
	watcherBuffer = 10
)

// WatchServer is the server API for the spectator service.
type WatchServer interface {
	Watch(*emptypb.Empty, grpc.ServerStream) error
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*WatchServer)(nil),
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Watch",
			Handler:       watchHandler,
			ServerStreams: true,
		},
	},
	Metadata: "spectator",
}

func watchHandler(srv any, stream grpc.ServerStream) error {
	in := &emptypb.Empty{}
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(WatchServer).Watch(in, stream)
}

// Register adds the spectator service to a gRPC server.
func Register(s grpc.ServiceRegistrar, srv WatchServer) {
	s.RegisterService(&serviceDesc, srv)
}

// Spectator fans the published snapshots out to every connected watcher.
type Spectator struct {
	watchers map[uuid.UUID]chan *structpb.Struct
	last     *structpb.Struct
	closed   bool
	logger   *slog.Logger
	mu       sync.Mutex
}

func New(l *slog.Logger) *Spectator {
	return &Spectator{
		watchers: make(map[uuid.UUID]chan *structpb.Struct),
		logger:   l,
	}
}

// Publish sends a snapshot to the watchers. Slow watchers miss snapshots
// instead of holding up the game.
func (s *Spectator) Publish(t *tetris.Tetris) {
	msg, err := toProto(t)
	if err != nil {
		s.logger.Error("unable to encode snapshot", slog.String("error", err.Error()))
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.last = msg
	for id, ch := range s.watchers {
		select {
		case ch <- msg:
		default:
			s.logger.Debug("spectator is behind, dropping snapshot", slog.String("id", id.String()))
		}
	}
}

// Close ends every watch stream.
func (s *Spectator) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for id, ch := range s.watchers {
		close(ch)
		delete(s.watchers, id)
	}
}

func (s *Spectator) Watch(_ *emptypb.Empty, stream grpc.ServerStream) error {
	id := uuid.New()
	ch, ok := s.subscribe(id)
	if !ok {
		return nil
	}
	defer s.unsubscribe(id)

	if err := stream.SetHeader(metadata.Pairs(WatcherIDKey, id.String())); err != nil {
		return fmt.Errorf("failed to send header: %w", err)
	}
	s.logger.Info("spectator joined", slog.String("id", id.String()))
	defer s.logger.Info("spectator left", slog.String("id", id.String()))

	ctx := stream.Context()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			if err := stream.SendMsg(msg); err != nil {
				return fmt.Errorf("failed to send snapshot: %w", err)
			}
		}
	}
}

func (s *Spectator) subscribe(id uuid.UUID) (<-chan *structpb.Struct, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, false
	}
	ch := make(chan *structpb.Struct, watcherBuffer)
	if s.last != nil {
		ch <- s.last
	}
	s.watchers[id] = ch
	return ch, true
}

func (s *Spectator) unsubscribe(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ch, ok := s.watchers[id]; ok {
		close(ch)
		delete(s.watchers, id)
	}
}

// WatchClient receives the snapshots of a remote game.
type WatchClient struct {
	stream grpc.ClientStream
}

// Watch opens a spectator stream on conn.
func Watch(ctx context.Context, conn grpc.ClientConnInterface) (*WatchClient, error) {
	stream, err := conn.NewStream(ctx, &serviceDesc.Streams[0], watchMethod)
	if err != nil {
		return nil, fmt.Errorf("failed to open watch stream: %w", err)
	}
	if err := stream.SendMsg(&emptypb.Empty{}); err != nil {
		return nil, fmt.Errorf("failed to send watch request: %w", err)
	}
	if err := stream.CloseSend(); err != nil {
		return nil, fmt.Errorf("failed to close watch request: %w", err)
	}
	return &WatchClient{stream: stream}, nil
}

// ID returns the id the server gave to this watcher.
func (w *WatchClient) ID() (string, error) {
	md, err := w.stream.Header()
	if err != nil {
		return "", err
	}
	if v := md.Get(WatcherIDKey); len(v) > 0 {
		return v[0], nil
	}
	return "", nil
}

// Recv blocks until the next snapshot arrives. It returns io.EOF once the
// game stops publishing.
func (w *WatchClient) Recv() (*tetris.Tetris, error) {
	msg := &structpb.Struct{}
	if err := w.stream.RecvMsg(msg); err != nil {
		return nil, err
	}
	return FromProto(msg)
}

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"

	"blockdrop/client"
	"blockdrop/server"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const (
	hideCursor = "\033[2J\033[?25l"
	showCursor = "\033[26;0H\n\r\033[?25h"
)

func main() {
	addr := flag.String("addr", "localhost:9000", "address of the game to watch")
	debug := flag.Bool("debug", false, "log to stderr")
	flag.Parse()

	level := slog.LevelError
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	conn, err := grpc.NewClient(*addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		log.Fatalf("failed to create grpc client: %v", err)
	}
	defer conn.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	stream, err := server.Watch(ctx, conn)
	if err != nil {
		log.Fatal(err)
	}
	id, err := stream.ID()
	if err != nil {
		log.Fatal(err)
	}
	logger.Debug("watching", slog.String("addr", *addr), slog.String("id", id))

	if len(id) > 8 {
		id = id[:8]
	}

	fmt.Print(hideCursor)
	err = client.Spectate(logger, stream, &client.Options{Title: "BLOCKDROP spectator " + id})
	fmt.Print(showCursor)
	if err != nil {
		log.Fatal(err)
	}
}

// Command tail follows a stream channel over WebSocket and prints each frame.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/krish2105/lulu-intelligence-dashboard/internal/stream"
)

func main() {
	server := flag.String("server", "ws://localhost:8000", "Server base URL")
	channel := flag.String("channel", "sales", "Channel to follow (sales, alerts, inventory)")
	events := flag.String("events", "", "Comma-separated event names to print (default all)")
	limit := flag.Int("n", 0, "Exit after n data frames (0 = unlimited)")
	flag.Parse()

	logger := log.New(os.Stderr, "[tail] ", log.LstdFlags)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	want := make(map[string]bool)
	for _, e := range strings.Split(*events, ",") {
		if e = strings.TrimSpace(e); e != "" {
			want[e] = true
		}
	}

	url := strings.TrimRight(*server, "/") + "/ws/" + *channel
	client := stream.NewClient(url, nil, logger)
	logger.Printf("following %s", url)

	seen := 0
	for frame := range client.Run(ctx) {
		if frame.Event == stream.EventConnected {
			logger.Printf("connected: %s", frame.Data)
			continue
		}
		if len(want) > 0 && !want[frame.Event] {
			continue
		}
		fmt.Printf("%s\t%s\n", frame.Event, frame.Data)

		seen++
		if *limit > 0 && seen >= *limit {
			cancel()
		}
	}
}

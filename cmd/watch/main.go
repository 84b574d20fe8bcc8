package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"ar-session-core/internal/config"
	"ar-session-core/pkg/events"
	pktNats "ar-session-core/pkg/nats"

	"github.com/fatih/color"
)

// watch tails session events from the ARSESSION stream.
func main() {
	durable := flag.String("durable", "arsession-watch", "durable consumer name")
	session := flag.String("session", "", "only show events for this session ID")
	flag.Parse()

	cfg := config.Load()
	if cfg.App.NatsURL == "" {
		log.Fatal("NATS_URL is not set")
	}

	sub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer sub.Close()

	err = sub.Subscribe(pktNats.SubjectPrefix+".>", *durable, func(_ context.Context, e events.Event) error {
		id := events.SessionID(e)
		if *session != "" && id != *session {
			return nil
		}
		printEvent(id, e)
		return nil
	})
	if err != nil {
		log.Fatalf("Failed to subscribe: %v", err)
	}

	color.Cyan("👀 Watching %s.> as %q (Ctrl+C to stop)", pktNats.SubjectPrefix, *durable)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
}

func printEvent(sessionID string, e events.Event) {
	ts := e.Timestamp().Format("15:04:05.000")
	data := e.Payload()

	switch e.EventType() {
	case events.TypeStateChanged:
		color.Green("%s [%s] state %v -> %v", ts, sessionID, data["from"], data["to"])
	case events.TypeCapabilityRequested:
		color.Yellow("%s [%s] capabilities requested %v (token %v)", ts, sessionID, data["capabilities"], data["token"])
	case events.TypeCapabilityDenied:
		color.Red("%s [%s] capabilities denied %v", ts, sessionID, data["missing"])
	case events.TypeReferenceEstablished:
		color.Cyan("%s [%s] reference fix lat=%v lon=%v alt=%v", ts, sessionID, data["lat"], data["lon"], data["alt"])
	case events.TypeOffsetUpdated:
		fmt.Printf("%s [%s] offset x=%v y=%v z=%v\n", ts, sessionID, data["x"], data["y"], data["z"])
	case events.TypeStaleCallback:
		color.Magenta("%s [%s] stale %v: %v", ts, sessionID, data["kind"], data["reason"])
	default:
		fmt.Printf("%s [%s] %s %v\n", ts, sessionID, e.EventType(), data)
	}
}

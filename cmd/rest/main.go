package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ar-session-core/internal/bootstrap"
	"ar-session-core/internal/config"
	"ar-session-core/internal/server"
	"ar-session-core/internal/tracer"
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()

	// 2. Initialize Tracer (no-op unless OTEL_ENABLED=true)
	shutdownTracer, err := tracer.Init(context.Background(), cfg.Tracing)
	if err != nil {
		log.Printf("[WARN] Tracing disabled: %v", err)
	}
	defer shutdownTracer(context.Background())

	// 3. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. Start Background Services
	if err := container.Start(ctx); err != nil {
		log.Fatalf("Background services failed to start: %v", err)
	}

	// 5. Initialize Server
	srv := server.New(cfg, container)

	go func() {
		<-ctx.Done()
		log.Println("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	// 6. Run Server
	if err := srv.Run(); err != nil {
		log.Printf("Server stopped: %v", err)
	}
	container.Close()
}

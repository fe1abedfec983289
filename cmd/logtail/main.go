// Command logtail serves a single append-only NDJSON log file over HTTP:
// bulk JSON, plain text, a live SSE stream, and a server-rendered streaming
// HTML page.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/coffersTech/logtail/internal/config"
	"github.com/coffersTech/logtail/internal/httpapi"
	"github.com/coffersTech/logtail/internal/query"
)

func main() {
	port := flag.Int("port", config.GetInt("PORT", 8080), "HTTP port to listen on")
	flag.Parse()

	logPath := config.GetString("LOG_FILE_PATH", "")
	if logPath == "" {
		log.Fatalf("logtail: LOG_FILE_PATH is required")
	}
	if _, err := os.Stat(logPath); err != nil {
		log.Fatalf("logtail: cannot access log file %s: %v", logPath, err)
	}
	secret := config.GetString("LOG_PASSWORD", "")
	if secret == "" {
		log.Printf("logtail: warning: LOG_PASSWORD is unset; every request will be rejected with 500")
	}

	pollInterval := config.GetDuration("LOG_POLL_INTERVAL", 500*time.Millisecond)
	engine := query.NewWithPollInterval(logPath, pollInterval)

	ctx, cancelTailer := context.WithCancel(context.Background())
	go func() {
		if err := engine.Tailer().Run(ctx); err != nil {
			log.Printf("logtail: tailer stopped: %v", err)
		}
	}()

	addr := ":" + strconv.Itoa(*port)
	srv := httpapi.NewServer(engine, logPath, secret, addr)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		log.Fatalf("logtail: server error: %v", err)
	case sig := <-sigCh:
		log.Printf("logtail: received %v, shutting down", sig)
	}

	cancelTailer()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("logtail: shutdown error: %v", err)
	}
}

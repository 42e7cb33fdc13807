package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/R3E-Network/todo_service/internal/app/runtime"
	"github.com/R3E-Network/todo_service/internal/config"
	"github.com/R3E-Network/todo_service/internal/httputil"
)

func main() {
	healthcheck := flag.Bool("healthcheck", false, "Probe /healthz on the configured address and exit")
	healthURL := flag.String("health-url", "", "Base URL for -healthcheck (defaults to http://127.0.0.1:$PORT)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	if *healthcheck {
		base := *healthURL
		if base == "" {
			base = fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)
		}
		if err := probe(base); err != nil {
			fmt.Fprintf(os.Stderr, "unhealthy: %v\n", err)
			os.Exit(1)
		}
		return
	}

	app, err := runtime.NewApplication(cfg)
	if err != nil {
		log.Fatalf("init: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx); err != nil {
		_ = app.Shutdown(context.Background())
		log.Fatalf("run: %v", err)
	}

	if err := app.Shutdown(context.Background()); err != nil {
		log.Fatalf("shutdown: %v", err)
	}
}

func probe(base string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client := httputil.NewClient(httputil.ClientConfig{BaseURL: base, Timeout: 5 * time.Second, MaxRetries: -1})
	resp, err := client.Get(ctx, "/healthz")
	if err != nil {
		return err
	}
	return httputil.DecodeResponse(resp, nil)
}

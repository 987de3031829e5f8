// Command main is the entry point for the Farmcast backend server.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"farmcast/internal/config"
	"farmcast/internal/observability"
	"farmcast/internal/scheduler"
	"farmcast/internal/server"
)

// @title Farmcast API
// @version 1.0
// @description Weather, farms and a geo feed for farmers.

// @host localhost:8080
// @BasePath /
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the access token.

const serviceVersion = "1.0.0"

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	shutdownTracing, err := observability.InitTracing(observability.TracingConfigFrom(cfg, serviceVersion))
	if err != nil {
		log.Fatalf("Failed to initialize tracing: %v", err)
	}

	// Create server with dependency injection
	srv, err := server.NewServer(cfg)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	// Daily weather alerts
	sched, err := scheduler.New(cfg.AlertTimezone)
	if err != nil {
		log.Fatalf("Failed to create scheduler: %v", err)
	}
	alerts := srv.AlertService()
	if err := sched.Add("weather-alerts", cfg.AlertCron, func(ctx context.Context) error {
		_, err := alerts.RunDaily(ctx)
		return err
	}); err != nil {
		log.Fatalf("Failed to schedule weather alerts: %v", err)
	}
	sched.Start()

	app := srv.NewApp()

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := sched.Stop(ctx); err != nil {
			log.Printf("Scheduler shutdown error: %v", err)
		}

		// Shutdown server resources
		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("Server resource shutdown error: %v", err)
		}

		if err := shutdownTracing(ctx); err != nil {
			log.Printf("Tracing shutdown error: %v", err)
		}
	}()

	// Start server
	log.Printf("Server starting on port %s...", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatal(err)
	}
	<-done
}

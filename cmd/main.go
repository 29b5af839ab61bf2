package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"

	"support-chat/admin"
	"support-chat/httpapi"
	"support-chat/identity"
	"support-chat/moderation"
	"support-chat/presence"
	"support-chat/repositories"
	"support-chat/runtime"
	"support-chat/runtime/workers"
	"support-chat/services"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the server lifecycle, and centralizes error reporting.
// This pattern is preferred over calling os.Exit or panic directly because:
// 1. It ensures all 'defer' statements (like database cleanup) are executed before the program exits.
// 2. It improves testability by decoupling the initialization logic from the main entry point.
// 3. It provides a structured way to handle graceful shutdowns for HTTP and background workers.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	charReplacement, err := CharacterRune(config.ModerationCharReplacement)
	if err != nil {
		return err
	}

	// 2. Database (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 3. Store, presence, fan-out
	roomRepository := repositories.NewRoomRepository(db, log)
	messageRepository, err := repositories.NewMessageRepository(db, log)
	if err != nil {
		return fmt.Errorf("message repository failed to start: %w", err)
	}
	defer func() { _ = messageRepository.Close() }()

	tracker := presence.NewTracker(config.TypingTTL)
	registry := runtime.NewRegistry()
	hub := runtime.NewHub(log, registry, config.BufferSize, config.SinkTimeout)

	moderator, err := moderation.NewModerator(charReplacement)
	if err != nil {
		return fmt.Errorf("moderation failed to start: %w", err)
	}

	chatService := services.NewChatService(
		roomRepository, messageRepository, tracker, hub, &moderator, config.MaxContentLength)

	// 4. Staff aggregation: poll for ground truth, hub push for low latency
	directory := identity.NewStaticDirectory(nil)
	aggregator := admin.NewAggregator(
		log, roomRepository, messageRepository, directory,
		config.SummaryPollInterval, config.NumberOfWorkers)
	hub.AddPermanentSinks(aggregator)

	// 5. Supervision
	sup := workers.NewSupervisor(log, config.RestartInterval)
	sup.Add(hub.FanoutWorker())
	sup.Add(aggregator)
	sup.Add(workers.NewPresenceSweep(log, tracker, config.SweepInterval))
	sup.Add(workers.NewHealthWorker(log, config.HealthInterval))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	supDone := make(chan struct{})
	go func() {
		defer close(supDone)
		sup.Run(ctx)
	}()

	// 6. HTTP server
	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", address, err)
	}

	server := &http.Server{
		Handler: httpapi.NewRouter(log, chatService, aggregator, config.ConnectionBufferSize),
	}

	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "address", address, "at", time.Now().UTC())
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// 7. Wait for Stop or Error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	// 8. Final Cleanup: close the server first so open subscriptions drain,
	// then stop the workers.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
	sup.Stop()
	<-supDone
	log.Info("Program stopped cleanly")

	return nil
}

package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/statelab/renderbox/internal/infrastructure/config"
	"github.com/statelab/renderbox/internal/infrastructure/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	srv, err := server.New(cfg)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		if err := srv.Run(); err != nil {
			errChan <- err
		}
	}()

	select {
	case sig := <-sigChan:
		log.Printf("Received %v, shutting down gracefully...", sig)
		if err := srv.Close(); err != nil {
			log.Printf("Error during shutdown: %v", err)
			os.Exit(1)
		}
	case err := <-srv.Fatal():
		log.Printf("Fatal fault: %v", err)
		_ = srv.Close()
		os.Exit(1)
	case err := <-errChan:
		_ = srv.Close()
		log.Fatalf("Server error: %v", err)
	}
}

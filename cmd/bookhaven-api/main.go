package main

import (
	"log"

	"github.com/bookhaven/bookhaven-api/internal/config"
	"github.com/bookhaven/bookhaven-api/internal/infrastructure/server"
)

func main() {
	log.Println("Starting BookHaven API...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	srv := server.New(cfg)
	if err := srv.Run(); err != nil {
		log.Fatalf("Server exited with error: %v", err)
	}
}

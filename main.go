package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"

	"ocrprobe/cmd"
	"ocrprobe/internal/logger"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	// Default logger until the command loads its configuration
	if err := logger.Setup(logger.DefaultConfig()); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	log := logger.WithComponent("main")
	log.Debug().Msg("Starting ocrprobe")

	// Execute CLI commands
	cmd.Execute()

	log.Debug().Msg("ocrprobe shutdown")
	os.Exit(0)
}

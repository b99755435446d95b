package main

import (
	"errors"
	"io/fs"
	"log"
	"os"

	"github.com/andreyxaxa/Ephemeral-Chat/config"
	"github.com/andreyxaxa/Ephemeral-Chat/internal/app"
	"github.com/joho/godotenv"
)

const _defaultEnvFile = ".env"

func main() {
	// Config
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = _defaultEnvFile
	}

	// a missing file is fine, the environment may be set already
	err := godotenv.Load(envFile)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("config error: %s", err)
	}

	cfg, err := config.New()
	if err != nil {
		log.Fatalf("config error: %s", err)
	}

	// Run
	app.Run(cfg)
}

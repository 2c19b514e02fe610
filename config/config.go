package config

import (
	"log"
	"os"
	"sync"

	"github.com/joho/godotenv"
)

var dotEnvOnce sync.Once

// loadDotEnv loads a .env file from the working directory once, falling back
// to plain environment variables when none exists.
func loadDotEnv() {
	dotEnvOnce.Do(func() {
		if err := godotenv.Load(); err != nil {
			if !os.IsNotExist(err) {
				log.Printf("Warning: failed to load .env file: %v", err)
			}
		}
	})
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

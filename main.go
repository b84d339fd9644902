package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/sima-platform/guidance/cmd"
)

func main() {
	// Load .env if present; in production the environment is already set.
	_ = godotenv.Load()

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

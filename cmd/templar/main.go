package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/shahbajlive/templar/internal/cli"
)

func main() {
	// Load .env overrides if present; a missing file is fine.
	_ = godotenv.Load()

	os.Exit(cli.Execute())
}

package main

import (
	"os"

	"github.com/joho/godotenv"

	"momentum-go/internal/cli"
)

func main() {
	_ = godotenv.Load() // best-effort

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/smilecare-labs/clinic-push/internal/cli"
)

func main() {
	_ = godotenv.Load()
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

package main

import (
	"log/slog"

	"github.com/joho/godotenv"

	"beceharvest/cmd"
)

func main() {
	// A missing .env is fine; variables may be set in the environment.
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded")
	}
	cmd.Execute()
}

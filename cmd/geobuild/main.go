package main

import (
	"os"

	"github.com/JonMunkholm/geobuild/internal/cli"
	"github.com/joho/godotenv"
)

func main() {
	// A missing .env is normal for the CLI; the environment is used as is.
	_ = godotenv.Load()

	os.Exit(cli.Execute())
}

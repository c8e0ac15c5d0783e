package main

import (
	"os"

	"github.com/wonny/marketlens/cmd/lens/commands"
)

// main is the entry point for the marketlens CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/lens [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}

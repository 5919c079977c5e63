package main

import (
	"os"

	"github.com/wonny/qcdash/cmd/qcdash/commands"
)

// main is the entry point for the qcdash CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/qcdash [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}

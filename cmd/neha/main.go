// Neha - Hinglish chat companion
// License: MIT
//
// Copyright (c) 2026 Neha contributors

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/nehalabs/neha/pkg/config"
)

var (
	version   = "dev"
	gitCommit string
	buildTime string
)

const appName = "neha"

func formatVersion() string {
	v := version
	if gitCommit != "" {
		v += fmt.Sprintf(" (git: %s)", gitCommit)
	}
	return v
}

func printVersion() {
	fmt.Printf("%s %s\n", appName, formatVersion())
	if buildTime != "" {
		fmt.Printf("  Build: %s\n", buildTime)
	}
	fmt.Printf("  Go: %s\n", runtime.Version())
}

func configPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.json"
	}
	return filepath.Join(home, ".neha", "config.json")
}

func loadConfig() (*config.Config, error) {
	return config.LoadConfig(configPath())
}

func main() {
	if err := executeCLI(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

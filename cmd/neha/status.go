package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show config, provider and workspace readiness",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := configPath()

			fmt.Printf("%s status\n\n", appName)

			if _, err := os.Stat(path); err != nil {
				fmt.Printf("  Config:    missing (%s)\n", path)
				fmt.Println("\nRun 'neha onboard' to get started.")
				return nil
			}
			fmt.Printf("  Config:    %s\n", path)

			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			fmt.Printf("  Persona:   %s (%s)\n", cfg.Persona.Name, cfg.Persona.Timezone)
			fmt.Printf("  Model:     %s %s\n", cfg.Providers.Gemini.Model,
				readiness(cfg.Providers.Gemini.APIKey != "", "key set", "no API key"))
			fmt.Printf("  Search:    %s\n", onOff(cfg.Search.Enabled))
			if cfg.Speech.Enabled {
				fmt.Printf("  Speech:    on, voice %q %s\n", cfg.Speech.ElevenLabs.Voice,
					readiness(cfg.Speech.ElevenLabs.APIKey != "", "elevenlabs+gtts", "gtts only"))
			} else {
				fmt.Println("  Speech:    off")
			}

			workspace := cfg.WorkspacePath()
			sessions := countSessions(filepath.Join(workspace, "sessions"))
			fmt.Printf("  Workspace: %s (%d session%s)\n", workspace, sessions, plural(sessions))

			return nil
		},
	}
}

func readiness(ok bool, yes, no string) string {
	if ok {
		return "(" + yes + ")"
	}
	return "(" + no + ")"
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

func countSessions(dir string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	n := 0
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			n++
		}
	}
	return n
}

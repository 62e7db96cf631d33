package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nehalabs/neha/pkg/config"
)

func newOnboardCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:     "onboard",
		Short:   "Write the default config and create the workspace",
		Example: "  neha onboard\n  NEHA_PROVIDERS_GEMINI_API_KEY=... neha onboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := configPath()

			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("config already exists at %s (use --force to overwrite)", path)
			}

			// Environment overrides are honored so onboarding can bake the
			// key straight into the written config.
			cfg, err := config.LoadConfig("")
			if err != nil {
				return fmt.Errorf("build default config: %w", err)
			}

			if err := config.SaveConfig(path, cfg); err != nil {
				return fmt.Errorf("write config: %w", err)
			}

			workspace := cfg.WorkspacePath()
			for _, sub := range []string{"sessions", "state"} {
				if err := os.MkdirAll(filepath.Join(workspace, sub), 0o755); err != nil {
					return fmt.Errorf("create workspace dir %s: %w", sub, err)
				}
			}

			fmt.Printf("Config written to %s\n", path)
			fmt.Printf("Workspace at %s\n", workspace)
			if cfg.Providers.Gemini.APIKey == "" {
				fmt.Println("\nNo Gemini API key set yet. Add it to the config under")
				fmt.Println("providers.gemini.api_key, or export NEHA_PROVIDERS_GEMINI_API_KEY.")
			} else {
				fmt.Println("\nAll set. Try: neha chat")
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing config")
	return cmd
}

package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"ghswipe/internal/session"
	"ghswipe/internal/tui"
)

var (
	// CLI flags
	ownerFlag   string
	projectFlag int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "ghswipe",
		Short: "Swipe through GitHub Projects v2 boards in the terminal",
		Long: `ghswipe is a terminal client for GitHub Projects v2 that shows one
status column at a time, like flipping through cards.

Authentication:
  1. Sign in from the app (OAuth device flow, preferred)
  2. Environment variable: Set GITHUB_TOKEN

A token from the device flow is stored under ~/.config/ghswipe and
reused on the next start. A GITHUB_TOKEN from the environment is used
for the current run only and never written to disk.`,
		RunE: run,
	}

	rootCmd.Flags().StringVar(&ownerFlag, "owner", "", "GitHub user login to read projects from. Defaults to the signed-in user.")
	rootCmd.Flags().IntVar(&projectFlag, "project", 0, "Project number. Skips the project picker.")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	tokens, err := session.NewFileTokenStore()
	if err != nil {
		return fmt.Errorf("failed to open token storage: %w", err)
	}

	store := session.New(tokens)

	// An environment token overrides the stored one for this run only.
	if env := os.Getenv("GITHUB_TOKEN"); env != "" {
		store.UseToken(env)
	}

	app := tui.NewAppModel(context.Background(), store, ownerFlag, projectFlag)

	p := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("program error: %w", err)
	}

	return nil
}

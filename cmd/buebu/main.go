package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dori/buebu/internal/app"
	"github.com/dori/buebu/internal/config"
	"github.com/dori/buebu/internal/logging"
	"github.com/dori/buebu/internal/ui"
	"github.com/dori/buebu/internal/ui/theme"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var version = "0.1.0"

// Flags shared by every command
var (
	configPath   string
	dataDir      string
	providerName string
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "buebu",
		Short: "buebu - turn an app idea into a project blueprint",
		Long: `buebu sends a short app description to an AI model and streams back a
blueprint: a folder tree plus a twenty part specification. Every blueprint
is kept as a project you can reopen, rename or delete.

Run without a command to start the terminal UI.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runTUI,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.config/buebu/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Directory for projects and logs")
	rootCmd.PersistentFlags().StringVar(&providerName, "provider", "", "AI provider (anthropic, lorem)")
	rootCmd.Flags().String("theme", "", "Theme name (nord, dracula, gruvbox, catppuccin)")

	rootCmd.AddCommand(generateCmd())
	rootCmd.AddCommand(improveCmd())
	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(showCmd())
	rootCmd.AddCommand(renameCmd())
	rootCmd.AddCommand(deleteCmd())
	rootCmd.AddCommand(versionCmd())
	return rootCmd
}

// loadConfig applies command line overrides on top of the config file and
// environment.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if dataDir != "" {
		cfg.Storage.DataDir = dataDir
	}
	if providerName != "" {
		cfg.Provider.Name = providerName
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// openApp loads config, sets up logging and builds the application. The
// returned func closes both.
func openApp(opts ...app.Option) (*app.App, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	if err := os.MkdirAll(cfg.Storage.DataDir, 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	logger, closeLog, err := logging.New(cfg.Storage.DataDir, cfg.Log.Level)
	if err != nil {
		return nil, nil, err
	}

	application, err := app.New(cfg, append(opts, app.WithLogger(logger))...)
	if err != nil {
		_ = closeLog()
		return nil, nil, err
	}

	cleanup := func() {
		if err := application.Close(); err != nil {
			logger.Warn("shutdown", zap.Error(err))
		}
		_ = logger.Sync()
		_ = closeLog()
	}
	return application, cleanup, nil
}

func runTUI(cmd *cobra.Command, args []string) error {
	if name, _ := cmd.Flags().GetString("theme"); name != "" {
		t, ok := theme.ByName(name)
		if !ok {
			return fmt.Errorf("unknown theme %q", name)
		}
		theme.SetTheme(t)
	}

	application, cleanup, err := openApp()
	if err != nil {
		return err
	}
	defer cleanup()

	p := tea.NewProgram(
		ui.NewRootModel(application),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	_, err = p.Run()
	return err
}

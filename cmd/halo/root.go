package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/phinze/halo/internal/config"
	"github.com/phinze/halo/internal/coordinator"
	"github.com/phinze/halo/internal/event"
	"github.com/phinze/halo/internal/model"
	"github.com/phinze/halo/internal/platform"
	"github.com/phinze/halo/internal/prefs"
	"github.com/phinze/halo/internal/tray"
)

var (
	debugMode  bool
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "halo",
	Short: "Highlight the mouse cursor for recordings and presentations",
	Long: `Halo draws a ring around the mouse cursor on every display so it stays
visible in screen recordings and presentations. While a mouse button is held
the ring becomes a letter naming the button.

Global shortcuts toggle the overlay and open settings, help and quit. Appearance
is changed from the tray menu and saved between runs.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if debugMode {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return run()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: ~/.config/halo/config.yaml)")

	rootCmd.AddCommand(monitorsCmd)
	rootCmd.AddCommand(versionCmd)
}

func run() error {
	path := configPath
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	store, err := prefs.OpenFile(cfg.PrefsFile)
	if err != nil {
		log.Printf("Preferences unavailable, using defaults: %v", err)
	}

	backend, err := platform.Open()
	if err != nil {
		return fmt.Errorf("failed to open display: %w", err)
	}
	defer backend.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	coord := coordinator.New(coordinator.Options{
		Backend:      backend,
		Config:       cfg,
		Store:        store,
		StartTray:    startTray,
		WatchSession: true,
		Version:      version,
		Debug:        debugMode,
	})
	if err := coord.Start(ctx); err != nil {
		return err
	}
	log.Println("Exiting...")
	return nil
}

func startTray(pub event.Publisher, lang model.Language, stroke model.Color) coordinator.Indicator {
	return tray.Start(pub, lang, stroke)
}

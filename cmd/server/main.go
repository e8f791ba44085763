package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/droprelay/internal/app"
	"github.com/vovakirdan/droprelay/internal/config"
	"github.com/vovakirdan/droprelay/internal/log"
)

type serveFlags struct {
	configPath string
	addr       string
	logLevel   string
	dbPath     string
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var flags serveFlags

	root := &cobra.Command{
		Use:   "droprelay",
		Short: "WebSocket relay that pairs peers in short-code rooms",
		Long: `droprelay accepts WebSocket connections, groups them into rooms identified by
short codes, tells members when a room has a peer, and forwards file frames
between members of the same room.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), flags)
		},
	}

	root.Flags().StringVarP(&flags.configPath, "config", "c", "", "path to config.yaml (default ./config.yaml)")
	root.Flags().StringVar(&flags.addr, "addr", "", "HTTP listen address")
	root.Flags().StringVar(&flags.logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
	root.Flags().StringVar(&flags.dbPath, "db", "", "SQLite path for room history (empty disables history)")

	root.AddCommand(newProbeCmd())
	return root
}

func serve(parent context.Context, flags serveFlags) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	bootLogger := log.New("info")
	cfg, cfgPath, err := config.Load(bootLogger, flags.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg.UpdateFrom(config.Config{
		Addr:         flags.addr,
		LogLevel:     flags.logLevel,
		DatabasePath: flags.dbPath,
	})

	logger := log.New(cfg.LogLevel)
	logger.Info().
		Str("config", cfgPath).
		Str("addr", cfg.Addr).
		Int("room_code_length", cfg.RoomCodeLength).
		Bool("history", cfg.DatabasePath != "").
		Msg("starting droprelay")

	application, err := app.New(&cfg, logger)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}

	if err := application.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("server exited with error")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

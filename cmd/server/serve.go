package main

import (
	"fmt"
	"net"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Tyrowin/chatrelay/internal/logging"
	"github.com/Tyrowin/chatrelay/internal/server"
)

type serveFlags struct {
	configPath string
	host       string
	port       string
	logLevel   string
	logFormat  string
}

func (f *serveFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.configPath, "config", "c", "", "path to a YAML config file (default $CONFIG_FILE)")
	cmd.Flags().StringVar(&f.host, "host", "", "interface to listen on (overrides HOST)")
	cmd.Flags().StringVarP(&f.port, "port", "p", "", "port to listen on (overrides PORT)")
	cmd.Flags().StringVar(&f.logLevel, "log-level", "", "log level: trace, debug, info, warn, error")
	cmd.Flags().StringVar(&f.logFormat, "log-format", "", "log format: console or json")
}

// overrides applies only the flags the user actually set.
func (f serveFlags) overrides(cmd *cobra.Command) func(*server.Config) {
	return func(cfg *server.Config) {
		if cmd.Flags().Changed("host") {
			cfg.Host = f.host
		}
		if cmd.Flags().Changed("port") {
			cfg.Port = f.port
		}
		if cmd.Flags().Changed("log-level") {
			cfg.LogLevel = f.logLevel
		}
		if cmd.Flags().Changed("log-format") {
			cfg.LogFormat = f.logFormat
		}
	}
}

func serveCmd() *cobra.Command {
	var flags serveFlags

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the chat relay server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, flags)
		},
	}
	flags.register(cmd)
	return cmd
}

func runServe(cmd *cobra.Command, flags serveFlags) error {
	cfg, err := server.LoadConfig(flags.configPath, flags.overrides(cmd))
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	log := logging.New(logging.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Out:    cmd.OutOrStdout(),
	})
	log.Info().Str("version", version).Msg("Starting chatrelay")

	srv := server.New(cfg, log)
	err = srv.Run(cmd.Context(), func(addr net.Addr) {
		log.Info().Str("addr", addr.String()).Msg("WebSocket server ready for connections")
		notifySystemd(log, daemon.SdNotifyReady)
	})
	notifySystemd(log, daemon.SdNotifyStopping)
	if err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	log.Info().Msg("chatrelay stopped")
	return nil
}

// notifySystemd reports state to systemd when running under a notify unit.
func notifySystemd(log zerolog.Logger, state string) {
	sent, err := daemon.SdNotify(false, state)
	if err != nil {
		log.Warn().Err(err).Str("state", state).Msg("systemd notify failed")
		return
	}
	if sent {
		log.Debug().Str("state", state).Msg("systemd notified")
	}
}

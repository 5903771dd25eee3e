package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mikey-austin/homewatch/internal/core"
	"github.com/mikey-austin/homewatch/internal/hwd"
)

type serveOverrides struct {
	mode   string
	listen string
	root   string
	engine string
	mqtt   bool
}

func serveCommand() *cobra.Command {
	var o serveOverrides

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the player or library server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fromContext(cmd)
			cfg := app.cfg
			applyOverrides(&cfg, o)

			d, err := hwd.New(app.log, cfg, hwd.Options{})
			if err != nil {
				return core.WrapError(core.ExitUsage, "config", err)
			}
			app.log.Info("homewatch starting",
				zap.String("mode", cfg.Server.Mode),
				zap.String("listen", cfg.Server.Listen),
				zap.String("library_mode", cfg.Library.Mode),
				zap.String("engine", cfg.Player.Engine),
				zap.Bool("mqtt", cfg.MQTT.Enabled),
			)

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			err = d.Run(ctx)
			_ = app.log.Sync()
			return err
		},
	}

	cmd.Flags().StringVar(&o.mode, "mode", "", "server mode override (player|library)")
	cmd.Flags().StringVarP(&o.listen, "listen", "l", "", "listen address override")
	cmd.Flags().StringVarP(&o.root, "root", "r", "", "library root override")
	cmd.Flags().StringVar(&o.engine, "engine", "", "playback engine override (vlc|gstreamer)")
	cmd.Flags().BoolVar(&o.mqtt, "mqtt", false, "enable the mqtt bridge")

	return cmd
}

func applyOverrides(cfg *hwd.Config, o serveOverrides) {
	if o.mode != "" {
		cfg.Server.Mode = o.mode
	}
	if o.listen != "" {
		cfg.Server.Listen = o.listen
	}
	if o.root != "" {
		cfg.Library.Root = o.root
		cfg.Library.Mode = hwd.ModeLocal
	}
	if o.engine != "" {
		cfg.Player.Engine = o.engine
	}
	if o.mqtt {
		cfg.MQTT.Enabled = true
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	cc "github.com/ivanpirog/coloredcobra"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mikey-austin/homewatch/internal/adapters/output"
	"github.com/mikey-austin/homewatch/internal/core"
	"github.com/mikey-austin/homewatch/internal/hwd"
)

type app struct {
	cfg     hwd.Config
	log     *zap.Logger
	printer output.Printer
	json    bool
}

func main() {
	root := rootCommand()
	cc.Init(&cc.Config{
		RootCmd:  root,
		Headings: cc.HiCyan + cc.Bold + cc.Underline,
		Commands: cc.HiYellow + cc.Bold,
		Example:  cc.Italic,
		ExecName: cc.Bold,
		Flags:    cc.Bold,
	})
	if err := root.Execute(); err != nil {
		if !errors.Is(err, core.ErrRestart) {
			fmt.Fprintln(os.Stderr, "homewatch:", err)
		}
		os.Exit(core.ExitCode(err))
	}
}

func rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "homewatch",
		Short:         "Home media library and playback orchestrator",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	var (
		configPath string
		logLevel   string
		jsonOut    bool
	)
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override")
	root.PersistentFlags().BoolVarP(&jsonOut, "json", "j", false, "output json")

	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := hwd.LoadConfigOrDefault(configPath)
		if err != nil {
			return core.WrapError(core.ExitUsage, "config", err)
		}
		if logLevel != "" {
			cfg.Log.Level = logLevel
		}
		log, err := hwd.NewLogger(cfg.Log)
		if err != nil {
			return core.WrapError(core.ExitUsage, "logging", err)
		}
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		cmd.SetContext(context.WithValue(ctx, appKey{}, &app{
			cfg:     cfg,
			log:     log,
			printer: output.New(cmd.OutOrStdout(), jsonOut),
			json:    jsonOut,
		}))
		return nil
	}

	root.AddCommand(serveCommand())
	root.AddCommand(scanCommand())
	root.AddCommand(hierarchyCommand())
	root.AddCommand(statusCommand())
	root.AddCommand(ctlCommand())
	return root
}

type appKey struct{}

func fromContext(cmd *cobra.Command) *app {
	val := cmd.Context().Value(appKey{})
	if val == nil {
		return nil
	}
	return val.(*app)
}

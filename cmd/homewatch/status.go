package main

import (
	"errors"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mikey-austin/homewatch/internal/adapters/statusfile"
	"github.com/mikey-austin/homewatch/internal/core"
)

func statusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the saved session status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fromContext(cmd)
			dir, err := app.cfg.DataDir()
			if err != nil {
				return err
			}
			file, err := statusfile.New(filepath.Join(dir, statusfile.DefaultName))
			if err != nil {
				return err
			}
			st, err := file.Load()
			if errors.Is(err, statusfile.ErrNoStatus) {
				return core.WrapError(core.ExitNotFound, "no saved status at "+file.Path(), err)
			}
			if err != nil {
				return err
			}
			return app.printer.Print(core.StatusResult{Path: file.Path(), Status: st})
		},
	}
}

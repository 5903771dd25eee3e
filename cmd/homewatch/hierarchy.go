package main

import (
	"github.com/spf13/cobra"

	"github.com/mikey-austin/homewatch/internal/core"
	"github.com/mikey-austin/homewatch/internal/modules/library"
)

func hierarchyCommand() *cobra.Command {
	var root string

	cmd := &cobra.Command{
		Use:   "hierarchy",
		Short: "List library folders with their video counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fromContext(cmd)
			if root == "" {
				root = app.cfg.Library.Root
			}
			if root == "" {
				return core.UsageError("library root required (set --root or library.root)")
			}
			h, err := library.BuildHierarchy(root)
			if err != nil {
				return core.WrapError(core.ExitNotFound, "hierarchy", err)
			}
			return app.printer.Print(core.HierarchyResult{Hierarchy: h})
		},
	}

	cmd.Flags().StringVarP(&root, "root", "r", "", "library root override")

	return cmd
}

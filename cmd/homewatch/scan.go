package main

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/mikey-austin/homewatch/internal/core"
	"github.com/mikey-austin/homewatch/internal/hwd"
	"github.com/mikey-austin/homewatch/internal/modules/library"
)

func scanCommand() *cobra.Command {
	var (
		root  string
		clearCache bool
	)

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Build the library catalogue and refresh its cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fromContext(cmd)
			lc := app.cfg.Library
			if root != "" {
				lc.Root = root
				lc.Mode = hwd.ModeLocal
			}
			if lc.Mode == hwd.ModeLocal && lc.Root == "" {
				return core.UsageError("library root required (set --root or library.root)")
			}
			if clearCache {
				if lc.Mode != hwd.ModeLocal {
					return core.UsageError("--clear needs a local library")
				}
				removed, err := library.ClearCache(app.log, lc.Root)
				if err != nil {
					return err
				}
				if !app.json {
					fmt.Fprintf(cmd.ErrOrStderr(), "Cleared %d cache directories\n", removed)
				}
			}

			bar := &scanBar{out: cmd.ErrOrStderr()}
			start := time.Now()
			cat, err := hwd.BuildCatalogue(cmd.Context(), app.log, lc, bar.update)
			bar.stop()
			if err != nil {
				return err
			}

			folders, medias, playlists := cat.Index.Counts()
			result := core.ScanResult{
				Root:      cat.Index.Root(),
				Folders:   folders,
				Medias:    medias,
				Playlists: playlists,
				Elapsed:   time.Since(start).Round(time.Millisecond).String(),
				Warnings:  make([]string, 0, len(cat.Warnings)),
			}
			for _, w := range cat.Warnings {
				result.Warnings = append(result.Warnings, fmt.Sprintf("%s: %s", w.Path, w.Message))
			}
			return app.printer.Print(result)
		},
	}

	cmd.Flags().StringVarP(&root, "root", "r", "", "library root override")
	cmd.Flags().BoolVar(&clearCache, "clear", false, "remove cached metadata and thumbnails first")

	return cmd
}

// scanBar draws catalogue progress; it starts on the first report.
type scanBar struct {
	out io.Writer

	mu  sync.Mutex
	bar *pterm.ProgressbarPrinter
}

func (b *scanBar) update(done int, total int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if total <= 0 {
		return
	}
	if b.bar == nil {
		bar, err := pterm.DefaultProgressbar.
			WithTotal(total).
			WithTitle("Scanning").
			WithWriter(b.out).
			Start()
		if err != nil {
			return
		}
		b.bar = bar
	}
	if step := done - b.bar.Current; step > 0 {
		b.bar.Add(step)
	}
}

func (b *scanBar) stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.bar != nil {
		_, _ = b.bar.Stop()
	}
}

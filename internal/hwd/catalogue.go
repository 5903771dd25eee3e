package hwd

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/mikey-austin/homewatch/internal/adapters/ffprobe"
	"github.com/mikey-austin/homewatch/internal/modules/library"
)

// Catalogue is a built library index with the warnings of its build.
type Catalogue struct {
	Index    *library.Index
	Warnings []library.Warning
}

// BuildCatalogue scans the local root or fetches the remote peer, depending
// on the library mode. progress may be nil.
func BuildCatalogue(ctx context.Context, log *zap.Logger, cfg LibraryConfig, progress library.Progress) (Catalogue, error) {
	if log == nil {
		log = zap.NewNop()
	}
	switch cfg.Mode {
	case ModeRemote:
		fetcher, err := library.NewRemoteFetcher(log, library.RemoteConfig{
			BaseURL: cfg.RemoteURL,
			Workers: cfg.ScanWorkers,
			Locale:  cfg.SortLocale,
		}, nil)
		if err != nil {
			return Catalogue{}, err
		}
		if progress != nil {
			fetcher.OnProgress(progress)
		}
		idx, err := fetcher.Fetch(ctx)
		if err != nil {
			return Catalogue{}, fmt.Errorf("fetch remote catalogue: %w", err)
		}
		return Catalogue{Index: idx}, nil
	case ModeLocal, "":
		if cfg.Root == "" {
			return Catalogue{}, errors.New("library root required")
		}
		scanner := library.NewScanner(log, library.ScanConfig{
			Root:         cfg.Root,
			Workers:      cfg.ScanWorkers,
			ProbeTimeout: cfg.ProbeTimeout,
			Locale:       cfg.SortLocale,
		}, ffprobe.NewProber(cfg.FFprobe), ffprobe.NewThumbnailer(cfg.FFmpeg))
		if progress != nil {
			scanner.OnProgress(progress)
		}
		idx, err := scanner.Scan(ctx)
		if err != nil {
			return Catalogue{}, fmt.Errorf("scan %s: %w", cfg.Root, err)
		}
		return Catalogue{Index: idx, Warnings: scanner.Warnings()}, nil
	default:
		return Catalogue{}, fmt.Errorf("unknown library mode %q", cfg.Mode)
	}
}

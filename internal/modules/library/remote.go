package library

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// RemoteConfig configures catalogue fetching from a peer.
type RemoteConfig struct {
	BaseURL    string
	Workers    int
	Retries    int
	RetryDelay time.Duration
	Locale     string
}

// RemoteFetcher assembles a catalogue from a peer's catalogue documents.
type RemoteFetcher struct {
	cfg      RemoteConfig
	base     *url.URL
	client   *http.Client
	log      *zap.Logger
	progress Progress
}

// NewRemoteFetcher validates the base URL. client may be nil.
func NewRemoteFetcher(log *zap.Logger, cfg RemoteConfig, client *http.Client) (*RemoteFetcher, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	raw := strings.TrimSpace(cfg.BaseURL)
	if raw == "" {
		return nil, errors.New("remote library url required")
	}
	if !strings.HasSuffix(raw, "/") {
		raw += "/"
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("remote library url: %w", err)
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.Retries <= 0 {
		cfg.Retries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	return &RemoteFetcher{cfg: cfg, base: base, client: client, log: log}, nil
}

// OnProgress installs a progress callback counted in videos.
func (r *RemoteFetcher) OnProgress(fn Progress) {
	r.progress = fn
}

// WaitAlive polls the peer's liveness endpoint.
func (r *RemoteFetcher) WaitAlive(ctx context.Context) error {
	var lastErr error
	for attempt := 1; attempt <= r.cfg.Retries; attempt++ {
		lastErr = r.alive(ctx)
		if lastErr == nil {
			r.log.Info("connected to remote library", zap.String("url", r.base.String()))
			return nil
		}
		r.log.Warn("remote library unreachable", zap.Int("attempt", attempt), zap.Error(lastErr))
		if attempt == r.cfg.Retries {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.cfg.RetryDelay):
		}
	}
	return fmt.Errorf("remote library unreachable after %d attempts: %w", r.cfg.Retries, lastErr)
}

func (r *RemoteFetcher) alive(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.resolve("alive"), nil)
	if err != nil {
		return err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("alive status %d", resp.StatusCode)
	}
	return nil
}

// Hierarchy fetches the peer's hierarchy document.
func (r *RemoteFetcher) Hierarchy(ctx context.Context) (Hierarchy, error) {
	var h Hierarchy
	if err := r.getJSON(ctx, r.resolve("hierarchy.json"), &h); err != nil {
		return Hierarchy{}, fmt.Errorf("fetch hierarchy: %w", err)
	}
	return h, nil
}

// FolderDoc fetches one folder document.
func (r *RemoteFetcher) FolderDoc(ctx context.Context, folder string) (FolderDoc, error) {
	rel := "index.json"
	if p := NormalizePath(folder); p != "." {
		rel = p + "/index.json"
	}
	var doc FolderDoc
	if err := r.getJSON(ctx, r.resolve(rel), &doc); err != nil {
		return FolderDoc{}, fmt.Errorf("fetch folder %s: %w", folder, err)
	}
	return doc, nil
}

// Fetch builds the whole catalogue. Any failed document aborts the build.
func (r *RemoteFetcher) Fetch(ctx context.Context) (*Index, error) {
	started := time.Now()
	if err := r.WaitAlive(ctx); err != nil {
		return nil, err
	}
	h, err := r.Hierarchy(ctx)
	if err != nil {
		return nil, err
	}

	total := h.Total()
	sorter := NewSorter(r.cfg.Locale)
	folders := make([]*Folder, len(h.Folders))
	var mu sync.Mutex
	done := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Workers)
	for i, entry := range h.Folders {
		g.Go(func() error {
			doc, err := r.FolderDoc(gctx, entry.Path)
			if err != nil {
				return err
			}
			if doc.Path == "" {
				doc.Path = entry.Path
			}
			folders[i] = doc.Folder(sorter)
			mu.Lock()
			done += entry.Medias
			if r.progress != nil {
				r.progress(done, total)
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	idx := NewIndex(r.base.String(), folders)
	_, medias, _ := idx.Counts()
	r.log.Info("remote catalogue fetched", zap.Duration("elapsed", time.Since(started)), zap.Int("folders", len(folders)), zap.Int("items", medias))
	return idx, nil
}

func (r *RemoteFetcher) resolve(rel string) string {
	return r.base.ResolveReference(&url.URL{Path: rel}).String()
}

func (r *RemoteFetcher) getJSON(ctx context.Context, target string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

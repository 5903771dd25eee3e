package library

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mikey-austin/homewatch/internal/ports"
)

// HiddenDir is the per-folder cache directory.
const HiddenDir = ".homewatch"

var (
	videoExts    = buildExtMap([]string{".avi", ".m4v", ".mkv", ".mov", ".mp4", ".webm", ".wmv"})
	subtitleExts = buildExtMap([]string{".srt", ".sub", ".ass"})
	playlistExts = buildExtMap([]string{".playlist"})
)

type entryKind int

const (
	entryIgnored entryKind = iota
	entryVideo
	entrySubtitle
	entryPlaylist
)

func classify(name string) entryKind {
	ext := strings.ToLower(filepath.Ext(name))
	switch {
	case videoExts[ext]:
		return entryVideo
	case subtitleExts[ext]:
		return entrySubtitle
	case playlistExts[ext]:
		return entryPlaylist
	default:
		return entryIgnored
	}
}

// IsVideo reports whether name has a video extension.
func IsVideo(name string) bool {
	return classify(name) == entryVideo
}

func buildExtMap(exts []string) map[string]bool {
	out := make(map[string]bool, len(exts))
	for _, ext := range exts {
		out[strings.ToLower(ext)] = true
	}
	return out
}

// ScanConfig configures a local scan.
type ScanConfig struct {
	Root         string
	Workers      int
	ProbeTimeout time.Duration
	Locale       string
}

// Warning is a non-fatal scan problem kept for reporting.
type Warning struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// Progress receives the number of processed videos out of the hierarchy total.
type Progress func(done int, total int)

// Scanner builds a catalogue from a local directory tree.
type Scanner struct {
	cfg      ScanConfig
	prober   ports.Prober
	thumbs   ports.Thumbnailer
	log      *zap.Logger
	sorter   Sorter
	progress Progress

	mu       sync.Mutex
	warnings []Warning
	done     int
	total    int
}

// NewScanner creates a scanner. thumbs may be nil to skip thumbnails.
func NewScanner(log *zap.Logger, cfg ScanConfig, prober ports.Prober, thumbs ports.Thumbnailer) *Scanner {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Scanner{cfg: cfg, prober: prober, thumbs: thumbs, log: log, sorter: NewSorter(cfg.Locale)}
}

// OnProgress installs a progress callback.
func (s *Scanner) OnProgress(fn Progress) {
	s.progress = fn
}

// Warnings returns the warnings recorded by the last scan.
func (s *Scanner) Warnings() []Warning {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Warning{}, s.warnings...)
}

// Scan walks the whole tree. A missing root or an unreadable directory aborts
// the scan; a file that cannot be probed is dropped with a warning.
func (s *Scanner) Scan(ctx context.Context) (*Index, error) {
	started := time.Now()
	hierarchy, err := BuildHierarchy(s.cfg.Root)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.warnings = nil
	s.done = 0
	s.total = hierarchy.Total()
	s.mu.Unlock()
	s.log.Info("scan started", zap.String("root", s.cfg.Root), zap.Int("folders", len(hierarchy.Folders)), zap.Int("videos", s.total))

	folders := make([]*Folder, 0, len(hierarchy.Folders))
	for _, entry := range hierarchy.Folders {
		folder, err := s.ScanFolder(ctx, entry.Path)
		if err != nil {
			return nil, err
		}
		folders = append(folders, folder)
	}

	idx := NewIndex(s.cfg.Root, folders)
	_, medias, playlists := idx.Counts()
	s.log.Info("scan complete",
		zap.Duration("elapsed", time.Since(started)),
		zap.Int("folders", len(folders)),
		zap.Int("items", medias),
		zap.Int("playlists", playlists),
		zap.Int("warnings", len(s.Warnings())))
	return idx, nil
}

// ScanFolder builds a single folder from the directory at rel.
func (s *Scanner) ScanFolder(ctx context.Context, rel string) (*Folder, error) {
	rel = NormalizePath(rel)
	abs := filepath.Join(s.cfg.Root, filepath.FromSlash(rel))
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read folder %s: %w", rel, err)
	}

	folder := NewFolder(rel)
	var videos, sidecars []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() {
			if name != HiddenDir {
				folder.AddSubfolder(NewSubfolder(name))
			}
			continue
		}
		switch classify(name) {
		case entryVideo:
			videos = append(videos, name)
		case entrySubtitle:
			sidecars = append(sidecars, name)
		case entryPlaylist:
			pl, err := readPlaylist(filepath.Join(abs, name))
			if err != nil {
				s.warn(JoinPath(rel, name), "playlist unreadable: "+err.Error())
				continue
			}
			folder.AddPlaylist(pl)
		}
	}

	medias := make([]*Media, len(videos))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)
	for i, name := range videos {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			m, err := s.buildMedia(gctx, abs, rel, name)
			s.advance()
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				s.warn(JoinPath(rel, name), err.Error())
				return nil
			}
			medias[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byStem := map[string]*Media{}
	for _, m := range medias {
		if m == nil {
			continue
		}
		folder.AddMedia(m)
		byStem[m.Stem] = m
	}
	for _, name := range sidecars {
		stem, lang := splitSubtitleStem(strings.TrimSuffix(name, filepath.Ext(name)))
		m, ok := byStem[stem]
		if !ok {
			s.warn(JoinPath(rel, name), "no media matches subtitle file")
			continue
		}
		m.SubtitleSources = append(m.SubtitleSources, SubtitleSource{Kind: SubtitleFile, Basename: name, Language: lang})
	}

	folder.Sort(s.sorter)
	return folder, nil
}

func (s *Scanner) buildMedia(ctx context.Context, abs string, rel string, name string) (*Media, error) {
	m := NewMedia(rel, name)
	videoPath := filepath.Join(abs, name)
	cacheDir := filepath.Join(abs, HiddenDir)

	probe, err := s.cachedProbe(ctx, videoPath, filepath.Join(cacheDir, m.Stem+".probe.json"))
	if err != nil {
		return nil, fmt.Errorf("probe failed: %w", err)
	}
	if err := m.applyProbe(probe); err != nil {
		return nil, fmt.Errorf("probe result: %w", err)
	}
	if s.thumbs != nil {
		m.Thumbnail = s.thumbnail(ctx, videoPath, cacheDir, m)
	}
	return m, nil
}

func (s *Scanner) cachedProbe(ctx context.Context, videoPath string, cachePath string) (ports.ProbeResult, error) {
	if data, err := os.ReadFile(cachePath); err == nil {
		var cached ports.ProbeResult
		if err := json.Unmarshal(data, &cached); err == nil {
			return cached, nil
		}
		s.log.Debug("probe cache unreadable", zap.String("path", cachePath))
	}

	if s.prober == nil {
		return ports.ProbeResult{}, errors.New("no prober configured")
	}
	probeCtx := ctx
	if s.cfg.ProbeTimeout > 0 {
		var cancel context.CancelFunc
		probeCtx, cancel = context.WithTimeout(ctx, s.cfg.ProbeTimeout)
		defer cancel()
	}
	result, err := s.prober.Probe(probeCtx, videoPath)
	if err != nil {
		return ports.ProbeResult{}, err
	}
	if err := writeCacheJSON(cachePath, result); err != nil {
		s.log.Debug("probe cache write failed", zap.String("path", cachePath), zap.Error(err))
	}
	return result, nil
}

func (s *Scanner) thumbnail(ctx context.Context, videoPath string, cacheDir string, m *Media) string {
	name := m.Stem + ".thumbnail.jpg"
	rel := path.Join(HiddenDir, name)
	out := filepath.Join(cacheDir, name)
	if _, err := os.Stat(out); err == nil {
		return rel
	}
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		s.warn(m.Path(), "thumbnail directory: "+err.Error())
		return ""
	}
	at := time.Duration(m.Duration / 2 * float64(time.Second))
	err := s.thumbs.Extract(ctx, videoPath, out, at)
	if err != nil && at > 0 {
		s.log.Debug("thumbnail retry at start", zap.String("path", m.Path()), zap.Error(err))
		err = s.thumbs.Extract(ctx, videoPath, out, 0)
	}
	if err != nil {
		s.warn(m.Path(), "thumbnail failed: "+err.Error())
		return ""
	}
	return rel
}

func (s *Scanner) warn(p string, msg string) {
	s.log.Warn("scan warning", zap.String("path", p), zap.String("reason", msg))
	s.mu.Lock()
	s.warnings = append(s.warnings, Warning{Path: p, Message: msg})
	s.mu.Unlock()
}

// advance reports progress with the lock held so callbacks are serialized.
func (s *Scanner) advance() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.done++
	if s.progress != nil {
		s.progress(s.done, s.total)
	}
}

func readPlaylist(p string) (*Playlist, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, err
	}
	pl := &Playlist{Basename: filepath.Base(p)}
	for _, line := range strings.Split(string(data), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			pl.Elements = append(pl.Elements, line)
		}
	}
	return pl, nil
}

func writeCacheJSON(p string, v any) error {
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, p)
}

// BuildHierarchy walks root without probing and counts videos per folder.
func BuildHierarchy(root string) (Hierarchy, error) {
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return Hierarchy{}, fmt.Errorf("%w: %s", ErrNoRoot, root)
	}
	h := Hierarchy{Root: filepath.ToSlash(root)}
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if d.Name() == HiddenDir {
			return filepath.SkipDir
		}
		entries, err := os.ReadDir(p)
		if err != nil {
			return err
		}
		count := 0
		for _, entry := range entries {
			if !entry.IsDir() && IsVideo(entry.Name()) {
				count++
			}
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		h.Folders = append(h.Folders, HierarchyEntry{Path: NormalizePath(filepath.ToSlash(rel)), Medias: count})
		return nil
	})
	if err != nil {
		return Hierarchy{}, fmt.Errorf("walk %s: %w", root, err)
	}
	return h, nil
}

// ClearCache removes every cache directory under root and returns how many were removed.
func ClearCache(log *zap.Logger, root string) (int, error) {
	if log == nil {
		log = zap.NewNop()
	}
	var targets []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && d.Name() == HiddenDir {
			targets = append(targets, p)
			return filepath.SkipDir
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	for _, p := range targets {
		log.Info("removing cache directory", zap.String("path", p))
		if err := os.RemoveAll(p); err != nil {
			return 0, err
		}
	}
	return len(targets), nil
}

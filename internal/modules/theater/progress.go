package theater

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/mikey-austin/homewatch/internal/modules/library"
)

// Progress is a watched offset against a total duration, in milliseconds.
type Progress struct {
	Watched  int64 `json:"progress"`
	Duration int64 `json:"duration"`
}

// MediaView is a media detail with its watch progress.
type MediaView struct {
	library.MediaDetail
	Progress int64 `json:"progress"`
	Viewed   bool  `json:"viewed"`
}

// SubfolderView is a child folder with its aggregate progress.
type SubfolderView struct {
	Basename  string   `json:"basename"`
	Path      string   `json:"path"`
	Title     string   `json:"title"`
	Subtitles []string `json:"subtitles"`
	Progress  Progress `json:"progress"`
}

// PlaylistView is a playlist of a folder view.
type PlaylistView struct {
	Basename string `json:"basename"`
	Path     string `json:"path"`
	Title    string `json:"title"`
	Elements int    `json:"elements"`
}

// FolderView is one folder annotated with watch progress.
type FolderView struct {
	Path       string          `json:"path"`
	Parent     *string         `json:"parent"`
	Medias     []MediaView     `json:"medias"`
	Subfolders []SubfolderView `json:"subfolders"`
	Playlists  []PlaylistView  `json:"playlists"`
	Progress   Progress        `json:"progress"`
}

// HistoryEntry is one stored offset.
type HistoryEntry struct {
	Path     string `json:"path"`
	Offset   int64  `json:"offset"`
	Duration int64  `json:"duration"`
	Viewed   bool   `json:"viewed"`
}

// MediaProgress returns the stored offset of a media.
func (t *Theater) MediaProgress(p string) (int64, error) {
	m, ok := t.index.Media(p)
	if !ok {
		return 0, fmt.Errorf("media %s: %w", p, library.ErrNotFound)
	}
	return t.history.Get(m.Path()), nil
}

// MediaView returns one media with its progress.
func (t *Theater) MediaView(p string) (MediaView, error) {
	m, ok := t.index.Media(p)
	if !ok {
		return MediaView{}, fmt.Errorf("media %s: %w", p, library.ErrNotFound)
	}
	return t.mediaView(m), nil
}

func (t *Theater) mediaView(m *library.Media) MediaView {
	offset := t.history.Get(m.Path())
	return MediaView{
		MediaDetail: library.NewMediaDetail(m, t.cfg.CastGeneration),
		Progress:    offset,
		Viewed:      t.viewed(offset, m.DurationMS()),
	}
}

// FolderView returns a folder with per-media and aggregate progress.
func (t *Theater) FolderView(p string) (FolderView, error) {
	f, ok := t.index.Folder(p)
	if !ok {
		return FolderView{}, fmt.Errorf("folder %s: %w", p, library.ErrNotFound)
	}
	memo := map[string]Progress{}
	view := FolderView{
		Path:       f.Path,
		Medias:     make([]MediaView, 0, len(f.Medias)),
		Subfolders: make([]SubfolderView, 0, len(f.Subfolders)),
		Playlists:  make([]PlaylistView, 0, len(f.Playlists)),
		Progress:   t.folderProgress(f.Path, memo),
	}
	if parent, ok := f.Parent(); ok {
		view.Parent = &parent
	}
	for _, m := range f.Medias {
		view.Medias = append(view.Medias, t.mediaView(m))
	}
	for _, sub := range f.Subfolders {
		sp := f.SubfolderPath(sub.Basename)
		view.Subfolders = append(view.Subfolders, SubfolderView{
			Basename:  sub.Basename,
			Path:      sp,
			Title:     sub.Title,
			Subtitles: sub.Subtitles,
			Progress:  t.folderProgress(sp, memo),
		})
	}
	for _, pl := range f.Playlists {
		view.Playlists = append(view.Playlists, PlaylistView{
			Basename: pl.Basename,
			Path:     pl.Path(),
			Title:    pl.Title(),
			Elements: len(pl.Elements),
		})
	}
	return view, nil
}

// folderProgress sums offsets and durations of a folder and its descendants.
func (t *Theater) folderProgress(p string, memo map[string]Progress) Progress {
	if cached, ok := memo[p]; ok {
		return cached
	}
	var total Progress
	f, ok := t.index.Folder(p)
	if !ok {
		return total
	}
	memo[p] = total
	for _, m := range f.Medias {
		total.Watched += t.history.Get(m.Path())
		total.Duration += m.DurationMS()
	}
	for _, sub := range f.Subfolders {
		child := t.folderProgress(f.SubfolderPath(sub.Basename), memo)
		total.Watched += child.Watched
		total.Duration += child.Duration
	}
	memo[p] = total
	return total
}

func (t *Theater) viewed(offset int64, duration int64) bool {
	if duration <= 0 {
		return false
	}
	if duration-offset <= t.cfg.ViewedThreshold.Milliseconds() {
		return true
	}
	return t.cfg.ViewedRatio > 0 && float64(offset)/float64(duration) >= t.cfg.ViewedRatio
}

// SetViewed marks a media, or every media under a folder, as viewed (offset set
// to the duration) or unviewed (offset zero).
func (t *Theater) SetViewed(p string, viewed bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if m, ok := t.index.Media(p); ok {
		return t.markLocked(m, viewed)
	}
	if _, ok := t.index.Folder(p); !ok {
		return fmt.Errorf("%s: %w", p, library.ErrNotFound)
	}
	visited := map[string]bool{}
	return t.markFolderLocked(library.NormalizePath(p), viewed, visited)
}

func (t *Theater) markFolderLocked(p string, viewed bool, visited map[string]bool) error {
	if visited[p] {
		return nil
	}
	visited[p] = true
	f, ok := t.index.Folder(p)
	if !ok {
		return nil
	}
	for _, m := range f.Medias {
		if err := t.markLocked(m, viewed); err != nil {
			return err
		}
	}
	for _, sub := range f.Subfolders {
		if err := t.markFolderLocked(f.SubfolderPath(sub.Basename), viewed, visited); err != nil {
			return err
		}
	}
	return nil
}

func (t *Theater) markLocked(m *library.Media, viewed bool) error {
	var offset int64
	if viewed {
		offset = m.DurationMS()
	}
	if err := t.history.Set(m.Path(), offset); err != nil {
		return fmt.Errorf("mark %s: %w", m.Path(), err)
	}
	t.log.Debug("marked", zap.String("media", m.Path()), zap.Bool("viewed", viewed))
	return nil
}

// History lists every stored offset by path. Paths gone from the catalogue
// carry no duration.
func (t *Theater) History() []HistoryEntry {
	all := t.history.All()
	out := make([]HistoryEntry, 0, len(all))
	for p, offset := range all {
		entry := HistoryEntry{Path: p, Offset: offset}
		if m, ok := t.index.Media(p); ok {
			entry.Duration = m.DurationMS()
			entry.Viewed = t.viewed(offset, entry.Duration)
		}
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

package library

import (
	"errors"
	"path"
	"sort"
)

var (
	// ErrNotFound is returned for catalogue paths that do not resolve.
	ErrNotFound = errors.New("not found")
	// ErrNoRoot is returned when the library root is missing or not a directory.
	ErrNoRoot = errors.New("library root not found")
)

// Index is the catalogue: folders keyed by normalized path. It is read-only
// once built and safe for concurrent readers.
type Index struct {
	root    string
	folders map[string]*Folder
}

// NewIndex assembles a catalogue from folders.
func NewIndex(root string, folders []*Folder) *Index {
	idx := &Index{root: root, folders: make(map[string]*Folder, len(folders))}
	for _, f := range folders {
		idx.folders[f.Path] = f
	}
	return idx
}

// Root is the local directory or remote URL the catalogue came from.
func (idx *Index) Root() string {
	return idx.root
}

// Len returns the number of folders.
func (idx *Index) Len() int {
	return len(idx.folders)
}

// Paths returns every folder path in lexical order.
func (idx *Index) Paths() []string {
	paths := make([]string, 0, len(idx.folders))
	for p := range idx.folders {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Folder returns the folder at p.
func (idx *Index) Folder(p string) (*Folder, bool) {
	f, ok := idx.folders[NormalizePath(p)]
	return f, ok
}

// Media resolves a media path.
func (idx *Index) Media(p string) (*Media, bool) {
	p = NormalizePath(p)
	if p == "." {
		return nil, false
	}
	return idx.MediaIn(path.Dir(p), path.Base(p))
}

// MediaIn resolves a basename inside a folder.
func (idx *Index) MediaIn(folder string, basename string) (*Media, bool) {
	f, ok := idx.Folder(folder)
	if !ok {
		return nil, false
	}
	m := f.Media(basename)
	return m, m != nil
}

// Playlist resolves a playlist path.
func (idx *Index) Playlist(p string) (*Playlist, bool) {
	p = NormalizePath(p)
	if p == "." {
		return nil, false
	}
	f, ok := idx.Folder(path.Dir(p))
	if !ok {
		return nil, false
	}
	pl := f.Playlist(path.Base(p))
	return pl, pl != nil
}

// Resolve looks up playlist elements relative to the playlist folder, in
// order, skipping names that no longer resolve.
func (idx *Index) Resolve(pl *Playlist) []*Media {
	out := make([]*Media, 0, len(pl.Elements))
	for _, name := range pl.Elements {
		if m, ok := idx.Media(JoinPath(pl.FolderPath, name)); ok {
			out = append(out, m)
		}
	}
	return out
}

// Counts returns folder, media and playlist totals.
func (idx *Index) Counts() (folders int, medias int, playlists int) {
	for _, f := range idx.folders {
		medias += len(f.Medias)
		playlists += len(f.Playlists)
	}
	return len(idx.folders), medias, playlists
}

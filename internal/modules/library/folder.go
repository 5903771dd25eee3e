package library

import (
	"path"
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Playlist is an ordered list of item names resolved against the catalogue
// when it is played.
type Playlist struct {
	Basename   string
	Elements   []string
	FolderPath string
}

// Title is the playlist file stem.
func (p *Playlist) Title() string {
	return strings.TrimSuffix(p.Basename, path.Ext(p.Basename))
}

// Path is the normalized catalogue path of the playlist.
func (p *Playlist) Path() string {
	return JoinPath(p.FolderPath, p.Basename)
}

// Subfolder is a child folder reference held by its parent.
type Subfolder struct {
	Basename  string
	Title     string
	Subtitles []string
}

// NewSubfolder derives display fields from a directory name.
func NewSubfolder(basename string) Subfolder {
	title, subtitles := ParseFolderName(basename)
	return Subfolder{Basename: basename, Title: title, Subtitles: subtitles}
}

// Folder is one directory of the catalogue.
type Folder struct {
	Path       string
	Medias     []*Media
	Subfolders []Subfolder
	Playlists  []*Playlist

	mediaIndex    map[string]*Media
	playlistIndex map[string]*Playlist
}

// NewFolder creates an empty folder at a normalized path.
func NewFolder(p string) *Folder {
	return &Folder{
		Path:          NormalizePath(p),
		mediaIndex:    map[string]*Media{},
		playlistIndex: map[string]*Playlist{},
	}
}

// Name is the last path element; the root is ".".
func (f *Folder) Name() string {
	return path.Base(f.Path)
}

// Parent returns the parent folder path and false for the root.
func (f *Folder) Parent() (string, bool) {
	if f.Path == "." {
		return "", false
	}
	return NormalizePath(path.Dir(f.Path)), true
}

// SubfolderPath returns the catalogue path of a child folder.
func (f *Folder) SubfolderPath(basename string) string {
	return JoinPath(f.Path, basename)
}

// AddMedia appends m; a duplicate basename replaces nothing and is reported false.
func (f *Folder) AddMedia(m *Media) bool {
	if _, ok := f.mediaIndex[m.Basename]; ok {
		return false
	}
	m.FolderPath = f.Path
	f.Medias = append(f.Medias, m)
	f.mediaIndex[m.Basename] = m
	return true
}

// AddSubfolder appends a child reference unless already present.
func (f *Folder) AddSubfolder(sub Subfolder) bool {
	for _, existing := range f.Subfolders {
		if existing.Basename == sub.Basename {
			return false
		}
	}
	f.Subfolders = append(f.Subfolders, sub)
	return true
}

// AddPlaylist appends p unless its basename is taken.
func (f *Folder) AddPlaylist(p *Playlist) bool {
	if _, ok := f.playlistIndex[p.Basename]; ok {
		return false
	}
	p.FolderPath = f.Path
	f.Playlists = append(f.Playlists, p)
	f.playlistIndex[p.Basename] = p
	return true
}

// Media returns the direct media with basename.
func (f *Folder) Media(basename string) *Media {
	return f.mediaIndex[basename]
}

// Playlist returns the direct playlist with basename.
func (f *Folder) Playlist(basename string) *Playlist {
	return f.playlistIndex[basename]
}

// MediaIndex returns the position of basename in Medias, or -1.
func (f *Folder) MediaIndex(basename string) int {
	for i, m := range f.Medias {
		if m.Basename == basename {
			return i
		}
	}
	return -1
}

// Sort orders every container with s.
func (f *Folder) Sort(s Sorter) {
	s.sort(len(f.Medias), func(i int) string { return f.Medias[i].Basename }, func(i, j int) {
		f.Medias[i], f.Medias[j] = f.Medias[j], f.Medias[i]
	})
	s.sort(len(f.Subfolders), func(i int) string { return f.Subfolders[i].Basename }, func(i, j int) {
		f.Subfolders[i], f.Subfolders[j] = f.Subfolders[j], f.Subfolders[i]
	})
	s.sort(len(f.Playlists), func(i int) string { return f.Playlists[i].Basename }, func(i, j int) {
		f.Playlists[i], f.Playlists[j] = f.Playlists[j], f.Playlists[i]
	})
}

// Sorter orders names with a locale collation that ignores diacritics.
type Sorter struct {
	tag language.Tag
}

// NewSorter builds a sorter for a BCP 47 locale; unknown locales fall back to the root collation.
func NewSorter(locale string) Sorter {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.Und
	}
	return Sorter{tag: tag}
}

// Less compares two names.
func (s Sorter) Less(a, b string) bool {
	return s.collator().CompareString(a, b) < 0
}

// Strings sorts names in place.
func (s Sorter) Strings(names []string) {
	c := s.collator()
	sort.SliceStable(names, func(i, j int) bool {
		return c.CompareString(names[i], names[j]) < 0
	})
}

func (s Sorter) collator() *collate.Collator {
	return collate.New(s.tag, collate.IgnoreDiacritics)
}

type swapper struct {
	n    int
	key  func(int) string
	swap func(int, int)
	c    *collate.Collator
}

func (w swapper) Len() int           { return w.n }
func (w swapper) Less(i, j int) bool { return w.c.CompareString(w.key(i), w.key(j)) < 0 }
func (w swapper) Swap(i, j int)      { w.swap(i, j) }

func (s Sorter) sort(n int, key func(int) string, swap func(int, int)) {
	if n < 2 {
		return
	}
	sort.Stable(swapper{n: n, key: key, swap: swap, c: s.collator()})
}

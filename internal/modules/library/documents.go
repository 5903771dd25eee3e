package library

// MediaDoc is the catalogue document form of a Media.
type MediaDoc struct {
	Basename        string              `json:"basename"`
	Duration        float64             `json:"duration"`
	VideoCodec      string              `json:"video_codec"`
	VideoProfile    string              `json:"video_profile"`
	VideoLevel      int                 `json:"video_level"`
	AudioCodec      string              `json:"audio_codec"`
	AudioProfile    string              `json:"audio_profile"`
	Resolution      int                 `json:"resolution"`
	Framerate       int                 `json:"framerate"`
	Thumbnail       string              `json:"thumbnail"`
	AudioSources    []AudioSource       `json:"audio_sources"`
	SubtitleSources []SubtitleSourceDoc `json:"subtitle_sources"`
	Folder          string              `json:"folder"`
}

// SubtitleSourceDoc is type 0 (track, with id) or type 1 (sidecar, with basename).
type SubtitleSourceDoc struct {
	Type     SubtitleKind `json:"type"`
	Index    *int         `json:"id,omitempty"`
	Basename string       `json:"basename,omitempty"`
	Language string       `json:"lang"`
	Title    string       `json:"title,omitempty"`
}

// SubfolderDoc is a child folder reference.
type SubfolderDoc struct {
	Basename string `json:"basename"`
}

// PlaylistDoc is a playlist with its raw element names.
type PlaylistDoc struct {
	Basename string   `json:"basename"`
	Elements []string `json:"elements"`
}

// FolderDoc is the per-folder catalogue document.
type FolderDoc struct {
	Path       string         `json:"path"`
	Medias     []MediaDoc     `json:"medias"`
	Subfolders []SubfolderDoc `json:"subfolders"`
	Playlists  []PlaylistDoc  `json:"playlists"`
}

// HierarchyEntry is one folder of the hierarchy document.
type HierarchyEntry struct {
	Path   string `json:"path"`
	Medias int    `json:"medias"`
}

// Hierarchy lists every folder with its video count, without probing.
type Hierarchy struct {
	Root    string           `json:"root"`
	Folders []HierarchyEntry `json:"folders"`
}

// Total sums the video counts.
func (h Hierarchy) Total() int {
	total := 0
	for _, f := range h.Folders {
		total += f.Medias
	}
	return total
}

// MediaDetail is a media document with its derived display fields.
type MediaDetail struct {
	MediaDoc
	Path            string `json:"mediapath"`
	Ext             string `json:"ext"`
	Title           string `json:"title"`
	Subtitle        string `json:"subtitle"`
	Counter         int    `json:"counter,omitempty"`
	Season          int    `json:"season,omitempty"`
	Episode         int    `json:"episode,omitempty"`
	Director        string `json:"director,omitempty"`
	Year            int    `json:"year,omitempty"`
	DisplayDuration string `json:"duration_display"`
	MediaType       string `json:"media_type"`
	Castable        bool   `json:"castable"`
	BrowserPlayable bool   `json:"browser_playable"`
}

// NewMediaDoc converts m to its document form.
func NewMediaDoc(m *Media) MediaDoc {
	doc := MediaDoc{
		Basename:        m.Basename,
		Duration:        m.Duration,
		VideoCodec:      m.VideoCodec,
		VideoProfile:    m.VideoProfile,
		VideoLevel:      m.VideoLevel,
		AudioCodec:      m.AudioCodec,
		AudioProfile:    m.AudioProfile,
		Resolution:      m.Resolution,
		Framerate:       m.Framerate,
		Thumbnail:       m.Thumbnail,
		AudioSources:    append([]AudioSource{}, m.AudioSources...),
		SubtitleSources: make([]SubtitleSourceDoc, 0, len(m.SubtitleSources)),
		Folder:          m.FolderPath,
	}
	for _, src := range m.SubtitleSources {
		sd := SubtitleSourceDoc{Type: src.Kind, Language: src.Language}
		if src.Kind == SubtitleTrack {
			index := src.Index
			sd.Index = &index
			sd.Title = src.Title
		} else {
			sd.Basename = src.Basename
		}
		doc.SubtitleSources = append(doc.SubtitleSources, sd)
	}
	return doc
}

// Media rebuilds a Media; display fields are derived again from the basename.
func (d MediaDoc) Media(folder string) *Media {
	m := NewMedia(folder, d.Basename)
	m.Duration = d.Duration
	m.VideoCodec = d.VideoCodec
	m.VideoProfile = d.VideoProfile
	m.VideoLevel = d.VideoLevel
	m.AudioCodec = d.AudioCodec
	m.AudioProfile = d.AudioProfile
	m.Resolution = d.Resolution
	m.Framerate = d.Framerate
	m.Thumbnail = d.Thumbnail
	m.AudioSources = append([]AudioSource{}, d.AudioSources...)
	for _, sd := range d.SubtitleSources {
		src := SubtitleSource{Kind: sd.Type, Basename: sd.Basename, Language: sd.Language, Title: sd.Title}
		if sd.Index != nil {
			src.Index = *sd.Index
		}
		m.SubtitleSources = append(m.SubtitleSources, src)
	}
	return m
}

// NewMediaDetail adds the display and predicate fields to a media document.
func NewMediaDetail(m *Media, gen CastGeneration) MediaDetail {
	return MediaDetail{
		MediaDoc:        NewMediaDoc(m),
		Path:            m.Path(),
		Ext:             m.Ext,
		Title:           m.Title,
		Subtitle:        m.Subtitle(),
		Counter:         m.Counter,
		Season:          m.Season,
		Episode:         m.Episode,
		Director:        m.Director,
		Year:            m.Year,
		DisplayDuration: m.DisplayDuration(),
		MediaType:       MediaType(m),
		Castable:        Castable(m, gen),
		BrowserPlayable: m.BrowserPlayable(),
	}
}

// NewFolderDoc converts f to its document form.
func NewFolderDoc(f *Folder) FolderDoc {
	doc := FolderDoc{
		Path:       f.Path,
		Medias:     make([]MediaDoc, 0, len(f.Medias)),
		Subfolders: make([]SubfolderDoc, 0, len(f.Subfolders)),
		Playlists:  make([]PlaylistDoc, 0, len(f.Playlists)),
	}
	for _, m := range f.Medias {
		doc.Medias = append(doc.Medias, NewMediaDoc(m))
	}
	for _, sub := range f.Subfolders {
		doc.Subfolders = append(doc.Subfolders, SubfolderDoc{Basename: sub.Basename})
	}
	for _, pl := range f.Playlists {
		doc.Playlists = append(doc.Playlists, PlaylistDoc{Basename: pl.Basename, Elements: append([]string{}, pl.Elements...)})
	}
	return doc
}

// Folder rebuilds a Folder from its document, sorted with s.
func (d FolderDoc) Folder(s Sorter) *Folder {
	f := NewFolder(d.Path)
	for _, md := range d.Medias {
		f.AddMedia(md.Media(f.Path))
	}
	for _, sd := range d.Subfolders {
		f.AddSubfolder(NewSubfolder(sd.Basename))
	}
	for _, pd := range d.Playlists {
		f.AddPlaylist(&Playlist{Basename: pd.Basename, Elements: append([]string{}, pd.Elements...)})
	}
	f.Sort(s)
	return f
}

// Hierarchy returns the hierarchy document of the built catalogue.
func (idx *Index) Hierarchy() Hierarchy {
	h := Hierarchy{Root: idx.root, Folders: []HierarchyEntry{}}
	for _, p := range idx.Paths() {
		f, _ := idx.Folder(p)
		h.Folders = append(h.Folders, HierarchyEntry{Path: f.Path, Medias: len(f.Medias)})
	}
	return h
}

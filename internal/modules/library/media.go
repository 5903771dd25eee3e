package library

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"math"
	"path"
	"strconv"
	"strings"

	"github.com/mikey-austin/homewatch/internal/ports"
	"github.com/mikey-austin/homewatch/pkg/hw"
)

// SubtitleKind tells an embedded track from a sidecar file.
type SubtitleKind int

const (
	SubtitleTrack SubtitleKind = 0
	SubtitleFile  SubtitleKind = 1
)

// AudioSource is one audio stream of a media file.
type AudioSource struct {
	Index    int    `json:"id"`
	Language string `json:"lang"`
	Title    string `json:"title"`
}

// SubtitleSource is either an embedded track (Index) or a sidecar file (Basename).
type SubtitleSource struct {
	Kind     SubtitleKind
	Index    int
	Basename string
	Language string
	Title    string
}

// Media is a playable video file. Display fields are derived from the basename
// once, at construction.
type Media struct {
	Basename string
	Ext      string
	Stem     string

	Title    string
	Counter  int
	Season   int
	Episode  int
	Director string
	Year     int

	Duration     float64
	VideoCodec   string
	VideoProfile string
	VideoLevel   int
	AudioCodec   string
	AudioProfile string
	Resolution   int
	Framerate    int
	Thumbnail    string

	AudioSources    []AudioSource
	SubtitleSources []SubtitleSource

	// FolderPath is the normalized path of the owning folder.
	FolderPath string
}

// NewMedia creates a media entry for basename inside folder.
func NewMedia(folder string, basename string) *Media {
	m := &Media{Basename: basename, FolderPath: NormalizePath(folder)}
	fields := ParseFilename(basename)
	m.Stem = fields.Stem
	m.Ext = fields.Ext
	m.Title = fields.Title
	m.Counter = fields.Counter
	m.Season = fields.Season
	m.Episode = fields.Episode
	m.Director = fields.Director
	m.Year = fields.Year
	return m
}

// Path is the normalized catalogue path of the media.
func (m *Media) Path() string {
	return JoinPath(m.FolderPath, m.Basename)
}

// DurationMS returns the duration in milliseconds.
func (m *Media) DurationMS() int64 {
	return int64(m.Duration * 1000)
}

// DisplayDuration renders the duration for listings.
func (m *Media) DisplayDuration() string {
	return DisplayDuration(m.Duration)
}

// Subtitle is the secondary display line.
func (m *Media) Subtitle() string {
	var parts []string
	if m.Counter > 0 {
		parts = append(parts, fmt.Sprintf("#%d", m.Counter))
	}
	if m.Season > 0 {
		parts = append(parts, fmt.Sprintf("Season %d", m.Season))
	}
	if m.Episode > 0 {
		parts = append(parts, fmt.Sprintf("Episode %d", m.Episode))
	}
	if m.Director != "" {
		parts = append(parts, m.Director)
	}
	if m.Year > 0 {
		parts = append(parts, strconv.Itoa(m.Year))
	}
	parts = append(parts, m.DisplayDuration())
	return strings.Join(parts, " · ")
}

// Ref returns the minimal identity record used by status documents.
func (m *Media) Ref() hw.MediaRef {
	return hw.MediaRef{
		Basename:  m.Basename,
		Title:     m.Title,
		Subtitle:  m.Subtitle(),
		Folder:    m.FolderPath,
		Thumbnail: m.Thumbnail,
	}
}

// HasPreferredLanguage reports whether any source is in one of codes.
func (m *Media) HasPreferredLanguage(codes []string) bool {
	for _, src := range m.AudioSources {
		if containsCode(codes, src.Language) {
			return true
		}
	}
	for _, src := range m.SubtitleSources {
		if containsCode(codes, src.Language) {
			return true
		}
	}
	return false
}

// BrowserPlayable reports whether a browser can play the container directly.
func (m *Media) BrowserPlayable() bool {
	switch m.Ext {
	case ".mp4", ".webm", ".ogg":
		return true
	default:
		return false
	}
}

// SourcesSignature digests the audio and subtitle source layout. Two media with
// the same signature accept the same source selection.
func (m *Media) SourcesSignature() string {
	h := sha1.New()
	for _, src := range m.AudioSources {
		fmt.Fprintf(h, "a|%d|%s|%s\n", src.Index, src.Language, src.Title)
	}
	for _, src := range m.SubtitleSources {
		fmt.Fprintf(h, "s|%d|%d|%s|%s|%s\n", src.Kind, src.Index, src.Basename, src.Language, src.Title)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func containsCode(codes []string, lang string) bool {
	if lang == "" {
		return false
	}
	for _, code := range codes {
		if strings.EqualFold(code, lang) {
			return true
		}
	}
	return false
}

// applyProbe fills the technical fields from a prober result.
func (m *Media) applyProbe(probe ports.ProbeResult) error {
	duration, err := strconv.ParseFloat(strings.TrimSpace(probe.Format.Duration), 64)
	if err != nil {
		return fmt.Errorf("invalid duration %q", probe.Format.Duration)
	}
	m.Duration = duration
	m.AudioSources = nil
	m.SubtitleSources = nil
	for _, stream := range probe.Streams {
		switch stream.CodecType {
		case "video":
			m.VideoCodec = stream.CodecName
			m.VideoProfile = stream.Profile
			m.VideoLevel = stream.Level
			m.Resolution = min(stream.Width, stream.Height)
			m.Framerate = parseFrameRate(stream.AvgFrameRate)
		case "audio":
			m.AudioCodec = stream.CodecName
			m.AudioProfile = stream.Profile
			m.AudioSources = append(m.AudioSources, AudioSource{
				Index:    stream.Index,
				Language: stream.Tags["language"],
				Title:    stream.Tags["title"],
			})
		case "subtitle":
			m.SubtitleSources = append(m.SubtitleSources, SubtitleSource{
				Kind:     SubtitleTrack,
				Index:    stream.Index,
				Language: stream.Tags["language"],
				Title:    stream.Tags["title"],
			})
		}
	}
	return nil
}

func parseFrameRate(raw string) int {
	if raw == "" {
		return 0
	}
	num, den, found := strings.Cut(raw, "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	if !found {
		return int(math.Round(n))
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return int(math.Round(n))
	}
	return int(math.Round(n / d))
}

// NormalizePath maps catalogue paths to their canonical form; the root is ".".
func NormalizePath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	p = strings.Trim(p, "/")
	if p == "" {
		return "."
	}
	return path.Clean(p)
}

// JoinPath joins a folder path and a basename the way catalogue keys are built.
func JoinPath(folder string, basename string) string {
	return NormalizePath(path.Join(NormalizePath(folder), basename))
}

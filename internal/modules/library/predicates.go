package library

import (
	"fmt"
	"math"
	"strings"
)

// CastGeneration selects a row of the cast compatibility matrix.
type CastGeneration int

const (
	CastNone CastGeneration = iota
	CastGen1
	CastGen2
	CastGen3
	CastUltra
	CastGoogleTV
	CastNestHub
	CastNestHubMax
)

var castGenerationNames = map[string]CastGeneration{
	"":           CastNone,
	"none":       CastNone,
	"gen1":       CastGen1,
	"gen2":       CastGen2,
	"gen3":       CastGen3,
	"ultra":      CastUltra,
	"googletv":   CastGoogleTV,
	"nesthub":    CastNestHub,
	"nesthubmax": CastNestHubMax,
}

// ParseCastGeneration maps a config name to a generation.
func ParseCastGeneration(name string) (CastGeneration, error) {
	gen, ok := castGenerationNames[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return CastNone, fmt.Errorf("unknown cast generation %q", name)
	}
	return gen, nil
}

var castAudioCodecs = map[string]bool{
	"flac":   true,
	"aac":    true,
	"mp3":    true,
	"opus":   true,
	"vorbis": true,
	"wav":    true,
	"webm":   true,
}

// Castable reports whether a device of generation gen can decode m.
func Castable(m *Media, gen CastGeneration) bool {
	if gen == CastNone {
		return false
	}
	if m.AudioCodec != "" && !castAudioCodecs[m.AudioCodec] {
		return false
	}
	codec, level, res, fps := m.VideoCodec, m.VideoLevel, m.Resolution, m.Framerate
	switch gen {
	case CastGen1, CastGen2:
		return (codec == "h264" && level <= 41) ||
			(codec == "vp8" && ((res <= 720 && fps <= 60) || (res <= 1080 && fps <= 30)))
	case CastGen3:
		return (codec == "h264" && level <= 42) ||
			(codec == "vp8" && ((res <= 720 && fps <= 60) || (res <= 1080 && fps <= 30)))
	case CastUltra:
		return (codec == "h264" && level <= 42) ||
			(codec == "vp8" && res <= 2160 && fps <= 30) ||
			(codec == "hevc" && level <= 51) ||
			(codec == "vp9" && res <= 2160 && fps <= 60)
	case CastGoogleTV:
		return (codec == "h264" && level <= 51) ||
			(codec == "hevc" && level <= 51) ||
			(codec == "vp9" && res <= 2160 && fps <= 60)
	case CastNestHub:
		return (codec == "h264" && level <= 41) ||
			(codec == "vp9" && res <= 720 && fps <= 60)
	case CastNestHubMax:
		return (codec == "h264" && level <= 41) ||
			(codec == "vp9" && res <= 720 && fps <= 30)
	default:
		return false
	}
}

var h264Tags = map[string]string{
	"30/Baseline": "avc1.42E01E",
	"31/Baseline": "avc1.42E01F",
	"31/Main":     "avc1.4D401F",
	"40/Main":     "avc1.4D4028",
	"40/High":     "avc1.640028",
	"41/High":     "avc1.640029",
	"42/High":     "avc1.64002A",
}

// MediaType returns the streaming content type, with a codecs parameter when
// the codecs are known.
func MediaType(m *Media) string {
	var container string
	switch m.Ext {
	case ".mp4":
		container = "video/mp4"
	case ".webm":
		container = "video/webm"
	case ".mkv":
		container = "video/x-matroska"
	default:
		container = "video/mp4"
	}

	video := m.VideoCodec
	if m.VideoCodec == "h264" {
		if tag, ok := h264Tags[fmt.Sprintf("%d/%s", m.VideoLevel, m.VideoProfile)]; ok {
			video = tag
		}
	}

	audio := m.AudioCodec
	switch {
	case m.AudioCodec == "aac" && m.AudioProfile == "HE":
		audio = "mp4a.40.5"
	case m.AudioCodec == "aac" && m.AudioProfile == "LC":
		audio = "mp4a.40.2"
	case m.AudioCodec == "mp3":
		audio = "mp4a.69"
	}

	switch {
	case video != "" && audio != "":
		return fmt.Sprintf(`%s; codecs="%s, %s"`, container, video, audio)
	case video != "":
		return fmt.Sprintf(`%s; codecs="%s"`, container, video)
	case audio != "":
		return fmt.Sprintf(`%s; codecs="%s"`, container, audio)
	default:
		return container
	}
}

// DisplayDuration renders seconds as "42 s", "17 min" or "1:05".
func DisplayDuration(seconds float64) string {
	hours := int(seconds / 3600)
	minutes := int((seconds - float64(3600*hours)) / 60)
	switch {
	case hours == 0 && minutes == 0:
		return fmt.Sprintf("%d s", int(math.Round(seconds)))
	case hours == 0:
		return fmt.Sprintf("%d min", minutes)
	default:
		return fmt.Sprintf("%d:%02d", hours, minutes)
	}
}

package ports

import (
	"context"
	"errors"
	"time"
)

// ErrUnsupported is returned by engines for operations they cannot perform.
var ErrUnsupported = errors.New("unsupported")

// EngineState mirrors the playback engine's reported state.
type EngineState int

const (
	StateIdle EngineState = iota
	StateOpening
	StateBuffering
	StatePlaying
	StatePaused
	StateStopped
	StateEnded
	StateError
)

func (s EngineState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateOpening:
		return "opening"
	case StateBuffering:
		return "buffering"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	case StateEnded:
		return "ended"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// EngineObserver receives asynchronous playback engine events.
// Engines deliver events from their own goroutine, never from inside a command call.
type EngineObserver interface {
	OnTime(ms int64)
	OnState(state EngineState)
	OnMediaChanged()
}

// ObserverHandle identifies a registered observer.
type ObserverHandle struct {
	id uint64
}

// NewObserverHandle wraps a registry-assigned id.
func NewObserverHandle(id uint64) ObserverHandle {
	return ObserverHandle{id: id}
}

// ID returns the registry-assigned id.
func (h ObserverHandle) ID() uint64 {
	return h.id
}

// PlaybackEngine decodes and renders media.
type PlaybackEngine interface {
	Load(uri string) error
	Play() error
	TogglePause() error
	Stop() error
	Seek(ms int64) error
	// Time returns the playback time and false when nothing is loaded.
	Time() (int64, bool)
	State() EngineState
	SetVolume(volume int) error
	// SetAspectRatio accepts "W:H", an empty ratio resets.
	SetAspectRatio(ratio string) error
	SelectAudioTrack(index int) error
	// SelectSubtitleTrack disables subtitles for a negative index.
	SelectSubtitleTrack(index int) error
	AddSubtitleFile(uri string) error
	SetSubtitleDelay(ms int64) error
	Observe(obs EngineObserver) ObserverHandle
	Unobserve(h ObserverHandle)
	Close() error
}

// ProbeStream is one stream of a prober result.
type ProbeStream struct {
	Index        int               `json:"index"`
	CodecType    string            `json:"codec_type"`
	CodecName    string            `json:"codec_name,omitempty"`
	Profile      string            `json:"profile,omitempty"`
	Level        int               `json:"level,omitempty"`
	Width        int               `json:"width,omitempty"`
	Height       int               `json:"height,omitempty"`
	AvgFrameRate string            `json:"avg_frame_rate,omitempty"`
	Tags         map[string]string `json:"tags,omitempty"`
}

// ProbeFormat is the container section of a prober result.
type ProbeFormat struct {
	Duration string `json:"duration"`
}

// ProbeResult is the structured output of the media prober.
type ProbeResult struct {
	Format  ProbeFormat   `json:"format"`
	Streams []ProbeStream `json:"streams"`
}

// Prober analyses a media file.
type Prober interface {
	Probe(ctx context.Context, path string) (ProbeResult, error)
}

// Thumbnailer writes a still image of videoPath taken at offset to outPath.
type Thumbnailer interface {
	Extract(ctx context.Context, videoPath string, outPath string, at time.Duration) error
}

// Clock returns the current unix time in seconds.
type Clock interface {
	NowUnix() int64
}

// IDGen returns unique identifiers.
type IDGen interface {
	NewID() string
}

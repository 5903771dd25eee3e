package renderergstreamer

import (
	"time"

	"go.uber.org/zap"

	"github.com/mikey-austin/homewatch/internal/modules/renderer_core"
)

// Config configures the GStreamer playback engine.
type Config struct {
	PollInterval time.Duration
}

// NewEngine builds a polled engine over an in-process playbin. The caller runs
// the engine's Run loop.
func NewEngine(log *zap.Logger, cfg Config) (*renderercore.Engine, error) {
	driver, err := NewDriver()
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	log.Info("gstreamer engine configured")
	return renderercore.NewEngine(log, driver, cfg.PollInterval), nil
}

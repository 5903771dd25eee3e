package renderervlc

import (
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mikey-austin/homewatch/internal/modules/renderer_core"
)

// Config configures the VLC playback engine.
type Config struct {
	BaseURL      string
	Password     string
	Timeout      time.Duration
	PollInterval time.Duration
}

// NewEngine builds a polled engine over a running VLC HTTP interface. The
// caller runs the engine's Run loop.
func NewEngine(log *zap.Logger, cfg Config) (*renderercore.Engine, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("base_url required")
	}
	driver, err := NewDriver(cfg.BaseURL, cfg.Password, cfg.Timeout)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	log.Info("vlc engine configured", zap.String("url", driver.baseURL))
	return renderercore.NewEngine(log, driver, cfg.PollInterval), nil
}

//go:build !gstreamer

package renderergstreamer

import (
	"errors"

	"github.com/mikey-austin/homewatch/internal/modules/renderer_core"
)

var errNotEnabled = errors.New("gstreamer build tag not enabled")

// Driver is a stub when gstreamer tag is not enabled.
type Driver struct{}

var _ renderercore.Driver = (*Driver)(nil)

// NewDriver returns an error when gstreamer build tag is missing.
func NewDriver() (*Driver, error) {
	return nil, errNotEnabled
}

func (d *Driver) Open(uri string) error               { return errNotEnabled }
func (d *Driver) Play() error                         { return errNotEnabled }
func (d *Driver) TogglePause() error                  { return errNotEnabled }
func (d *Driver) Stop() error                         { return errNotEnabled }
func (d *Driver) Seek(ms int64) error                 { return errNotEnabled }
func (d *Driver) SetVolume(volume int) error          { return errNotEnabled }
func (d *Driver) SetAspectRatio(ratio string) error   { return errNotEnabled }
func (d *Driver) SelectAudioTrack(index int) error    { return errNotEnabled }
func (d *Driver) SelectSubtitleTrack(index int) error { return errNotEnabled }
func (d *Driver) AddSubtitleFile(uri string) error    { return errNotEnabled }
func (d *Driver) SetSubtitleDelay(ms int64) error     { return errNotEnabled }
func (d *Driver) Close() error                        { return nil }

func (d *Driver) Status() (renderercore.Status, error) {
	return renderercore.Status{}, errNotEnabled
}

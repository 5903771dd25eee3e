//go:build gstreamer

package renderergstreamer

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/go-gst/go-gst/gst"

	"github.com/mikey-austin/homewatch/internal/modules/renderer_core"
	"github.com/mikey-austin/homewatch/internal/ports"
)

// Driver implements renderercore.Driver over a GStreamer playbin.
type Driver struct {
	mu      sync.Mutex
	playbin *gst.Element
	opened  bool
	eos     bool
	failed  bool
	media   int
}

var gstInitOnce sync.Once

var _ renderercore.Driver = (*Driver)(nil)

// NewDriver creates a playbin driver.
func NewDriver() (*Driver, error) {
	gstInitOnce.Do(func() {
		gst.Init(nil)
	})
	playbin, err := gst.NewElement("playbin")
	if err != nil {
		return nil, fmt.Errorf("create playbin: %w", err)
	}
	return &Driver{playbin: playbin}, nil
}

func (d *Driver) Open(uri string) error {
	if uri == "" {
		return errors.New("uri required")
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	_ = d.playbin.SetState(gst.StateNull)
	if err := d.playbin.SetProperty("uri", uri); err != nil {
		return err
	}
	_ = d.playbin.SetProperty("suburi", "")
	if err := d.playbin.SetState(gst.StatePaused); err != nil {
		return err
	}
	d.opened = true
	d.eos = false
	d.failed = false
	d.media++
	return nil
}

func (d *Driver) Play() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.opened {
		return errors.New("not opened")
	}
	return d.playbin.SetState(gst.StatePlaying)
}

func (d *Driver) TogglePause() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.opened {
		return errors.New("not opened")
	}
	if d.playbin.GetCurrentState() == gst.StatePlaying {
		return d.playbin.SetState(gst.StatePaused)
	}
	return d.playbin.SetState(gst.StatePlaying)
}

func (d *Driver) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.playbin.SetState(gst.StateReady)
}

func (d *Driver) Seek(ms int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.opened {
		return errors.New("not opened")
	}
	d.eos = false
	return d.seekLocked(ms)
}

func (d *Driver) seekLocked(ms int64) error {
	positionNS := ms * int64(time.Millisecond)
	return d.playbin.SeekSimple(gst.FormatTime, gst.SeekFlagFlush|gst.SeekFlagKeyUnit, positionNS)
}

// SetVolume maps 0-100 onto playbin's linear 0-1 volume.
func (d *Driver) SetVolume(volume int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.playbin.SetProperty("volume", float64(min(max(volume, 0), 100))/100)
}

func (d *Driver) SetAspectRatio(string) error {
	return ports.ErrUnsupported
}

func (d *Driver) SelectAudioTrack(index int) error {
	if index < 0 {
		return ports.ErrUnsupported
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.playbin.SetProperty("current-audio", index)
}

// SelectSubtitleTrack picks an embedded text stream. Disabling needs the
// playbin flags, which the bindings do not expose.
func (d *Driver) SelectSubtitleTrack(index int) error {
	if index < 0 {
		return ports.ErrUnsupported
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.playbin.SetProperty("current-text", index)
}

// AddSubtitleFile reopens the stream with uri as external subtitles and
// returns to the current position.
func (d *Driver) AddSubtitleFile(uri string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.opened {
		return errors.New("not opened")
	}
	_, pos := d.playbin.QueryPosition(gst.FormatTime)
	state := d.playbin.GetCurrentState()
	if err := d.playbin.SetState(gst.StateReady); err != nil {
		return err
	}
	if err := d.playbin.SetProperty("suburi", uri); err != nil {
		return err
	}
	if state != gst.StatePlaying {
		state = gst.StatePaused
	}
	if err := d.playbin.SetState(state); err != nil {
		return err
	}
	if pos > 0 {
		return d.seekLocked(pos / int64(time.Millisecond))
	}
	return nil
}

func (d *Driver) SetSubtitleDelay(ms int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.playbin.SetProperty("text-offset", ms*int64(time.Millisecond))
}

func (d *Driver) Status() (renderercore.Status, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.drainBusLocked()
	st := renderercore.Status{MediaID: strconv.Itoa(d.media), EOS: d.eos}
	switch {
	case d.failed:
		st.State = ports.StateError
	case !d.opened:
		st.State = ports.StateIdle
	default:
		switch d.playbin.GetCurrentState() {
		case gst.StatePlaying:
			st.State = ports.StatePlaying
		case gst.StatePaused:
			st.State = ports.StatePaused
		default:
			st.State = ports.StateStopped
		}
	}
	if ok, pos := d.playbin.QueryPosition(gst.FormatTime); ok {
		st.PositionMS = pos / int64(time.Millisecond)
	}
	if ok, dur := d.playbin.QueryDuration(gst.FormatTime); ok {
		st.DurationMS = dur / int64(time.Millisecond)
	}
	return st, nil
}

func (d *Driver) drainBusLocked() {
	bus := d.playbin.GetBus()
	for {
		msg := bus.Pop()
		if msg == nil {
			return
		}
		switch msg.Type() {
		case gst.MessageEOS:
			d.eos = true
		case gst.MessageError:
			d.failed = true
		}
	}
}

func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.opened = false
	return d.playbin.SetState(gst.StateNull)
}

package renderercore

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mikey-austin/homewatch/internal/ports"
)

// endMargin is how close to the duration a playing position counts as the end.
const endMargin = 250 * time.Millisecond

// Status is one poll of a backend.
type Status struct {
	State      ports.EngineState
	PositionMS int64
	DurationMS int64
	// MediaID changes whenever the backend switches input.
	MediaID string
	// EOS is set when the backend itself reported end of stream.
	EOS bool
}

// Driver is the control surface of one playback backend.
type Driver interface {
	Open(uri string) error
	Play() error
	TogglePause() error
	Stop() error
	Seek(ms int64) error
	SetVolume(volume int) error
	SetAspectRatio(ratio string) error
	SelectAudioTrack(index int) error
	SelectSubtitleTrack(index int) error
	AddSubtitleFile(uri string) error
	SetSubtitleDelay(ms int64) error
	Status() (Status, error)
	Close() error
}

var _ ports.PlaybackEngine = (*Engine)(nil)

// Engine adapts a polled Driver to ports.PlaybackEngine. Events are raised from
// the Run goroutine only.
type Engine struct {
	driver   Driver
	log      *zap.Logger
	interval time.Duration

	mu        sync.Mutex
	loaded    bool
	stopped   bool
	last      Status
	hasLast   bool
	state     ports.EngineState
	hasState  bool
	observers map[uint64]ports.EngineObserver
	nextID    uint64
}

// NewEngine wraps driver; interval is the poll period.
func NewEngine(log *zap.Logger, driver Driver, interval time.Duration) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	return &Engine{driver: driver, log: log, interval: interval, observers: map[uint64]ports.EngineObserver{}}
}

// Run polls the driver until ctx is done.
func (e *Engine) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			e.poll()
		}
	}
}

// poll reads the backend once and raises the resulting events.
func (e *Engine) poll() {
	st, err := e.driver.Status()
	if err != nil {
		e.log.Debug("engine poll failed", zap.Error(err))
		return
	}

	e.mu.Lock()
	var events []func(ports.EngineObserver)
	if e.hasLast && st.MediaID != e.last.MediaID {
		events = append(events, func(o ports.EngineObserver) { o.OnMediaChanged() })
	}
	state := e.translateLocked(st)
	if !e.hasState || state != e.state {
		e.state = state
		e.hasState = true
		events = append(events, func(o ports.EngineObserver) { o.OnState(state) })
	}
	moved := !e.hasLast || st.PositionMS != e.last.PositionMS
	if e.loaded && (state == ports.StatePlaying || (state == ports.StatePaused && moved)) {
		pos := st.PositionMS
		events = append(events, func(o ports.EngineObserver) { o.OnTime(pos) })
	}
	e.last = st
	e.hasLast = true
	observers := e.observersLocked()
	e.mu.Unlock()

	for _, event := range events {
		for _, o := range observers {
			event(o)
		}
	}
}

// translateLocked maps the polled backend state. A position at the duration,
// a backend end of stream and a stop nobody asked for all read as ended.
func (e *Engine) translateLocked(st Status) ports.EngineState {
	if !e.loaded {
		return st.State
	}
	atEnd := st.State == ports.StatePlaying && st.DurationMS > 0 &&
		st.PositionMS >= st.DurationMS-endMargin.Milliseconds()
	naturalStop := st.State == ports.StateStopped && !e.stopped &&
		(e.state == ports.StatePlaying || e.state == ports.StateEnded)
	if st.EOS || atEnd || naturalStop {
		return ports.StateEnded
	}
	return st.State
}

func (e *Engine) observersLocked() []ports.EngineObserver {
	out := make([]ports.EngineObserver, 0, len(e.observers))
	for _, o := range e.observers {
		out = append(out, o)
	}
	return out
}

// Observe registers obs for engine events.
func (e *Engine) Observe(obs ports.EngineObserver) ports.ObserverHandle {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextID++
	e.observers[e.nextID] = obs
	return ports.NewObserverHandle(e.nextID)
}

// Unobserve removes a registered observer.
func (e *Engine) Unobserve(h ports.ObserverHandle) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.observers, h.ID())
}

// Load opens uri on the backend.
func (e *Engine) Load(uri string) error {
	if err := e.driver.Open(uri); err != nil {
		return err
	}
	e.mu.Lock()
	e.loaded = true
	e.stopped = false
	e.mu.Unlock()
	return nil
}

// Play starts or resumes playback.
func (e *Engine) Play() error {
	e.mu.Lock()
	e.stopped = false
	e.mu.Unlock()
	return e.driver.Play()
}

// TogglePause pauses or resumes.
func (e *Engine) TogglePause() error {
	return e.driver.TogglePause()
}

// Stop stops playback; the next stopped state is not an end of media.
func (e *Engine) Stop() error {
	e.mu.Lock()
	e.stopped = true
	e.mu.Unlock()
	return e.driver.Stop()
}

// Seek moves to an absolute offset.
func (e *Engine) Seek(ms int64) error {
	return e.driver.Seek(max(ms, 0))
}

// Time returns the last polled position.
func (e *Engine) Time() (int64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.loaded || !e.hasLast {
		return 0, false
	}
	return e.last.PositionMS, true
}

// State returns the last raised state.
func (e *Engine) State() ports.EngineState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Engine) SetVolume(volume int) error          { return e.driver.SetVolume(volume) }
func (e *Engine) SetAspectRatio(ratio string) error   { return e.driver.SetAspectRatio(ratio) }
func (e *Engine) SelectAudioTrack(index int) error    { return e.driver.SelectAudioTrack(index) }
func (e *Engine) SelectSubtitleTrack(index int) error { return e.driver.SelectSubtitleTrack(index) }
func (e *Engine) AddSubtitleFile(uri string) error    { return e.driver.AddSubtitleFile(uri) }
func (e *Engine) SetSubtitleDelay(ms int64) error     { return e.driver.SetSubtitleDelay(ms) }

// Close releases the backend.
func (e *Engine) Close() error {
	return e.driver.Close()
}

package control

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mikey-austin/homewatch/internal/modules/theater"
	"github.com/mikey-austin/homewatch/internal/ports"
	"github.com/mikey-austin/homewatch/pkg/hw"
)

// Sink is one broadcast destination.
type Sink interface {
	ID() string
	// Send queues text without blocking; false prunes the sink.
	Send(text string) bool
	Close()
}

// Config holds the session policies of the hub.
type Config struct {
	CloseOnEnd   bool
	TimeInterval time.Duration
	SleepPoll    time.Duration
	PingInterval time.Duration
	SendBuffer   int
}

// Hub fans session events out to every sink and turns inbound protocol
// messages into session calls. It owns the close-on-end and sleep policies.
type Hub struct {
	log     *zap.Logger
	cfg     Config
	theater *theater.Theater
	clock   ports.Clock
	ids     ports.IDGen
	now     func() time.Time

	mu         sync.Mutex
	sinks      map[string]Sink
	closeOnEnd bool
	sleepAt    int64
	lastTime   time.Time
	closing    bool

	closeCh chan string
	handle  ports.ObserverHandle
}

// New registers a hub on th.
func New(log *zap.Logger, cfg Config, th *theater.Theater, clock ports.Clock, ids ports.IDGen) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.SleepPoll <= 0 {
		cfg.SleepPoll = time.Second
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = 64
	}
	h := &Hub{
		log:        log,
		cfg:        cfg,
		theater:    th,
		clock:      clock,
		ids:        ids,
		now:        time.Now,
		sinks:      map[string]Sink{},
		closeOnEnd: cfg.CloseOnEnd,
		closeCh:    make(chan string, 1),
	}
	h.handle = th.Observe(h)
	return h
}

// Add registers a sink.
func (h *Hub) Add(s Sink) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sinks[s.ID()] = s
	h.log.Debug("sink connected", zap.String("sink", s.ID()), zap.Int("sinks", len(h.sinks)))
}

// Remove unregisters and closes a sink.
func (h *Hub) Remove(id string) {
	h.mu.Lock()
	s, ok := h.sinks[id]
	delete(h.sinks, id)
	h.mu.Unlock()
	if ok {
		s.Close()
		h.log.Debug("sink disconnected", zap.String("sink", id))
	}
}

// Sinks returns the number of registered sinks.
func (h *Hub) Sinks() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sinks)
}

// Broadcast sends text to every sink, pruning the ones that refuse it.
func (h *Hub) Broadcast(text string) {
	h.mu.Lock()
	sinks := make([]Sink, 0, len(h.sinks))
	for _, s := range h.sinks {
		sinks = append(sinks, s)
	}
	h.mu.Unlock()

	h.log.Debug("broadcast", zap.String("message", text))
	for _, s := range sinks {
		if !s.Send(text) {
			h.log.Warn("pruning sink", zap.String("sink", s.ID()))
			h.Remove(s.ID())
		}
	}
}

func (h *Hub) OnTime(ms int64) {
	now := h.now()
	h.mu.Lock()
	if h.cfg.TimeInterval > 0 && !h.lastTime.IsZero() && now.Sub(h.lastTime) < h.cfg.TimeInterval {
		h.mu.Unlock()
		return
	}
	h.lastTime = now
	h.mu.Unlock()
	h.Broadcast(hw.TimeMessage(ms))
}

func (h *Hub) OnState(state ports.EngineState) {
	h.Broadcast(hw.StateMessage(int(state), true))
	if state == ports.StateEnded && h.CloseOnEnd() {
		h.log.Info("playback ended, closing session")
		h.RequestClose(hw.ShutdownEnd)
	}
}

func (h *Hub) OnMediaChanged(path string) { h.Broadcast(hw.MediaPathMessage(path)) }
func (h *Hub) OnSubsDelay(ms int64)       { h.Broadcast(hw.SubsDelayMessage(ms)) }
func (h *Hub) OnQueueChanged()            { h.Broadcast(hw.MsgQueue) }

// SetCloseOnEnd toggles closing the session when playback ends.
func (h *Hub) SetCloseOnEnd(enabled bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closeOnEnd = enabled
}

func (h *Hub) CloseOnEnd() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closeOnEnd
}

// SetSleepAt sets the unix deadline of the session; 0 clears it.
func (h *Hub) SetSleepAt(unix int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sleepAt = unix
}

func (h *Hub) SleepAt() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sleepAt
}

// Run watches the sleep deadline until ctx is done.
func (h *Hub) Run(ctx context.Context) error {
	ticker := time.NewTicker(h.cfg.SleepPoll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			h.checkSleep()
		}
	}
}

func (h *Hub) checkSleep() {
	h.mu.Lock()
	due := h.sleepAt != 0 && h.clock.NowUnix() > h.sleepAt
	if due {
		h.sleepAt = 0
	}
	h.mu.Unlock()
	if due {
		h.log.Info("session is going to sleep")
		h.RequestClose(hw.ShutdownSleep)
	}
}

// RequestClose asks the owner of the hub to close the session. Only the first
// request is delivered.
func (h *Hub) RequestClose(reason string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closing {
		return
	}
	h.closing = true
	h.closeCh <- reason
}

// CloseRequests delivers the reason of the first close request.
func (h *Hub) CloseRequests() <-chan string {
	return h.closeCh
}

// Shutdown tells every sink why the session ends, then drops them.
func (h *Hub) Shutdown(reason string) {
	h.theater.Unobserve(h.handle)
	h.Broadcast(hw.ShutdownMessage(reason))

	h.mu.Lock()
	sinks := h.sinks
	h.sinks = map[string]Sink{}
	h.closing = true
	h.mu.Unlock()
	for _, s := range sinks {
		s.Close()
	}
	h.log.Info("session closed", zap.String("reason", reason), zap.Int("sinks", len(sinks)))
}

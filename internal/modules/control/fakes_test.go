package control

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/mikey-austin/homewatch/internal/modules/library"
	"github.com/mikey-austin/homewatch/internal/modules/theater"
	"github.com/mikey-austin/homewatch/internal/ports"
)

type fakeEngine struct {
	mu        sync.Mutex
	calls     []string
	observers map[uint64]ports.EngineObserver
	nextID    uint64
}

func (f *fakeEngine) record(format string, args ...any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
	return nil
}

func (f *fakeEngine) Load(uri string) error               { return f.record("load %s", uri) }
func (f *fakeEngine) Play() error                         { return f.record("play") }
func (f *fakeEngine) TogglePause() error                  { return f.record("pause") }
func (f *fakeEngine) Stop() error                         { return f.record("stop") }
func (f *fakeEngine) Seek(ms int64) error                 { return f.record("seek %d", ms) }
func (f *fakeEngine) Time() (int64, bool)                 { return 0, true }
func (f *fakeEngine) State() ports.EngineState            { return ports.StateIdle }
func (f *fakeEngine) SetVolume(volume int) error          { return f.record("volume %d", volume) }
func (f *fakeEngine) SetAspectRatio(ratio string) error   { return f.record("aspect %s", ratio) }
func (f *fakeEngine) SelectAudioTrack(index int) error    { return f.record("audio %d", index) }
func (f *fakeEngine) SelectSubtitleTrack(index int) error { return f.record("subtitle %d", index) }
func (f *fakeEngine) AddSubtitleFile(uri string) error    { return f.record("subfile %s", uri) }
func (f *fakeEngine) SetSubtitleDelay(ms int64) error     { return f.record("delay %d", ms) }
func (f *fakeEngine) Close() error                        { return nil }

func (f *fakeEngine) Observe(obs ports.EngineObserver) ports.ObserverHandle {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.observers == nil {
		f.observers = map[uint64]ports.EngineObserver{}
	}
	f.nextID++
	f.observers[f.nextID] = obs
	return ports.NewObserverHandle(f.nextID)
}

func (f *fakeEngine) Unobserve(h ports.ObserverHandle) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.observers, h.ID())
}

func (f *fakeEngine) each(fn func(ports.EngineObserver)) {
	f.mu.Lock()
	obs := make([]ports.EngineObserver, 0, len(f.observers))
	for _, o := range f.observers {
		obs = append(obs, o)
	}
	f.mu.Unlock()
	for _, o := range obs {
		fn(o)
	}
}

func (f *fakeEngine) emitTime(ms int64)                 { f.each(func(o ports.EngineObserver) { o.OnTime(ms) }) }
func (f *fakeEngine) emitState(state ports.EngineState) { f.each(func(o ports.EngineObserver) { o.OnState(state) }) }
func (f *fakeEngine) emitMediaChanged()                 { f.each(func(o ports.EngineObserver) { o.OnMediaChanged() }) }

func (f *fakeEngine) takeCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.calls
	f.calls = nil
	return out
}

type memHistory struct {
	mu      sync.Mutex
	offsets map[string]int64
}

func (h *memHistory) Get(p string) int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.offsets[p]
}

func (h *memHistory) Set(p string, ms int64) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.offsets[p] = ms
	return nil
}

func (h *memHistory) All() map[string]int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make(map[string]int64, len(h.offsets))
	for k, v := range h.offsets {
		out[k] = v
	}
	return out
}

// fakeSink records what it is sent; a full sink refuses everything.
type fakeSink struct {
	id     string
	full   bool
	mu     sync.Mutex
	got    []string
	closed bool
}

func (s *fakeSink) ID() string { return s.id }

func (s *fakeSink) Send(text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.full {
		return false
	}
	s.got = append(s.got, text)
	return true
}

func (s *fakeSink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

func (s *fakeSink) take() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.got
	s.got = nil
	return out
}

func (s *fakeSink) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

type fakeClock struct {
	now atomic.Int64
}

func (c *fakeClock) NowUnix() int64 { return c.now.Load() }

type seqIDs struct {
	n atomic.Int64
}

func (s *seqIDs) NewID() string { return fmt.Sprintf("conn-%d", s.n.Add(1)) }

func testIndex() *library.Index {
	root := library.NewFolder(".")
	root.AddSubfolder(library.NewSubfolder("shows"))
	shows := library.NewFolder("shows")
	for _, name := range []string{"01. Pilot.mkv", "02. Second.mkv", "03. Third.mkv"} {
		m := library.NewMedia("shows", name)
		m.Duration = 1200
		shows.AddMedia(m)
	}
	return library.NewIndex("/srv/media", []*library.Folder{root, shows})
}

type testRig struct {
	hub     *Hub
	theater *theater.Theater
	engine  *fakeEngine
	clock   *fakeClock
	sink    *fakeSink
}

func newTestRig(t *testing.T, cfg Config) *testRig {
	t.Helper()
	engine := &fakeEngine{}
	th := theater.New(zap.NewNop(), theater.Config{
		Loop:          true,
		AutoplayDelay: time.Hour,
		Player: theater.PlayerConfig{
			MediaRoot:     "/srv/media",
			FastForward:   30 * time.Second,
			Rewind:        10 * time.Second,
			SubsDelayStep: 500 * time.Millisecond,
			Volume:        50,
		},
	}, testIndex(), &memHistory{offsets: map[string]int64{}}, engine)
	t.Cleanup(th.Close)
	clock := &fakeClock{}
	hub := New(zap.NewNop(), cfg, th, clock, &seqIDs{})
	sink := &fakeSink{id: "test"}
	hub.Add(sink)
	return &testRig{hub: hub, theater: th, engine: engine, clock: clock, sink: sink}
}

// startPlaying loads the pilot and lets the deferred settings apply.
func (r *testRig) startPlaying(t *testing.T) {
	t.Helper()
	if err := r.theater.LoadAndPlay(theater.LoadRequest{Path: "shows/01. Pilot.mkv"}); err != nil {
		t.Fatalf("load: %v", err)
	}
	r.engine.emitState(ports.StatePlaying)
	r.engine.emitTime(0)
	r.engine.takeCalls()
	r.sink.take()
}

package theater

import (
	"fmt"
	"strings"
	"sync"

	"github.com/mikey-austin/homewatch/internal/ports"
)

// fakeEngine records commands and raises events on demand.
type fakeEngine struct {
	mu        sync.Mutex
	calls     []string
	now       int64
	hasTime   bool
	state     ports.EngineState
	observers map[uint64]ports.EngineObserver
	nextID    uint64
	loadErr   error
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{observers: map[uint64]ports.EngineObserver{}}
}

func (f *fakeEngine) record(format string, args ...any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
	return nil
}

func (f *fakeEngine) Load(uri string) error {
	f.record("load %s", uri)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hasTime = true
	f.now = 0
	return f.loadErr
}

func (f *fakeEngine) Play() error                      { return f.record("play") }
func (f *fakeEngine) TogglePause() error               { return f.record("pause") }
func (f *fakeEngine) Stop() error                      { return f.record("stop") }
func (f *fakeEngine) Seek(ms int64) error              { return f.record("seek %d", ms) }
func (f *fakeEngine) SetVolume(v int) error            { return f.record("volume %d", v) }
func (f *fakeEngine) SetAspectRatio(r string) error    { return f.record("aspect %s", r) }
func (f *fakeEngine) SelectAudioTrack(i int) error     { return f.record("audio %d", i) }
func (f *fakeEngine) SelectSubtitleTrack(i int) error  { return f.record("subtitle %d", i) }
func (f *fakeEngine) AddSubtitleFile(uri string) error { return f.record("subfile %s", uri) }
func (f *fakeEngine) SetSubtitleDelay(ms int64) error  { return f.record("delay %d", ms) }
func (f *fakeEngine) Close() error                     { return f.record("close") }

func (f *fakeEngine) Time() (int64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now, f.hasTime
}

func (f *fakeEngine) State() ports.EngineState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeEngine) Observe(obs ports.EngineObserver) ports.ObserverHandle {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.observers[f.nextID] = obs
	return ports.NewObserverHandle(f.nextID)
}

func (f *fakeEngine) Unobserve(h ports.ObserverHandle) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.observers, h.ID())
}

func (f *fakeEngine) snapshotObservers() []ports.EngineObserver {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]ports.EngineObserver, 0, len(f.observers))
	for _, o := range f.observers {
		out = append(out, o)
	}
	return out
}

func (f *fakeEngine) emitTime(ms int64) {
	f.mu.Lock()
	f.now = ms
	f.mu.Unlock()
	for _, o := range f.snapshotObservers() {
		o.OnTime(ms)
	}
}

func (f *fakeEngine) emitState(state ports.EngineState) {
	f.mu.Lock()
	f.state = state
	f.mu.Unlock()
	for _, o := range f.snapshotObservers() {
		o.OnState(state)
	}
}

func (f *fakeEngine) emitMediaChanged() {
	for _, o := range f.snapshotObservers() {
		o.OnMediaChanged()
	}
}

// takeCalls returns and clears the recorded commands.
func (f *fakeEngine) takeCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.calls
	f.calls = nil
	return out
}

func (f *fakeEngine) callsWithPrefix(prefix string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.calls {
		if strings.HasPrefix(c, prefix) {
			out = append(out, c)
		}
	}
	return out
}

// recordingObserver collects session events.
type recordingObserver struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingObserver) add(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, fmt.Sprintf(format, args...))
}

func (r *recordingObserver) OnTime(ms int64)                 { r.add("time %d", ms) }
func (r *recordingObserver) OnState(state ports.EngineState) { r.add("state %s", state) }
func (r *recordingObserver) OnMediaChanged(path string)      { r.add("media %s", path) }
func (r *recordingObserver) OnSubsDelay(ms int64)            { r.add("delay %d", ms) }
func (r *recordingObserver) OnQueueChanged()                 { r.add("queue") }

func (r *recordingObserver) count(event string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e == event {
			n++
		}
	}
	return n
}

// memHistory is an in-memory History.
type memHistory struct {
	mu      sync.Mutex
	offsets map[string]int64
}

func newMemHistory() *memHistory {
	return &memHistory{offsets: map[string]int64{}}
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

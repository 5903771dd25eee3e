package mqttbridge

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/mikey-austin/homewatch/internal/adapters/clock"
	"github.com/mikey-austin/homewatch/internal/adapters/idgen"
	"github.com/mikey-austin/homewatch/internal/modules/control"
	"github.com/mikey-austin/homewatch/internal/modules/library"
	"github.com/mikey-austin/homewatch/internal/modules/theater"
	"github.com/mikey-austin/homewatch/internal/ports"
	"github.com/mikey-austin/homewatch/pkg/hw"
)

type published struct {
	topic    string
	retained bool
	payload  string
}

type fakeClient struct {
	mu       sync.Mutex
	messages []published
	handlers map[string]func(string, []byte)
}

func (f *fakeClient) Publish(topic string, qos byte, retained bool, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, published{topic: topic, retained: retained, payload: string(payload)})
	return nil
}

func (f *fakeClient) Subscribe(topic string, qos byte, handler func(string, []byte)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.handlers == nil {
		f.handlers = map[string]func(string, []byte){}
	}
	f.handlers[topic] = handler
	return nil
}

func (f *fakeClient) Unsubscribe(topic string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.handlers, topic)
	return nil
}

func (f *fakeClient) deliver(topic string, payload string) bool {
	f.mu.Lock()
	handler := f.handlers[topic]
	f.mu.Unlock()
	if handler == nil {
		return false
	}
	handler(topic, []byte(payload))
	return true
}

func (f *fakeClient) on(topic string) []published {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []published
	for _, m := range f.messages {
		if m.topic == topic {
			out = append(out, m)
		}
	}
	return out
}

// nopEngine accepts every command.
type nopEngine struct{}

func (nopEngine) Load(string) error                                 { return nil }
func (nopEngine) Play() error                                       { return nil }
func (nopEngine) TogglePause() error                                { return nil }
func (nopEngine) Stop() error                                       { return nil }
func (nopEngine) Seek(int64) error                                  { return nil }
func (nopEngine) Time() (int64, bool)                               { return 0, false }
func (nopEngine) State() ports.EngineState                          { return ports.StateIdle }
func (nopEngine) SetVolume(int) error                               { return nil }
func (nopEngine) SetAspectRatio(string) error                       { return nil }
func (nopEngine) SelectAudioTrack(int) error                        { return nil }
func (nopEngine) SelectSubtitleTrack(int) error                     { return nil }
func (nopEngine) AddSubtitleFile(string) error                      { return nil }
func (nopEngine) SetSubtitleDelay(int64) error                      { return nil }
func (nopEngine) Observe(ports.EngineObserver) ports.ObserverHandle { return ports.NewObserverHandle(1) }
func (nopEngine) Unobserve(ports.ObserverHandle)                    {}
func (nopEngine) Close() error                                      { return nil }

type nopHistory struct{}

func (nopHistory) Get(string) int64        { return 0 }
func (nopHistory) Set(string, int64) error { return nil }
func (nopHistory) All() map[string]int64   { return nil }

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestBridgeMirrorsProtocol(t *testing.T) {
	index := library.NewIndex("/srv/media", []*library.Folder{library.NewFolder(".")})
	th := theater.New(zap.NewNop(), theater.Config{Autoplay: true}, index, nopHistory{}, nopEngine{})
	defer th.Close()
	hub := control.New(zap.NewNop(), control.Config{}, th, clock.Clock{}, idgen.Generator{})

	client := &fakeClient{}
	bridge := New(zap.NewNop(), Config{TopicBase: "home/"}, client, hub, th.Status)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- bridge.Run(ctx) }()

	waitFor(t, "bridge registration", func() bool { return hub.Sinks() == 1 })
	if statuses := client.on("home/session/status"); len(statuses) != 1 || !statuses[0].retained {
		t.Fatalf("expected one retained status, got %+v", statuses)
	}

	if !client.deliver("home/session/cmd", "SLAT") {
		t.Fatalf("command topic not subscribed")
	}
	waitFor(t, "event publish", func() bool { return len(client.on("home/session/events")) == 1 })
	if got := client.on("home/session/events")[0].payload; got != "SDEL 500" && got != "SDEL 0" {
		t.Fatalf("unexpected event %q", got)
	}
	waitFor(t, "status refresh", func() bool { return len(client.on("home/session/status")) == 2 })

	client.deliver("home/session/cmd", "AUTO 0")
	hub.Broadcast(hw.TimeMessage(42))
	waitFor(t, "time publish", func() bool { return len(client.on("home/session/events")) == 2 })
	if n := len(client.on("home/session/status")); n != 2 {
		t.Fatalf("time updates must not refresh status, got %d", n)
	}
	var st hw.Status
	last := client.on("home/session/status")[1]
	if err := json.Unmarshal([]byte(last.payload), &st); err != nil {
		t.Fatalf("decode status: %v", err)
	}

	hub.Shutdown(hw.ShutdownRequest)
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("bridge did not stop on shutdown")
	}
	events := client.on("home/session/events")
	if events[len(events)-1].payload != "SHUT request" {
		t.Fatalf("expected shutdown notice last, got %+v", events)
	}
	cancel()
}

func TestSendAfterCloseRefuses(t *testing.T) {
	bridge := New(nil, Config{Buffer: 1}, &fakeClient{}, nil, nil)
	if !bridge.Send("QUEU") || !bridge.Send("QUEU") {
		t.Fatalf("full queue must not prune the bridge")
	}
	bridge.Close()
	if bridge.Send("QUEU") {
		t.Fatalf("closed bridge accepted a message")
	}
}

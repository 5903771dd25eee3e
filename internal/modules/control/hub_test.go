package control

import (
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/mikey-austin/homewatch/internal/ports"
	"github.com/mikey-austin/homewatch/pkg/hw"
)

func TestDispatchDrivesSession(t *testing.T) {
	rig := newTestRig(t, Config{})
	rig.startPlaying(t)

	cases := []struct {
		message string
		want    []string
	}{
		{message: "PAUS", want: []string{"pause"}},
		{message: "PLAY", want: []string{"play"}},
		{message: "STOP", want: []string{"stop"}},
		{message: "SEEK 5000", want: []string{"seek 5000"}},
		{message: "FFWD", want: []string{"seek 30000"}},
		{message: "RWND", want: []string{"seek 0"}},
		{message: "VOLU 30", want: []string{"volume 30"}},
		{message: "ASPR 16:9", want: []string{"aspect 16:9"}},
		{message: "ASPR ", want: []string{"aspect "}},
		{message: "ASRC ", want: []string{"audio -1"}},
		{message: "SSRC ", want: []string{"subtitle -1"}},
		{message: "PONG", want: nil},
	}
	for _, tc := range cases {
		if err := rig.hub.Dispatch("test", tc.message); err != nil {
			t.Fatalf("%q: %v", tc.message, err)
		}
		if got := rig.engine.takeCalls(); !slices.Equal(got, tc.want) {
			t.Fatalf("%q: expected %v, got %v", tc.message, tc.want, got)
		}
	}
}

func TestDispatchQueueCommands(t *testing.T) {
	rig := newTestRig(t, Config{})
	rig.startPlaying(t)

	if err := rig.hub.Dispatch("test", "NEXT"); err != nil {
		t.Fatalf("next: %v", err)
	}
	if got := rig.theater.MediaPath(); got != "shows/02. Second.mkv" {
		t.Fatalf("unexpected media after NEXT: %q", got)
	}
	if err := rig.hub.Dispatch("test", "JUMP 2"); err != nil {
		t.Fatalf("jump: %v", err)
	}
	if got := rig.theater.MediaPath(); got != "shows/03. Third.mkv" {
		t.Fatalf("unexpected media after JUMP: %q", got)
	}
	if err := rig.hub.Dispatch("test", "PREV"); err != nil {
		t.Fatalf("prev: %v", err)
	}
	if got := rig.theater.MediaPath(); got != "shows/02. Second.mkv" {
		t.Fatalf("unexpected media after PREV: %q", got)
	}
	for _, msg := range []string{"AUTO 0", "SHUF 1"} {
		if err := rig.hub.Dispatch("test", msg); err != nil {
			t.Fatalf("%s: %v", msg, err)
		}
	}
	if rig.theater.Autoplay() || !rig.theater.Queue().Shuffle {
		t.Fatalf("flags not applied")
	}
	if got := rig.sink.take(); !slices.Contains(got, hw.MsgQueue) {
		t.Fatalf("expected queue broadcasts, got %v", got)
	}
}

func TestDispatchRejectsMalformed(t *testing.T) {
	rig := newTestRig(t, Config{})
	rig.startPlaying(t)

	cases := []struct {
		message string
		want    error
	}{
		{message: "", want: hw.ErrEmptyCommand},
		{message: "NOPE", want: hw.ErrUnknownCommand},
		{message: "VOLU", want: hw.ErrMissingArg},
		{message: "VOLU 101", want: ErrBadArgument},
		{message: "ASPR wide", want: ErrBadArgument},
		{message: "ASPR 0:1", want: ErrBadArgument},
		{message: "SLEE -1", want: ErrBadArgument},
		{message: "JUMP 9", want: ErrOutOfRange},
		{message: "WEB open", want: ErrWebNotEnabled},
	}
	for _, tc := range cases {
		if err := rig.hub.Dispatch("test", tc.message); !errors.Is(err, tc.want) {
			t.Fatalf("%q: expected %v, got %v", tc.message, tc.want, err)
		}
	}
	if err := rig.hub.Dispatch("test", "SEEK abc"); err == nil {
		t.Fatalf("expected invalid integer error")
	}
	if calls := rig.engine.takeCalls(); len(calls) != 0 {
		t.Fatalf("malformed commands reached the engine: %v", calls)
	}
	if err := rig.hub.Dispatch("test", "PAUS"); err != nil {
		t.Fatalf("session unusable after errors: %v", err)
	}
}

func TestBroadcastsSessionEvents(t *testing.T) {
	rig := newTestRig(t, Config{})
	if err := rig.hub.Dispatch("test", "MEDI"); err != nil {
		t.Fatalf("medi: %v", err)
	}
	rig.startPlaying(t)

	rig.engine.emitState(ports.StatePaused)
	rig.engine.emitMediaChanged()
	rig.engine.emitTime(1500)
	_ = rig.hub.Dispatch("test", "SLAT")
	_ = rig.hub.Dispatch("test", "SLAT")
	_ = rig.hub.Dispatch("test", "SEAR")
	_ = rig.hub.Dispatch("test", "SRST")
	_ = rig.hub.Dispatch("test", "MEDI")

	want := []string{
		"MSTT 4",
		"MPTH shows/01. Pilot.mkv",
		"TIME 1500",
		"SDEL 500",
		"SDEL 1000",
		"SDEL 500",
		"SDEL 0",
		"MPTH shows/01. Pilot.mkv",
	}
	if got := rig.sink.take(); !slices.Equal(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestMediaPathBeforePlayback(t *testing.T) {
	rig := newTestRig(t, Config{})
	_ = rig.hub.Dispatch("test", "MEDI")
	if got := rig.sink.take(); !slices.Equal(got, []string{"MPTH None"}) {
		t.Fatalf("unexpected broadcast %v", got)
	}
}

func TestTimeBroadcastRateLimit(t *testing.T) {
	rig := newTestRig(t, Config{TimeInterval: 900 * time.Millisecond})
	rig.startPlaying(t)

	now := time.Unix(1000, 0)
	rig.hub.now = func() time.Time { return now }
	rig.hub.mu.Lock()
	rig.hub.lastTime = time.Time{}
	rig.hub.mu.Unlock()

	rig.engine.emitTime(100)
	now = now.Add(300 * time.Millisecond)
	rig.engine.emitTime(400)
	now = now.Add(700 * time.Millisecond)
	rig.engine.emitTime(1100)
	if got := rig.sink.take(); !slices.Equal(got, []string{"TIME 100", "TIME 1100"}) {
		t.Fatalf("unexpected time broadcasts %v", got)
	}
}

func TestCloseOnEnd(t *testing.T) {
	rig := newTestRig(t, Config{})
	rig.startPlaying(t)

	rig.engine.emitState(ports.StateEnded)
	select {
	case reason := <-rig.hub.CloseRequests():
		t.Fatalf("unexpected close %q", reason)
	default:
	}

	_ = rig.hub.Dispatch("test", "CLOS 1")
	rig.engine.emitState(ports.StatePlaying)
	rig.engine.emitState(ports.StateEnded)
	select {
	case reason := <-rig.hub.CloseRequests():
		if reason != hw.ShutdownEnd {
			t.Fatalf("expected end, got %q", reason)
		}
	default:
		t.Fatalf("expected a close request")
	}
}

func TestSleepDeadline(t *testing.T) {
	rig := newTestRig(t, Config{})
	rig.clock.now.Store(1000)

	_ = rig.hub.Dispatch("test", "SLEE 1005")
	rig.hub.checkSleep()
	if rig.hub.SleepAt() != 1005 {
		t.Fatalf("deadline fired early")
	}
	_ = rig.hub.Dispatch("test", "SLEE 0")
	rig.clock.now.Store(2000)
	rig.hub.checkSleep()
	select {
	case <-rig.hub.CloseRequests():
		t.Fatalf("cleared deadline fired")
	default:
	}

	_ = rig.hub.Dispatch("test", "SLEE 1500")
	rig.hub.checkSleep()
	select {
	case reason := <-rig.hub.CloseRequests():
		if reason != hw.ShutdownSleep {
			t.Fatalf("expected sleep, got %q", reason)
		}
	default:
		t.Fatalf("expected a close request")
	}
	if rig.hub.SleepAt() != 0 {
		t.Fatalf("deadline not cleared after firing")
	}
}

func TestOnlyFirstCloseRequestDelivered(t *testing.T) {
	rig := newTestRig(t, Config{})
	rig.hub.RequestClose(hw.ShutdownRequest)
	rig.hub.RequestClose(hw.ShutdownRestart)
	if reason := <-rig.hub.CloseRequests(); reason != hw.ShutdownRequest {
		t.Fatalf("expected request, got %q", reason)
	}
	select {
	case reason := <-rig.hub.CloseRequests():
		t.Fatalf("unexpected second close %q", reason)
	default:
	}
}

func TestFullSinkIsPruned(t *testing.T) {
	rig := newTestRig(t, Config{})
	slow := &fakeSink{id: "slow", full: true}
	rig.hub.Add(slow)
	rig.hub.Broadcast(hw.MsgQueue)
	if rig.hub.Sinks() != 1 || !slow.isClosed() {
		t.Fatalf("expected slow sink to be pruned")
	}
	if got := rig.sink.take(); !slices.Equal(got, []string{hw.MsgQueue}) {
		t.Fatalf("healthy sink missed broadcast: %v", got)
	}
}

func TestShutdownNotifiesAndDrops(t *testing.T) {
	rig := newTestRig(t, Config{})
	rig.hub.Shutdown(hw.ShutdownRestart)
	if got := rig.sink.take(); !slices.Equal(got, []string{"SHUT restart"}) {
		t.Fatalf("unexpected shutdown broadcast %v", got)
	}
	if !rig.sink.isClosed() || rig.hub.Sinks() != 0 {
		t.Fatalf("sinks not dropped")
	}
	rig.engine.emitState(ports.StatePlaying)
	if got := rig.sink.take(); len(got) != 0 {
		t.Fatalf("events after shutdown: %v", got)
	}
}

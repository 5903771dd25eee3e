package ffprobe

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"
)

type recordedRun struct {
	name string
	args []string
}

func fakeRun(out string, err error, calls *[]recordedRun, touch string) runFunc {
	return func(_ context.Context, name string, args ...string) ([]byte, error) {
		*calls = append(*calls, recordedRun{name: name, args: args})
		if touch != "" {
			if werr := os.WriteFile(touch, []byte("jpg"), 0o644); werr != nil {
				return nil, werr
			}
		}
		return []byte(out), err
	}
}

func TestProbeDecodesReport(t *testing.T) {
	var calls []recordedRun
	p := NewProber("")
	p.run = fakeRun(`{"format":{"duration":"61.5"},"streams":[{"index":0,"codec_type":"video","codec_name":"h264","level":41,"width":1920,"height":1080,"avg_frame_rate":"24000/1001"},{"index":1,"codec_type":"audio","codec_name":"aac","tags":{"language":"fre"}}]}`, nil, &calls, "")

	result, err := p.Probe(context.Background(), "/srv/a.mkv")
	if err != nil {
		t.Fatalf("probe: %v", err)
	}
	if result.Format.Duration != "61.5" || len(result.Streams) != 2 {
		t.Fatalf("unexpected result %+v", result)
	}
	if result.Streams[1].Tags["language"] != "fre" || result.Streams[0].Level != 41 {
		t.Fatalf("unexpected streams %+v", result.Streams)
	}
	want := []string{"-v", "quiet", "-print_format", "json", "-show_format", "-show_streams", "/srv/a.mkv"}
	if len(calls) != 1 || calls[0].name != "ffprobe" || !slices.Equal(calls[0].args, want) {
		t.Fatalf("unexpected invocation %+v", calls)
	}
}

func TestProbeErrors(t *testing.T) {
	var calls []recordedRun
	p := NewProber("/opt/ffprobe")
	p.run = fakeRun("", errors.New("exit status 1"), &calls, "")
	if _, err := p.Probe(context.Background(), "x.mkv"); err == nil {
		t.Fatalf("expected run error")
	}
	p.run = fakeRun("not json", nil, &calls, "")
	if _, err := p.Probe(context.Background(), "x.mkv"); err == nil {
		t.Fatalf("expected decode error")
	}
	if calls[0].name != "/opt/ffprobe" {
		t.Fatalf("expected configured binary, got %s", calls[0].name)
	}
}

func TestExtractRequiresOutput(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "a.thumbnail.jpg")
	var calls []recordedRun

	th := NewThumbnailer("")
	th.run = fakeRun("", nil, &calls, "")
	if err := th.Extract(context.Background(), "a.mkv", out, time.Hour); err == nil {
		t.Fatalf("expected error when no frame was written")
	}

	th.run = fakeRun("", nil, &calls, out)
	if err := th.Extract(context.Background(), "a.mkv", out, 90*time.Second+250*time.Millisecond); err != nil {
		t.Fatalf("extract: %v", err)
	}
	args := calls[1].args
	if i := slices.Index(args, "-ss"); i < 0 || args[i+1] != "00:01:30.250" {
		t.Fatalf("unexpected seek args %v", args)
	}
	if i := slices.Index(args, "-vf"); i < 0 || args[i+1] != "scale='max(200,300*iw/ih)':'max(300,200*ih/iw)',crop=200:300" {
		t.Fatalf("unexpected filter args %v", args)
	}
	if calls[1].name != "ffmpeg" || args[len(args)-2] != out {
		t.Fatalf("unexpected invocation %+v", calls[1])
	}
}

func TestTimestamp(t *testing.T) {
	cases := []struct {
		at   time.Duration
		want string
	}{
		{at: 0, want: "00:00:00.000"},
		{at: -time.Second, want: "00:00:00.000"},
		{at: time.Hour + 2*time.Minute + 3*time.Second, want: "01:02:03.000"},
		{at: 1500 * time.Millisecond, want: "00:00:01.500"},
	}
	for _, tc := range cases {
		if got := timestamp(tc.at); got != tc.want {
			t.Fatalf("timestamp(%s): expected %s, got %s", tc.at, tc.want, got)
		}
	}
}

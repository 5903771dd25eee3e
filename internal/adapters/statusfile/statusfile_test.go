package statusfile

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/mikey-austin/homewatch/pkg/hw"
)

func TestSaveLoad(t *testing.T) {
	dir := t.TempDir()
	f, err := New(filepath.Join(dir, "state", DefaultName))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := f.Load(); !errors.Is(err, ErrNoStatus) {
		t.Fatalf("expected ErrNoStatus, got %v", err)
	}
	ms := int64(1234)
	st := hw.Status{
		Autoplay: true,
		Queue: hw.QueueStatus{
			Elements: []hw.MediaRef{{Basename: "01.mkv", Folder: "shows"}},
			Ordering: []int{0},
			Current:  hw.IntPtr(0),
			Loop:     true,
		},
		Player: hw.PlayerStatus{Media: &hw.MediaRef{Basename: "01.mkv", Folder: "shows"}, Time: &ms, CurrentVolume: 70},
	}
	if err := f.Save(st); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := f.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !got.Autoplay || *got.Queue.Current != 0 || *got.Player.Time != 1234 || got.Player.CurrentVolume != 70 {
		t.Fatalf("unexpected status %+v", got)
	}
	leftovers, _ := filepath.Glob(filepath.Join(dir, "state", "*.tmp.*"))
	if len(leftovers) != 0 {
		t.Fatalf("temporary files left: %v", leftovers)
	}
}

func TestLoadCorrupt(t *testing.T) {
	p := filepath.Join(t.TempDir(), DefaultName)
	if err := os.WriteFile(p, []byte("{"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	f, _ := New(p)
	if _, err := f.Load(); err == nil || errors.Is(err, ErrNoStatus) {
		t.Fatalf("expected decode error, got %v", err)
	}
}

func TestNewRequiresPath(t *testing.T) {
	if _, err := New(" "); err == nil {
		t.Fatalf("expected error")
	}
}

package hooks

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestResolve(t *testing.T) {
	r := NewRunner(nil, "/etc/homewatch/hooks")
	if got := r.Resolve("tv-on.sh"); got != "/etc/homewatch/hooks/tv-on.sh" {
		t.Fatalf("unexpected relative hook %q", got)
	}
	if got := r.Resolve("/usr/bin/true"); got != "/usr/bin/true" {
		t.Fatalf("unexpected absolute hook %q", got)
	}
	if got := NewRunner(nil, "").Resolve("echo hi"); got != "echo hi" {
		t.Fatalf("unexpected hook without dir %q", got)
	}
}

func TestRunInOrderAndContinuesAfterFailure(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.txt")
	r := NewRunner(nil, "")
	err := r.Run(context.Background(), "pre", []string{
		"echo one >> " + out,
		"exit 3",
		"",
		"echo two >> " + out,
	})
	if err == nil || !strings.Contains(err.Error(), "exit 3") {
		t.Fatalf("expected failing hook error, got %v", err)
	}
	data, rerr := os.ReadFile(out)
	if rerr != nil {
		t.Fatalf("read: %v", rerr)
	}
	if string(data) != "one\ntwo\n" {
		t.Fatalf("unexpected hook output %q", data)
	}
}

func TestRunNoHooks(t *testing.T) {
	if err := NewRunner(nil, "").Run(context.Background(), "post", nil); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
}

package hooks

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// Runner executes session hook commands through the shell, in order.
type Runner struct {
	log   *zap.Logger
	dir   string
	shell string
}

// NewRunner resolves relative hook paths against dir.
func NewRunner(log *zap.Logger, dir string) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{log: log, dir: dir, shell: "sh"}
}

// Resolve returns the command line for hook.
func (r *Runner) Resolve(hook string) string {
	hook = strings.TrimSpace(hook)
	if hook == "" || filepath.IsAbs(hook) || r.dir == "" {
		return hook
	}
	return filepath.Join(r.dir, hook)
}

// Run executes every hook. A failing hook is logged and the rest still run;
// the failures are returned joined.
func (r *Runner) Run(ctx context.Context, stage string, hooks []string) error {
	var errs []error
	for _, hook := range hooks {
		line := r.Resolve(hook)
		if line == "" {
			continue
		}
		r.log.Info("executing hook", zap.String("stage", stage), zap.String("hook", line))
		var out bytes.Buffer
		cmd := exec.CommandContext(ctx, r.shell, "-c", line) // #nosec G204
		cmd.Stdout = &out
		cmd.Stderr = &out
		if err := cmd.Run(); err != nil {
			r.log.Warn("hook failed",
				zap.String("stage", stage),
				zap.String("hook", line),
				zap.String("output", strings.TrimSpace(out.String())),
				zap.Error(err),
			)
			errs = append(errs, fmt.Errorf("%s hook %s: %w", stage, line, err))
		}
	}
	return errors.Join(errs...)
}

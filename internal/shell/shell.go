// Package shell is a small wrapper around os/exec for providers that probe
// and converge system state through external tools.
package shell

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Run executes a command and returns its combined output, trimmed. A
// non-zero exit or a context deadline surfaces as an error that includes
// the output for diagnostics.
func Run(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	raw, err := cmd.CombinedOutput()
	out := strings.TrimSpace(string(raw))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return out, ctxErr
		}
		if out != "" {
			return out, fmt.Errorf("%s: %w: %s", name, err, out)
		}
		return out, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}

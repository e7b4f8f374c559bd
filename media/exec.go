package media

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/google/shlex"
)

// SplitArgs securely splits an argument string into a slice.
// It prevents shell injection by never involving a shell.
func SplitArgs(args string) ([]string, error) {
	split, err := shlex.Split(args)
	if err != nil {
		return nil, fmt.Errorf("invalid argument syntax: %w", err)
	}
	return split, nil
}

// runTool executes an external binary under a bounded timeout and returns
// its combined stdout/stderr.
func runTool(ctx context.Context, timeout time.Duration, bin string, args []string) (string, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, bin, args...)
	var outputBuf bytes.Buffer
	cmd.Stdout = &outputBuf
	cmd.Stderr = &outputBuf

	err := cmd.Run()
	return outputBuf.String(), err
}

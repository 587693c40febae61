package engine

import (
	"context"
	"os/exec"
	"strings"

	scanerrors "github.com/scanwell/scanwell/internal/errors"
)

// CheckBinary verifies that the scan engine binary exists and runs,
// returning its version banner. Called once at startup; an unavailable
// engine is fatal and is never retried per job.
func CheckBinary(ctx context.Context, binary string) (string, error) {
	path, err := exec.LookPath(binary)
	if err != nil {
		return "", scanerrors.ErrEngineUnavailable(err)
	}

	out, err := exec.CommandContext(ctx, path, "--version").Output()
	if err != nil {
		return "", scanerrors.ErrEngineUnavailable(err)
	}

	banner := strings.TrimSpace(strings.SplitN(string(out), "\n", 2)[0])
	return banner, nil
}

package hardware

import (
	"context"
	"os/exec"
	"strings"
	"time"
)

const probeTimeout = 5 * time.Second

// FlashAttentionSupported asks the server binary for its help text and
// checks whether it advertises the flash-attention flag. A binary that
// fails to run, times out, or prints nothing is treated as unsupported.
func FlashAttentionSupported(ctx context.Context, binary string) bool {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, binary, "--help").CombinedOutput()
	if err != nil {
		return false
	}

	return strings.Contains(strings.ToLower(string(out)), "--flash-attn")
}

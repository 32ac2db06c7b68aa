//go:build darwin

package hardware

import "strings"

// Apple Silicon shares memory between CPU and GPU, so every M-series chip
// counts as a modern accelerator for planning purposes.
func probeAccelerator(chip string) (string, bool) {
	if strings.Contains(chip, "Apple M") {
		return chip, true
	}

	return "", false
}

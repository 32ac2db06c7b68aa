//go:build !darwin && !(linux && cgo)

package hardware

func probeAccelerator(_ string) (string, bool) {
	return "", false
}

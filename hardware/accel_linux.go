//go:build linux && cgo

package hardware

import "github.com/NVIDIA/go-nvml/pkg/nvml"

// modernComputeMajor is the first CUDA compute generation (Ampere) whose
// kernels the inference server can drive at full context without penalty.
const modernComputeMajor = 8

func probeAccelerator(_ string) (string, bool) {
	if ret := nvml.Init(); ret != nvml.SUCCESS {
		return "", false
	}
	defer func() {
		_ = nvml.Shutdown()
	}()

	count, ret := nvml.DeviceGetCount()
	if ret != nvml.SUCCESS || count == 0 {
		return "", false
	}

	device, ret := nvml.DeviceGetHandleByIndex(0)
	if ret != nvml.SUCCESS {
		return "", false
	}

	name, ret := device.GetName()
	if ret != nvml.SUCCESS {
		return "", false
	}

	major, _, ret := device.GetCudaComputeCapability()
	if ret != nvml.SUCCESS {
		return name, false
	}

	return name, major >= modernComputeMajor
}

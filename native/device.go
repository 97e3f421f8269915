package native

import (
	"fmt"
	"strings"

	"github.com/wippyai/tvm-go/capi"
	"github.com/wippyai/tvm-go/errors"
)

// deviceNames maps target and device names to device types.
var deviceNames = map[string]int32{
	"cpu":        DeviceCPU,
	"llvm":       DeviceCPU,
	"stackvm":    DeviceCPU,
	"gpu":        DeviceGPU,
	"cuda":       DeviceGPU,
	"nvptx":      DeviceGPU,
	"cpu_pinned": DeviceCPUPinned,
	"cl":         DeviceOpenCL,
	"opencl":     DeviceOpenCL,
	"metal":      DeviceMetal,
	"vpi":        DeviceVPI,
	"rocm":       DeviceROCm,
}

// DeviceTypeOf maps a device or target name to its device type. Target
// strings may carry options after the first space ("llvm -mcpu=x").
func DeviceTypeOf(name string) (int32, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if i := strings.IndexByte(name, ' '); i >= 0 {
		name = name[:i]
	}
	t, ok := deviceNames[name]
	return t, ok
}

func (r *Runtime) device(ctx capi.Context) (DeviceInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.devices[ctx]
	return d, ok
}

func (r *Runtime) hasDeviceType(t int32) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for ctx := range r.devices {
		if ctx.DeviceType == t {
			return true
		}
	}
	return false
}

// Synchronize waits for pending work on a device. Work here is synchronous,
// so this only validates the device.
func (r *Runtime) Synchronize(ctx capi.Context) capi.Status {
	if _, ok := r.device(ctx); !ok {
		return r.fail(errors.NotFound(errors.PhaseRuntime, "device", fmt.Sprintf("%d(%d)", ctx.DeviceType, ctx.DeviceID)))
	}
	return capi.StatusOK
}

// Device attribute kinds accepted by _GetDeviceAttr.
const (
	AttrExist = iota
	AttrMaxThreadsPerBlock
	AttrWarpSize
	AttrMaxSharedMemoryPerBlock
	AttrComputeVersion
	AttrDeviceName
	AttrMaxClockRate
	AttrMultiProcessorCount
	AttrMaxThreadDimensions
)

func (r *Runtime) deviceAttr(c *Call) error {
	devType, err := c.Int(0)
	if err != nil {
		return err
	}
	devID, err := c.Int(1)
	if err != nil {
		return err
	}
	kind, err := c.Int(2)
	if err != nil {
		return err
	}

	d, ok := r.device(capi.Context{DeviceType: int32(devType), DeviceID: int32(devID)})
	if kind == AttrExist {
		c.ReturnBool(ok)
		return nil
	}
	if !ok {
		return errors.NotFound(errors.PhaseRuntime, "device", fmt.Sprintf("%d(%d)", devType, devID))
	}

	switch kind {
	case AttrMaxThreadsPerBlock:
		c.ReturnInt(d.MaxThreadsPerBlock)
	case AttrWarpSize:
		c.ReturnInt(d.WarpSize)
	case AttrMaxSharedMemoryPerBlock:
		c.ReturnInt(d.MaxSharedMemoryPerBlock)
	case AttrComputeVersion:
		c.ReturnString(d.ComputeVersion)
	case AttrDeviceName:
		c.ReturnString(d.Name)
	case AttrMaxClockRate:
		c.ReturnInt(d.MaxClockRate)
	case AttrMultiProcessorCount:
		c.ReturnInt(d.MultiProcessorCount)
	case AttrMaxThreadDimensions:
		c.ReturnString(d.MaxThreadDimensions)
	default:
		return errors.InvalidInput(errors.PhaseRuntime, fmt.Sprintf("unknown device attribute %d", kind))
	}
	return nil
}

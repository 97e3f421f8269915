package native

import (
	goruntime "runtime"

	"go.uber.org/zap"

	"github.com/wippyai/tvm-go/capi"
)

// Device types understood by the runtime. Values match DLDeviceType.
const (
	DeviceCPU       int32 = 1
	DeviceGPU       int32 = 2
	DeviceCPUPinned int32 = 3
	DeviceOpenCL    int32 = 4
	DeviceMetal     int32 = 8
	DeviceVPI       int32 = 9
	DeviceROCm      int32 = 10
)

// DeviceInfo describes a simulated device. All devices are backed by host
// memory; the attributes are reported through _GetDeviceAttr.
type DeviceInfo struct {
	Name                    string
	ComputeVersion          string
	MaxThreadDimensions     string
	Ctx                     capi.Context
	MaxThreadsPerBlock      int64
	WarpSize                int64
	MaxSharedMemoryPerBlock int64
	MaxClockRate            int64
	MultiProcessorCount     int64
}

// Config holds configuration for runtime creation
type Config struct {
	// Logger overrides the package logger for this runtime.
	Logger *zap.Logger

	// Devices lists extra devices besides cpu(0), which always exists.
	Devices []DeviceInfo

	// MemoryLimitPages caps the linear memory of loaded wasm modules in
	// pages (64KB each). 0 means the wazero default.
	MemoryLimitPages uint32

	// MaxPendingReturns bounds how many returned strings and byte arrays
	// stay alive waiting to be read. 0 means 256.
	MaxPendingReturns int
}

const defaultMaxPendingReturns = 256

func cpuDevice() DeviceInfo {
	return DeviceInfo{
		Name:                "cpu",
		Ctx:                 capi.Context{DeviceType: DeviceCPU, DeviceID: 0},
		MaxThreadsPerBlock:  1,
		WarpSize:            1,
		MultiProcessorCount: int64(goruntime.NumCPU()),
		MaxThreadDimensions: "[1, 1, 1]",
	}
}

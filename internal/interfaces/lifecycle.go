package interfaces

import (
	"context"
	"errors"

	"github.com/KevinKickass/OpenMachineConfig/internal/config"
	"github.com/KevinKickass/OpenMachineConfig/internal/dispatch"
	"github.com/KevinKickass/OpenMachineConfig/internal/topology"
	"github.com/KevinKickass/OpenMachineConfig/internal/types"
)

// SystemStatus represents the current system state
type SystemStatus struct {
	State       string `json:"state"`
	StoreDriver string `json:"store_driver"`
	DeviceTypes int    `json:"device_types"`
	WSClients   int    `json:"ws_clients"`
	StartedAt   int64  `json:"started_at"`
	Error       string `json:"error,omitempty"`
}

// ErrBusy is returned when a reload is requested outside the running state.
var ErrBusy = errors.New("system is not in running state")

// MqttProber checks whether a device's broker settings reach a broker.
type MqttProber interface {
	Probe(ctx context.Context, m types.Mqtt) types.ProbeResult
}

// SlaveProber checks whether a Modbus TCP slave answers at address:port.
type SlaveProber interface {
	Probe(ctx context.Context, address string, port int) types.ProbeResult
}

type LifecycleManager interface {
	Config() *config.Config
	Service() *topology.Service
	Dispatcher() *dispatch.Dispatcher
	MqttProber() MqttProber
	SlaveProber() SlaveProber
	GetCurrentStatus() SystemStatus
	ReloadDeviceTypes(ctx context.Context) (int, error)
}

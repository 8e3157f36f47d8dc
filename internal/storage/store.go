package storage

import (
	"context"
	"net/netip"

	"github.com/KevinKickass/OpenMachineConfig/internal/types"
	"github.com/google/uuid"
)

// Store is the persistence facade behind the topology service.
//
// Get* methods return an error wrapping types.ErrNotFound when the row is
// absent. Find* methods return (nil, nil) when nothing matches. Writes that hit
// a unique constraint return an error wrapping types.ErrConflict. Deletes
// cascade to owned children.
type Store interface {
	ProjectStore
	DeviceTypeStore
	DeviceStore
	PortStore
	ProtocolStore
	SlaveDeviceStore
	IOStore
	MqttStore

	Close()
}

type ProjectStore interface {
	CreateProject(ctx context.Context, p *types.Project) error
	GetProject(ctx context.Context, id uuid.UUID) (*types.Project, error)
	ListProjects(ctx context.Context) ([]types.Project, error)
	UpdateProject(ctx context.Context, p *types.Project) error
	DeleteProject(ctx context.Context, id uuid.UUID) error
}

type DeviceTypeStore interface {
	// UpsertDeviceType inserts or replaces a device type and its port
	// template, keyed by id. Models are unique across device types.
	UpsertDeviceType(ctx context.Context, dt *types.DeviceType) error
	GetDeviceType(ctx context.Context, id uuid.UUID) (*types.DeviceType, error)
	ListDeviceTypes(ctx context.Context) ([]types.DeviceType, error)
}

type DeviceStore interface {
	// CreateDeviceBundle persists a device with its ports, settings and MQTT
	// record atomically.
	CreateDeviceBundle(ctx context.Context, b *types.DeviceBundle) error
	GetDevice(ctx context.Context, id uuid.UUID) (*types.Device, error)
	ListDevices(ctx context.Context, projectID uuid.UUID) ([]types.Device, error)
	UpdateDevice(ctx context.Context, d *types.Device) error
	DeleteDevice(ctx context.Context, id uuid.UUID) error
}

type PortStore interface {
	GetDevicePort(ctx context.Context, id uuid.UUID) (*types.DevicePort, error)
	ListDevicePorts(ctx context.Context, deviceID uuid.UUID) ([]types.DevicePort, error)
	UpdateDevicePort(ctx context.Context, p *types.DevicePort) error

	GetPortSetting(ctx context.Context, devicePortID uuid.UUID) (*types.PortSetting, error)
	UpdatePortSetting(ctx context.Context, s *types.PortSetting) error

	// FindPortByIPAddress returns the port of deviceID whose Ethernet setting
	// holds ip, skipping excludeID.
	FindPortByIPAddress(ctx context.Context, deviceID uuid.UUID, ip netip.Addr, excludeID uuid.UUID) (*types.DevicePort, error)
}

type ProtocolStore interface {
	CreateProtocol(ctx context.Context, p *types.Protocol) error
	GetProtocol(ctx context.Context, id uuid.UUID) (*types.Protocol, error)
	ListProtocols(ctx context.Context, devicePortID uuid.UUID) ([]types.Protocol, error)
	UpdateProtocol(ctx context.Context, p *types.Protocol) error
	DeleteProtocol(ctx context.Context, id uuid.UUID) error

	FindProtocolByTCPPort(ctx context.Context, devicePortID uuid.UUID, tcpPort int, excludeID uuid.UUID) (*types.Protocol, error)
}

type SlaveDeviceStore interface {
	CreateSlaveDevice(ctx context.Context, s *types.SlaveDevice) error
	GetSlaveDevice(ctx context.Context, id uuid.UUID) (*types.SlaveDevice, error)
	ListSlaveDevices(ctx context.Context, protocolID uuid.UUID) ([]types.SlaveDevice, error)
	UpdateSlaveDevice(ctx context.Context, s *types.SlaveDevice) error
	DeleteSlaveDevice(ctx context.Context, id uuid.UUID) error

	// FindSlaveByAddress searches every protocol of every port of deviceID.
	FindSlaveByAddress(ctx context.Context, deviceID uuid.UUID, address string, excludeID uuid.UUID) (*types.SlaveDevice, error)
	// FindSlaveInProtocol searches a single protocol.
	FindSlaveInProtocol(ctx context.Context, protocolID uuid.UUID, address string, excludeID uuid.UUID) (*types.SlaveDevice, error)
}

type IOStore interface {
	CreateIO(ctx context.Context, io *types.IO) error
	GetIO(ctx context.Context, id uuid.UUID) (*types.IO, error)
	ListIOs(ctx context.Context, slaveDeviceID uuid.UUID) ([]types.IO, error)
	UpdateIO(ctx context.Context, io *types.IO) error
	DeleteIO(ctx context.Context, id uuid.UUID) error
}

type MqttStore interface {
	GetMqtt(ctx context.Context, deviceID uuid.UUID) (*types.Mqtt, error)
	UpdateMqtt(ctx context.Context, m *types.Mqtt) error
}

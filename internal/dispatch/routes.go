package dispatch

import (
	"context"
	"fmt"

	"github.com/KevinKickass/OpenMachineConfig/internal/topology"
	"github.com/KevinKickass/OpenMachineConfig/internal/types"
	"github.com/google/uuid"
)

type createDevice struct {
	ProjectID uuid.UUID `json:"project_id"`
	topology.DeviceInput
}

type createProtocol struct {
	DevicePortID uuid.UUID `json:"device_port_id"`
	topology.ProtocolInput
}

type createSlave struct {
	ProtocolID uuid.UUID `json:"protocol_id"`
	topology.SlaveInput
}

type createIO struct {
	SlaveDeviceID uuid.UUID `json:"slave_device_id"`
	topology.IOInput
}

type findPort struct {
	DeviceID  uuid.UUID `json:"device_id"`
	IPAddress string    `json:"ip_address"`
}

type findProtocol struct {
	DevicePortID uuid.UUID `json:"device_port_id"`
	TCPPort      *int      `json:"tcp_port"`
}

type findSlave struct {
	DeviceID      uuid.UUID `json:"device_id"`
	DeviceAddress string    `json:"device_address"`
}

func (d *Dispatcher) registerRoutes() {
	s := d.svc

	// project
	d.on(types.EntityProject, ActionFindMany, with(func(ctx context.Context, _ struct{}) ([]types.Project, error) {
		return s.ListProjects(ctx)
	}))
	d.on(types.EntityProject, ActionFindUnique, get(s.GetProject))
	d.on(types.EntityProject, ActionCreate, with(s.CreateProject))
	d.on(types.EntityProject, ActionUpdate, update(s.UpdateProject))
	d.on(types.EntityProject, ActionDelete, remove(s.DeleteProject))

	// deviceType is read-only; templates are synchronised at startup.
	d.on(types.EntityDeviceType, ActionFindMany, with(func(ctx context.Context, _ struct{}) ([]types.DeviceType, error) {
		return s.ListDeviceTypes(ctx)
	}))
	d.on(types.EntityDeviceType, ActionFindUnique, get(s.GetDeviceType))

	// device
	d.on(types.EntityDevice, ActionFindMany, list(s.ListDevices))
	d.on(types.EntityDevice, ActionFindUnique, get(s.GetDevice))
	d.on(types.EntityDevice, ActionCreate, with(func(ctx context.Context, p createDevice) (*types.DeviceBundle, error) {
		return s.ProvisionDevice(ctx, p.ProjectID, p.DeviceInput)
	}))
	d.on(types.EntityDevice, ActionUpdate, update(s.UpdateDevice))
	d.on(types.EntityDevice, ActionDelete, remove(s.DeleteDevice))

	// devicePort rows are created with their device and never deleted alone.
	d.on(types.EntityDevicePort, ActionFindMany, list(s.ListDevicePorts))
	d.on(types.EntityDevicePort, ActionFindFirst, with(func(ctx context.Context, p findPort) (*types.DevicePort, error) {
		return s.FindPortByIPAddress(ctx, p.DeviceID, p.IPAddress)
	}))
	d.on(types.EntityDevicePort, ActionFindUnique, get(s.GetDevicePort))
	d.on(types.EntityDevicePort, ActionUpdate, update(s.UpdateDevicePort))

	// portSetting and mqtt are keyed by their owner's id.
	d.on(types.EntityPortSetting, ActionFindUnique, get(s.GetPortSetting))
	d.on(types.EntityPortSetting, ActionUpdate, update(s.UpdatePortSetting))
	d.on(types.EntityMqtt, ActionFindUnique, get(s.GetMqtt))
	d.on(types.EntityMqtt, ActionUpdate, update(s.UpdateMqtt))

	// protocol
	d.on(types.EntityProtocol, ActionFindMany, list(s.ListProtocols))
	d.on(types.EntityProtocol, ActionFindFirst, with(func(ctx context.Context, p findProtocol) (*types.Protocol, error) {
		if p.TCPPort == nil {
			return nil, fmt.Errorf("%w: tcp_port is required", types.ErrBadRequest)
		}
		return s.FindProtocolByTCPPort(ctx, p.DevicePortID, *p.TCPPort)
	}))
	d.on(types.EntityProtocol, ActionFindUnique, get(s.GetProtocol))
	d.on(types.EntityProtocol, ActionCreate, with(func(ctx context.Context, p createProtocol) (*types.Protocol, error) {
		return s.CreateProtocol(ctx, p.DevicePortID, p.ProtocolInput)
	}))
	d.on(types.EntityProtocol, ActionUpdate, update(s.UpdateProtocol))
	d.on(types.EntityProtocol, ActionDelete, remove(s.DeleteProtocol))

	// slaveDevice
	d.on(types.EntitySlaveDevice, ActionFindMany, list(s.ListSlaveDevices))
	d.on(types.EntitySlaveDevice, ActionFindFirst, with(func(ctx context.Context, p findSlave) (*types.SlaveDevice, error) {
		return s.FindSlaveByAddress(ctx, p.DeviceID, p.DeviceAddress)
	}))
	d.on(types.EntitySlaveDevice, ActionFindUnique, get(s.GetSlaveDevice))
	d.on(types.EntitySlaveDevice, ActionCreate, with(func(ctx context.Context, p createSlave) (*types.SlaveDevice, error) {
		return s.CreateSlaveDevice(ctx, p.ProtocolID, p.SlaveInput)
	}))
	d.on(types.EntitySlaveDevice, ActionUpdate, update(s.UpdateSlaveDevice))
	d.on(types.EntitySlaveDevice, ActionDelete, remove(s.DeleteSlaveDevice))

	// io
	d.on(types.EntityIO, ActionFindMany, list(s.ListIOs))
	d.on(types.EntityIO, ActionFindUnique, get(s.GetIO))
	d.on(types.EntityIO, ActionCreate, with(func(ctx context.Context, p createIO) (*types.IO, error) {
		return s.CreateIO(ctx, p.SlaveDeviceID, p.IOInput)
	}))
	d.on(types.EntityIO, ActionUpdate, update(s.UpdateIO))
	d.on(types.EntityIO, ActionDelete, remove(s.DeleteIO))
}

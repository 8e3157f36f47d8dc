package topology

import (
	"context"

	"github.com/KevinKickass/OpenMachineConfig/internal/enums"
	"github.com/KevinKickass/OpenMachineConfig/internal/types"
	"github.com/google/uuid"
)

type ProtocolInput struct {
	Type    int  `json:"type"`
	TCPPort *int `json:"tcp_port"`
}

type ProtocolPatch struct {
	Type    *int `json:"type"`
	TCPPort *int `json:"tcp_port"`
}

func (s *Service) GetProtocol(ctx context.Context, id uuid.UUID) (*types.Protocol, error) {
	p, err := s.store.GetProtocol(ctx, id)
	return p, s.storeErr("get protocol", err)
}

func (s *Service) ListProtocols(ctx context.Context, devicePortID uuid.UUID) ([]types.Protocol, error) {
	if _, err := s.store.GetDevicePort(ctx, devicePortID); err != nil {
		return nil, s.storeErr("get device port", err)
	}
	ps, err := s.store.ListProtocols(ctx, devicePortID)
	return ps, s.storeErr("list protocols", err)
}

func (s *Service) CreateProtocol(ctx context.Context, devicePortID uuid.UUID, in ProtocolInput) (*types.Protocol, error) {
	if devicePortID == uuid.Nil || in.Type == 0 {
		return nil, paramsMissing("type")
	}
	protoType, err := parseProtocolType(in.Type)
	if err != nil {
		return nil, err
	}
	port, err := s.store.GetDevicePort(ctx, devicePortID)
	if err != nil {
		return nil, s.storeErr("get device port", err)
	}

	err = s.runChecks(ctx, "create protocol",
		func(context.Context) error { return protocolFitsPort(protoType, port) },
		func(ctx context.Context) error {
			if protoType.Transport() != enums.TransportSerial {
				return nil
			}
			return s.SerialPortIsUnconfigured(ctx, port.ID, uuid.Nil)
		},
		func(ctx context.Context) error { return s.tcpPortAllowed(ctx, protoType, port.ID, in.TCPPort, uuid.Nil) },
	)
	if err != nil {
		return nil, err
	}

	now := s.now()
	p := &types.Protocol{
		ID:           uuid.New(),
		DevicePortID: port.ID,
		Type:         protoType,
		TCPPort:      in.TCPPort,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreateProtocol(ctx, p); err != nil {
		return nil, s.storeErr("create protocol", err)
	}

	s.publish(types.EntityProtocol, types.ChangeCreated, p.ID, port.ID)
	return p, nil
}

// tcpPortAllowed accepts a nil port, and a set port only on Ethernet
// protocols where it is free.
func (s *Service) tcpPortAllowed(ctx context.Context, t enums.ProtocolType, devicePortID uuid.UUID, tcpPort *int, excludeID uuid.UUID) error {
	if tcpPort == nil {
		return nil
	}
	if t.Transport() != enums.TransportEthernet {
		return types.NewValidationError("tcp_port", "TCP Port Only Applies To Ethernet Protocols")
	}
	return s.TCPPortIsFree(ctx, TCPPortParams{DevicePortID: devicePortID, TCPPort: tcpPort, ExcludeProtocolID: excludeID})
}

// UpdateProtocol changes the type or TCP port. A new type must still fit the
// port and support the PLC models of every existing slave device.
func (s *Service) UpdateProtocol(ctx context.Context, id uuid.UUID, patch ProtocolPatch) (*types.Protocol, error) {
	p, err := s.store.GetProtocol(ctx, id)
	if err != nil {
		return nil, s.storeErr("get protocol", err)
	}
	port, err := s.store.GetDevicePort(ctx, p.DevicePortID)
	if err != nil {
		return nil, s.storeErr("get device port", err)
	}

	newType := p.Type
	if patch.Type != nil {
		if newType, err = parseProtocolType(*patch.Type); err != nil {
			return nil, err
		}
	}

	var checks []check
	if patch.Type != nil {
		checks = append(checks,
			func(context.Context) error { return protocolFitsPort(newType, port) },
			func(ctx context.Context) error {
				slaves, err := s.store.ListSlaveDevices(ctx, p.ID)
				if err != nil {
					return s.storeErr("list slave devices", err)
				}
				for _, sd := range slaves {
					if !enums.SupportsModel(newType, sd.PlcModel) {
						return types.NewValidationError("type", "Protocol %s Does Not Support Slave Device: %s", newType, sd.Name)
					}
				}
				return nil
			},
		)
	}
	if patch.TCPPort != nil {
		checks = append(checks, func(ctx context.Context) error {
			return s.tcpPortAllowed(ctx, newType, port.ID, patch.TCPPort, p.ID)
		})
	}
	if err := s.runChecks(ctx, "update protocol", checks...); err != nil {
		return nil, err
	}

	p.Type = newType
	if patch.TCPPort != nil {
		p.TCPPort = patch.TCPPort
	}
	p.UpdatedAt = s.now()

	if err := s.store.UpdateProtocol(ctx, p); err != nil {
		return nil, s.storeErr("update protocol", err)
	}

	s.publish(types.EntityProtocol, types.ChangeUpdated, p.ID, port.ID)
	return p, nil
}

func (s *Service) DeleteProtocol(ctx context.Context, id uuid.UUID) error {
	p, err := s.store.GetProtocol(ctx, id)
	if err != nil {
		return s.storeErr("get protocol", err)
	}
	if err := s.store.DeleteProtocol(ctx, id); err != nil {
		return s.storeErr("delete protocol", err)
	}
	s.publish(types.EntityProtocol, types.ChangeDeleted, id, p.DevicePortID)
	return nil
}

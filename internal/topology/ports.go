package topology

import (
	"context"
	"net/netip"
	"strings"

	"github.com/KevinKickass/OpenMachineConfig/internal/enums"
	"github.com/KevinKickass/OpenMachineConfig/internal/types"
	"github.com/google/uuid"
)

type PortPatch struct {
	PortName    *string `json:"port_name"`
	PortType    *int    `json:"port_type"`
	Description *string `json:"description"`
}

func (s *Service) GetDevicePort(ctx context.Context, id uuid.UUID) (*types.DevicePort, error) {
	p, err := s.store.GetDevicePort(ctx, id)
	return p, s.storeErr("get device port", err)
}

func (s *Service) ListDevicePorts(ctx context.Context, deviceID uuid.UUID) ([]types.DevicePort, error) {
	if _, err := s.store.GetDevice(ctx, deviceID); err != nil {
		return nil, s.storeErr("get device", err)
	}
	ports, err := s.store.ListDevicePorts(ctx, deviceID)
	return ports, s.storeErr("list device ports", err)
}

// UpdateDevicePort renames or retypes a port. The type may only change within
// its transport family, and a port with protocols cannot become a monitor
// port.
func (s *Service) UpdateDevicePort(ctx context.Context, id uuid.UUID, patch PortPatch) (*types.DevicePort, error) {
	port, err := s.store.GetDevicePort(ctx, id)
	if err != nil {
		return nil, s.storeErr("get device port", err)
	}

	if patch.PortName != nil {
		if port.PortName, err = cleanName("port_name", *patch.PortName); err != nil {
			return nil, err
		}
	}
	if patch.Description != nil {
		port.Description = *patch.Description
	}
	if patch.PortType != nil {
		newType, err := enums.ParsePortType(*patch.PortType)
		if err != nil {
			return nil, types.NewValidationError("port_type", "Unknown Port Type %d", *patch.PortType)
		}
		err = s.runChecks(ctx, "update device port",
			func(context.Context) error {
				if newType.Transport() != port.PortType.Transport() {
					return types.NewValidationError("port_type", "Port Type Cannot Change From %s To %s",
						port.PortType.Transport(), newType.Transport())
				}
				return nil
			},
			func(ctx context.Context) error {
				if !enums.IsMonitor(newType) || enums.IsMonitor(port.PortType) {
					return nil
				}
				protocols, err := s.store.ListProtocols(ctx, port.ID)
				if err != nil {
					return s.storeErr("list protocols", err)
				}
				if len(protocols) > 0 {
					return types.NewValidationError("port_type", "Port %s Has Protocols And Cannot Become A Monitor Port", port.PortName)
				}
				return nil
			},
		)
		if err != nil {
			return nil, err
		}
		port.PortType = newType
	}
	port.UpdatedAt = s.now()

	if err := s.store.UpdateDevicePort(ctx, port); err != nil {
		return nil, s.storeErr("update device port", err)
	}

	s.publish(types.EntityDevicePort, types.ChangeUpdated, port.ID, port.DeviceID)
	return port, nil
}

type PortSettingPatch struct {
	IPAddress      *string `json:"ip_address"`
	SubnetMask     *string `json:"subnet_mask"`
	DefaultGateway *string `json:"default_gateway"`

	BaudRate    *int `json:"baud_rate"`
	DataBits    *int `json:"data_bits"`
	StopBits    *int `json:"stop_bits"`
	Parity      *int `json:"parity"`
	FlowControl *int `json:"flow_control"`
}

func (p PortSettingPatch) hasEthernet() bool {
	return p.IPAddress != nil || p.SubnetMask != nil || p.DefaultGateway != nil
}

func (p PortSettingPatch) hasSerial() bool {
	return p.BaudRate != nil || p.DataBits != nil || p.StopBits != nil || p.Parity != nil || p.FlowControl != nil
}

func (s *Service) GetPortSetting(ctx context.Context, devicePortID uuid.UUID) (*types.PortSetting, error) {
	ps, err := s.store.GetPortSetting(ctx, devicePortID)
	return ps, s.storeErr("get port setting", err)
}

// UpdatePortSetting patches the setting of a port. Fields of the other
// transport family are rejected.
func (s *Service) UpdatePortSetting(ctx context.Context, devicePortID uuid.UUID, patch PortSettingPatch) (*types.PortSetting, error) {
	port, err := s.store.GetDevicePort(ctx, devicePortID)
	if err != nil {
		return nil, s.storeErr("get device port", err)
	}
	setting, err := s.store.GetPortSetting(ctx, devicePortID)
	if err != nil {
		return nil, s.storeErr("get port setting", err)
	}

	switch cfg := setting.Config.(type) {
	case types.EthernetConfig:
		if patch.hasSerial() {
			return nil, types.NewValidationError("", "Serial Settings Do Not Apply To Ethernet Port %s", port.PortName)
		}
		if cfg, err = s.patchEthernet(ctx, port, cfg, patch); err != nil {
			return nil, err
		}
		setting.Config = cfg
	case types.SerialConfig:
		if patch.hasEthernet() {
			return nil, types.NewValidationError("", "Ethernet Settings Do Not Apply To Serial Port %s", port.PortName)
		}
		if cfg, err = patchSerial(cfg, patch); err != nil {
			return nil, err
		}
		setting.Config = cfg
	}
	setting.UpdatedAt = s.now()

	if err := s.store.UpdatePortSetting(ctx, setting); err != nil {
		return nil, s.storeErr("update port setting", err)
	}

	s.publish(types.EntityPortSetting, types.ChangeUpdated, setting.ID, port.ID)
	return setting, nil
}

func (s *Service) patchEthernet(ctx context.Context, port *types.DevicePort, cfg types.EthernetConfig, patch PortSettingPatch) (types.EthernetConfig, error) {
	var err error
	if patch.IPAddress != nil {
		ip, err := parseIPv4("ip_address", *patch.IPAddress)
		if err != nil {
			return cfg, err
		}
		if ip != cfg.IPAddress {
			if err := s.runChecks(ctx, "update port setting", func(ctx context.Context) error {
				return s.ipFreeOnDevice(ctx, port.DeviceID, ip, port.ID)
			}); err != nil {
				return cfg, err
			}
		}
		cfg.IPAddress = ip
	}
	if patch.SubnetMask != nil {
		if cfg.SubnetMask, err = parseSubnetMask("subnet_mask", *patch.SubnetMask); err != nil {
			return cfg, err
		}
	}
	if patch.DefaultGateway != nil {
		gw := strings.TrimSpace(*patch.DefaultGateway)
		if gw == "" {
			cfg.DefaultGateway = netip.Addr{}
		} else if cfg.DefaultGateway, err = parseIPv4("default_gateway", gw); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

func patchSerial(cfg types.SerialConfig, patch PortSettingPatch) (types.SerialConfig, error) {
	var err error
	if patch.BaudRate != nil {
		if cfg.BaudRate, err = enums.ParseBaudRate(*patch.BaudRate); err != nil {
			return cfg, types.NewValidationError("baud_rate", "Unsupported Baud Rate %d", *patch.BaudRate)
		}
	}
	if patch.DataBits != nil {
		if cfg.DataBits, err = enums.ParseDataBits(*patch.DataBits); err != nil {
			return cfg, types.NewValidationError("data_bits", "Unsupported Data Bits %d", *patch.DataBits)
		}
	}
	if patch.StopBits != nil {
		if cfg.StopBits, err = enums.ParseStopBits(*patch.StopBits); err != nil {
			return cfg, types.NewValidationError("stop_bits", "Unsupported Stop Bits %d", *patch.StopBits)
		}
	}
	if patch.Parity != nil {
		if cfg.Parity, err = enums.ParseParity(*patch.Parity); err != nil {
			return cfg, types.NewValidationError("parity", "Unsupported Parity %d", *patch.Parity)
		}
	}
	if patch.FlowControl != nil {
		if cfg.FlowControl, err = enums.ParseFlowControl(*patch.FlowControl); err != nil {
			return cfg, types.NewValidationError("flow_control", "Unsupported Flow Control %d", *patch.FlowControl)
		}
	}
	return cfg, nil
}

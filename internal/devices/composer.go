package devices

import (
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/KevinKickass/OpenMachineConfig/internal/enums"
	"github.com/KevinKickass/OpenMachineConfig/internal/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Provisioning defaults.
const (
	DefaultMqttPort      = 1883
	DefaultMqttKeepAlive = 60
)

var defaultSubnetMask = netip.AddrFrom4([4]byte{255, 255, 255, 0})

// DefaultSerialConfig is the 9600-8-1-None-None setting given to new serial
// ports.
var DefaultSerialConfig = types.SerialConfig{
	BaudRate:    enums.Baud9600,
	DataBits:    enums.DataBits8,
	StopBits:    enums.StopBits1,
	Parity:      enums.ParityNone,
	FlowControl: enums.FlowControlNone,
}

// DefaultEthernetConfig returns the setting of the n-th (0-based) Ethernet
// port of a device: 192.168.{n+1}.1/24 without a gateway.
func DefaultEthernetConfig(n int) types.EthernetConfig {
	return types.EthernetConfig{
		IPAddress:  netip.AddrFrom4([4]byte{192, 168, byte(n + 1), 1}),
		SubnetMask: defaultSubnetMask,
	}
}

// NewDeviceType converts an on-disk template into a DeviceType with stable
// ids derived from its model.
func NewDeviceType(def types.DeviceTypeDefinition, now time.Time) (*types.DeviceType, error) {
	model := strings.TrimSpace(def.DeviceType.Model)
	if model == "" {
		return nil, fmt.Errorf("device type %q has no model", def.DeviceType.Name)
	}

	dt := &types.DeviceType{
		ID:          types.DeviceTypeID(model),
		Name:        def.DeviceType.Name,
		Model:       model,
		Description: def.DeviceType.Description,
		Ports:       make([]types.DevicePortInfo, 0, len(def.Ports)),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	for i, p := range def.Ports {
		portType, err := enums.ParsePortTypeLabel(p.PortType)
		if err != nil {
			return nil, fmt.Errorf("device type %s port %d: %w", model, i, err)
		}
		dt.Ports = append(dt.Ports, types.DevicePortInfo{
			ID:           types.DevicePortInfoID(model, i),
			DeviceTypeID: dt.ID,
			PortName:     p.PortName,
			PortType:     portType,
			Description:  p.Description,
			Position:     i,
		})
	}
	return dt, nil
}

// DeviceSpec carries the user-supplied fields of a new device.
type DeviceSpec struct {
	ProjectID   uuid.UUID
	Name        string
	Description string
	Image       string
}

// Composer expands a DeviceType template into a complete device bundle.
type Composer struct {
	logger *zap.Logger
}

func NewComposer(logger *zap.Logger) *Composer {
	return &Composer{logger: logger}
}

// Compose builds the device, one port per template entry in template order,
// a default setting per port and the MQTT record. Nothing is persisted.
func (c *Composer) Compose(dt *types.DeviceType, spec DeviceSpec, now time.Time) (*types.DeviceBundle, error) {
	if len(dt.Ports) == 0 {
		return nil, types.NewValidationError("device_type_id", "Device Type %s Has No Ports", dt.Name)
	}

	device := types.Device{
		ID:           uuid.New(),
		ProjectID:    spec.ProjectID,
		DeviceTypeID: dt.ID,
		Name:         spec.Name,
		Description:  spec.Description,
		Image:        spec.Image,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	bundle := &types.DeviceBundle{
		Device: device,
		Ports:  make([]types.PortBundle, 0, len(dt.Ports)),
		Mqtt: types.Mqtt{
			ID:           uuid.New(),
			DeviceID:     device.ID,
			Port:         DefaultMqttPort,
			KeepAlive:    DefaultMqttKeepAlive,
			CleanSession: true,
			UpdatedAt:    now,
		},
	}

	ethernetIndex := 0
	for _, info := range dt.Ports {
		port := types.DevicePort{
			ID:          uuid.New(),
			DeviceID:    device.ID,
			PortName:    info.PortName,
			PortType:    info.PortType,
			Description: info.Description,
			Position:    info.Position,
			CreatedAt:   now,
			UpdatedAt:   now,
		}

		var cfg types.PortConfig
		switch info.PortType.(type) {
		case enums.EthernetPortType:
			cfg = DefaultEthernetConfig(ethernetIndex)
			ethernetIndex++
		case enums.SerialPortType:
			cfg = DefaultSerialConfig
		default:
			return nil, fmt.Errorf("device type %s port %q has no port type", dt.Model, info.PortName)
		}

		bundle.Ports = append(bundle.Ports, types.PortBundle{
			Port: port,
			Setting: types.PortSetting{
				ID:           uuid.New(),
				DevicePortID: port.ID,
				DeviceID:     device.ID,
				Config:       cfg,
				UpdatedAt:    now,
			},
		})
	}

	c.logger.Debug("Device composed",
		zap.String("device_id", device.ID.String()),
		zap.String("device_type", dt.Model),
		zap.Int("ports", len(bundle.Ports)))

	return bundle, nil
}

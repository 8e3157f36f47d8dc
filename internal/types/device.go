package types

import (
	"time"

	"github.com/KevinKickass/OpenMachineConfig/internal/enums"
	"github.com/google/uuid"
)

// DeviceType is a hardware model with a fixed port layout.
type DeviceType struct {
	ID          uuid.UUID        `json:"id"`
	Name        string           `json:"name"`
	Model       string           `json:"model"`
	Description string           `json:"description"`
	Ports       []DevicePortInfo `json:"ports"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// DevicePortInfo is one entry of a DeviceType's port template.
type DevicePortInfo struct {
	ID           uuid.UUID      `json:"id"`
	DeviceTypeID uuid.UUID      `json:"device_type_id"`
	PortName     string         `json:"port_name"`
	PortType     enums.PortType `json:"port_type"`
	Description  string         `json:"description"`
	Position     int            `json:"position"`
}

// deviceTypeNamespace seeds deterministic DeviceType ids so that templates
// re-synced at every start keep their identity.
var deviceTypeNamespace = uuid.MustParse("6c0f4f8e-7a58-4b4c-9a3e-2d5b8f1c0a11")

// DeviceTypeID derives the stable id of the device type with the given model.
func DeviceTypeID(model string) uuid.UUID {
	return uuid.NewSHA1(deviceTypeNamespace, []byte(model))
}

// DevicePortInfoID derives the stable id of a template port.
func DevicePortInfoID(model string, position int) uuid.UUID {
	return uuid.NewSHA1(DeviceTypeID(model), []byte{byte(position >> 8), byte(position)})
}

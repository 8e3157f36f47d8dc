package types

import (
	"encoding/json"
	"net/netip"
	"time"

	"github.com/KevinKickass/OpenMachineConfig/internal/enums"
	"github.com/google/uuid"
)

type Project struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Device struct {
	ID           uuid.UUID `json:"id"`
	ProjectID    uuid.UUID `json:"project_id"`
	DeviceTypeID uuid.UUID `json:"device_type_id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	Image        string    `json:"image"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type DevicePort struct {
	ID          uuid.UUID      `json:"id"`
	DeviceID    uuid.UUID      `json:"device_id"`
	PortName    string         `json:"port_name"`
	PortType    enums.PortType `json:"port_type"`
	Description string         `json:"description"`
	Position    int            `json:"position"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// PortConfig is the transport-specific half of a PortSetting. Implemented by
// EthernetConfig and SerialConfig.
type PortConfig interface {
	Transport() enums.Transport
	isPortConfig()
}

type EthernetConfig struct {
	IPAddress  netip.Addr `json:"ip_address"`
	SubnetMask netip.Addr `json:"subnet_mask"`
	// DefaultGateway is the zero Addr when no gateway is configured.
	DefaultGateway netip.Addr `json:"default_gateway"`
}

type SerialConfig struct {
	BaudRate    enums.BaudRate    `json:"baud_rate"`
	DataBits    enums.DataBits    `json:"data_bits"`
	StopBits    enums.StopBits    `json:"stop_bits"`
	Parity      enums.Parity      `json:"parity"`
	FlowControl enums.FlowControl `json:"flow_control"`
}

func (EthernetConfig) Transport() enums.Transport { return enums.TransportEthernet }
func (EthernetConfig) isPortConfig()              {}
func (SerialConfig) Transport() enums.Transport   { return enums.TransportSerial }
func (SerialConfig) isPortConfig()                {}

type PortSetting struct {
	ID           uuid.UUID  `json:"id"`
	DevicePortID uuid.UUID  `json:"device_port_id"`
	DeviceID     uuid.UUID  `json:"device_id"`
	Config       PortConfig `json:"-"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Ethernet returns the Ethernet variant, if that is what the setting holds.
func (s PortSetting) Ethernet() (EthernetConfig, bool) {
	c, ok := s.Config.(EthernetConfig)
	return c, ok
}

// Serial returns the serial variant, if that is what the setting holds.
func (s PortSetting) Serial() (SerialConfig, bool) {
	c, ok := s.Config.(SerialConfig)
	return c, ok
}

func (s PortSetting) MarshalJSON() ([]byte, error) {
	type alias PortSetting
	out := struct {
		alias
		Transport enums.Transport `json:"transport"`
		Ethernet  *EthernetConfig `json:"ethernet,omitempty"`
		Serial    *SerialConfig   `json:"serial,omitempty"`
	}{alias: alias(s)}

	switch c := s.Config.(type) {
	case EthernetConfig:
		out.Transport = c.Transport()
		out.Ethernet = &c
	case SerialConfig:
		out.Transport = c.Transport()
		out.Serial = &c
	}
	return json.Marshal(out)
}

type Protocol struct {
	ID           uuid.UUID          `json:"id"`
	DevicePortID uuid.UUID          `json:"device_port_id"`
	Type         enums.ProtocolType `json:"type"`
	// TCPPort is only set for Ethernet protocols.
	TCPPort   *int      `json:"tcp_port"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type SlaveDevice struct {
	ID          uuid.UUID      `json:"id"`
	ProtocolID  uuid.UUID      `json:"protocol_id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	PlcModel    enums.PlcModel `json:"plc_model"`
	ScanRate    int            `json:"scan_rate"`
	// DeviceAddress is a canonical dotted quad on Ethernet protocols and a
	// decimal station number (1-255) on serial ones.
	DeviceAddress string    `json:"device_address"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type IO struct {
	ID            uuid.UUID         `json:"id"`
	SlaveDeviceID uuid.UUID         `json:"slave_device_id"`
	Name          string            `json:"name"`
	Description   string            `json:"description"`
	Register      enums.PlcRegister `json:"register"`
	StartAddress  int               `json:"start_address"`
	Length        int               `json:"length"`
	Conversion    enums.Conversion  `json:"conversion"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

type Mqtt struct {
	ID            uuid.UUID `json:"id"`
	DeviceID      uuid.UUID `json:"device_id"`
	BrokerAddress string    `json:"broker_address"`
	Port          int       `json:"port"`
	Username      string    `json:"username"`
	Password      string    `json:"password,omitempty"`
	ClientID      string    `json:"client_id"`
	KeepAlive     int       `json:"keep_alive"`
	CleanSession  bool      `json:"clean_session"`
	UseSSL        bool      `json:"use_ssl"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// PortBundle is a port together with its setting.
type PortBundle struct {
	Port    DevicePort  `json:"port"`
	Setting PortSetting `json:"setting"`
}

// DeviceBundle is everything created when a device is provisioned. Stores
// persist it as one unit.
type DeviceBundle struct {
	Device Device       `json:"device"`
	Ports  []PortBundle `json:"ports"`
	Mqtt   Mqtt         `json:"mqtt"`
}

package enums

import "fmt"

// Transport is the link-layer family shared by ports, settings and protocols.
type Transport uint8

const (
	TransportSerial Transport = iota + 1
	TransportEthernet
)

func (t Transport) String() string {
	switch t {
	case TransportSerial:
		return "serial"
	case TransportEthernet:
		return "ethernet"
	default:
		return "unknown"
	}
}

func (t Transport) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// PortType is a port type tagged by its transport family. The only
// implementations are SerialPortType and EthernetPortType.
type PortType interface {
	Code() int
	Transport() Transport
	String() string
	isPortType()
}

type SerialPortType int

const (
	RS232 SerialPortType = 1
	RS422 SerialPortType = 2
	RS485 SerialPortType = 3
)

type EthernetPortType int

const (
	// Monitor ports carry no field protocol.
	Monitor       EthernetPortType = 11
	Communication EthernetPortType = 12
)

var (
	SerialPortTypes = newSet("serialPortType",
		Option{"RS232", 1},
		Option{"RS422", 2},
		Option{"RS485", 3},
	)
	EthernetPortTypes = newSet("ethernetPortType",
		Option{"Monitor", 11},
		Option{"Communication", 12},
	)
	PortTypes = unionSet("portType", SerialPortTypes, EthernetPortTypes)
)

func (p SerialPortType) Code() int          { return int(p) }
func (SerialPortType) Transport() Transport { return TransportSerial }
func (p SerialPortType) String() string     { return SerialPortTypes.labelOr(int(p)) }
func (SerialPortType) isPortType()          {}

func (p EthernetPortType) Code() int          { return int(p) }
func (EthernetPortType) Transport() Transport { return TransportEthernet }
func (p EthernetPortType) String() string     { return EthernetPortTypes.labelOr(int(p)) }
func (EthernetPortType) isPortType()          {}

// ParsePortType decodes a wire code into its family.
func ParsePortType(code int) (PortType, error) {
	switch {
	case SerialPortTypes.Contains(code):
		return SerialPortType(code), nil
	case EthernetPortTypes.Contains(code):
		return EthernetPortType(code), nil
	}
	return nil, fmt.Errorf("%w: portType %d", ErrUnknownCode, code)
}

// ParsePortTypeLabel decodes a label such as "RS485" or "Monitor".
func ParsePortTypeLabel(label string) (PortType, error) {
	code, ok := PortTypes.Code(label)
	if !ok {
		return nil, fmt.Errorf("%w: portType %q", ErrUnknownCode, label)
	}
	return ParsePortType(code)
}

// IsMonitor reports whether p is the Ethernet monitor port type.
func IsMonitor(p PortType) bool {
	e, ok := p.(EthernetPortType)
	return ok && e == Monitor
}

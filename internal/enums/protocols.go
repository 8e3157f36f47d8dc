package enums

import "fmt"

// ProtocolType is a field protocol tagged by the transport it runs on. The only
// implementations are SerialProtocol and EthernetProtocol.
type ProtocolType interface {
	Code() int
	Transport() Transport
	// Vendor reports the PLC vendor the protocol is bound to. ok is false for
	// vendor-neutral protocols such as Modbus.
	Vendor() (v Vendor, ok bool)
	String() string
	isProtocolType()
}

type SerialProtocol int

const (
	ModbusRTU        SerialProtocol = 1
	MCProtocolSerial SerialProtocol = 2
)

type EthernetProtocol int

const (
	ModbusTCP          EthernetProtocol = 11
	S7Protocol         EthernetProtocol = 12
	MCProtocolEthernet EthernetProtocol = 13
)

var (
	SerialProtocols = newSet("serialProtocol",
		Option{"ModbusRTU", 1},
		Option{"MCProtocol", 2},
	)
	EthernetProtocols = newSet("ethernetProtocol",
		Option{"ModbusTCP", 11},
		Option{"S7Protocol", 12},
		Option{"MCProtocol", 13},
	)
	ProtocolTypes = unionSet("protocolType", SerialProtocols, EthernetProtocols)
)

func (p SerialProtocol) Code() int          { return int(p) }
func (SerialProtocol) Transport() Transport { return TransportSerial }
func (p SerialProtocol) String() string     { return SerialProtocols.labelOr(int(p)) }
func (SerialProtocol) isProtocolType()      {}

func (p SerialProtocol) Vendor() (Vendor, bool) {
	if p == MCProtocolSerial {
		return VendorMitsubishi, true
	}
	return 0, false
}

func (p EthernetProtocol) Code() int          { return int(p) }
func (EthernetProtocol) Transport() Transport { return TransportEthernet }
func (p EthernetProtocol) String() string     { return EthernetProtocols.labelOr(int(p)) }
func (EthernetProtocol) isProtocolType()      {}

func (p EthernetProtocol) Vendor() (Vendor, bool) {
	switch p {
	case MCProtocolEthernet:
		return VendorMitsubishi, true
	case S7Protocol:
		return VendorSiemens, true
	}
	return 0, false
}

// ParseProtocolType decodes a wire code into its family.
func ParseProtocolType(code int) (ProtocolType, error) {
	switch {
	case SerialProtocols.Contains(code):
		return SerialProtocol(code), nil
	case EthernetProtocols.Contains(code):
		return EthernetProtocol(code), nil
	}
	return nil, fmt.Errorf("%w: protocolType %d", ErrUnknownCode, code)
}

// SupportsModel reports whether a slave of the given PLC model can be reached
// over protocol p.
func SupportsModel(p ProtocolType, m PlcModel) bool {
	v, bound := p.Vendor()
	return !bound || v == m.Vendor()
}

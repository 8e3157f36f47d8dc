package topology

import (
	"context"
	"net/netip"
	"strings"

	"github.com/KevinKickass/OpenMachineConfig/internal/enums"
	"github.com/KevinKickass/OpenMachineConfig/internal/types"
	"github.com/google/uuid"
)

const msgParamsMissing = "parameters not provided"

func paramsMissing(field string) error {
	return types.NewValidationError(field, msgParamsMissing)
}

type PortAddressParams struct {
	DevicePortID uuid.UUID `json:"device_port_id"`
	IPAddress    string    `json:"ip_address"`
}

// PortAddressIsFree checks that ip_address may be assigned to the Ethernet
// port: no other port of the same device holds it and no slave device under
// the device's protocols uses it. It has no side effects.
func (s *Service) PortAddressIsFree(ctx context.Context, p PortAddressParams) error {
	if p.DevicePortID == uuid.Nil {
		return paramsMissing("device_port_id")
	}
	if strings.TrimSpace(p.IPAddress) == "" {
		return paramsMissing("ip_address")
	}

	ip, err := parseIPv4("ip_address", p.IPAddress)
	if err != nil {
		return err
	}
	port, err := s.store.GetDevicePort(ctx, p.DevicePortID)
	if err != nil {
		return s.storeErr("get device port", err)
	}
	if port.PortType.Transport() != enums.TransportEthernet {
		return types.NewValidationError("device_port_id", "Port %s Is Not An Ethernet Port", port.PortName)
	}
	return s.ipFreeOnDevice(ctx, port.DeviceID, ip, port.ID)
}

// ipFreeOnDevice fails when a port of the device other than excludePortID,
// or any slave device under the device, holds ip.
func (s *Service) ipFreeOnDevice(ctx context.Context, deviceID uuid.UUID, ip netip.Addr, excludePortID uuid.UUID) error {
	other, err := s.store.FindPortByIPAddress(ctx, deviceID, ip, excludePortID)
	if err != nil {
		return s.storeErr("find port by ip address", err)
	}
	if other != nil {
		return types.NewValidationError("ip_address", "Ip Address Already In Use By Port: %s", other.PortName)
	}

	slave, err := s.store.FindSlaveByAddress(ctx, deviceID, ip.String(), uuid.Nil)
	if err != nil {
		return s.storeErr("find slave by address", err)
	}
	if slave != nil {
		return types.NewValidationError("ip_address", "Port Already In Use By Slave Device: %s", slave.Name)
	}
	return nil
}

type TCPPortParams struct {
	DevicePortID      uuid.UUID `json:"device_port_id"`
	TCPPort           *int      `json:"tcp_port"`
	ExcludeProtocolID uuid.UUID `json:"exclude_protocol_id"`
}

// TCPPortIsFree checks that no other protocol on the port listens on
// tcp_port.
func (s *Service) TCPPortIsFree(ctx context.Context, p TCPPortParams) error {
	if p.DevicePortID == uuid.Nil || p.TCPPort == nil {
		return paramsMissing("tcp_port")
	}
	if *p.TCPPort < 0 || *p.TCPPort > 65535 {
		return types.NewValidationError("tcp_port", "TCP Port Must Be Between 0 And 65535")
	}

	other, err := s.store.FindProtocolByTCPPort(ctx, p.DevicePortID, *p.TCPPort, p.ExcludeProtocolID)
	if err != nil {
		return s.storeErr("find protocol by tcp port", err)
	}
	if other != nil {
		return types.NewValidationError("tcp_port", "TCP Port %d Already In Use", *p.TCPPort)
	}
	return nil
}

type ProtocolTransportParams struct {
	DevicePortID uuid.UUID `json:"device_port_id"`
	ProtocolType int       `json:"protocol_type"`
}

// ProtocolMatchesTransport checks that the protocol family equals the port
// family and that the port is not a monitor port.
func (s *Service) ProtocolMatchesTransport(ctx context.Context, p ProtocolTransportParams) error {
	if p.DevicePortID == uuid.Nil || p.ProtocolType == 0 {
		return paramsMissing("protocol_type")
	}
	protoType, err := parseProtocolType(p.ProtocolType)
	if err != nil {
		return err
	}
	port, err := s.store.GetDevicePort(ctx, p.DevicePortID)
	if err != nil {
		return s.storeErr("get device port", err)
	}
	return protocolFitsPort(protoType, port)
}

func parseProtocolType(code int) (enums.ProtocolType, error) {
	t, err := enums.ParseProtocolType(code)
	if err != nil {
		return nil, types.NewValidationError("type", "Unknown Protocol Type %d", code)
	}
	return t, nil
}

func protocolFitsPort(t enums.ProtocolType, port *types.DevicePort) error {
	if enums.IsMonitor(port.PortType) {
		return types.NewValidationError("device_port_id", "Monitor Port %s Cannot Carry A Protocol", port.PortName)
	}
	if t.Transport() != port.PortType.Transport() {
		return types.NewValidationError("type", "Protocol %s Is Not Supported On %s Port %s",
			t, port.PortType.Transport(), port.PortName)
	}
	return nil
}

// SerialPortIsUnconfigured checks that a serial port carries no protocol
// other than excludeProtocolID.
func (s *Service) SerialPortIsUnconfigured(ctx context.Context, devicePortID, excludeProtocolID uuid.UUID) error {
	if devicePortID == uuid.Nil {
		return paramsMissing("device_port_id")
	}
	protocols, err := s.store.ListProtocols(ctx, devicePortID)
	if err != nil {
		return s.storeErr("list protocols", err)
	}
	for _, p := range protocols {
		if p.ID != excludeProtocolID {
			return types.NewValidationError("device_port_id", "Serial Port Already Configured")
		}
	}
	return nil
}

type SlaveAddressParams struct {
	ProtocolID     uuid.UUID `json:"protocol_id"`
	DeviceAddress  string    `json:"device_address"`
	ExcludeSlaveID uuid.UUID `json:"exclude_slave_id"`
}

// SlaveAddressIsValid checks the address format for the protocol's transport
// and its uniqueness.
func (s *Service) SlaveAddressIsValid(ctx context.Context, p SlaveAddressParams) error {
	if p.ProtocolID == uuid.Nil || strings.TrimSpace(p.DeviceAddress) == "" {
		return paramsMissing("device_address")
	}
	proto, err := s.store.GetProtocol(ctx, p.ProtocolID)
	if err != nil {
		return s.storeErr("get protocol", err)
	}
	_, err = s.slaveAddress(ctx, proto, p.DeviceAddress, p.ExcludeSlaveID)
	return err
}

// slaveAddress validates addr for a slave under proto and returns its
// canonical form.
func (s *Service) slaveAddress(ctx context.Context, proto *types.Protocol, addr string, excludeSlaveID uuid.UUID) (string, error) {
	var canonical string

	switch proto.Type.Transport() {
	case enums.TransportEthernet:
		ip, err := parseIPv4("device_address", addr)
		if err != nil {
			return "", err
		}
		port, err := s.store.GetDevicePort(ctx, proto.DevicePortID)
		if err != nil {
			return "", s.storeErr("get device port", err)
		}
		other, err := s.store.FindPortByIPAddress(ctx, port.DeviceID, ip, uuid.Nil)
		if err != nil {
			return "", s.storeErr("find port by ip address", err)
		}
		if other != nil {
			return "", types.NewValidationError("device_address", "Ip Address Already In Use By Port: %s", other.PortName)
		}
		canonical = ip.String()
	default:
		var err error
		if canonical, err = parseStationAddress("device_address", addr); err != nil {
			return "", err
		}
	}

	other, err := s.store.FindSlaveInProtocol(ctx, proto.ID, canonical, excludeSlaveID)
	if err != nil {
		return "", s.storeErr("find slave in protocol", err)
	}
	if other != nil {
		return "", types.NewValidationError("device_address", "Device Address Already In Use By Slave Device: %s", other.Name)
	}
	return canonical, nil
}

// modelSupported checks the vendor binding between a protocol and a PLC
// model.
func modelSupported(t enums.ProtocolType, model enums.PlcModel) error {
	if !enums.SupportsModel(t, model) {
		return types.NewValidationError("plc_model", "Protocol %s Does Not Support PLC Model %s", t, model)
	}
	return nil
}

type RegisterParams struct {
	SlaveDeviceID uuid.UUID `json:"slave_device_id"`
	Register      int       `json:"register"`
	StartAddress  int       `json:"start_address"`
	Length        int       `json:"length"`
}

// RegisterInScope checks that the register belongs to the vendor of the
// slave device's PLC model and that the address range is non-negative.
func (s *Service) RegisterInScope(ctx context.Context, p RegisterParams) error {
	if p.SlaveDeviceID == uuid.Nil || p.Register == 0 {
		return paramsMissing("register")
	}
	slave, err := s.store.GetSlaveDevice(ctx, p.SlaveDeviceID)
	if err != nil {
		return s.storeErr("get slave device", err)
	}
	if _, err := registerInScope(slave.PlcModel, p.Register); err != nil {
		return err
	}
	return addressRange(p.StartAddress, p.Length)
}

func registerInScope(model enums.PlcModel, code int) (enums.PlcRegister, error) {
	reg, err := enums.ParsePlcRegister(code)
	if err != nil {
		return nil, types.NewValidationError("register", "Unknown Register %d", code)
	}
	if reg.Vendor() != model.Vendor() {
		return nil, types.NewValidationError("register", "Register %s Is Not Available On %s PLC %s",
			reg, model.Vendor(), model)
	}
	return reg, nil
}

func addressRange(start, length int) error {
	if start < 0 {
		return types.NewValidationError("start_address", "Start Address Must Not Be Negative")
	}
	if length < 0 {
		return types.NewValidationError("length", "Length Must Not Be Negative")
	}
	return nil
}

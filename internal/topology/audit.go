package topology

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/KevinKickass/OpenMachineConfig/internal/enums"
	"github.com/KevinKickass/OpenMachineConfig/internal/types"
	"github.com/google/uuid"
)

type Severity string

const (
	SevError   Severity = "error"
	SevWarning Severity = "warning"
)

type Issue struct {
	Code     string   `json:"code"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	EntityID string   `json:"entity_id,omitempty"`
	Path     string   `json:"path,omitempty"` // "/ports/1/protocols/0/slaves/2"
}

type Report struct {
	Valid    bool    `json:"valid"`
	Errors   []Issue `json:"errors"`
	Warnings []Issue `json:"warnings"`
}

func (r *Report) addError(i Issue) {
	if i.Severity == "" {
		i.Severity = SevError
	}
	r.Errors = append(r.Errors, i)
}

func (r *Report) addWarning(i Issue) {
	if i.Severity == "" {
		i.Severity = SevWarning
	}
	r.Warnings = append(r.Warnings, i)
}

func (r *Report) finalize() {
	sortIssues(r.Errors)
	sortIssues(r.Warnings)
	r.Valid = len(r.Errors) == 0
}

func sortIssues(list []Issue) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		return a.Code < b.Code
	})
}

// AuditDevice re-checks every configuration invariant over the stored state
// of a device. Load failures return an error; broken invariants are reported
// as issues.
func (s *Service) AuditDevice(ctx context.Context, deviceID uuid.UUID) (Report, error) {
	rep := Report{Errors: []Issue{}, Warnings: []Issue{}}

	if _, err := s.store.GetDevice(ctx, deviceID); err != nil {
		return rep, s.storeErr("get device", err)
	}
	ports, err := s.store.ListDevicePorts(ctx, deviceID)
	if err != nil {
		return rep, s.storeErr("list device ports", err)
	}

	a := &auditor{s: s, report: &rep, portByIP: map[string]string{}}

	for i := range ports {
		if err := a.port(ctx, i, &ports[i]); err != nil {
			return Report{}, err
		}
	}
	for i := range a.slaveIPs {
		a.slaveIP(a.slaveIPs[i])
	}

	m, err := s.store.GetMqtt(ctx, deviceID)
	switch {
	case errors.Is(err, types.ErrNotFound):
		rep.addError(Issue{Code: "AUDIT_500", Message: "Device has no MQTT configuration", Path: "/mqtt"})
	case err != nil:
		return Report{}, s.storeErr("get mqtt config", err)
	default:
		if err := validateMqtt(m); err != nil {
			rep.addError(Issue{Code: "AUDIT_501", Message: err.Error(), EntityID: m.ID.String(), Path: "/mqtt"})
		}
		if m.BrokerAddress == "" {
			rep.addWarning(Issue{Code: "AUDIT_W03", Message: "MQTT broker address is not configured", EntityID: m.ID.String(), Path: "/mqtt"})
		}
	}

	rep.finalize()
	return rep, nil
}

type slaveRef struct {
	slave types.SlaveDevice
	path  string
}

type auditor struct {
	s        *Service
	report   *Report
	portByIP map[string]string
	slaveIPs []slaveRef
}

func (a *auditor) port(ctx context.Context, i int, port *types.DevicePort) error {
	path := fmt.Sprintf("/ports/%d", i)

	setting, err := a.s.store.GetPortSetting(ctx, port.ID)
	switch {
	case errors.Is(err, types.ErrNotFound):
		a.report.addError(Issue{Code: "AUDIT_100", Message: fmt.Sprintf("Port %s has no setting", port.PortName),
			EntityID: port.ID.String(), Path: path + "/setting"})
	case err != nil:
		return a.s.storeErr("get port setting", err)
	default:
		if setting.Config == nil || setting.Config.Transport() != port.PortType.Transport() {
			a.report.addError(Issue{Code: "AUDIT_101",
				Message:  fmt.Sprintf("Port %s setting does not match its %s port type", port.PortName, port.PortType.Transport()),
				EntityID: setting.ID.String(), Path: path + "/setting"})
		}
		if eth, ok := setting.Ethernet(); ok {
			ip := eth.IPAddress.String()
			if other, dup := a.portByIP[ip]; dup {
				a.report.addError(Issue{Code: "AUDIT_110",
					Message:  fmt.Sprintf("Ip Address %s used by ports %s and %s", ip, other, port.PortName),
					EntityID: setting.ID.String(), Path: path + "/setting"})
			} else {
				a.portByIP[ip] = port.PortName
			}
		}
	}

	protocols, err := a.s.store.ListProtocols(ctx, port.ID)
	if err != nil {
		return a.s.storeErr("list protocols", err)
	}

	if len(protocols) == 0 && !enums.IsMonitor(port.PortType) {
		a.report.addWarning(Issue{Code: "AUDIT_W01", Message: fmt.Sprintf("Port %s has no protocol", port.PortName),
			EntityID: port.ID.String(), Path: path})
	}
	if enums.IsMonitor(port.PortType) && len(protocols) > 0 {
		a.report.addError(Issue{Code: "AUDIT_201", Message: fmt.Sprintf("Monitor port %s carries protocols", port.PortName),
			EntityID: port.ID.String(), Path: path})
	}
	if port.PortType.Transport() == enums.TransportSerial && len(protocols) > 1 {
		a.report.addError(Issue{Code: "AUDIT_202", Message: fmt.Sprintf("Serial port %s carries %d protocols", port.PortName, len(protocols)),
			EntityID: port.ID.String(), Path: path})
	}

	tcpPorts := map[int]bool{}
	for j := range protocols {
		p := &protocols[j]
		ppath := fmt.Sprintf("%s/protocols/%d", path, j)

		if p.Type.Transport() != port.PortType.Transport() {
			a.report.addError(Issue{Code: "AUDIT_200",
				Message:  fmt.Sprintf("Protocol %s does not match %s port %s", p.Type, port.PortType.Transport(), port.PortName),
				EntityID: p.ID.String(), Path: ppath})
		}
		if p.TCPPort != nil {
			if tcpPorts[*p.TCPPort] {
				a.report.addError(Issue{Code: "AUDIT_203", Message: fmt.Sprintf("TCP Port %d used twice", *p.TCPPort),
					EntityID: p.ID.String(), Path: ppath})
			}
			tcpPorts[*p.TCPPort] = true
		}

		if err := a.protocol(ctx, ppath, p); err != nil {
			return err
		}
	}
	return nil
}

func (a *auditor) protocol(ctx context.Context, path string, p *types.Protocol) error {
	slaves, err := a.s.store.ListSlaveDevices(ctx, p.ID)
	if err != nil {
		return a.s.storeErr("list slave devices", err)
	}

	addresses := map[string]string{}
	for k := range slaves {
		sd := slaves[k]
		spath := fmt.Sprintf("%s/slaves/%d", path, k)

		if !enums.SupportsModel(p.Type, sd.PlcModel) {
			a.report.addError(Issue{Code: "AUDIT_300",
				Message:  fmt.Sprintf("Protocol %s does not support PLC model %s", p.Type, sd.PlcModel),
				EntityID: sd.ID.String(), Path: spath})
		}

		switch p.Type.Transport() {
		case enums.TransportEthernet:
			if _, err := parseIPv4("device_address", sd.DeviceAddress); err != nil {
				a.report.addError(Issue{Code: "AUDIT_301", Message: err.Error(), EntityID: sd.ID.String(), Path: spath})
			} else {
				a.slaveIPs = append(a.slaveIPs, slaveRef{slave: sd, path: spath})
			}
		default:
			if _, err := parseStationAddress("device_address", sd.DeviceAddress); err != nil {
				a.report.addError(Issue{Code: "AUDIT_301", Message: err.Error(), EntityID: sd.ID.String(), Path: spath})
			}
		}

		if other, dup := addresses[sd.DeviceAddress]; dup {
			a.report.addError(Issue{Code: "AUDIT_303",
				Message:  fmt.Sprintf("Device Address %s used by slave devices %s and %s", sd.DeviceAddress, other, sd.Name),
				EntityID: sd.ID.String(), Path: spath})
		} else {
			addresses[sd.DeviceAddress] = sd.Name
		}

		ios, err := a.s.store.ListIOs(ctx, sd.ID)
		if err != nil {
			return a.s.storeErr("list ios", err)
		}
		if len(ios) == 0 {
			a.report.addWarning(Issue{Code: "AUDIT_W02", Message: fmt.Sprintf("Slave device %s has no IO", sd.Name),
				EntityID: sd.ID.String(), Path: spath})
		}
		for l := range ios {
			io := &ios[l]
			ipath := fmt.Sprintf("%s/ios/%d", spath, l)
			if io.Register.Vendor() != sd.PlcModel.Vendor() {
				a.report.addError(Issue{Code: "AUDIT_400",
					Message:  fmt.Sprintf("Register %s is not available on %s PLC %s", io.Register, sd.PlcModel.Vendor(), sd.PlcModel),
					EntityID: io.ID.String(), Path: ipath})
			}
			if err := addressRange(io.StartAddress, io.Length); err != nil {
				a.report.addError(Issue{Code: "AUDIT_401", Message: err.Error(), EntityID: io.ID.String(), Path: ipath})
			}
		}
	}
	return nil
}

// slaveIP runs after every port has been visited so that slaves are checked
// against all port addresses of the device.
func (a *auditor) slaveIP(ref slaveRef) {
	if portName, used := a.portByIP[ref.slave.DeviceAddress]; used {
		a.report.addError(Issue{Code: "AUDIT_302",
			Message:  fmt.Sprintf("Slave device %s uses the Ip Address of port %s", ref.slave.Name, portName),
			EntityID: ref.slave.ID.String(), Path: ref.path})
	}
}

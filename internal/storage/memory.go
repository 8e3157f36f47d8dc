package storage

import (
	"context"
	"fmt"
	"net/netip"
	"sort"
	"sync"
	"time"

	"github.com/KevinKickass/OpenMachineConfig/internal/types"
	"github.com/google/uuid"
)

// MemoryStore keeps the whole topology in process memory. Every write runs
// against a cloned state that replaces the live state only if the write
// succeeds, so multi-row writes are all-or-nothing. It enforces the same
// unique and foreign-key rules as the PostgreSQL schema.
type MemoryStore struct {
	mu    sync.RWMutex
	state memoryState
}

type memoryState struct {
	projects    map[uuid.UUID]types.Project
	deviceTypes map[uuid.UUID]types.DeviceType
	devices     map[uuid.UUID]types.Device
	ports       map[uuid.UUID]types.DevicePort
	settings    map[uuid.UUID]types.PortSetting // by device port id
	protocols   map[uuid.UUID]types.Protocol
	slaves      map[uuid.UUID]types.SlaveDevice
	ios         map[uuid.UUID]types.IO
	mqtt        map[uuid.UUID]types.Mqtt // by device id
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: newMemoryState()}
}

func newMemoryState() memoryState {
	return memoryState{
		projects:    map[uuid.UUID]types.Project{},
		deviceTypes: map[uuid.UUID]types.DeviceType{},
		devices:     map[uuid.UUID]types.Device{},
		ports:       map[uuid.UUID]types.DevicePort{},
		settings:    map[uuid.UUID]types.PortSetting{},
		protocols:   map[uuid.UUID]types.Protocol{},
		slaves:      map[uuid.UUID]types.SlaveDevice{},
		ios:         map[uuid.UUID]types.IO{},
		mqtt:        map[uuid.UUID]types.Mqtt{},
	}
}

func cloneMap[K comparable, V any](m map[K]V, cloneFn func(V) V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		if cloneFn != nil {
			v = cloneFn(v)
		}
		out[k] = v
	}
	return out
}

func (s memoryState) clone() memoryState {
	return memoryState{
		projects:    cloneMap(s.projects, nil),
		deviceTypes: cloneMap(s.deviceTypes, cloneDeviceType),
		devices:     cloneMap(s.devices, nil),
		ports:       cloneMap(s.ports, nil),
		settings:    cloneMap(s.settings, nil),
		protocols:   cloneMap(s.protocols, cloneProtocol),
		slaves:      cloneMap(s.slaves, nil),
		ios:         cloneMap(s.ios, nil),
		mqtt:        cloneMap(s.mqtt, nil),
	}
}

func cloneDeviceType(dt types.DeviceType) types.DeviceType {
	dt.Ports = append([]types.DevicePortInfo(nil), dt.Ports...)
	return dt
}

func cloneProtocol(p types.Protocol) types.Protocol {
	if p.TCPPort != nil {
		v := *p.TCPPort
		p.TCPPort = &v
	}
	return p
}

// write applies fn to a copy of the state and commits it when fn succeeds.
func (m *MemoryStore) write(fn func(st *memoryState) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	next := m.state.clone()
	if err := fn(&next); err != nil {
		return err
	}
	m.state = next
	return nil
}

func (m *MemoryStore) read(fn func(st *memoryState) error) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return fn(&m.state)
}

func (m *MemoryStore) Close() {}

func createdBefore(a, b time.Time, idA, idB uuid.UUID) bool {
	if !a.Equal(b) {
		return a.Before(b)
	}
	return idA.String() < idB.String()
}

func notFound(kind string, id uuid.UUID) error {
	return fmt.Errorf("%s %s: %w", kind, id, types.ErrNotFound)
}

func conflict(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), types.ErrConflict)
}

// ==================== PROJECTS ====================

func (m *MemoryStore) CreateProject(ctx context.Context, p *types.Project) error {
	return m.write(func(st *memoryState) error {
		if _, ok := st.projects[p.ID]; ok {
			return conflict("project %s exists", p.ID)
		}
		st.projects[p.ID] = *p
		return nil
	})
}

func (m *MemoryStore) GetProject(ctx context.Context, id uuid.UUID) (*types.Project, error) {
	var out types.Project
	err := m.read(func(st *memoryState) error {
		p, ok := st.projects[id]
		if !ok {
			return notFound("project", id)
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (m *MemoryStore) ListProjects(ctx context.Context) ([]types.Project, error) {
	var out []types.Project
	m.read(func(st *memoryState) error {
		out = make([]types.Project, 0, len(st.projects))
		for _, p := range st.projects {
			out = append(out, p)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return createdBefore(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID) })
	return out, nil
}

func (m *MemoryStore) UpdateProject(ctx context.Context, p *types.Project) error {
	return m.write(func(st *memoryState) error {
		if _, ok := st.projects[p.ID]; !ok {
			return notFound("project", p.ID)
		}
		st.projects[p.ID] = *p
		return nil
	})
}

func (m *MemoryStore) DeleteProject(ctx context.Context, id uuid.UUID) error {
	return m.write(func(st *memoryState) error {
		if _, ok := st.projects[id]; !ok {
			return notFound("project", id)
		}
		for devID, d := range st.devices {
			if d.ProjectID == id {
				st.deleteDevice(devID)
			}
		}
		delete(st.projects, id)
		return nil
	})
}

// ==================== DEVICE TYPES ====================

func (m *MemoryStore) UpsertDeviceType(ctx context.Context, dt *types.DeviceType) error {
	return m.write(func(st *memoryState) error {
		for id, existing := range st.deviceTypes {
			if existing.Model == dt.Model && id != dt.ID {
				return conflict("device type model %q exists", dt.Model)
			}
		}
		if existing, ok := st.deviceTypes[dt.ID]; ok {
			dt.CreatedAt = existing.CreatedAt
		}
		st.deviceTypes[dt.ID] = cloneDeviceType(*dt)
		return nil
	})
}

func (m *MemoryStore) GetDeviceType(ctx context.Context, id uuid.UUID) (*types.DeviceType, error) {
	var out types.DeviceType
	err := m.read(func(st *memoryState) error {
		dt, ok := st.deviceTypes[id]
		if !ok {
			return notFound("device type", id)
		}
		out = cloneDeviceType(dt)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (m *MemoryStore) ListDeviceTypes(ctx context.Context) ([]types.DeviceType, error) {
	var out []types.DeviceType
	m.read(func(st *memoryState) error {
		out = make([]types.DeviceType, 0, len(st.deviceTypes))
		for _, dt := range st.deviceTypes {
			out = append(out, cloneDeviceType(dt))
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Model < out[j].Model })
	return out, nil
}

// ==================== DEVICES ====================

func (m *MemoryStore) CreateDeviceBundle(ctx context.Context, b *types.DeviceBundle) error {
	return m.write(func(st *memoryState) error {
		d := b.Device
		if _, ok := st.projects[d.ProjectID]; !ok {
			return notFound("project", d.ProjectID)
		}
		if _, ok := st.deviceTypes[d.DeviceTypeID]; !ok {
			return notFound("device type", d.DeviceTypeID)
		}
		if _, ok := st.devices[d.ID]; ok {
			return conflict("device %s exists", d.ID)
		}
		st.devices[d.ID] = d

		for _, pb := range b.Ports {
			if pb.Port.DeviceID != d.ID || pb.Setting.DevicePortID != pb.Port.ID {
				return notFound("device port", pb.Port.ID)
			}
			if _, ok := st.ports[pb.Port.ID]; ok {
				return conflict("device port %s exists", pb.Port.ID)
			}
			st.ports[pb.Port.ID] = pb.Port
			if err := st.putSetting(pb.Setting); err != nil {
				return err
			}
		}

		if b.Mqtt.DeviceID != d.ID {
			return notFound("device", b.Mqtt.DeviceID)
		}
		st.mqtt[d.ID] = b.Mqtt
		return nil
	})
}

func (m *MemoryStore) GetDevice(ctx context.Context, id uuid.UUID) (*types.Device, error) {
	var out types.Device
	err := m.read(func(st *memoryState) error {
		d, ok := st.devices[id]
		if !ok {
			return notFound("device", id)
		}
		out = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (m *MemoryStore) ListDevices(ctx context.Context, projectID uuid.UUID) ([]types.Device, error) {
	out := make([]types.Device, 0)
	m.read(func(st *memoryState) error {
		for _, d := range st.devices {
			if d.ProjectID == projectID {
				out = append(out, d)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return createdBefore(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID) })
	return out, nil
}

func (m *MemoryStore) UpdateDevice(ctx context.Context, d *types.Device) error {
	return m.write(func(st *memoryState) error {
		if _, ok := st.devices[d.ID]; !ok {
			return notFound("device", d.ID)
		}
		st.devices[d.ID] = *d
		return nil
	})
}

func (m *MemoryStore) DeleteDevice(ctx context.Context, id uuid.UUID) error {
	return m.write(func(st *memoryState) error {
		if _, ok := st.devices[id]; !ok {
			return notFound("device", id)
		}
		st.deleteDevice(id)
		return nil
	})
}

// ==================== PORTS & SETTINGS ====================

func (m *MemoryStore) GetDevicePort(ctx context.Context, id uuid.UUID) (*types.DevicePort, error) {
	var out types.DevicePort
	err := m.read(func(st *memoryState) error {
		p, ok := st.ports[id]
		if !ok {
			return notFound("device port", id)
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (m *MemoryStore) ListDevicePorts(ctx context.Context, deviceID uuid.UUID) ([]types.DevicePort, error) {
	out := make([]types.DevicePort, 0)
	m.read(func(st *memoryState) error {
		for _, p := range st.ports {
			if p.DeviceID == deviceID {
				out = append(out, p)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (m *MemoryStore) UpdateDevicePort(ctx context.Context, p *types.DevicePort) error {
	return m.write(func(st *memoryState) error {
		if _, ok := st.ports[p.ID]; !ok {
			return notFound("device port", p.ID)
		}
		st.ports[p.ID] = *p
		return nil
	})
}

func (m *MemoryStore) GetPortSetting(ctx context.Context, devicePortID uuid.UUID) (*types.PortSetting, error) {
	var out types.PortSetting
	err := m.read(func(st *memoryState) error {
		s, ok := st.settings[devicePortID]
		if !ok {
			return notFound("port setting for port", devicePortID)
		}
		out = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (m *MemoryStore) UpdatePortSetting(ctx context.Context, s *types.PortSetting) error {
	return m.write(func(st *memoryState) error {
		if _, ok := st.settings[s.DevicePortID]; !ok {
			return notFound("port setting for port", s.DevicePortID)
		}
		return st.putSetting(*s)
	})
}

// putSetting enforces one IP address per device.
func (st *memoryState) putSetting(s types.PortSetting) error {
	if eth, ok := s.Ethernet(); ok && eth.IPAddress.IsValid() {
		for portID, other := range st.settings {
			if portID == s.DevicePortID || other.DeviceID != s.DeviceID {
				continue
			}
			if o, ok := other.Ethernet(); ok && o.IPAddress == eth.IPAddress {
				return conflict("ip address %s already assigned on device %s", eth.IPAddress, s.DeviceID)
			}
		}
	}
	st.settings[s.DevicePortID] = s
	return nil
}

func (m *MemoryStore) FindPortByIPAddress(ctx context.Context, deviceID uuid.UUID, ip netip.Addr, excludeID uuid.UUID) (*types.DevicePort, error) {
	var out *types.DevicePort
	m.read(func(st *memoryState) error {
		for portID, s := range st.settings {
			if s.DeviceID != deviceID || portID == excludeID {
				continue
			}
			if eth, ok := s.Ethernet(); ok && eth.IPAddress == ip {
				p := st.ports[portID]
				out = &p
				return nil
			}
		}
		return nil
	})
	return out, nil
}

// ==================== PROTOCOLS ====================

func (m *MemoryStore) CreateProtocol(ctx context.Context, p *types.Protocol) error {
	return m.write(func(st *memoryState) error {
		if _, ok := st.ports[p.DevicePortID]; !ok {
			return notFound("device port", p.DevicePortID)
		}
		if _, ok := st.protocols[p.ID]; ok {
			return conflict("protocol %s exists", p.ID)
		}
		return st.putProtocol(*p)
	})
}

func (m *MemoryStore) GetProtocol(ctx context.Context, id uuid.UUID) (*types.Protocol, error) {
	var out types.Protocol
	err := m.read(func(st *memoryState) error {
		p, ok := st.protocols[id]
		if !ok {
			return notFound("protocol", id)
		}
		out = cloneProtocol(p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (m *MemoryStore) ListProtocols(ctx context.Context, devicePortID uuid.UUID) ([]types.Protocol, error) {
	out := make([]types.Protocol, 0)
	m.read(func(st *memoryState) error {
		for _, p := range st.protocols {
			if p.DevicePortID == devicePortID {
				out = append(out, cloneProtocol(p))
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return createdBefore(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID) })
	return out, nil
}

func (m *MemoryStore) UpdateProtocol(ctx context.Context, p *types.Protocol) error {
	return m.write(func(st *memoryState) error {
		if _, ok := st.protocols[p.ID]; !ok {
			return notFound("protocol", p.ID)
		}
		return st.putProtocol(*p)
	})
}

// putProtocol enforces one tcp port per device port.
func (st *memoryState) putProtocol(p types.Protocol) error {
	if p.TCPPort != nil {
		for id, other := range st.protocols {
			if id != p.ID && other.DevicePortID == p.DevicePortID &&
				other.TCPPort != nil && *other.TCPPort == *p.TCPPort {
				return conflict("tcp port %d already used on port %s", *p.TCPPort, p.DevicePortID)
			}
		}
	}
	st.protocols[p.ID] = cloneProtocol(p)
	return nil
}

func (m *MemoryStore) DeleteProtocol(ctx context.Context, id uuid.UUID) error {
	return m.write(func(st *memoryState) error {
		if _, ok := st.protocols[id]; !ok {
			return notFound("protocol", id)
		}
		st.deleteProtocol(id)
		return nil
	})
}

func (m *MemoryStore) FindProtocolByTCPPort(ctx context.Context, devicePortID uuid.UUID, tcpPort int, excludeID uuid.UUID) (*types.Protocol, error) {
	var out *types.Protocol
	m.read(func(st *memoryState) error {
		for id, p := range st.protocols {
			if id == excludeID || p.DevicePortID != devicePortID || p.TCPPort == nil {
				continue
			}
			if *p.TCPPort == tcpPort {
				c := cloneProtocol(p)
				out = &c
				return nil
			}
		}
		return nil
	})
	return out, nil
}

// ==================== SLAVE DEVICES ====================

func (m *MemoryStore) CreateSlaveDevice(ctx context.Context, s *types.SlaveDevice) error {
	return m.write(func(st *memoryState) error {
		if _, ok := st.protocols[s.ProtocolID]; !ok {
			return notFound("protocol", s.ProtocolID)
		}
		if _, ok := st.slaves[s.ID]; ok {
			return conflict("slave device %s exists", s.ID)
		}
		return st.putSlave(*s)
	})
}

func (m *MemoryStore) GetSlaveDevice(ctx context.Context, id uuid.UUID) (*types.SlaveDevice, error) {
	var out types.SlaveDevice
	err := m.read(func(st *memoryState) error {
		s, ok := st.slaves[id]
		if !ok {
			return notFound("slave device", id)
		}
		out = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (m *MemoryStore) ListSlaveDevices(ctx context.Context, protocolID uuid.UUID) ([]types.SlaveDevice, error) {
	out := make([]types.SlaveDevice, 0)
	m.read(func(st *memoryState) error {
		for _, s := range st.slaves {
			if s.ProtocolID == protocolID {
				out = append(out, s)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return createdBefore(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID) })
	return out, nil
}

func (m *MemoryStore) UpdateSlaveDevice(ctx context.Context, s *types.SlaveDevice) error {
	return m.write(func(st *memoryState) error {
		if _, ok := st.slaves[s.ID]; !ok {
			return notFound("slave device", s.ID)
		}
		return st.putSlave(*s)
	})
}

// putSlave enforces one device address per protocol.
func (st *memoryState) putSlave(s types.SlaveDevice) error {
	for id, other := range st.slaves {
		if id != s.ID && other.ProtocolID == s.ProtocolID && other.DeviceAddress == s.DeviceAddress {
			return conflict("device address %s already used on protocol %s", s.DeviceAddress, s.ProtocolID)
		}
	}
	st.slaves[s.ID] = s
	return nil
}

func (m *MemoryStore) DeleteSlaveDevice(ctx context.Context, id uuid.UUID) error {
	return m.write(func(st *memoryState) error {
		if _, ok := st.slaves[id]; !ok {
			return notFound("slave device", id)
		}
		st.deleteSlave(id)
		return nil
	})
}

func (m *MemoryStore) FindSlaveByAddress(ctx context.Context, deviceID uuid.UUID, address string, excludeID uuid.UUID) (*types.SlaveDevice, error) {
	var out *types.SlaveDevice
	m.read(func(st *memoryState) error {
		for id, s := range st.slaves {
			if id == excludeID || s.DeviceAddress != address {
				continue
			}
			proto, ok := st.protocols[s.ProtocolID]
			if !ok {
				continue
			}
			if port, ok := st.ports[proto.DevicePortID]; ok && port.DeviceID == deviceID {
				c := s
				out = &c
				return nil
			}
		}
		return nil
	})
	return out, nil
}

func (m *MemoryStore) FindSlaveInProtocol(ctx context.Context, protocolID uuid.UUID, address string, excludeID uuid.UUID) (*types.SlaveDevice, error) {
	var out *types.SlaveDevice
	m.read(func(st *memoryState) error {
		for id, s := range st.slaves {
			if id != excludeID && s.ProtocolID == protocolID && s.DeviceAddress == address {
				c := s
				out = &c
				return nil
			}
		}
		return nil
	})
	return out, nil
}

// ==================== IO ====================

func (m *MemoryStore) CreateIO(ctx context.Context, io *types.IO) error {
	return m.write(func(st *memoryState) error {
		if _, ok := st.slaves[io.SlaveDeviceID]; !ok {
			return notFound("slave device", io.SlaveDeviceID)
		}
		if _, ok := st.ios[io.ID]; ok {
			return conflict("io %s exists", io.ID)
		}
		st.ios[io.ID] = *io
		return nil
	})
}

func (m *MemoryStore) GetIO(ctx context.Context, id uuid.UUID) (*types.IO, error) {
	var out types.IO
	err := m.read(func(st *memoryState) error {
		io, ok := st.ios[id]
		if !ok {
			return notFound("io", id)
		}
		out = io
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (m *MemoryStore) ListIOs(ctx context.Context, slaveDeviceID uuid.UUID) ([]types.IO, error) {
	out := make([]types.IO, 0)
	m.read(func(st *memoryState) error {
		for _, io := range st.ios {
			if io.SlaveDeviceID == slaveDeviceID {
				out = append(out, io)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return createdBefore(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID) })
	return out, nil
}

func (m *MemoryStore) UpdateIO(ctx context.Context, io *types.IO) error {
	return m.write(func(st *memoryState) error {
		if _, ok := st.ios[io.ID]; !ok {
			return notFound("io", io.ID)
		}
		st.ios[io.ID] = *io
		return nil
	})
}

func (m *MemoryStore) DeleteIO(ctx context.Context, id uuid.UUID) error {
	return m.write(func(st *memoryState) error {
		if _, ok := st.ios[id]; !ok {
			return notFound("io", id)
		}
		delete(st.ios, id)
		return nil
	})
}

// ==================== MQTT ====================

func (m *MemoryStore) GetMqtt(ctx context.Context, deviceID uuid.UUID) (*types.Mqtt, error) {
	var out types.Mqtt
	err := m.read(func(st *memoryState) error {
		mq, ok := st.mqtt[deviceID]
		if !ok {
			return notFound("mqtt for device", deviceID)
		}
		out = mq
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (m *MemoryStore) UpdateMqtt(ctx context.Context, mq *types.Mqtt) error {
	return m.write(func(st *memoryState) error {
		if _, ok := st.mqtt[mq.DeviceID]; !ok {
			return notFound("mqtt for device", mq.DeviceID)
		}
		st.mqtt[mq.DeviceID] = *mq
		return nil
	})
}

// ==================== CASCADES ====================

func (st *memoryState) deleteDevice(id uuid.UUID) {
	for portID, p := range st.ports {
		if p.DeviceID != id {
			continue
		}
		for protoID, proto := range st.protocols {
			if proto.DevicePortID == portID {
				st.deleteProtocol(protoID)
			}
		}
		delete(st.settings, portID)
		delete(st.ports, portID)
	}
	delete(st.mqtt, id)
	delete(st.devices, id)
}

func (st *memoryState) deleteProtocol(id uuid.UUID) {
	for slaveID, s := range st.slaves {
		if s.ProtocolID == id {
			st.deleteSlave(slaveID)
		}
	}
	delete(st.protocols, id)
}

func (st *memoryState) deleteSlave(id uuid.UUID) {
	for ioID, io := range st.ios {
		if io.SlaveDeviceID == id {
			delete(st.ios, ioID)
		}
	}
	delete(st.slaves, id)
}

var _ Store = (*MemoryStore)(nil)

package storage

import (
	"context"
	"errors"
	"net/netip"
	"os"
	"testing"
	"time"

	"github.com/KevinKickass/OpenMachineConfig/internal/enums"
	"github.com/KevinKickass/OpenMachineConfig/internal/types"
	"github.com/google/uuid"
)

// seed builds a project, a device type and a provisioned device with one
// Ethernet and one serial port.
type seed struct {
	project types.Project
	dt      types.DeviceType
	bundle  types.DeviceBundle
}

func (s *seed) ethPort() types.DevicePort    { return s.bundle.Ports[0].Port }
func (s *seed) serialPort() types.DevicePort { return s.bundle.Ports[1].Port }

func newSeed(t *testing.T, ctx context.Context, st Store) *seed {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Microsecond)

	s := &seed{
		project: types.Project{ID: uuid.New(), Name: "Plant", CreatedAt: now, UpdatedAt: now},
	}
	model := "M-" + uuid.NewString()[:8]
	s.dt = types.DeviceType{
		ID: types.DeviceTypeID(model), Name: "Gateway", Model: model, CreatedAt: now, UpdatedAt: now,
		Ports: []types.DevicePortInfo{
			{ID: types.DevicePortInfoID(model, 0), DeviceTypeID: types.DeviceTypeID(model), PortName: "ETH", PortType: enums.Communication, Position: 0},
			{ID: types.DevicePortInfoID(model, 1), DeviceTypeID: types.DeviceTypeID(model), PortName: "COM", PortType: enums.RS485, Position: 1},
		},
	}

	dev := types.Device{ID: uuid.New(), ProjectID: s.project.ID, DeviceTypeID: s.dt.ID, Name: "Line", CreatedAt: now, UpdatedAt: now}
	eth := types.DevicePort{ID: uuid.New(), DeviceID: dev.ID, PortName: "ETH", PortType: enums.Communication, Position: 0, CreatedAt: now, UpdatedAt: now}
	com := types.DevicePort{ID: uuid.New(), DeviceID: dev.ID, PortName: "COM", PortType: enums.RS485, Position: 1, CreatedAt: now, UpdatedAt: now}
	s.bundle = types.DeviceBundle{
		Device: dev,
		Ports: []types.PortBundle{
			{Port: eth, Setting: types.PortSetting{ID: uuid.New(), DevicePortID: eth.ID, DeviceID: dev.ID, UpdatedAt: now,
				Config: types.EthernetConfig{IPAddress: netip.MustParseAddr("192.168.1.1"), SubnetMask: netip.MustParseAddr("255.255.255.0")}}},
			{Port: com, Setting: types.PortSetting{ID: uuid.New(), DevicePortID: com.ID, DeviceID: dev.ID, UpdatedAt: now,
				Config: types.SerialConfig{BaudRate: enums.Baud9600, DataBits: enums.DataBits8, StopBits: enums.StopBits1, Parity: enums.ParityNone, FlowControl: enums.FlowControlNone}}},
		},
		Mqtt: types.Mqtt{ID: uuid.New(), DeviceID: dev.ID, Port: 1883, KeepAlive: 60, CleanSession: true, UpdatedAt: now},
	}

	if err := st.CreateProject(ctx, &s.project); err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	if err := st.UpsertDeviceType(ctx, &s.dt); err != nil {
		t.Fatalf("UpsertDeviceType: %v", err)
	}
	if err := st.CreateDeviceBundle(ctx, &s.bundle); err != nil {
		t.Fatalf("CreateDeviceBundle: %v", err)
	}
	return s
}

func newProtocol(portID uuid.UUID, pt enums.ProtocolType, tcpPort *int) *types.Protocol {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &types.Protocol{ID: uuid.New(), DevicePortID: portID, Type: pt, TCPPort: tcpPort, CreatedAt: now, UpdatedAt: now}
}

func newSlave(protocolID uuid.UUID, name, addr string) *types.SlaveDevice {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &types.SlaveDevice{ID: uuid.New(), ProtocolID: protocolID, Name: name, PlcModel: enums.Fx5, ScanRate: 100,
		DeviceAddress: addr, CreatedAt: now, UpdatedAt: now}
}

func intp(v int) *int { return &v }

// runStoreSuite checks the contract documented on Store.
func runStoreSuite(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("bundle round trip", func(t *testing.T) {
		st := newStore(t)
		s := newSeed(t, ctx, st)

		ports, err := st.ListDevicePorts(ctx, s.bundle.Device.ID)
		if err != nil || len(ports) != 2 {
			t.Fatalf("ListDevicePorts = %v, %v", ports, err)
		}
		if ports[0].PortName != "ETH" || ports[1].PortType != enums.RS485 {
			t.Errorf("ports = %+v", ports)
		}

		setting, err := st.GetPortSetting(ctx, s.serialPort().ID)
		if err != nil {
			t.Fatalf("GetPortSetting: %v", err)
		}
		if sc, ok := setting.Serial(); !ok || sc.BaudRate != enums.Baud9600 {
			t.Errorf("setting = %+v", setting)
		}

		m, err := st.GetMqtt(ctx, s.bundle.Device.ID)
		if err != nil || m.Port != 1883 {
			t.Fatalf("GetMqtt = %+v, %v", m, err)
		}
	})

	t.Run("bundle is atomic", func(t *testing.T) {
		st := newStore(t)
		s := newSeed(t, ctx, st)

		b := s.bundle
		b.Device.ID = uuid.New()
		b.Ports = append([]types.PortBundle(nil), b.Ports...)
		// Reusing the first port id must fail after the device row is written.
		b.Ports[0].Port.DeviceID = b.Device.ID
		b.Ports[0].Setting.DeviceID = b.Device.ID
		b.Ports[0].Setting.ID = uuid.New()
		b.Mqtt.ID = uuid.New()
		b.Mqtt.DeviceID = b.Device.ID

		if err := st.CreateDeviceBundle(ctx, &b); err == nil {
			t.Fatal("expected duplicate port to fail")
		}
		if _, err := st.GetDevice(ctx, b.Device.ID); !errors.Is(err, types.ErrNotFound) {
			t.Errorf("partial bundle left a device: %v", err)
		}
	})

	t.Run("not found", func(t *testing.T) {
		st := newStore(t)
		if _, err := st.GetProject(ctx, uuid.New()); !errors.Is(err, types.ErrNotFound) {
			t.Errorf("GetProject: %v", err)
		}
		if _, err := st.GetProtocol(ctx, uuid.New()); !errors.Is(err, types.ErrNotFound) {
			t.Errorf("GetProtocol: %v", err)
		}
		if err := st.DeleteIO(ctx, uuid.New()); !errors.Is(err, types.ErrNotFound) {
			t.Errorf("DeleteIO: %v", err)
		}
		if err := st.CreateProtocol(ctx, newProtocol(uuid.New(), enums.ModbusTCP, nil)); !errors.Is(err, types.ErrNotFound) {
			t.Errorf("CreateProtocol with unknown port: %v", err)
		}
	})

	t.Run("find returns nil", func(t *testing.T) {
		st := newStore(t)
		s := newSeed(t, ctx, st)

		p, err := st.FindPortByIPAddress(ctx, s.bundle.Device.ID, netip.MustParseAddr("10.9.9.9"), uuid.Nil)
		if p != nil || err != nil {
			t.Errorf("FindPortByIPAddress = %v, %v", p, err)
		}
		p, err = st.FindPortByIPAddress(ctx, s.bundle.Device.ID, netip.MustParseAddr("192.168.1.1"), uuid.Nil)
		if err != nil || p == nil || p.ID != s.ethPort().ID {
			t.Errorf("FindPortByIPAddress = %v, %v", p, err)
		}
		p, err = st.FindPortByIPAddress(ctx, s.bundle.Device.ID, netip.MustParseAddr("192.168.1.1"), s.ethPort().ID)
		if p != nil || err != nil {
			t.Errorf("excluded port returned: %v, %v", p, err)
		}
	})

	t.Run("tcp port conflict", func(t *testing.T) {
		st := newStore(t)
		s := newSeed(t, ctx, st)

		a := newProtocol(s.ethPort().ID, enums.ModbusTCP, intp(502))
		if err := st.CreateProtocol(ctx, a); err != nil {
			t.Fatalf("CreateProtocol: %v", err)
		}
		err := st.CreateProtocol(ctx, newProtocol(s.ethPort().ID, enums.S7Protocol, intp(502)))
		if !errors.Is(err, types.ErrConflict) {
			t.Fatalf("err = %v, want conflict", err)
		}

		found, err := st.FindProtocolByTCPPort(ctx, s.ethPort().ID, 502, uuid.Nil)
		if err != nil || found == nil || found.ID != a.ID {
			t.Errorf("FindProtocolByTCPPort = %v, %v", found, err)
		}
		found, _ = st.FindProtocolByTCPPort(ctx, s.ethPort().ID, 502, a.ID)
		if found != nil {
			t.Errorf("excluded protocol returned")
		}
	})

	t.Run("slave address conflict", func(t *testing.T) {
		st := newStore(t)
		s := newSeed(t, ctx, st)
		p := newProtocol(s.ethPort().ID, enums.ModbusTCP, nil)
		if err := st.CreateProtocol(ctx, p); err != nil {
			t.Fatal(err)
		}
		if err := st.CreateSlaveDevice(ctx, newSlave(p.ID, "A", "10.0.0.5")); err != nil {
			t.Fatal(err)
		}
		if err := st.CreateSlaveDevice(ctx, newSlave(p.ID, "B", "10.0.0.5")); !errors.Is(err, types.ErrConflict) {
			t.Fatalf("err = %v, want conflict", err)
		}

		found, err := st.FindSlaveByAddress(ctx, s.bundle.Device.ID, "10.0.0.5", uuid.Nil)
		if err != nil || found == nil || found.Name != "A" {
			t.Errorf("FindSlaveByAddress = %v, %v", found, err)
		}
		found, _ = st.FindSlaveByAddress(ctx, uuid.New(), "10.0.0.5", uuid.Nil)
		if found != nil {
			t.Errorf("slave found on another device")
		}
	})

	t.Run("delete cascades", func(t *testing.T) {
		st := newStore(t)
		s := newSeed(t, ctx, st)
		p := newProtocol(s.serialPort().ID, enums.ModbusRTU, nil)
		if err := st.CreateProtocol(ctx, p); err != nil {
			t.Fatal(err)
		}
		sd := newSlave(p.ID, "Station", "1")
		if err := st.CreateSlaveDevice(ctx, sd); err != nil {
			t.Fatal(err)
		}
		now := time.Now().UTC()
		io := &types.IO{ID: uuid.New(), SlaveDeviceID: sd.ID, Name: "D0", Register: enums.MitsubishiD,
			Length: 1, Conversion: enums.ConversionInt16, CreatedAt: now, UpdatedAt: now}
		if err := st.CreateIO(ctx, io); err != nil {
			t.Fatal(err)
		}

		if err := st.DeleteProject(ctx, s.project.ID); err != nil {
			t.Fatalf("DeleteProject: %v", err)
		}
		for name, err := range map[string]error{
			"device":   errOf(st.GetDevice(ctx, s.bundle.Device.ID)),
			"port":     errOf(st.GetDevicePort(ctx, s.serialPort().ID)),
			"setting":  errOf(st.GetPortSetting(ctx, s.serialPort().ID)),
			"protocol": errOf(st.GetProtocol(ctx, p.ID)),
			"slave":    errOf(st.GetSlaveDevice(ctx, sd.ID)),
			"io":       errOf(st.GetIO(ctx, io.ID)),
			"mqtt":     errOf(st.GetMqtt(ctx, s.bundle.Device.ID)),
		} {
			if !errors.Is(err, types.ErrNotFound) {
				t.Errorf("%s survived: %v", name, err)
			}
		}
		if _, err := st.GetDeviceType(ctx, s.dt.ID); err != nil {
			t.Errorf("device type removed with project: %v", err)
		}
	})

	t.Run("upsert device type replaces ports", func(t *testing.T) {
		st := newStore(t)
		s := newSeed(t, ctx, st)

		dt := s.dt
		dt.Name = "Gateway v2"
		dt.Ports = dt.Ports[:1]
		if err := st.UpsertDeviceType(ctx, &dt); err != nil {
			t.Fatalf("UpsertDeviceType: %v", err)
		}
		got, err := st.GetDeviceType(ctx, dt.ID)
		if err != nil {
			t.Fatal(err)
		}
		if got.Name != "Gateway v2" || len(got.Ports) != 1 {
			t.Errorf("device type = %+v", got)
		}

		other := s.dt
		other.ID = uuid.New()
		other.Ports = nil
		if err := st.UpsertDeviceType(ctx, &other); !errors.Is(err, types.ErrConflict) {
			t.Errorf("duplicate model: %v", err)
		}
	})

	t.Run("lists are never nil", func(t *testing.T) {
		st := newStore(t)
		s := newSeed(t, ctx, st)
		protos, err := st.ListProtocols(ctx, s.ethPort().ID)
		if err != nil || protos == nil || len(protos) != 0 {
			t.Errorf("ListProtocols = %#v, %v", protos, err)
		}
	})
}

func errOf[T any](_ T, err error) error { return err }

func TestMemoryStore(t *testing.T) {
	runStoreSuite(t, func(t *testing.T) Store { return NewMemoryStore() })
}

func TestMemoryStoreUpdatesAreCopies(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	s := newSeed(t, ctx, st)

	p := newProtocol(s.ethPort().ID, enums.ModbusTCP, intp(502))
	if err := st.CreateProtocol(ctx, p); err != nil {
		t.Fatal(err)
	}
	*p.TCPPort = 503

	got, _ := st.GetProtocol(ctx, p.ID)
	if *got.TCPPort != 502 {
		t.Errorf("caller mutation leaked into store: %d", *got.TCPPort)
	}
}

// TestPostgresStore runs the suite against a live database when
// OMC_TEST_DATABASE_URL is set.
func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("OMC_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("OMC_TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	client, err := connect(ctx, dsn, 4)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(client.Close)
	if err := client.Migrate(ctx); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	runStoreSuite(t, func(t *testing.T) Store { return client })
}

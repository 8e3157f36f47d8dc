package topology

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/KevinKickass/OpenMachineConfig/internal/devices"
	"github.com/KevinKickass/OpenMachineConfig/internal/enums"
	"github.com/KevinKickass/OpenMachineConfig/internal/storage"
	"github.com/KevinKickass/OpenMachineConfig/internal/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type recorder struct {
	mu     sync.Mutex
	events []types.ChangeEvent
}

func (r *recorder) Publish(e types.ChangeEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) last() types.ChangeEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}

type staticTemplates []types.DeviceTypeDefinition

func (s staticTemplates) LoadAll() ([]types.DeviceTypeDefinition, error) { return s, nil }

// gatewayTemplate has two Ethernet and two serial ports.
var gatewayTemplate = types.DeviceTypeDefinition{
	DeviceType: types.DeviceTypeInfo{Name: "Gateway", Model: "GW-4"},
	Ports: []types.PortTemplateConfig{
		{PortName: "Ethernet 1", PortType: "Monitor"},
		{PortName: "Ethernet 2", PortType: "Communication"},
		{PortName: "Serial 1", PortType: "RS485"},
		{PortName: "Serial 2", PortType: "RS232"},
	},
}

type fixture struct {
	t      *testing.T
	ctx    context.Context
	svc    *Service
	store  *storage.MemoryStore
	events *recorder
	bundle *types.DeviceBundle
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := storage.NewMemoryStore()
	svc := NewService(store, zap.NewNop())
	events := &recorder{}
	svc.SetPublisher(events)

	if _, err := svc.SyncDeviceTypes(ctx, staticTemplates{gatewayTemplate}); err != nil {
		t.Fatalf("SyncDeviceTypes: %v", err)
	}
	project, err := svc.CreateProject(ctx, ProjectInput{Name: "Plant"})
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	bundle, err := svc.ProvisionDevice(ctx, project.ID, DeviceInput{
		DeviceTypeID: types.DeviceTypeID("GW-4"),
		Name:         "Line 1",
	})
	if err != nil {
		t.Fatalf("ProvisionDevice: %v", err)
	}

	return &fixture{t: t, ctx: ctx, svc: svc, store: store, events: events, bundle: bundle}
}

// port returns the provisioned port at position i.
func (f *fixture) port(i int) types.DevicePort {
	return f.bundle.Ports[i].Port
}

func (f *fixture) protocol(portIdx int, protoType int, tcpPort *int) *types.Protocol {
	f.t.Helper()
	p, err := f.svc.CreateProtocol(f.ctx, f.port(portIdx).ID, ProtocolInput{Type: protoType, TCPPort: tcpPort})
	if err != nil {
		f.t.Fatalf("CreateProtocol: %v", err)
	}
	return p
}

func (f *fixture) slave(protocolID uuid.UUID, name string, model int, address string) *types.SlaveDevice {
	f.t.Helper()
	sd, err := f.svc.CreateSlaveDevice(f.ctx, protocolID, SlaveInput{Name: name, PlcModel: model, ScanRate: 100, DeviceAddress: address})
	if err != nil {
		f.t.Fatalf("CreateSlaveDevice: %v", err)
	}
	return sd
}

func intp(v int) *int       { return &v }
func strp(v string) *string { return &v }

func wantValidation(t *testing.T, err error, contains string) {
	t.Helper()
	if !types.IsValidation(err) {
		t.Fatalf("err = %v, want validation error", err)
	}
	if !strings.Contains(err.Error(), contains) {
		t.Fatalf("err = %q, want containing %q", err.Error(), contains)
	}
}

// Scenario A.
func TestProvisionDevice(t *testing.T) {
	f := newFixture(t)

	ports, err := f.svc.ListDevicePorts(f.ctx, f.bundle.Device.ID)
	if err != nil {
		t.Fatalf("ListDevicePorts: %v", err)
	}
	if len(ports) != 4 {
		t.Fatalf("got %d ports, want 4", len(ports))
	}

	for i, port := range ports {
		if port.PortName != gatewayTemplate.Ports[i].PortName {
			t.Errorf("port %d = %q, template order not preserved", i, port.PortName)
		}
		setting, err := f.svc.GetPortSetting(f.ctx, port.ID)
		if err != nil {
			t.Fatalf("GetPortSetting: %v", err)
		}
		if setting.Config.Transport() != port.PortType.Transport() {
			t.Errorf("port %s: setting family %v != port family %v", port.PortName, setting.Config.Transport(), port.PortType.Transport())
		}
	}

	m, err := f.svc.GetMqtt(f.ctx, f.bundle.Device.ID)
	if err != nil {
		t.Fatalf("GetMqtt: %v", err)
	}
	if m.Port != 1883 || m.KeepAlive != 60 {
		t.Errorf("mqtt = %+v", m)
	}

	ev := f.events.last()
	if ev.Entity != types.EntityDevice || ev.Action != types.ChangeCreated || ev.ID != f.bundle.Device.ID {
		t.Errorf("last event = %+v", ev)
	}
}

func TestProvisionDeviceFailures(t *testing.T) {
	f := newFixture(t)
	project := f.bundle.Device.ProjectID

	tests := []struct {
		name      string
		projectID uuid.UUID
		in        DeviceInput
		check     func(error) bool
	}{
		{"unknown device type", project, DeviceInput{DeviceTypeID: uuid.New(), Name: "x"},
			func(err error) bool { return errors.Is(err, types.ErrNotFound) }},
		{"unknown project", uuid.New(), DeviceInput{DeviceTypeID: types.DeviceTypeID("GW-4"), Name: "x"},
			func(err error) bool { return errors.Is(err, types.ErrNotFound) }},
		{"blank name", project, DeviceInput{DeviceTypeID: types.DeviceTypeID("GW-4"), Name: "  "},
			types.IsValidation},
		{"missing device type", project, DeviceInput{Name: "x"},
			types.IsValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.ProvisionDevice(f.ctx, tt.projectID, tt.in)
			if !tt.check(err) {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}

	devs, _ := f.svc.ListDevices(f.ctx, project)
	if len(devs) != 1 {
		t.Errorf("failed provisioning left %d devices", len(devs))
	}
}

func TestProvisionDeviceEmptyTemplate(t *testing.T) {
	f := newFixture(t)
	empty := &types.DeviceType{ID: types.DeviceTypeID("EMPTY"), Name: "Empty", Model: "EMPTY", CreatedAt: time.Now(), UpdatedAt: time.Now()}
	if err := f.store.UpsertDeviceType(f.ctx, empty); err != nil {
		t.Fatal(err)
	}

	_, err := f.svc.ProvisionDevice(f.ctx, f.bundle.Device.ProjectID, DeviceInput{DeviceTypeID: empty.ID, Name: "x"})
	wantValidation(t, err, "Has No Ports")
}

func TestProvisionSecondDeviceReusesAddresses(t *testing.T) {
	f := newFixture(t)

	b, err := f.svc.ProvisionDevice(f.ctx, f.bundle.Device.ProjectID, DeviceInput{
		DeviceTypeID: types.DeviceTypeID("GW-4"),
		Name:         "Line 2",
	})
	if err != nil {
		t.Fatalf("second device on the same defaults: %v", err)
	}
	eth, _ := b.Ports[0].Setting.Ethernet()
	if eth.IPAddress != devices.DefaultEthernetConfig(0).IPAddress {
		t.Errorf("ip = %s", eth.IPAddress)
	}
}

func TestDeleteProjectCascades(t *testing.T) {
	f := newFixture(t)
	proto := f.protocol(1, int(enums.ModbusTCP), intp(502))
	sd := f.slave(proto.ID, "PLC", int(enums.S71200), "10.0.0.5")

	if err := f.svc.DeleteProject(f.ctx, f.bundle.Device.ProjectID); err != nil {
		t.Fatalf("DeleteProject: %v", err)
	}

	if _, err := f.svc.GetDevice(f.ctx, f.bundle.Device.ID); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("device survived: %v", err)
	}
	if _, err := f.svc.GetProtocol(f.ctx, proto.ID); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("protocol survived: %v", err)
	}
	if _, err := f.svc.GetSlaveDevice(f.ctx, sd.ID); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("slave survived: %v", err)
	}
	if _, err := f.svc.GetMqtt(f.ctx, f.bundle.Device.ID); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("mqtt survived: %v", err)
	}
}

func TestProjectCRUD(t *testing.T) {
	f := newFixture(t)

	p, err := f.svc.UpdateProject(f.ctx, f.bundle.Device.ProjectID, ProjectPatch{Name: strp("  Plant 2 "), Description: strp("north hall")})
	if err != nil {
		t.Fatalf("UpdateProject: %v", err)
	}
	if p.Name != "Plant 2" || p.Description != "north hall" {
		t.Errorf("project = %+v", p)
	}

	_, err = f.svc.UpdateProject(f.ctx, p.ID, ProjectPatch{Name: strp(strings.Repeat("x", 101))})
	wantValidation(t, err, "At Most")

	if _, err := f.svc.UpdateProject(f.ctx, uuid.New(), ProjectPatch{}); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("err = %v, want not found", err)
	}

	all, err := f.svc.ListProjects(f.ctx)
	if err != nil || len(all) != 1 {
		t.Fatalf("ListProjects = %v, %v", all, err)
	}
}

type failingStore struct {
	storage.Store
}

func (failingStore) GetProject(context.Context, uuid.UUID) (*types.Project, error) {
	return nil, errors.New("connection reset")
}

func TestStoreErrorsAreClassified(t *testing.T) {
	svc := NewService(failingStore{Store: storage.NewMemoryStore()}, zap.NewNop())

	_, err := svc.GetProject(context.Background(), uuid.New())
	var se *types.StoreError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want StoreError", err)
	}
	if strings.Contains(err.Error(), "connection reset") {
		t.Errorf("store cause leaked: %q", err.Error())
	}
	if status, body := types.DescribeError(err); status != 500 || body.Code != "STORE_500" {
		t.Errorf("DescribeError = %d %+v", status, body)
	}
}

func TestMqttUpdate(t *testing.T) {
	f := newFixture(t)
	id := f.bundle.Device.ID

	m, err := f.svc.UpdateMqtt(f.ctx, id, MqttPatch{BrokerAddress: strp("broker.local"), UseSSL: boolp(true), Port: intp(8883)})
	if err != nil {
		t.Fatalf("UpdateMqtt: %v", err)
	}
	if m.BrokerAddress != "broker.local" || !m.UseSSL || m.Port != 8883 {
		t.Errorf("mqtt = %+v", m)
	}

	tests := []struct {
		name  string
		patch MqttPatch
		want  string
	}{
		{"port zero", MqttPatch{Port: intp(0)}, "MQTT Port"},
		{"negative keep alive", MqttPatch{KeepAlive: intp(-1)}, "Keep Alive"},
		{"scheme in broker", MqttPatch{BrokerAddress: strp("tcp://broker")}, "Invalid Broker Address"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.UpdateMqtt(f.ctx, id, tt.patch)
			wantValidation(t, err, tt.want)
		})
	}
}

func boolp(v bool) *bool { return &v }

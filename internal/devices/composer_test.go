package devices

import (
	"errors"
	"net/netip"
	"testing"
	"time"

	"github.com/KevinKickass/OpenMachineConfig/internal/enums"
	"github.com/KevinKickass/OpenMachineConfig/internal/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func testDeviceType(t *testing.T, portTypes ...string) *types.DeviceType {
	t.Helper()
	def := types.DeviceTypeDefinition{
		DeviceType: types.DeviceTypeInfo{Name: "Test", Model: "T-1"},
	}
	for _, pt := range portTypes {
		def.Ports = append(def.Ports, types.PortTemplateConfig{PortName: pt, PortType: pt})
	}
	dt, err := NewDeviceType(def, time.Now())
	if err != nil {
		t.Fatalf("NewDeviceType: %v", err)
	}
	return dt
}

func TestNewDeviceTypeStableIDs(t *testing.T) {
	a := testDeviceType(t, "Monitor", "RS232")
	b := testDeviceType(t, "Monitor", "RS232")

	if a.ID != b.ID || a.ID != types.DeviceTypeID("T-1") {
		t.Errorf("device type ids differ: %s %s", a.ID, b.ID)
	}
	if a.Ports[1].ID != b.Ports[1].ID {
		t.Errorf("port info ids differ")
	}
	if a.Ports[0].ID == a.Ports[1].ID {
		t.Errorf("port info ids collide")
	}
}

func TestNewDeviceTypeRejectsUnknownPortType(t *testing.T) {
	def := types.DeviceTypeDefinition{
		DeviceType: types.DeviceTypeInfo{Name: "Bad", Model: "B-1"},
		Ports:      []types.PortTemplateConfig{{PortName: "x", PortType: "USB"}},
	}
	if _, err := NewDeviceType(def, time.Now()); !errors.Is(err, enums.ErrUnknownCode) {
		t.Fatalf("err = %v, want ErrUnknownCode", err)
	}
}

func TestCompose(t *testing.T) {
	dt := testDeviceType(t, "Monitor", "RS485", "Communication", "RS232")
	projectID := uuid.New()

	b, err := NewComposer(zap.NewNop()).Compose(dt, DeviceSpec{ProjectID: projectID, Name: "dev"}, time.Now())
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}

	if b.Device.ProjectID != projectID || b.Device.DeviceTypeID != dt.ID {
		t.Errorf("device links = %+v", b.Device)
	}
	if len(b.Ports) != 4 {
		t.Fatalf("got %d ports, want 4", len(b.Ports))
	}

	wantIPs := map[int]netip.Addr{
		0: netip.MustParseAddr("192.168.1.1"),
		2: netip.MustParseAddr("192.168.2.1"),
	}
	for i, pb := range b.Ports {
		if pb.Port.Position != i {
			t.Errorf("port %d position = %d", i, pb.Port.Position)
		}
		if pb.Setting.DevicePortID != pb.Port.ID || pb.Setting.DeviceID != b.Device.ID {
			t.Errorf("port %d setting not linked", i)
		}
		if pb.Setting.Config.Transport() != pb.Port.PortType.Transport() {
			t.Errorf("port %d setting family %v, port family %v", i, pb.Setting.Config.Transport(), pb.Port.PortType.Transport())
		}

		if eth, ok := pb.Setting.Ethernet(); ok {
			if eth.IPAddress != wantIPs[i] {
				t.Errorf("port %d ip = %s, want %s", i, eth.IPAddress, wantIPs[i])
			}
			if eth.SubnetMask.String() != "255.255.255.0" || eth.DefaultGateway.IsValid() {
				t.Errorf("port %d ethernet defaults = %+v", i, eth)
			}
		}
		if ser, ok := pb.Setting.Serial(); ok && ser != DefaultSerialConfig {
			t.Errorf("port %d serial = %+v", i, ser)
		}
	}

	m := b.Mqtt
	if m.DeviceID != b.Device.ID || m.Port != 1883 || m.KeepAlive != 60 || !m.CleanSession || m.UseSSL || m.BrokerAddress != "" {
		t.Errorf("mqtt defaults = %+v", m)
	}
}

func TestComposeWithoutPorts(t *testing.T) {
	dt := &types.DeviceType{ID: uuid.New(), Name: "Empty", Model: "E-1"}
	_, err := NewComposer(zap.NewNop()).Compose(dt, DeviceSpec{ProjectID: uuid.New(), Name: "d"}, time.Now())
	if !types.IsValidation(err) {
		t.Fatalf("err = %v, want validation error", err)
	}
}

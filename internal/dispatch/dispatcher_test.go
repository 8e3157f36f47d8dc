package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/KevinKickass/OpenMachineConfig/internal/enums"
	"github.com/KevinKickass/OpenMachineConfig/internal/storage"
	"github.com/KevinKickass/OpenMachineConfig/internal/topology"
	"github.com/KevinKickass/OpenMachineConfig/internal/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type templates []types.DeviceTypeDefinition

func (t templates) LoadAll() ([]types.DeviceTypeDefinition, error) { return t, nil }

func newDispatcher(t *testing.T) *Dispatcher {
	t.Helper()
	svc := topology.NewService(storage.NewMemoryStore(), zap.NewNop())
	_, err := svc.SyncDeviceTypes(context.Background(), templates{{
		DeviceType: types.DeviceTypeInfo{Name: "Gateway", Model: "GW-2"},
		Ports: []types.PortTemplateConfig{
			{PortName: "LAN", PortType: "Communication"},
			{PortName: "COM", PortType: "RS485"},
		},
	}})
	if err != nil {
		t.Fatal(err)
	}
	return NewDispatcher(svc, zap.NewNop())
}

func call[R any](t *testing.T, d *Dispatcher, entity types.EntityKind, action Action, params any) R {
	t.Helper()
	raw, err := json.Marshal(params)
	if err != nil {
		t.Fatal(err)
	}
	out, err := d.Call(context.Background(), Request{Entity: entity, Action: action, Params: raw})
	if err != nil {
		t.Fatalf("%s.%s: %v", entity, action, err)
	}
	r, ok := out.(R)
	if !ok {
		t.Fatalf("%s.%s returned %T", entity, action, out)
	}
	return r
}

func TestDispatchWalkthrough(t *testing.T) {
	d := newDispatcher(t)

	project := call[*types.Project](t, d, types.EntityProject, ActionCreate, map[string]any{"name": "Plant"})
	bundle := call[*types.DeviceBundle](t, d, types.EntityDevice, ActionCreate, map[string]any{
		"project_id":     project.ID,
		"device_type_id": types.DeviceTypeID("GW-2"),
		"name":           "Line 1",
	})
	lan := bundle.Ports[0].Port.ID

	ports := call[[]types.DevicePort](t, d, types.EntityDevicePort, ActionFindMany, map[string]any{"parent_id": bundle.Device.ID})
	if len(ports) != 2 {
		t.Fatalf("got %d ports", len(ports))
	}

	proto := call[*types.Protocol](t, d, types.EntityProtocol, ActionCreate, map[string]any{
		"device_port_id": lan, "type": int(enums.ModbusTCP), "tcp_port": 502,
	})
	found := call[*types.Protocol](t, d, types.EntityProtocol, ActionFindFirst, map[string]any{"device_port_id": lan, "tcp_port": 502})
	if found == nil || found.ID != proto.ID {
		t.Fatalf("findFirst = %+v", found)
	}
	none := call[*types.Protocol](t, d, types.EntityProtocol, ActionFindFirst, map[string]any{"device_port_id": lan, "tcp_port": 503})
	if none != nil {
		t.Fatalf("findFirst on a free port = %+v", none)
	}

	port := call[*types.DevicePort](t, d, types.EntityDevicePort, ActionFindFirst, map[string]any{
		"device_id": bundle.Device.ID, "ip_address": "192.168.1.1",
	})
	if port == nil || port.ID != lan {
		t.Fatalf("port by ip = %+v", port)
	}

	m := call[*types.Mqtt](t, d, types.EntityMqtt, ActionUpdate, map[string]any{
		"id": bundle.Device.ID, "data": map[string]any{"broker_address": "broker.local"},
	})
	if m.BrokerAddress != "broker.local" {
		t.Errorf("mqtt = %+v", m)
	}

	del := call[*deleted](t, d, types.EntityProtocol, ActionDelete, map[string]any{"id": proto.ID})
	if !del.Deleted {
		t.Errorf("delete = %+v", del)
	}
}

func TestDispatchErrors(t *testing.T) {
	d := newDispatcher(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  Request
		code string
	}{
		{"unsupported pair", Request{Entity: types.EntityDeviceType, Action: ActionDelete}, "REQUEST_400"},
		{"unknown entity", Request{Entity: "machine", Action: ActionFindMany}, "REQUEST_400"},
		{"unknown param", Request{Entity: types.EntityProject, Action: ActionCreate, Params: json.RawMessage(`{"title":"x"}`)}, "REQUEST_400"},
		{"malformed params", Request{Entity: types.EntityProject, Action: ActionCreate, Params: json.RawMessage(`{`)}, "REQUEST_400"},
		{"missing id", Request{Entity: types.EntityProject, Action: ActionFindUnique}, "REQUEST_400"},
		{"not found", Request{Entity: types.EntityProject, Action: ActionFindUnique, Params: json.RawMessage(`{"id":"` + uuid.NewString() + `"}`)}, "NOT_FOUND_404"},
		{"validation", Request{Entity: types.EntityProject, Action: ActionCreate, Params: json.RawMessage(`{"name":"  "}`)}, "VALIDATION_422"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := d.Dispatch(ctx, tt.req)
			if resp.Error == nil {
				t.Fatalf("expected error, got result %+v", resp.Result)
			}
			if resp.Error.Code != tt.code {
				t.Errorf("code = %s, want %s (%s)", resp.Error.Code, tt.code, resp.Error.Message)
			}
			if resp.Result != nil {
				t.Errorf("result set alongside error")
			}
		})
	}

	_, err := d.Call(ctx, Request{Entity: types.EntityIO, Action: ActionFindFirst})
	if !errors.Is(err, types.ErrUnsupported) {
		t.Errorf("err = %v, want unsupported", err)
	}
}

func TestSupported(t *testing.T) {
	d := newDispatcher(t)
	sup := d.Supported()

	if len(sup) != len(entities) {
		t.Errorf("got %d entities, want %d", len(sup), len(entities))
	}
	if got := sup[types.EntityDeviceType]; len(got) != 2 {
		t.Errorf("deviceType actions = %v", got)
	}
}

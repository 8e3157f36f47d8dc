package topology

import (
	"testing"
	"time"

	"github.com/KevinKickass/OpenMachineConfig/internal/enums"
	"github.com/KevinKickass/OpenMachineConfig/internal/types"
	"github.com/google/uuid"
)

func issueCodes(list []Issue) map[string]bool {
	codes := map[string]bool{}
	for _, i := range list {
		codes[i.Code] = true
	}
	return codes
}

func TestAuditCleanDevice(t *testing.T) {
	f := newFixture(t)
	proto := f.protocol(commPort, int(enums.ModbusTCP), intp(502))
	sd := f.slave(proto.ID, "PLC", int(enums.S71200), "10.0.0.5")
	if _, err := f.svc.CreateIO(f.ctx, sd.ID, IOInput{Name: "Temp", Register: int(enums.SiemensDB), Length: 2, Conversion: int(enums.ConversionFloat32)}); err != nil {
		t.Fatalf("CreateIO: %v", err)
	}

	rep, err := f.svc.AuditDevice(f.ctx, f.bundle.Device.ID)
	if err != nil {
		t.Fatalf("AuditDevice: %v", err)
	}
	if !rep.Valid || len(rep.Errors) != 0 {
		t.Fatalf("report = %+v", rep)
	}

	warnings := issueCodes(rep.Warnings)
	if !warnings["AUDIT_W01"] || !warnings["AUDIT_W03"] {
		t.Errorf("warnings = %+v", rep.Warnings)
	}
	if warnings["AUDIT_W02"] {
		t.Errorf("slave with IO reported as empty")
	}
}

func TestAuditReportsBrokenState(t *testing.T) {
	f := newFixture(t)
	now := time.Now()

	// Written around the service so the checks never run.
	bad := []*types.Protocol{
		{ID: uuid.New(), DevicePortID: f.port(monitorPort).ID, Type: enums.ModbusTCP, CreatedAt: now, UpdatedAt: now},
		{ID: uuid.New(), DevicePortID: f.port(rs485Port).ID, Type: enums.ModbusRTU, CreatedAt: now, UpdatedAt: now},
		{ID: uuid.New(), DevicePortID: f.port(rs485Port).ID, Type: enums.MCProtocolSerial, CreatedAt: now, UpdatedAt: now},
	}
	for _, p := range bad {
		if err := f.store.CreateProtocol(f.ctx, p); err != nil {
			t.Fatalf("CreateProtocol: %v", err)
		}
	}
	s7 := f.protocol(commPort, int(enums.S7Protocol), intp(102))
	if err := f.store.CreateSlaveDevice(f.ctx, &types.SlaveDevice{
		ID: uuid.New(), ProtocolID: s7.ID, Name: "FX", PlcModel: enums.Fx3,
		DeviceAddress: "192.168.1.1", CreatedAt: now, UpdatedAt: now,
	}); err != nil {
		t.Fatalf("CreateSlaveDevice: %v", err)
	}

	rep, err := f.svc.AuditDevice(f.ctx, f.bundle.Device.ID)
	if err != nil {
		t.Fatalf("AuditDevice: %v", err)
	}
	if rep.Valid {
		t.Fatal("broken device reported valid")
	}

	got := issueCodes(rep.Errors)
	for _, code := range []string{"AUDIT_201", "AUDIT_202", "AUDIT_300", "AUDIT_302"} {
		if !got[code] {
			t.Errorf("missing %s in %+v", code, rep.Errors)
		}
	}
	for i := 1; i < len(rep.Errors); i++ {
		if rep.Errors[i-1].Path > rep.Errors[i].Path {
			t.Errorf("errors not ordered by path: %q before %q", rep.Errors[i-1].Path, rep.Errors[i].Path)
		}
	}
}

func TestAuditUnknownDevice(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.AuditDevice(f.ctx, uuid.New()); err == nil {
		t.Fatal("expected error")
	}
}

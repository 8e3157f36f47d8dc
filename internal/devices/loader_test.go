package devices

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/KevinKickass/OpenMachineConfig/internal/enums"
	"go.uber.org/zap"
)

const validTemplate = `
device_type:
  name: Test Gateway
  model: TG-1
ports:
  - port_name: LAN
    port_type: Communication
  - port_name: COM1
    port_type: RS485
`

func writeTemplate(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write template: %v", err)
	}
	return path
}

func newLoader(t *testing.T, paths ...string) *TemplateLoader {
	t.Helper()
	l, err := NewTemplateLoader(paths, time.Minute, zap.NewNop())
	if err != nil {
		t.Fatalf("NewTemplateLoader: %v", err)
	}
	return l
}

func TestLoadShippedTemplates(t *testing.T) {
	l := newLoader(t, filepath.Join("..", "..", "configs", "device-types"))

	defs, err := l.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(defs) != 3 {
		t.Fatalf("got %d templates, want 3", len(defs))
	}

	want := []string{"Model A", "Model B", "Model C"}
	for i, def := range defs {
		if def.DeviceType.Model != want[i] {
			t.Errorf("defs[%d].model = %q, want %q", i, def.DeviceType.Model, want[i])
		}
		if _, err := NewDeviceType(def, time.Now()); err != nil {
			t.Errorf("NewDeviceType(%s): %v", def.DeviceType.Model, err)
		}
	}
	if got := len(defs[0].Ports); got != 4 {
		t.Errorf("Model A has %d ports, want 4", got)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	l := newLoader(t, dir)

	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"valid yaml", validTemplate, ""},
		{"valid json", `{"device_type":{"name":"J","model":"J-1"},"ports":[{"port_name":"p","port_type":"RS232"}]}`, ""},
		{"unknown port type", strings.Replace(validTemplate, "RS485", "USB", 1), "validation failed"},
		{"no ports", "device_type:\n  name: X\n  model: X-1\nports: []\n", "validation failed"},
		{"missing model", "device_type:\n  name: X\nports:\n  - port_name: a\n    port_type: RS232\n", "validation failed"},
		{"malformed", "device_type: [", "failed to parse"},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeTemplate(t, dir, tt.name+string(rune('a'+i))+".yaml", tt.body)
			def, err := l.LoadFile(path)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("LoadFile: %v", err)
				}
				if len(def.Ports) == 0 {
					t.Fatal("expected ports")
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("err = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadAllRejectsDuplicateModels(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "one.yaml", validTemplate)
	writeTemplate(t, dir, "two.yaml", validTemplate)

	if _, err := newLoader(t, dir).LoadAll(); err == nil {
		t.Fatal("expected duplicate model error")
	}
}

func TestLoadAllCaches(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "one.yaml", validTemplate)
	l := newLoader(t, dir)

	if _, err := l.LoadAll(); err != nil {
		t.Fatalf("LoadAll: %v", err)
	}

	// A file added after the first load stays invisible until the cache is cleared.
	writeTemplate(t, dir, "two.yaml", strings.Replace(validTemplate, "TG-1", "TG-2", 1))
	defs, _ := l.LoadAll()
	if len(defs) != 1 {
		t.Fatalf("cached load returned %d templates", len(defs))
	}

	l.ClearCache()
	defs, err := l.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(defs) != 2 {
		t.Fatalf("got %d templates after ClearCache, want 2", len(defs))
	}

	def, err := l.Load("TG-2")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	dt, err := NewDeviceType(*def, time.Now())
	if err != nil {
		t.Fatalf("NewDeviceType: %v", err)
	}
	if dt.Ports[1].PortType != enums.RS485 {
		t.Errorf("port type = %v, want RS485", dt.Ports[1].PortType)
	}
}

func TestLoadAllSkipsMissingPath(t *testing.T) {
	l := newLoader(t, filepath.Join(t.TempDir(), "missing"))
	defs, err := l.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(defs) != 0 {
		t.Fatalf("got %d templates", len(defs))
	}
}

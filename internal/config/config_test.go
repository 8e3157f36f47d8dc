package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "database:\n  driver: memory\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.HTTPPort != 8080 {
		t.Errorf("http_port = %d, want 8080", cfg.Server.HTTPPort)
	}
	if cfg.Server.ShutdownTimeout != 30*time.Second {
		t.Errorf("shutdown_timeout = %v", cfg.Server.ShutdownTimeout)
	}
	if cfg.DeviceTypes.CacheTTL != 5*time.Minute {
		t.Errorf("cache_ttl = %v", cfg.DeviceTypes.CacheTTL)
	}
	if cfg.Mqtt.ProbeTimeout != 5*time.Second {
		t.Errorf("probe_timeout = %v", cfg.Mqtt.ProbeTimeout)
	}
	if !cfg.Auth.Enabled {
		t.Error("auth should be enabled by default")
	}
	if cfg.Database.Driver != DriverMemory {
		t.Errorf("driver = %q", cfg.Database.Driver)
	}
}

func TestLoadUsers(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
database:
  driver: memory
auth:
  users:
    - username: admin
      password_hash: "$argon2id$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaA"
      role: admin
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Auth.Users) != 1 || cfg.Auth.Users[0].Role != "admin" {
		t.Fatalf("users = %+v", cfg.Auth.Users)
	}
}

func TestLoadRejects(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown driver", "database:\n  driver: sqlite\n"},
		{"bad port", "database:\n  driver: memory\nserver:\n  http_port: 70000\n"},
		{"user without hash", "database:\n  driver: memory\nauth:\n  users:\n    - username: bob\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.body)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestJWTSecretFallback(t *testing.T) {
	t.Setenv("OMC_TEST_SECRET", "")
	a := AuthConfig{JWTSecretEnv: "OMC_TEST_SECRET"}
	if a.IsProductionReady() {
		t.Error("development secret must not be production ready")
	}

	t.Setenv("OMC_TEST_SECRET", "0123456789abcdef0123456789abcdef")
	if !a.IsProductionReady() {
		t.Error("32 byte secret should be production ready")
	}
}

// shared/config/config_test.go
package config

import (
	"testing"
	"time"
)

func TestLoadEngineServiceConfigDefaults(t *testing.T) {
	cfg, err := LoadEngineServiceConfig()
	if err != nil {
		t.Fatalf("LoadEngineServiceConfig: %v", err)
	}
	if cfg.ListenAddr != ":8080" {
		t.Errorf("ListenAddr = %q, want :8080", cfg.ListenAddr)
	}
	if cfg.ServicePort != 8080 {
		t.Errorf("ServicePort = %d, want 8080", cfg.ServicePort)
	}
	if cfg.TickInterval != time.Minute {
		t.Errorf("TickInterval = %v, want 1m", cfg.TickInterval)
	}
	if cfg.MongoDBDatabase != "territory" || cfg.MongoDBNodesCollection != "nodes" {
		t.Errorf("unexpected MongoDB defaults: %+v", cfg)
	}
}

func TestLoadEngineServiceConfigOverrides(t *testing.T) {
	t.Setenv("ENGINE_LISTEN_ADDR", "0.0.0.0:9090")
	t.Setenv("ENGINE_TICK_INTERVAL", "30s")
	t.Setenv("ENGINE_SEED_FILE", "/etc/engine/seed.yaml")

	cfg, err := LoadEngineServiceConfig()
	if err != nil {
		t.Fatalf("LoadEngineServiceConfig: %v", err)
	}
	if cfg.ListenAddr != "0.0.0.0:9090" || cfg.ServicePort != 9090 {
		t.Errorf("listen addr/port = %q/%d", cfg.ListenAddr, cfg.ServicePort)
	}
	if cfg.TickInterval != 30*time.Second {
		t.Errorf("TickInterval = %v, want 30s", cfg.TickInterval)
	}
	if cfg.SeedFile != "/etc/engine/seed.yaml" {
		t.Errorf("SeedFile = %q", cfg.SeedFile)
	}
}

func TestLoadEngineServiceConfigBadDuration(t *testing.T) {
	t.Setenv("ENGINE_TICK_INTERVAL", "every-minute")

	if _, err := LoadEngineServiceConfig(); err == nil {
		t.Fatalf("expected error for malformed duration")
	}
}

func TestExtractPort(t *testing.T) {
	tests := []struct {
		addr    string
		want    int
		wantErr bool
	}{
		{":8080", 8080, false},
		{"0.0.0.0:8080", 8080, false},
		{"localhost:9191", 9191, false},
		{"no-port-here", 0, true},
		{":not-a-number", 0, true},
	}
	for _, tc := range tests {
		got, err := extractPort(tc.addr)
		if tc.wantErr {
			if err == nil {
				t.Errorf("extractPort(%q) accepted bad address", tc.addr)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Errorf("extractPort(%q) = %d, %v; want %d", tc.addr, got, err, tc.want)
		}
	}
}

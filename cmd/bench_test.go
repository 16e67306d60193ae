package cmd

import (
	"testing"

	"github.com/nvme-qos/nvme-qos/sched"
)

func TestDefaultBenchConfig_HasAtLeastOneTenantPerCore(t *testing.T) {
	cfg := defaultBenchConfig()
	if cfg.NumCores < 1 {
		t.Fatalf("NumCores = %d, want >= 1", cfg.NumCores)
	}
	seenCore := make(map[int]bool)
	for _, tenant := range cfg.Tenants {
		if tenant.Core < 0 || tenant.Core >= cfg.NumCores {
			t.Errorf("tenant flow=%d has out-of-range core %d", tenant.FlowID, tenant.Core)
		}
		seenCore[tenant.Core] = true
	}
	for c := 0; c < cfg.NumCores; c++ {
		if !seenCore[c] {
			t.Errorf("core %d has no tenants in the default mix", c)
		}
	}
}

func TestBenchConfig_DeviceModelConfigSelectsKind(t *testing.T) {
	tests := []struct {
		kind string
		want sched.DeviceModelKind
	}{
		{"default", sched.DefaultFlash},
		{"fake", sched.FakeFlash},
		{"flash_dev_model", sched.FlashDevModel},
		{"", sched.DefaultFlash},
	}
	for _, tt := range tests {
		cfg := BenchConfig{DeviceKind: tt.kind}
		if got := cfg.deviceModelConfig().Kind; got != tt.want {
			t.Errorf("DeviceKind %q -> Kind %v, want %v", tt.kind, got, tt.want)
		}
	}
}

func TestLoadBenchConfig_EmptyPathReturnsDefault(t *testing.T) {
	cfg, err := loadBenchConfig("")
	if err != nil {
		t.Fatalf("loadBenchConfig(\"\"): %v", err)
	}
	if len(cfg.Tenants) == 0 {
		t.Fatal("expected default config to have tenants")
	}
}

func TestLoadBenchConfig_MissingFileErrors(t *testing.T) {
	if _, err := loadBenchConfig("/nonexistent/path.yaml"); err == nil {
		t.Fatal("expected an error for a missing config file")
	}
}

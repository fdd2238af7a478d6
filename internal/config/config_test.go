package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	if cfg.Probe.Workers != 10 {
		t.Errorf("Probe.Workers = %d; want 10", cfg.Probe.Workers)
	}
	if cfg.Probe.Timeout != 10*time.Second {
		t.Errorf("Probe.Timeout = %v; want 10s", cfg.Probe.Timeout)
	}
	if cfg.Discovery.Endpoint != "https://crt.sh/?q=%s" {
		t.Errorf("Discovery.Endpoint = %q", cfg.Discovery.Endpoint)
	}
	if cfg.Output.Dir != "." {
		t.Errorf("Output.Dir = %q; want .", cfg.Output.Dir)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"Zero workers", func(c *Config) { c.Probe.Workers = 0 }},
		{"Negative workers", func(c *Config) { c.Probe.Workers = -3 }},
		{"Zero probe timeout", func(c *Config) { c.Probe.Timeout = 0 }},
		{"Negative discovery timeout", func(c *Config) { c.Discovery.Timeout = -time.Second }},
		{"Endpoint without placeholder", func(c *Config) { c.Discovery.Endpoint = "https://crt.sh/" }},
		{"Endpoint with two placeholders", func(c *Config) { c.Discovery.Endpoint = "https://%s/?q=%s" }},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := DefaultConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			if !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("Validate() = %v; want ErrInvalidConfig", err)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "subhound.yaml")
	data := []byte(`
probe:
  workers: 25
  timeout: 3s
output:
  dir: results
metrics:
  addr: ":9100"
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Probe.Workers != 25 {
		t.Errorf("Probe.Workers = %d; want 25", cfg.Probe.Workers)
	}
	if cfg.Probe.Timeout != 3*time.Second {
		t.Errorf("Probe.Timeout = %v; want 3s", cfg.Probe.Timeout)
	}
	if cfg.Output.Dir != "results" {
		t.Errorf("Output.Dir = %q; want results", cfg.Output.Dir)
	}
	if cfg.Metrics.Addr != ":9100" {
		t.Errorf("Metrics.Addr = %q; want :9100", cfg.Metrics.Addr)
	}
	// Unset keys keep their defaults.
	if cfg.Discovery.Endpoint != DefaultEndpoint {
		t.Errorf("Discovery.Endpoint = %q; want default", cfg.Discovery.Endpoint)
	}
}

func TestLoadErrors(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("probe: [unclosed"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := Load(bad); err == nil {
		t.Error("expected error for malformed YAML")
	}
}

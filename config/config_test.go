package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestServiceConfigApplyDefaults(t *testing.T) {
	t.Run("empty environment defaults to development", func(t *testing.T) {
		cfg := ServiceConfig{Name: "peer-registry"}
		cfg.ApplyDefaults()
		if cfg.Environment != "development" {
			t.Errorf("expected 'development', got %q", cfg.Environment)
		}
		if !cfg.Debug {
			t.Error("expected debug=true for development")
		}
		if cfg.Logging.ServiceName != "peer-registry" {
			t.Errorf("expected logging service name from config name, got %q", cfg.Logging.ServiceName)
		}
	})

	t.Run("production environment keeps debug false", func(t *testing.T) {
		cfg := ServiceConfig{Name: "svc", Environment: "production"}
		cfg.ApplyDefaults()
		if cfg.Debug {
			t.Error("expected debug=false for production")
		}
	})
}

func TestServiceConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ServiceConfig
		wantErr string
	}{
		{"valid", ServiceConfig{Name: "svc", Environment: "staging"}, ""},
		{"missing name", ServiceConfig{Environment: "production"}, "config.name is required"},
		{"invalid environment", ServiceConfig{Name: "svc", Environment: "qa"}, "config.environment must be one of"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.cfg.Logging.ApplyDefaults()
			err := tc.cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

type mockFileSystem struct {
	files     map[string]bool
	loadedEnv []string
}

func (m *mockFileSystem) Exists(path string) bool { return m.files[path] }
func (m *mockFileSystem) LoadEnv(path string) error {
	m.loadedEnv = append(m.loadedEnv, path)
	return nil
}

func TestResolverResolveFiles(t *testing.T) {
	t.Run("explicit paths win", func(t *testing.T) {
		r := &Resolver{FileSystem: &mockFileSystem{}}
		got := r.ResolveFiles("peer-registry", LoaderConfig{ConfigFile: "a.yml", EnvFile: "b.env"})
		if got.ConfigFile != "a.yml" || got.EnvFile != "b.env" {
			t.Errorf("unexpected resolution: %+v", got)
		}
	})

	t.Run("searches cmd directory first", func(t *testing.T) {
		fs := &mockFileSystem{files: map[string]bool{
			"./cmd/peer-registry/config.yml": true,
			"./config.yml":                   true,
			".env":                           true,
		}}
		r := &Resolver{FileSystem: fs}
		got := r.ResolveFiles("peer-registry", LoaderConfig{})
		if got.ConfigFile != "./cmd/peer-registry/config.yml" {
			t.Errorf("expected cmd config, got %q", got.ConfigFile)
		}
		if got.EnvFile != ".env" {
			t.Errorf("expected .env, got %q", got.EnvFile)
		}
	})

	t.Run("nothing found", func(t *testing.T) {
		r := &Resolver{FileSystem: &mockFileSystem{}}
		got := r.ResolveFiles("svc", LoaderConfig{})
		if got.ConfigFile != "" || got.EnvFile != "" {
			t.Errorf("expected empty resolution, got %+v", got)
		}
	})
}

type peeringSection struct {
	Mode            string `mapstructure:"mode"`
	RefreshInterval string `mapstructure:"refresh_interval"`
}

type testAppConfig struct {
	ServiceConfig `mapstructure:",squash"`
	Peering       peeringSection `mapstructure:"peering"`
}

func TestLoadConfigFromYAMLAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	yml := "name: peer-registry\nenvironment: staging\npeering:\n  mode: static\n  refresh_interval: 1m\n"
	if err := os.WriteFile(path, []byte(yml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PEERING_REFRESH_INTERVAL", "30s")

	var cfg testAppConfig
	used, err := LoadConfig("peer-registry", &cfg, WithConfigFile(path), WithEnvFile(filepath.Join(dir, "missing.env")))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if used != path {
		t.Errorf("expected config file %q, got %q", path, used)
	}
	if cfg.Name != "peer-registry" || cfg.Environment != "staging" {
		t.Errorf("unexpected service config: %+v", cfg.ServiceConfig)
	}
	if cfg.Peering.Mode != "static" {
		t.Errorf("expected mode from yaml, got %q", cfg.Peering.Mode)
	}
	if cfg.Peering.RefreshInterval != "30s" {
		t.Errorf("expected env override 30s, got %q", cfg.Peering.RefreshInterval)
	}
}

func TestEnvKeyVariants(t *testing.T) {
	got := envKeyVariants("PEERING_REFRESH_INTERVAL")
	want := map[string]bool{
		"peering_refresh_interval": true,
		"peering.refresh.interval": true,
		"peering.refresh_interval": true,
	}
	for _, v := range got {
		delete(want, v)
	}
	if len(want) != 0 {
		t.Errorf("missing variants %v in %v", want, got)
	}
	if single := envKeyVariants("PATH"); len(single) != 1 || single[0] != "path" {
		t.Errorf("unexpected single-part variants: %v", single)
	}
}

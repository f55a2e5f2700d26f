package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		Auth:    AuthConfig{JWTSigningKey: "k"},
		ExamAPI: ExamAPIConfig{BaseURL: "http://exam"},
		Store:   StoreConfig{Backend: "memory"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"memory", func(c *Config) {}, false},
		{"redis", func(c *Config) { c.Store.Backend = "redis" }, false},
		{"postgres without url", func(c *Config) { c.Store.Backend = "postgres" }, true},
		{"postgres with url", func(c *Config) { c.Store.Backend = "postgres"; c.DatabaseURL = "postgres://x" }, false},
		{"unknown backend", func(c *Config) { c.Store.Backend = "etcd" }, true},
		{"missing base url", func(c *Config) { c.ExamAPI.BaseURL = "" }, true},
		{"missing signing key", func(c *Config) { c.Auth.JWTSigningKey = "" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })

	t.Setenv("MEDPREP_EXAM_API_BASE_URL", "http://exam.internal/api")
	t.Setenv("MEDPREP_SESSION_RETENTION", "45m")
	t.Setenv("MEDPREP_STORE_BACKEND", "redis")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ExamAPI.BaseURL != "http://exam.internal/api" {
		t.Errorf("expected env base url, got %q", cfg.ExamAPI.BaseURL)
	}
	if cfg.SessionRetention != 45*time.Minute {
		t.Errorf("expected 45m retention, got %s", cfg.SessionRetention)
	}
	if cfg.Store.Backend != "redis" || cfg.ServerPort != ":8080" {
		t.Errorf("unexpected config %+v", cfg)
	}
	if cfg.ExamAPI.Timeout != 15*time.Second {
		t.Errorf("expected default timeout, got %s", cfg.ExamAPI.Timeout)
	}
	if cfg.ConfigFile != "" {
		t.Errorf("expected no config file, got %q", cfg.ConfigFile)
	}
}

func TestLoadConfig_ReportsConfigFile(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })

	yaml := "SERVER_PORT: \":9090\"\nSTORE:\n  BACKEND: memory\n"
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(cfg.ConfigFile) != "config.yaml" {
		t.Errorf("expected config.yaml to be reported, got %q", cfg.ConfigFile)
	}
	if cfg.ServerPort != ":9090" {
		t.Errorf("expected port from file, got %q", cfg.ServerPort)
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"CLAIMPROBE_ENV", "CLAIMPROBE_BASE_URL", "CLAIMPROBE_TOKEN_URL",
		"CLAIMPROBE_USERNAME", "CLAIMPROBE_PASSWORD", "CLAIMPROBE_TOKEN",
	} {
		t.Setenv(k, "")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Environment != "preprod" {
		t.Errorf("expected Environment=preprod, got %s", cfg.Environment)
	}
	if cfg.Environments["production"].Auth.Mode != AuthMock {
		t.Errorf("expected production auth mode mock, got %s", cfg.Environments["production"].Auth.Mode)
	}
	if cfg.Bulk.JobAPI != JobAPICSV {
		t.Errorf("expected job_api=%s, got %s", JobAPICSV, cfg.Bulk.JobAPI)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_FromFile(t *testing.T) {
	clearEnv(t)

	path := writeConfig(t, `environment: production
poll:
  max_wait: 2m
`)

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Environment != "production" {
		t.Errorf("expected Environment=production, got %s", loaded.Environment)
	}
	if loaded.GetPollMaxWait() != 2*time.Minute {
		t.Errorf("expected max wait 2m, got %v", loaded.GetPollMaxWait())
	}
	if loaded.Poll.Interval != "3s" {
		t.Errorf("expected default poll interval to survive, got %q", loaded.Poll.Interval)
	}
	if loaded.Password != "" {
		t.Errorf("expected empty password, got %q", loaded.Password)
	}
}

func TestLoad_PartialEnvironmentKeepsDefaults(t *testing.T) {
	clearEnv(t)

	path := writeConfig(t, `environments:
  preprod:
    base_url: https://preprod.internal.test
  staging:
    base_url: https://staging.internal.test
    auth:
      mode: mock
`)

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := loaded.Validate(); err != nil {
		t.Errorf("partial environment should validate: %v", err)
	}

	preprod := loaded.Environments["preprod"]
	defaults := DefaultConfig().Environments["preprod"]
	if preprod.BaseURL != "https://preprod.internal.test" {
		t.Errorf("expected base_url override, got %s", preprod.BaseURL)
	}
	if preprod.Auth != defaults.Auth {
		t.Errorf("expected default auth block, got %+v", preprod.Auth)
	}
	if preprod.FrontendURL != defaults.FrontendURL || !preprod.InsecureSkipVerify {
		t.Errorf("expected remaining preprod defaults, got %+v", preprod)
	}
	if len(preprod.LogHints) != len(defaults.LogHints) {
		t.Errorf("expected %d log hints, got %d", len(defaults.LogHints), len(preprod.LogHints))
	}

	if got := loaded.Environments["staging"].Auth.Mode; got != AuthMock {
		t.Errorf("expected new environment to load as written, got auth mode %q", got)
	}
	if _, ok := loaded.Environments["production"]; !ok {
		t.Error("environments absent from the file should be kept")
	}
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Environment != "preprod" {
		t.Errorf("expected defaults, got environment %s", cfg.Environment)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("environment: [unterminated"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Environment = "staging"
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for unknown environment")
	}

	cfg = DefaultConfig()
	env := cfg.Environments["preprod"]
	env.Auth.Mode = "saml"
	cfg.Environments["preprod"] = env
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for invalid auth mode")
	}

	cfg = DefaultConfig()
	env = cfg.Environments["preprod"]
	env.Auth.TokenURL = ""
	cfg.Environments["preprod"] = env
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for missing token_url")
	}

	cfg = DefaultConfig()
	cfg.Bulk.JobAPI = "jobs"
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for invalid job_api")
	}

	cfg = DefaultConfig()
	env = cfg.Environments["preprod"]
	env.BaseURL = "not a url"
	cfg.Environments["preprod"] = env
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for invalid base_url")
	}

	cfg = DefaultConfig()
	cfg.Poll.Interval = "0s"
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for zero poll interval")
	}
}

func TestConfig_TimeoutFallbacks(t *testing.T) {
	cfg := &Config{}

	if cfg.GetAuthTimeout() != 10*time.Second {
		t.Errorf("auth fallback: got %v", cfg.GetAuthTimeout())
	}
	if cfg.GetSearchTimeout() != 60*time.Second {
		t.Errorf("search fallback: got %v", cfg.GetSearchTimeout())
	}
	if cfg.GetPollInterval() != 3*time.Second {
		t.Errorf("poll interval fallback: got %v", cfg.GetPollInterval())
	}
	if cfg.GetPollMaxWait() != 60*time.Second {
		t.Errorf("poll max wait fallback: got %v", cfg.GetPollMaxWait())
	}
}

func TestConfig_Paths(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Output.Dir = "/tmp/out"

	if got := cfg.TemplatesPath(); got != filepath.Join("/tmp/out", "csv-templates") {
		t.Errorf("TemplatesPath = %s", got)
	}
	cfg.Output.TemplatesDir = "/abs/templates"
	if got := cfg.TemplatesPath(); got != "/abs/templates" {
		t.Errorf("absolute TemplatesPath = %s", got)
	}
	if got := cfg.OutputPath("results_1.csv"); got != filepath.Join("/tmp/out", "results_1.csv") {
		t.Errorf("OutputPath = %s", got)
	}
}

func TestLoggingConfig_IsCategoryEnabled(t *testing.T) {
	lc := LoggingConfig{}
	if lc.IsCategoryEnabled("api") {
		t.Error("categories must be disabled without debug_mode")
	}

	lc.DebugMode = true
	if !lc.IsCategoryEnabled("api") {
		t.Error("all categories enabled when no filter is set")
	}

	lc.Categories = map[string]bool{"api": false}
	if lc.IsCategoryEnabled("api") {
		t.Error("api explicitly disabled")
	}
	if !lc.IsCategoryEnabled("bulk") {
		t.Error("unlisted category defaults to enabled")
	}
}

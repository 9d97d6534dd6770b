package config

import (
	"os"
	"strings"
	"testing"
	"time"

	"hstrader/internal/session"
)

// writeTempConfig creates a configuration file with the given content and
// returns its path.
func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "cfg-*.yml")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close temp file: %v", err)
	}
	return f.Name()
}

const minimalConfig = `client:
  name: "TestApp"
  version: "1.0"
server:
  url: "https://broker.example.com/"
  client_id: "id"
  client_secret: "secret"
  strategy: "ws"
stream:
  ping_interval: 15s
  frame_buffer: 16
`

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"HSTRADER_URL", "HSTRADER_CLIENT_ID", "HSTRADER_CLIENT_SECRET", "HSTRADER_STRATEGY", "HSTRADER_TIMEOUT", "HSTRADER_DASHBOARD_ADDR", "APP_ENV"} {
		t.Setenv(k, "")
	}
}

func TestLoadConfig(t *testing.T) {
	clearEnv(t)
	path := writeTempConfig(t, minimalConfig)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Client.Name != "TestApp" {
		t.Errorf("unexpected name: %s", cfg.Client.Name)
	}
	if cfg.Server.URL != "broker.example.com" {
		t.Errorf("url not normalized: %s", cfg.Server.URL)
	}
	if cfg.StrategyValue() != session.StrategyStreamOnly {
		t.Errorf("unexpected strategy: %s", cfg.StrategyValue())
	}
	if cfg.Stream.PingInterval != 15*time.Second || cfg.Stream.FrameBuffer != 16 {
		t.Errorf("unexpected stream config: %+v", cfg.Stream)
	}
	if cfg.Server.Timeout != 5*time.Second {
		t.Errorf("default timeout not applied: %s", cfg.Server.Timeout)
	}
	if cfg.REST.RequestsPerSecond != 5 {
		t.Errorf("default rate not applied: %v", cfg.REST.RequestsPerSecond)
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("HSTRADER_URL", "wss://other.example.com")
	t.Setenv("HSTRADER_STRATEGY", "http")
	t.Setenv("HSTRADER_TIMEOUT", "3")
	path := writeTempConfig(t, minimalConfig)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Server.URL != "other.example.com" {
		t.Errorf("unexpected url: %s", cfg.Server.URL)
	}
	if cfg.StrategyValue() != session.StrategyRequestOnly {
		t.Errorf("unexpected strategy: %s", cfg.StrategyValue())
	}
	if cfg.Server.Timeout != 3*time.Second {
		t.Errorf("unexpected timeout: %s", cfg.Server.Timeout)
	}
}

func TestLoadConfigValidation(t *testing.T) {
	clearEnv(t)
	cases := map[string]string{
		"server.url is required": "server:\n  client_id: a\n  client_secret: b\n",
		"client_secret":          "server:\n  url: x\n  client_id: a\n",
		"server.strategy":        "server:\n  url: x\n  client_id: a\n  client_secret: b\n  strategy: smoke\n",
		"frame_buffer":           "server:\n  url: x\n  client_id: a\n  client_secret: b\nstream:\n  frame_buffer: -1\n",
		"must be set together":   "server:\n  url: x\n  client_id: a\n  client_secret: b\nmetrics:\n  cloudwatch:\n    enabled: true\n    access_key_id: k\n",
	}
	for want, content := range cases {
		path := writeTempConfig(t, content)
		_, err := LoadConfig(path)
		if err == nil || !strings.Contains(err.Error(), want) {
			t.Errorf("expected error containing %q, got %v", want, err)
		}
	}
}

func TestProductionRequiresKeepalive(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "prod")
	path := writeTempConfig(t, "server:\n  url: x\n  client_id: a\n  client_secret: b\nstream:\n  ping_interval: 0s\n")

	if _, err := LoadConfig(path); err == nil || !strings.Contains(err.Error(), "ping_interval") {
		t.Fatalf("expected keepalive error, got %v", err)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	clearEnv(t)
	if _, err := LoadConfig("/nonexistent/config.yml"); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestFromEnv(t *testing.T) {
	clearEnv(t)
	if _, err := FromEnv(); err == nil {
		t.Fatalf("expected validation error without credentials")
	}

	t.Setenv("HSTRADER_URL", "broker.example.com")
	t.Setenv("HSTRADER_CLIENT_ID", "id")
	t.Setenv("HSTRADER_CLIENT_SECRET", "secret")
	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.StrategyValue() != session.StrategyAuto {
		t.Errorf("unexpected strategy: %s", cfg.StrategyValue())
	}
}

func TestAppEnvironment(t *testing.T) {
	cases := map[string]string{
		"":           EnvironmentDevelopment,
		"stage":      EnvironmentStaging,
		" PROD ":     EnvironmentProduction,
		"production": EnvironmentProduction,
		"qa":         "qa",
	}
	for value, want := range cases {
		t.Setenv("APP_ENV", value)
		if got := AppEnvironment(); got != want {
			t.Errorf("APP_ENV=%q: got %s, want %s", value, got, want)
		}
	}

	if !IsProductionLike(EnvironmentStaging) || IsProductionLike("qa") {
		t.Errorf("unexpected production-like classification")
	}
}

func TestConfigPathFor(t *testing.T) {
	t.Setenv("APP_ENV", "")
	if got := configPathFor(""); got != "config.yml" {
		t.Errorf("development default: %s", got)
	}

	t.Setenv("APP_ENV", "prod")
	if got := configPathFor(""); got != "config.production.yml" {
		t.Errorf("production default: %s", got)
	}
	if got := configPathFor("config.yml"); got != "config.production.yml" {
		t.Errorf("production swap: %s", got)
	}
	if got := configPathFor("/etc/hstrader.yml"); got != "/etc/hstrader.yml" {
		t.Errorf("explicit path replaced: %s", got)
	}
}

func TestDashboardConfig(t *testing.T) {
	clearEnv(t)
	path := writeTempConfig(t, minimalConfig)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Dashboard.Enabled || cfg.Dashboard.Address != "127.0.0.1:8090" {
		t.Errorf("unexpected dashboard defaults: %+v", cfg.Dashboard)
	}

	t.Setenv("HSTRADER_DASHBOARD_ADDR", ":9100")
	cfg, err = LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if !cfg.Dashboard.Enabled || cfg.Dashboard.Address != ":9100" {
		t.Errorf("dashboard env override not applied: %+v", cfg.Dashboard)
	}

	bad := writeTempConfig(t, "server:\n  url: x\n  client_id: a\n  client_secret: b\ndashboard:\n  enabled: true\n  log_history: -1\n")
	if _, err := LoadConfig(bad); err == nil || !strings.Contains(err.Error(), "log_history") {
		t.Errorf("expected history validation error, got %v", err)
	}
}

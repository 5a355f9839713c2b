package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aitoooooo/redisx/pkg/models"
	"github.com/spf13/cobra"
)

func newCommand(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{
		Run: func(cmd *cobra.Command, args []string) {},
	}
	AddGlobalFlags(cmd)
	AddAnalyzeFlags(cmd)
	if err := cmd.ParseFlags(args); err != nil {
		t.Fatalf("ParseFlags failed: %v", err)
	}
	return cmd
}

func TestInitConfigDefaults(t *testing.T) {
	t.Setenv(PasswordEnv, "")
	cfg, err := InitConfig(newCommand(t))
	if err != nil {
		t.Fatalf("InitConfig failed: %v", err)
	}

	if cfg.Topology != models.TopologyStandalone {
		t.Errorf("Expected topology=standalone, got %s", cfg.Topology)
	}
	if len(cfg.Addrs) != 1 || cfg.Addrs[0] != "127.0.0.1:6379" {
		t.Errorf("Expected default addr, got %v", cfg.Addrs)
	}
	if cfg.DatabaseID != "127.0.0.1:6379" {
		t.Errorf("Expected database-id to default to first addr, got %s", cfg.DatabaseID)
	}
	if cfg.SlowThreshold != 100*time.Millisecond {
		t.Errorf("Expected slow-threshold=100ms, got %v", cfg.SlowThreshold)
	}
	if cfg.Filter.Match != "*" || cfg.Filter.Count != 1000 || cfg.Filter.KeysLimit != 10000 {
		t.Errorf("Unexpected default filter: %+v", cfg.Filter)
	}
	if cfg.Workers <= 0 {
		t.Errorf("Expected workers to default to CPU count, got %d", cfg.Workers)
	}
	if cfg.Top != 15 {
		t.Errorf("Expected top=15, got %d", cfg.Top)
	}
	if cfg.Provider != "file" {
		t.Errorf("Expected provider=file, got %s", cfg.Provider)
	}
}

func TestInitConfigFlags(t *testing.T) {
	cmd := newCommand(t,
		"--topology", "cluster",
		"--addr", "10.0.0.1:7000",
		"--addr", "10.0.0.2:7000",
		"--slow-threshold", "2s",
		"--workers", "4",
		"--match", "user:*",
		"--type", "zset",
		"--keys-limit", "0",
		"--timeout", "30s",
		"--partial",
	)

	cfg, err := InitConfig(cmd)
	if err != nil {
		t.Fatalf("InitConfig failed: %v", err)
	}

	if cfg.Topology != models.TopologyCluster {
		t.Errorf("Expected topology=cluster, got %s", cfg.Topology)
	}
	if len(cfg.Addrs) != 2 {
		t.Errorf("Expected 2 addrs, got %v", cfg.Addrs)
	}
	if cfg.SlowThreshold != 2*time.Second {
		t.Errorf("Expected slow-threshold=2s, got %v", cfg.SlowThreshold)
	}
	if cfg.Workers != 4 {
		t.Errorf("Expected workers=4, got %d", cfg.Workers)
	}
	if cfg.Filter.Match != "user:*" || cfg.Filter.Type != "zset" || cfg.Filter.KeysLimit != 0 {
		t.Errorf("Unexpected filter: %+v", cfg.Filter)
	}
	if cfg.Timeout != 30*time.Second {
		t.Errorf("Expected timeout=30s, got %v", cfg.Timeout)
	}
	if !cfg.Partial {
		t.Error("Expected partial=true")
	}
}

func TestInitConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "redisx.yaml")
	content := `
topology: sentinel
addrs:
  - 10.0.0.1:26379
  - 10.0.0.2:26379
sentinel_master: mymaster
password: secret
provider: sqlite
provider_dsn: /tmp/redisx.db
slow_threshold: 250ms
workers: 8
filter:
  match: "order:*"
  keys_limit: 500
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	// 显式 flag 覆盖文件
	cmd := newCommand(t, "--config", path, "--workers", "2")
	cfg, err := InitConfig(cmd)
	if err != nil {
		t.Fatalf("InitConfig failed: %v", err)
	}

	if cfg.Topology != models.TopologySentinel {
		t.Errorf("Expected topology=sentinel, got %s", cfg.Topology)
	}
	if cfg.SentinelMaster != "mymaster" {
		t.Errorf("Expected sentinel_master=mymaster, got %s", cfg.SentinelMaster)
	}
	if len(cfg.Addrs) != 2 || cfg.Addrs[1] != "10.0.0.2:26379" {
		t.Errorf("Unexpected addrs: %v", cfg.Addrs)
	}
	if cfg.Password != "secret" {
		t.Errorf("Expected password from file, got %q", cfg.Password)
	}
	if cfg.Provider != "sqlite" || cfg.ProviderDSN != "/tmp/redisx.db" {
		t.Errorf("Unexpected provider: %s %s", cfg.Provider, cfg.ProviderDSN)
	}
	if cfg.SlowThreshold != 250*time.Millisecond {
		t.Errorf("Expected slow-threshold=250ms, got %v", cfg.SlowThreshold)
	}
	if cfg.Workers != 2 {
		t.Errorf("Expected flag to override file workers, got %d", cfg.Workers)
	}
	if cfg.Filter.Match != "order:*" || cfg.Filter.KeysLimit != 500 {
		t.Errorf("Unexpected filter: %+v", cfg.Filter)
	}
	// 文件未指定的字段保留 flag 默认值
	if cfg.Filter.Count != 1000 {
		t.Errorf("Expected count default 1000, got %d", cfg.Filter.Count)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("Expected log-level default info, got %s", cfg.LogLevel)
	}
}

func TestInitConfigPasswordEnv(t *testing.T) {
	t.Setenv(PasswordEnv, "from-env")

	cfg, err := InitConfig(newCommand(t))
	if err != nil {
		t.Fatalf("InitConfig failed: %v", err)
	}
	if cfg.Password != "from-env" {
		t.Errorf("Expected password from env, got %q", cfg.Password)
	}

	cfg, err = InitConfig(newCommand(t, "--password", "from-flag"))
	if err != nil {
		t.Fatalf("InitConfig failed: %v", err)
	}
	if cfg.Password != "from-flag" {
		t.Errorf("Expected password from flag, got %q", cfg.Password)
	}
}

func TestInitConfigInvalid(t *testing.T) {
	tests := []struct {
		name string
		args []string
		flag string
	}{
		{"topology", []string{"--topology", "ring"}, "--topology"},
		{"sentinel without master", []string{"--topology", "sentinel"}, "--sentinel-master"},
		{"cluster db", []string{"--topology", "cluster", "--db", "3"}, "--db"},
		{"provider", []string{"--provider", "redis"}, "--provider"},
		{"slow threshold", []string{"--slow-threshold", "fast"}, "slow-threshold"},
		{"timeout", []string{"--timeout", "soon"}, "timeout"},
		{"keys limit", []string{"--keys-limit", "-1"}, "--keys-limit"},
		{"type", []string{"--type", "bitmap"}, "--type"},
		{"output", []string{"--output", "xml"}, "--output"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := InitConfig(newCommand(t, tt.args...))
			if err == nil {
				t.Fatalf("Expected error for %v", tt.args)
			}
			if !strings.Contains(err.Error(), tt.flag) {
				t.Errorf("Expected error to name %s, got %v", tt.flag, err)
			}
		})
	}
}

func TestInitConfigMissingFile(t *testing.T) {
	_, err := InitConfig(newCommand(t, "--config", filepath.Join(t.TempDir(), "missing.yaml")))
	if err == nil {
		t.Error("Expected error when config file is missing")
	}
}

func TestInitConfigWithoutAnalyzeFlags(t *testing.T) {
	cmd := &cobra.Command{}
	AddGlobalFlags(cmd)
	if err := cmd.ParseFlags(nil); err != nil {
		t.Fatal(err)
	}

	cfg, err := InitConfig(cmd)
	if err != nil {
		t.Fatalf("InitConfig failed: %v", err)
	}
	if cfg.Filter.Match != "" || cfg.Top != 0 {
		t.Errorf("Expected analyze fields to stay empty, got %+v", cfg.Filter)
	}
}

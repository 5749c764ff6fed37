package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"

	"stakeScope/internal/hex"
	"stakeScope/internal/project"
)

func inEmptyDir(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoadDefaultsToHexEvents(t *testing.T) {
	inEmptyDir(t)

	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.Addresses) != 1 || cfg.Addresses[0] != hex.ContractAddress {
		t.Fatalf("unexpected addresses: %v", cfg.Addresses)
	}
	topics, _ := hex.EventTopics()
	if len(cfg.Topic0) != len(topics) {
		t.Fatalf("expected %d topics, got %v", len(topics), cfg.Topic0)
	}
	if cfg.BatchSize != 2000 {
		t.Fatalf("unexpected batch size: %d", cfg.BatchSize)
	}
}

func TestLoadFlagOverridesTopics(t *testing.T) {
	inEmptyDir(t)

	flags := pflag.NewFlagSet("run", pflag.ContinueOnError)
	flags.String("topic0", "", "")
	if err := flags.Parse([]string{"--topic0", "0x01, 0x02"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	cfg, err := Load("", flags)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.Topic0) != 2 || cfg.Topic0[1] != "0x02" {
		t.Fatalf("unexpected topics: %v", cfg.Topic0)
	}
}

func TestLoadProjectFromFileAndEnv(t *testing.T) {
	inEmptyDir(t)

	path := filepath.Join(t.TempDir(), "project.yaml")
	content := "schema: legacy\non-redundant: fail\nstate-file: /tmp/s.json\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("INDEXER_METRICS_ADDR", ":9100")

	cfg, err := LoadProject(path, nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Schema != hex.SchemaLegacy {
		t.Fatalf("unexpected schema: %s", cfg.Schema)
	}
	if cfg.OnRedundant != project.RedundantFail {
		t.Fatalf("unexpected policy: %s", cfg.OnRedundant)
	}
	if cfg.MetricsAddr != ":9100" {
		t.Fatalf("unexpected metrics addr: %s", cfg.MetricsAddr)
	}
	if cfg.CursorName != project.DefaultCursorName {
		t.Fatalf("unexpected cursor name: %s", cfg.CursorName)
	}
}

func TestLoadDecodeRejectsUnknownSchema(t *testing.T) {
	inEmptyDir(t)
	t.Setenv("INDEXER_SCHEMA", "v9")

	if _, err := LoadDecode("", nil); err == nil {
		t.Fatalf("expected schema error")
	}
}

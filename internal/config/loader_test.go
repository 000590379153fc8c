package config

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleYAML = `
server:
  port: 9090
  mode: debug
database:
  host: db.internal
  user: patentlens
  db_name: patentlens
redis:
  addr: cache.internal:6379
kafka:
  brokers: ["broker-1:9092"]
  group_id: workers
milvus:
  addr: milvus.internal:19530
minio:
  endpoint: minio.internal:9000
  bucket: documents
llm:
  base_url: http://llm.internal/v1
  model: gpt-4o-mini
pipeline:
  chunk_budget: 4000
`

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoadParsesFileAndAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeTempConfig(t, sampleYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Fatalf("server.port = %d", cfg.Server.Port)
	}
	if cfg.Pipeline.ChunkBudget != 4000 {
		t.Fatalf("pipeline.chunk_budget = %d", cfg.Pipeline.ChunkBudget)
	}
	// Unset fields fall back to defaults.
	if cfg.Pipeline.PassageSize != 500 {
		t.Fatalf("pipeline.passage_size default = %d", cfg.Pipeline.PassageSize)
	}
	if cfg.Kafka.AutoOffsetReset != "earliest" {
		t.Fatalf("kafka.auto_offset_reset default = %q", cfg.Kafka.AutoOffsetReset)
	}
}

func TestLoadRejectsMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	bad := sampleYAML + "\nlog:\n  level: trace\n"
	if _, err := Load(writeTempConfig(t, bad)); err == nil {
		t.Fatal("expected validation failure for bad log level")
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("PATENTLENS_SERVER_PORT", "7070")
	cfg, err := Load(writeTempConfig(t, sampleYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Fatalf("env override ignored, port = %d", cfg.Server.Port)
	}
}

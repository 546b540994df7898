package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "client.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_FillsDefaults(t *testing.T) {
	path := writeConfig(t, "node_id: 5\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPPort != 8005 {
		t.Fatalf("HTTPPort = %d, want 8005", cfg.HTTPPort)
	}
	if cfg.FloodInterval != DefaultFloodInterval {
		t.Fatalf("FloodInterval = %v, want %v", cfg.FloodInterval, DefaultFloodInterval)
	}
	if cfg.Manifest.Path != "video_metadata.json" {
		t.Fatalf("Manifest.Path = %q, want default", cfg.Manifest.Path)
	}
}

func TestLoad_ExplicitValuesRespected(t *testing.T) {
	path := writeConfig(t, `
node_id: 9
http_port: 9100
flood_interval: 30s
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPPort != 9100 {
		t.Fatalf("HTTPPort = %d, want 9100", cfg.HTTPPort)
	}
	if cfg.FloodInterval != 30*time.Second {
		t.Fatalf("FloodInterval = %v, want 30s", cfg.FloodInterval)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/path/client.yaml"); err == nil {
		t.Fatal("expected an error for a missing config file")
	}
}

func TestLoad_MQTTRequiresBrokerURL(t *testing.T) {
	path := writeConfig(t, `
node_id: 1
bridge:
  transport: mqtt
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected an error when bridge.transport is mqtt without a broker_url")
	}
}

func TestLoad_InvalidTransport(t *testing.T) {
	path := writeConfig(t, `
node_id: 1
bridge:
  transport: carrier-pigeon
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for an unrecognized bridge transport")
	}
}

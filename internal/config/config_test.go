package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load() // No files, just defaults
	if err != nil {
		t.Fatalf("Load() with no files failed: %v", err)
	}

	if cfg.Library.Root != "albums" {
		t.Errorf("expected library root 'albums', got %s", cfg.Library.Root)
	}
	if cfg.Player.MusicVolume != 80 {
		t.Errorf("expected music volume 80, got %d", cfg.Player.MusicVolume)
	}
	if cfg.Player.DuckVolume != 20 {
		t.Errorf("expected duck volume 20, got %d", cfg.Player.DuckVolume)
	}
	if cfg.Commentary.Model != "gemma3:4b" {
		t.Errorf("expected model 'gemma3:4b', got %s", cfg.Commentary.Model)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("expected port 8080, got %d", cfg.Server.Port)
	}
	if len(cfg.Library.Extensions) != 4 {
		t.Errorf("expected 4 default extensions, got %v", cfg.Library.Extensions)
	}
}

func TestLoadFromFile(t *testing.T) {
	// Create temp config file
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")

	content := `
library:
  root: /custom/albums
player:
  music_volume: 90
  duck_volume: 15
commentary:
  model: llama3.2
history:
  csv: /custom/history.csv
server:
  port: 9090
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Library.Root != "/custom/albums" {
		t.Errorf("expected '/custom/albums', got %s", cfg.Library.Root)
	}
	if cfg.Player.MusicVolume != 90 {
		t.Errorf("expected music volume 90, got %d", cfg.Player.MusicVolume)
	}
	if cfg.Player.DuckVolume != 15 {
		t.Errorf("expected duck volume 15, got %d", cfg.Player.DuckVolume)
	}
	if cfg.Commentary.Model != "llama3.2" {
		t.Errorf("expected model 'llama3.2', got %s", cfg.Commentary.Model)
	}
	if cfg.History.CSVPath != "/custom/history.csv" {
		t.Errorf("expected '/custom/history.csv', got %s", cfg.History.CSVPath)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}
	// Untouched sections keep their defaults
	if cfg.Commentary.URL != "http://localhost:11434" {
		t.Errorf("expected default ollama URL, got %s", cfg.Commentary.URL)
	}
}

func TestEnvOverride(t *testing.T) {
	_ = os.Setenv("PORT", "3000")
	_ = os.Setenv("LIBRARY_ROOT", "/env/albums")
	_ = os.Setenv("OLLAMA_URL", "http://ollama:11434")
	_ = os.Setenv("HISTORY_DB_PATH", "/env/history.db")
	defer func() {
		_ = os.Unsetenv("PORT")
		_ = os.Unsetenv("LIBRARY_ROOT")
		_ = os.Unsetenv("OLLAMA_URL")
		_ = os.Unsetenv("HISTORY_DB_PATH")
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Server.Port != 3000 {
		t.Errorf("expected port 3000 from env, got %d", cfg.Server.Port)
	}
	if cfg.Library.Root != "/env/albums" {
		t.Errorf("expected '/env/albums' from env, got %s", cfg.Library.Root)
	}
	if cfg.Commentary.URL != "http://ollama:11434" {
		t.Errorf("expected env ollama URL, got %s", cfg.Commentary.URL)
	}
	if cfg.History.DBPath != "/env/history.db" {
		t.Errorf("expected '/env/history.db' from env, got %s", cfg.History.DBPath)
	}
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid defaults",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "empty library root",
			modify:  func(c *Config) { c.Library.Root = "" },
			wantErr: true,
		},
		{
			name:    "no extensions",
			modify:  func(c *Config) { c.Library.Extensions = nil },
			wantErr: true,
		},
		{
			name:    "music volume out of range",
			modify:  func(c *Config) { c.Player.MusicVolume = 150 },
			wantErr: true,
		},
		{
			name: "duck above music",
			modify: func(c *Config) {
				c.Player.DuckVolume = 90
				c.Player.MusicVolume = 50
			},
			wantErr: true,
		},
		{
			name:    "invalid port zero",
			modify:  func(c *Config) { c.Server.Port = 0 },
			wantErr: true,
		},
		{
			name:    "invalid port too high",
			modify:  func(c *Config) { c.Server.Port = 70000 },
			wantErr: true,
		},
		{
			name:    "invalid health interval",
			modify:  func(c *Config) { c.Player.HealthInterval = "not-a-duration" },
			wantErr: true,
		},
		{
			name:    "invalid commentary timeout",
			modify:  func(c *Config) { c.Commentary.Timeout = "soon" },
			wantErr: true,
		},
		{
			name:    "negative history limit",
			modify:  func(c *Config) { c.History.Limit = -1 },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaults()
			tt.modify(cfg)
			err := validate(cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMissingFileIgnored(t *testing.T) {
	cfg, err := Load("nonexistent.yaml", "also-nonexistent.yaml")
	if err != nil {
		t.Fatalf("Load() should ignore missing files, got error: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("expected defaults when files missing")
	}
}

func TestFileMergeOrder(t *testing.T) {
	dir := t.TempDir()

	// First file sets port to 9000
	file1 := filepath.Join(dir, "config1.yaml")
	_ = os.WriteFile(file1, []byte("server:\n  port: 9000"), 0644)

	// Second file sets port to 9999
	file2 := filepath.Join(dir, "config2.yaml")
	_ = os.WriteFile(file2, []byte("server:\n  port: 9999"), 0644)

	cfg, err := Load(file1, file2)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	// Second file should win
	if cfg.Server.Port != 9999 {
		t.Errorf("expected port 9999 (from second file), got %d", cfg.Server.Port)
	}
}

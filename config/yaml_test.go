package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test.yaml")

	yamlContent := `
ffmpeg_path: /usr/local/bin/ffmpeg
probe_retry_delay: 2s
log_level: debug
merge:
  output_dir: /videos
  output: joined.mpg
  bitrate: 800k
  workers: 4
  worker_timeout: 5m
  partial_failure: proceed
convert:
  preset: mp4
  overwrite: true
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := LoadConfigFile(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.FFmpegPath != "/usr/local/bin/ffmpeg" {
		t.Errorf("Expected ffmpeg path '/usr/local/bin/ffmpeg', got '%s'", cfg.FFmpegPath)
	}
	if cfg.ProbeRetryDelay != 2*time.Second {
		t.Errorf("Expected probe retry delay 2s, got %s", cfg.ProbeRetryDelay)
	}
	if cfg.Merge.OutputDir != "/videos" || cfg.Merge.Output != "joined.mpg" {
		t.Errorf("Unexpected output %s/%s", cfg.Merge.OutputDir, cfg.Merge.Output)
	}
	if cfg.Merge.Workers != 4 {
		t.Errorf("Expected workers 4, got %d", cfg.Merge.Workers)
	}
	if cfg.Merge.WorkerTimeout != 5*time.Minute {
		t.Errorf("Expected worker timeout 5m, got %s", cfg.Merge.WorkerTimeout)
	}
	if cfg.Merge.PartialFailure != "proceed" {
		t.Errorf("Expected partial failure 'proceed', got '%s'", cfg.Merge.PartialFailure)
	}
	if cfg.Convert.Preset != "mp4" || !cfg.Convert.Overwrite {
		t.Errorf("Unexpected convert config: %+v", cfg.Convert)
	}

	// Keys absent from the file keep their defaults
	if cfg.Merge.Width != 320 || cfg.Merge.Height != 240 {
		t.Errorf("Expected default 320x240, got %dx%d", cfg.Merge.Width, cfg.Merge.Height)
	}
	if cfg.Merge.LowFramerateTarget != "-f mpeg -r 25" {
		t.Errorf("Expected default low framerate target, got '%s'", cfg.Merge.LowFramerateTarget)
	}
	if cfg.LogFormat != "console" {
		t.Errorf("Expected default log format 'console', got '%s'", cfg.LogFormat)
	}
}

func TestLoadConfigFile_Empty(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "empty.yaml")
	if err := os.WriteFile(configPath, nil, 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := LoadConfigFile(configPath)
	if err != nil {
		t.Fatalf("Expected empty file to load, got: %v", err)
	}
	if cfg.Merge.Bitrate != "500k" {
		t.Errorf("Expected default bitrate, got '%s'", cfg.Merge.Bitrate)
	}
}

func TestLoadConfigFile_NotFound(t *testing.T) {
	_, err := LoadConfigFile("/nonexistent/config.yaml")
	if err == nil {
		t.Error("Expected error for nonexistent file")
	}
}

func TestLoadConfigFile_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	invalidYAML := `
log_level: debug
invalid yaml syntax here ][{
`

	if err := os.WriteFile(configPath, []byte(invalidYAML), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	_, err := LoadConfigFile(configPath)
	if err == nil {
		t.Error("Expected error for invalid YAML")
	}
}

func TestLoadConfigFile_UnknownKey(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "typo.yaml")
	if err := os.WriteFile(configPath, []byte("merge:\n  wokers: 4\n"), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	if _, err := LoadConfigFile(configPath); err == nil {
		t.Error("Expected error for unknown key 'wokers'")
	}
}

func TestSaveConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "nested", "test.yaml")

	cfg := DefaultConfig()
	cfg.Inputs = []string{"not-saved.mp4"}
	cfg.Merge.Workers = 8
	cfg.Merge.WorkerTimeout = 45 * time.Second
	cfg.DryRun = true

	if err := SaveConfigFile(cfg, configPath); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Error("Config file was not created")
	}

	loaded, err := LoadConfigFile(configPath)
	if err != nil {
		t.Fatalf("Failed to load saved config: %v", err)
	}

	if loaded.Merge.Workers != cfg.Merge.Workers {
		t.Errorf("Workers mismatch: expected %d, got %d", cfg.Merge.Workers, loaded.Merge.Workers)
	}
	if loaded.Merge.WorkerTimeout != cfg.Merge.WorkerTimeout {
		t.Errorf("Worker timeout mismatch: expected %s, got %s", cfg.Merge.WorkerTimeout, loaded.Merge.WorkerTimeout)
	}
	if loaded.DryRun {
		t.Error("Dry run should not be persisted")
	}
	if len(loaded.Inputs) != 0 {
		t.Errorf("Inputs should not be persisted, got %v", loaded.Inputs)
	}
}

func TestFindConfigFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := filepath.Join(home, ".ffmerge")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("Failed to create config dir: %v", err)
	}
	want := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(want, []byte("verbose: true\n"), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	// ./ffmerge.yaml would take precedence; the package dir has none
	if got := FindConfigFile(); got != want {
		t.Errorf("Expected %s, got %s", want, got)
	}
}

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"pgregory.net/rapid"
)

// Feature: studyai, Property 10: Config merge precedence
func TestConfigMergePrecedence(t *testing.T) {
	nonEmptyString := rapid.StringMatching(`[a-zA-Z0-9/_.:-]{1,20}`)

	// Each field is independently either empty or a non-empty value.
	configGen := rapid.Custom(func(t *rapid.T) *Config {
		cfg := &Config{}
		for _, f := range []struct {
			name string
			dst  *string
		}{
			{"backendURL", &cfg.BackendURL},
			{"historyBackend", &cfg.HistoryBackend},
			{"redisAddr", &cfg.RedisAddr},
			{"speechCommand", &cfg.SpeechCommand},
			{"logLevel", &cfg.LogLevel},
			{"exportDir", &cfg.ExportDir},
			{"defaultFormat", &cfg.DefaultFormat},
		} {
			if rapid.Bool().Draw(t, "has_"+f.name) {
				*f.dst = nonEmptyString.Draw(t, f.name)
			}
		}
		if rapid.Bool().Draw(t, "hasTimeout") {
			cfg.TimeoutSeconds = rapid.IntRange(1, 600).Draw(t, "timeout")
		}
		return cfg
	})

	rapid.Check(t, func(t *rapid.T) {
		global := configGen.Draw(t, "global")
		project := configGen.Draw(t, "project")

		merged := Merge(global, project)
		defaults := Defaults()

		checkStringField(t, "BackendURL", global.BackendURL, project.BackendURL, defaults.BackendURL, merged.BackendURL)
		checkStringField(t, "HistoryBackend", global.HistoryBackend, project.HistoryBackend, defaults.HistoryBackend, merged.HistoryBackend)
		checkStringField(t, "RedisAddr", global.RedisAddr, project.RedisAddr, defaults.RedisAddr, merged.RedisAddr)
		checkStringField(t, "SpeechCommand", global.SpeechCommand, project.SpeechCommand, defaults.SpeechCommand, merged.SpeechCommand)
		checkStringField(t, "LogLevel", global.LogLevel, project.LogLevel, defaults.LogLevel, merged.LogLevel)
		checkStringField(t, "ExportDir", global.ExportDir, project.ExportDir, defaults.ExportDir, merged.ExportDir)
		checkStringField(t, "DefaultFormat", global.DefaultFormat, project.DefaultFormat, defaults.DefaultFormat, merged.DefaultFormat)

		wantTimeout := defaults.TimeoutSeconds
		switch {
		case project.TimeoutSeconds > 0:
			wantTimeout = project.TimeoutSeconds
		case global.TimeoutSeconds > 0:
			wantTimeout = global.TimeoutSeconds
		}
		if merged.TimeoutSeconds != wantTimeout {
			t.Fatalf("TimeoutSeconds: want %d, got %d", wantTimeout, merged.TimeoutSeconds)
		}
	})
}

// checkStringField asserts the merge precedence rule for a single string field:
//   - project non-empty  → merged == project
//   - project empty, global non-empty → merged == global
//   - both empty → merged == defaultVal
func checkStringField(t *rapid.T, name, globalVal, projectVal, defaultVal, mergedVal string) {
	t.Helper()
	switch {
	case projectVal != "":
		if mergedVal != projectVal {
			t.Fatalf("%s: both set, expected project value %q, got %q", name, projectVal, mergedVal)
		}
	case globalVal != "":
		if mergedVal != globalVal {
			t.Fatalf("%s: only global set, expected global value %q, got %q", name, globalVal, mergedVal)
		}
	default:
		if mergedVal != defaultVal {
			t.Fatalf("%s: neither set, expected default %q, got %q", name, defaultVal, mergedVal)
		}
	}
}

func TestDefaultsValues(t *testing.T) {
	d := Defaults()
	if d.BackendURL != "http://localhost:8000" {
		t.Errorf("BackendURL: want %q, got %q", "http://localhost:8000", d.BackendURL)
	}
	if d.Timeout() != 60*time.Second {
		t.Errorf("Timeout: want 60s, got %s", d.Timeout())
	}
	if d.HistoryBackend != HistoryFile {
		t.Errorf("HistoryBackend: want %q, got %q", HistoryFile, d.HistoryBackend)
	}
	if d.Locale != "en-US" {
		t.Errorf("Locale: want en-US, got %q", d.Locale)
	}
	if d.DefaultFormat != "markdown" || d.ExportDir != "." {
		t.Errorf("export defaults: got %q in %q", d.DefaultFormat, d.ExportDir)
	}
}

func TestLoadGlobalMissingFileReturnsDefaults(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("HOME", tmp)

	cfg, err := LoadGlobal()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg == nil {
		t.Fatal("expected non-nil config, got nil")
	}
	if *cfg != Defaults() {
		t.Errorf("want defaults, got %+v", cfg)
	}
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	orig, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(orig) })
}

func TestLoadProjectMissingFileReturnsNil(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := LoadProject()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg != nil {
		t.Errorf("expected nil config, got %+v", cfg)
	}
}

func TestLoadGlobalParseError(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("HOME", tmp)

	cfgDir := filepath.Join(tmp, ".config", "studyai")
	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(cfgDir, "config.json"), []byte("{invalid json"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadGlobal()
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected *ParseError, got %T: %v", err, err)
	}
	if parseErr.Path != filepath.Join(cfgDir, "config.json") {
		t.Errorf("Path = %q", parseErr.Path)
	}
}

func TestLoadLayersAndEnv(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv(EnvBackendURL, "")
	cfgDir := filepath.Join(home, ".config", "studyai")
	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	global := `{"backend_url":"http://global:8000","history_backend":"redis","timeout_seconds":30}`
	if err := os.WriteFile(filepath.Join(cfgDir, "config.json"), []byte(global), 0o644); err != nil {
		t.Fatal(err)
	}
	project := t.TempDir()
	if err := os.WriteFile(filepath.Join(project, ".studyairc"), []byte(`{"timeout_seconds":5}`), 0o644); err != nil {
		t.Fatal(err)
	}
	chdir(t, project)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BackendURL != "http://global:8000" || cfg.HistoryBackend != HistoryRedis || cfg.TimeoutSeconds != 5 {
		t.Fatalf("merged = %+v", cfg)
	}

	t.Setenv(EnvBackendURL, "http://env:9000")
	cfg, err = Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BackendURL != "http://env:9000" {
		t.Fatalf("BackendURL = %q, want env override", cfg.BackendURL)
	}
}

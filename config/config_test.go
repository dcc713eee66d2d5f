package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/wippyai/vmod-types/config"
)

func TestLoad_ValidConfig(t *testing.T) {
	content := `
vmods:
  dir: "/opt/varnish/lib/vmods"
  pattern: "libvmod_%s.so"

scan:
  concurrency: 8
  watch: true
  debounce: 1s
  modules: ["std", "directors"]

logging:
  level: "debug"
  format: "json"
`

	cfg := writeAndLoad(t, content)

	if cfg.Vmods.Dir != "/opt/varnish/lib/vmods" {
		t.Errorf("Vmods.Dir = %s, want /opt/varnish/lib/vmods", cfg.Vmods.Dir)
	}
	if cfg.Scan.Concurrency != 8 {
		t.Errorf("Scan.Concurrency = %d, want 8", cfg.Scan.Concurrency)
	}
	if !cfg.Scan.Watch {
		t.Error("Scan.Watch = false, want true")
	}
	if cfg.Scan.Debounce != time.Second {
		t.Errorf("Scan.Debounce = %v, want 1s", cfg.Scan.Debounce)
	}
	if len(cfg.Scan.Modules) != 2 || cfg.Scan.Modules[1] != "directors" {
		t.Errorf("Scan.Modules = %v", cfg.Scan.Modules)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg := writeAndLoad(t, "{}\n")

	if cfg.Vmods.Dir != config.DefaultDir {
		t.Errorf("Vmods.Dir = %s, want %s", cfg.Vmods.Dir, config.DefaultDir)
	}
	if cfg.Vmods.Pattern != config.DefaultPattern {
		t.Errorf("Vmods.Pattern = %s, want %s", cfg.Vmods.Pattern, config.DefaultPattern)
	}
	if cfg.Scan.Concurrency != config.DefaultConcurrency {
		t.Errorf("Scan.Concurrency = %d, want %d", cfg.Scan.Concurrency, config.DefaultConcurrency)
	}
	if cfg.Scan.Debounce != config.DefaultDebounce {
		t.Errorf("Scan.Debounce = %v, want %v", cfg.Scan.Debounce, config.DefaultDebounce)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "console" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("TEST_VMOD_ROOT", "/srv/varnish")

	cfg := writeAndLoad(t, "vmods:\n  dir: \"${TEST_VMOD_ROOT}/vmods\"\n")
	if cfg.Vmods.Dir != "/srv/varnish/vmods" {
		t.Errorf("Vmods.Dir = %s, want /srv/varnish/vmods", cfg.Vmods.Dir)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("VMOD_DIR", "/from/env")
	t.Setenv("VMOD_SCAN_CONCURRENCY", "2")
	t.Setenv("VMOD_SCAN_WATCH", "yes")
	t.Setenv("VMOD_LOG_LEVEL", "warn")

	cfg := writeAndLoad(t, "vmods:\n  dir: /from/file\nscan:\n  concurrency: 16\n")

	if cfg.Vmods.Dir != "/from/env" {
		t.Errorf("Vmods.Dir = %s, want /from/env", cfg.Vmods.Dir)
	}
	if cfg.Scan.Concurrency != 2 {
		t.Errorf("Scan.Concurrency = %d, want 2", cfg.Scan.Concurrency)
	}
	if !cfg.Scan.Watch {
		t.Error("Scan.Watch should be enabled from env")
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %s, want warn", cfg.Logging.Level)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		contains string
	}{
		{"pattern without verb", "vmods:\n  pattern: libvmod.so\n", "exactly one %s"},
		{"pattern with two verbs", "vmods:\n  pattern: \"%s_%s.so\"\n", "exactly one %s"},
		{"pattern with other verb", "vmods:\n  pattern: \"lib%d_%s.so\"\n", "exactly one %s"},
		{"pattern with directory", "vmods:\n  pattern: \"sub/libvmod_%s.so\"\n", "file name"},
		{"negative concurrency", "scan:\n  concurrency: -1\n", "concurrency"},
		{"bad module", "scan:\n  modules: [\"../etc\"]\n", "invalid module name"},
		{"bad level", "logging:\n  level: verbose\n", "logging.level"},
		{"bad format", "logging:\n  format: xml\n", "logging.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := writeAndLoadErr(t, tt.content)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.contains) {
				t.Errorf("error %q does not contain %q", err, tt.contains)
			}
		})
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := writeAndLoadErr(t, "vmods: [unclosed\n")
	if err == nil || !strings.Contains(err.Error(), "parse config") {
		t.Errorf("expected parse error, got %v", err)
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil || !strings.Contains(err.Error(), "read config") {
		t.Errorf("expected read error, got %v", err)
	}
}

func TestLoadWithFallback(t *testing.T) {
	t.Run("file exists", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "vmod.yaml")
		if err := os.WriteFile(path, []byte("vmods:\n  dir: /x\n"), 0644); err != nil {
			t.Fatal(err)
		}
		cfg, err := config.LoadWithFallback(path)
		if err != nil {
			t.Fatalf("LoadWithFallback: %v", err)
		}
		if cfg.Vmods.Dir != "/x" {
			t.Errorf("Vmods.Dir = %s, want /x", cfg.Vmods.Dir)
		}
	})

	t.Run("no file", func(t *testing.T) {
		cfg, err := config.LoadWithFallback(filepath.Join(t.TempDir(), "nope.yaml"))
		if err != nil {
			t.Fatalf("LoadWithFallback: %v", err)
		}
		if cfg.Vmods.Dir != config.DefaultDir {
			t.Errorf("Vmods.Dir = %s, want default", cfg.Vmods.Dir)
		}
	})

	t.Run("empty path", func(t *testing.T) {
		if _, err := config.LoadWithFallback(""); err != nil {
			t.Fatalf("LoadWithFallback: %v", err)
		}
	})
}

func TestPathAndModuleName(t *testing.T) {
	cfg := config.Default()
	cfg.Vmods.Dir = "/usr/lib/varnish-plus/vmods/"

	if got := cfg.Path("std"); got != "/usr/lib/varnish-plus/vmods/libvmod_std.so" {
		t.Errorf("Path(std) = %s", got)
	}

	tests := []struct {
		file string
		name string
		ok   bool
	}{
		{"libvmod_std.so", "std", true},
		{"libvmod_directors.so", "directors", true},
		{"libvmod_.so", "", false},
		{"libvmod_std.so.1", "", false},
		{"libstd.so", "", false},
		{"README", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			name, ok := cfg.ModuleName(tt.file)
			if name != tt.name || ok != tt.ok {
				t.Errorf("ModuleName(%q) = %q, %v; want %q, %v", tt.file, name, ok, tt.name, tt.ok)
			}
		})
	}
}

func writeAndLoad(t *testing.T, content string) *config.Config {
	t.Helper()
	cfg, err := writeAndLoadErr(t, content)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	return cfg
}

func writeAndLoadErr(t *testing.T, content string) (*config.Config, error) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	return config.Load(path)
}

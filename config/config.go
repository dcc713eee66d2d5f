package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults for a Varnish Plus installation.
const (
	DefaultDir         = "/usr/lib/varnish-plus/vmods"
	DefaultPattern     = "libvmod_%s.so"
	DefaultConcurrency = 4
	DefaultDebounce    = 250 * time.Millisecond
)

type Config struct {
	Vmods   VmodsConfig   `yaml:"vmods"`
	Scan    ScanConfig    `yaml:"scan"`
	Logging LoggingConfig `yaml:"logging"`
}

type VmodsConfig struct {
	// Dir is a local path or any storage URL the afs package understands.
	Dir string `yaml:"dir"`
	// Pattern turns a module name into a file name; it must contain one %s.
	Pattern string `yaml:"pattern"`
}

type ScanConfig struct {
	Concurrency int           `yaml:"concurrency"`
	Watch       bool          `yaml:"watch"`
	Debounce    time.Duration `yaml:"debounce"`
	// Modules restricts a scan to these names. Empty scans the whole dir.
	Modules []string `yaml:"modules,omitempty"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "console"
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	var cfg Config
	applyEnvOverrides(&cfg)
	setDefaults(&cfg)
	return &cfg
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(&cfg)

	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// LoadWithFallback loads path when it exists and falls back to Default.
func LoadWithFallback(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	cfg := Default()
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// Path returns the file path for module name.
func (c *Config) Path(name string) string {
	dir := strings.TrimSuffix(c.Vmods.Dir, "/")
	return dir + "/" + fmt.Sprintf(c.Vmods.Pattern, name)
}

// ModuleName reverses Path for a file name, reporting false when the name
// does not match the pattern.
func (c *Config) ModuleName(file string) (string, bool) {
	prefix, suffix, ok := strings.Cut(c.Vmods.Pattern, "%s")
	if !ok || len(file) <= len(prefix)+len(suffix) {
		return "", false
	}
	if !strings.HasPrefix(file, prefix) || !strings.HasSuffix(file, suffix) {
		return "", false
	}
	return file[len(prefix) : len(file)-len(suffix)], true
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("VMOD_DIR"); v != "" {
		cfg.Vmods.Dir = v
	}
	if v := os.Getenv("VMOD_PATTERN"); v != "" {
		cfg.Vmods.Pattern = v
	}
	if v := os.Getenv("VMOD_SCAN_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Scan.Concurrency = n
		}
	}
	if v := os.Getenv("VMOD_SCAN_WATCH"); v != "" {
		cfg.Scan.Watch = parseBool(v)
	}
	if v := os.Getenv("VMOD_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("VMOD_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}

func setDefaults(cfg *Config) {
	if cfg.Vmods.Dir == "" {
		cfg.Vmods.Dir = DefaultDir
	}
	if cfg.Vmods.Pattern == "" {
		cfg.Vmods.Pattern = DefaultPattern
	}
	if cfg.Scan.Concurrency == 0 {
		cfg.Scan.Concurrency = DefaultConcurrency
	}
	if cfg.Scan.Debounce == 0 {
		cfg.Scan.Debounce = DefaultDebounce
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}
}

func validate(cfg *Config) error {
	if strings.Count(cfg.Vmods.Pattern, "%s") != 1 || strings.Count(cfg.Vmods.Pattern, "%") != 1 {
		return fmt.Errorf("vmods.pattern %q must contain exactly one %%s", cfg.Vmods.Pattern)
	}
	if strings.Contains(cfg.Vmods.Pattern, "/") {
		return fmt.Errorf("vmods.pattern %q must be a file name", cfg.Vmods.Pattern)
	}
	if cfg.Scan.Concurrency < 1 {
		return fmt.Errorf("scan.concurrency must be positive, got %d", cfg.Scan.Concurrency)
	}
	if cfg.Scan.Debounce < 0 {
		return fmt.Errorf("scan.debounce must not be negative")
	}
	for _, m := range cfg.Scan.Modules {
		if m == "" || strings.ContainsAny(m, "/\\") {
			return fmt.Errorf("scan.modules: invalid module name %q", m)
		}
	}
	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", cfg.Logging.Level)
	}
	switch cfg.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format %q is not one of json, console", cfg.Logging.Format)
	}
	return nil
}

func parseBool(s string) bool {
	s = strings.ToLower(s)
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

// Package config resolves the runtime configuration from defaults,
// environment variables, an optional YAML file, and CLI flags, in that
// order (flags win).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/AzouC/Outils-Osintt/internal/core/ports"
)

// builtinModules are the module names that get a config block by default.
var builtinModules = []string{
	"emailintel", "domainintel", "phoneintel", "walletintel", "socialintel",
}

type Config struct {
	// Target
	Kind  string // entity kind of the seed
	Value string // seed value

	// Run
	Depth       int
	Workers     int
	TimeoutS    int // per-task seconds
	RunTimeoutS int // whole-run seconds (0 = unbounded)
	Retries     int

	PrintVersion bool
	PrintModules bool

	// Egress
	Anonymize   bool     // launch an embedded Tor and route through it
	TorCircuits int      // isolated circuits when anonymized
	Proxies     []string // extra SOCKS5 proxies, host:port

	// Cache
	CacheDir      string
	CacheDisabled bool

	// IO
	OutputDir     string
	TableDisabled bool

	// Resilience
	Resilience Resilience

	// Modules holds per-module knobs, keyed by module name.
	Modules map[string]ports.ModuleConfig
}

type Resilience struct {
	BackoffBase       time.Duration
	BackoffMultiplier float64
	JitterFraction    float64

	CircuitBreakerThreshold   int
	CircuitBreakerTimeout     time.Duration
	CircuitBreakerHalfOpenMax int
}

// DefaultConfig returns the baseline configuration.
func DefaultConfig() Config {
	modules := make(map[string]ports.ModuleConfig, len(builtinModules))
	for _, name := range builtinModules {
		modules[name] = ports.DefaultModuleConfig()
	}

	return Config{
		Kind:  "email",
		Depth: 2,

		Workers:     5,
		TimeoutS:    30,
		RunTimeoutS: 0,
		Retries:     3,

		TorCircuits: 3,

		CacheDir:  filepath.Join(xdg.CacheHome, "osintgraph"),
		OutputDir: "osintgraph_out",

		Resilience: Resilience{
			BackoffBase:               500 * time.Millisecond,
			BackoffMultiplier:         2.0,
			JitterFraction:            0.5,
			CircuitBreakerThreshold:   5,
			CircuitBreakerTimeout:     60 * time.Second,
			CircuitBreakerHalfOpenMax: 3,
		},

		Modules: modules,
	}
}

// Load resolves the configuration from args (usually os.Args[1:]).
func Load(args []string) (Config, error) {
	cfg := DefaultConfig()

	loadFromEnv(&cfg)

	if path := configFilePath(args); path != "" {
		if err := loadFromFile(&cfg, path); err != nil {
			return cfg, err
		}
	}

	if err := loadFromFlags(&cfg, args); err != nil {
		return cfg, err
	}

	normalize(&cfg)
	return cfg, nil
}

// configFilePath finds the YAML path: the --config flag wins over the
// OSINTGRAPH_CONFIG variable. Flags are parsed after the file is loaded,
// so the path has to be scanned out of args up front.
func configFilePath(args []string) string {
	path := getenv("OSINTGRAPH_CONFIG", "")
	for i, a := range args {
		switch {
		case a == "--config" && i+1 < len(args):
			path = args[i+1]
		case strings.HasPrefix(a, "--config="):
			path = strings.TrimPrefix(a, "--config=")
		}
	}
	return path
}

// fileConfig is the YAML shape; durations are plain seconds.
type fileConfig struct {
	Kind  string `yaml:"kind"`
	Value string `yaml:"value"`

	Depth      int `yaml:"depth"`
	Workers    int `yaml:"workers"`
	Timeout    int `yaml:"timeout"`
	RunTimeout int `yaml:"run_timeout"`
	Retries    int `yaml:"retries"`

	Anonymize   *bool    `yaml:"anonymize"`
	TorCircuits int      `yaml:"tor_circuits"`
	Proxies     []string `yaml:"proxies"`

	CacheDir      string `yaml:"cache_dir"`
	CacheDisabled *bool  `yaml:"cache_disabled"`

	OutputDir     string `yaml:"output_dir"`
	TableDisabled *bool  `yaml:"table_disabled"`

	Resilience fileResilienceConfig `yaml:"resilience"`

	Modules map[string]fileModuleConfig `yaml:"modules"`
}

// fileResilienceConfig tunes retry backoff and the admission circuit
// breaker; backoff_base is milliseconds, breaker_timeout is seconds.
type fileResilienceConfig struct {
	BackoffBase        int      `yaml:"backoff_base"`
	BackoffMultiplier  *float64 `yaml:"backoff_multiplier"`
	JitterFraction     *float64 `yaml:"jitter_fraction"`
	BreakerThreshold   int      `yaml:"breaker_threshold"`
	BreakerTimeout     int      `yaml:"breaker_timeout"`
	BreakerHalfOpenMax int      `yaml:"breaker_half_open_max"`
}

type fileModuleConfig struct {
	Enabled       *bool    `yaml:"enabled"`
	Timeout       int      `yaml:"timeout"`
	RateLimit     *float64 `yaml:"rate_limit"`
	Burst         int      `yaml:"burst"`
	SharedBucket  *bool    `yaml:"shared_bucket"`
	CacheTTL      int      `yaml:"cache_ttl"`
	Priority      *int     `yaml:"priority"`
	MaxConcurrent int      `yaml:"max_concurrent"`
}

func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	if fc.Kind != "" {
		cfg.Kind = fc.Kind
	}
	if fc.Value != "" {
		cfg.Value = fc.Value
	}
	if fc.Depth > 0 {
		cfg.Depth = fc.Depth
	}
	if fc.Workers > 0 {
		cfg.Workers = fc.Workers
	}
	if fc.Timeout > 0 {
		cfg.TimeoutS = fc.Timeout
	}
	if fc.RunTimeout > 0 {
		cfg.RunTimeoutS = fc.RunTimeout
	}
	if fc.Retries > 0 {
		cfg.Retries = fc.Retries
	}
	if fc.Anonymize != nil {
		cfg.Anonymize = *fc.Anonymize
	}
	if fc.TorCircuits > 0 {
		cfg.TorCircuits = fc.TorCircuits
	}
	if len(fc.Proxies) > 0 {
		cfg.Proxies = fc.Proxies
	}
	if fc.CacheDir != "" {
		cfg.CacheDir = fc.CacheDir
	}
	if fc.CacheDisabled != nil {
		cfg.CacheDisabled = *fc.CacheDisabled
	}
	if fc.OutputDir != "" {
		cfg.OutputDir = fc.OutputDir
	}
	if fc.TableDisabled != nil {
		cfg.TableDisabled = *fc.TableDisabled
	}

	if fc.Resilience.BackoffBase > 0 {
		cfg.Resilience.BackoffBase = time.Duration(fc.Resilience.BackoffBase) * time.Millisecond
	}
	if fc.Resilience.BackoffMultiplier != nil {
		cfg.Resilience.BackoffMultiplier = *fc.Resilience.BackoffMultiplier
	}
	if fc.Resilience.JitterFraction != nil {
		cfg.Resilience.JitterFraction = *fc.Resilience.JitterFraction
	}
	if fc.Resilience.BreakerThreshold > 0 {
		cfg.Resilience.CircuitBreakerThreshold = fc.Resilience.BreakerThreshold
	}
	if fc.Resilience.BreakerTimeout > 0 {
		cfg.Resilience.CircuitBreakerTimeout = time.Duration(fc.Resilience.BreakerTimeout) * time.Second
	}
	if fc.Resilience.BreakerHalfOpenMax > 0 {
		cfg.Resilience.CircuitBreakerHalfOpenMax = fc.Resilience.BreakerHalfOpenMax
	}

	for name, fm := range fc.Modules {
		mc, ok := cfg.Modules[name]
		if !ok {
			mc = ports.DefaultModuleConfig()
		}
		if fm.Enabled != nil {
			mc.Enabled = *fm.Enabled
		}
		if fm.Timeout > 0 {
			mc.Timeout = time.Duration(fm.Timeout) * time.Second
		}
		if fm.RateLimit != nil {
			mc.RateLimit = *fm.RateLimit
		}
		if fm.Burst > 0 {
			mc.Burst = fm.Burst
		}
		if fm.SharedBucket != nil {
			mc.SharedBucket = *fm.SharedBucket
		}
		if fm.CacheTTL > 0 {
			mc.CacheTTL = time.Duration(fm.CacheTTL) * time.Second
		}
		if fm.Priority != nil {
			mc.Priority = *fm.Priority
		}
		if fm.MaxConcurrent > 0 {
			mc.MaxConcurrent = fm.MaxConcurrent
		}
		cfg.Modules[name] = mc
	}

	return nil
}

func loadFromEnv(cfg *Config) {
	if v := getenv("OSINTGRAPH_KIND", ""); v != "" {
		cfg.Kind = v
	}
	if v := getenv("OSINTGRAPH_VALUE", ""); v != "" {
		cfg.Value = v
	}
	if v := getenv("OSINTGRAPH_DEPTH", ""); v != "" {
		cfg.Depth = parseInt(v, cfg.Depth)
	}
	if v := getenv("OSINTGRAPH_WORKERS", ""); v != "" {
		cfg.Workers = parseInt(v, cfg.Workers)
	}
	if v := getenv("OSINTGRAPH_TIMEOUT", ""); v != "" {
		cfg.TimeoutS = parseInt(v, cfg.TimeoutS)
	}
	if v := getenv("OSINTGRAPH_RUN_TIMEOUT", ""); v != "" {
		cfg.RunTimeoutS = parseInt(v, cfg.RunTimeoutS)
	}
	if v := getenv("OSINTGRAPH_RETRIES", ""); v != "" {
		cfg.Retries = parseInt(v, cfg.Retries)
	}
	if v := getenv("OSINTGRAPH_ANONYMIZE", ""); v != "" {
		cfg.Anonymize = parseBool(v)
	}
	if v := getenv("OSINTGRAPH_TOR_CIRCUITS", ""); v != "" {
		cfg.TorCircuits = parseInt(v, cfg.TorCircuits)
	}
	if v := getenv("OSINTGRAPH_PROXIES", ""); v != "" {
		cfg.Proxies = splitList(v)
	}
	if v := getenv("OSINTGRAPH_CACHE_DIR", ""); v != "" {
		cfg.CacheDir = v
	}
	if v := getenv("OSINTGRAPH_NO_CACHE", ""); v != "" {
		cfg.CacheDisabled = parseBool(v)
	}
	if v := getenv("OSINTGRAPH_OUTPUT_DIR", ""); v != "" {
		cfg.OutputDir = v
	}
	if v := getenv("OSINTGRAPH_BACKOFF_BASE", ""); v != "" {
		cfg.Resilience.BackoffBase = time.Duration(parseInt(v, int(cfg.Resilience.BackoffBase.Milliseconds()))) * time.Millisecond
	}
	if v := getenv("OSINTGRAPH_BACKOFF_MULTIPLIER", ""); v != "" {
		cfg.Resilience.BackoffMultiplier = parseFloat(v, cfg.Resilience.BackoffMultiplier)
	}
	if v := getenv("OSINTGRAPH_JITTER_FRACTION", ""); v != "" {
		cfg.Resilience.JitterFraction = parseFloat(v, cfg.Resilience.JitterFraction)
	}
	if v := getenv("OSINTGRAPH_BREAKER_THRESHOLD", ""); v != "" {
		cfg.Resilience.CircuitBreakerThreshold = parseInt(v, cfg.Resilience.CircuitBreakerThreshold)
	}
	if v := getenv("OSINTGRAPH_BREAKER_TIMEOUT", ""); v != "" {
		cfg.Resilience.CircuitBreakerTimeout = time.Duration(parseInt(v, int(cfg.Resilience.CircuitBreakerTimeout.Seconds()))) * time.Second
	}
	if v := getenv("OSINTGRAPH_BREAKER_HALF_OPEN_MAX", ""); v != "" {
		cfg.Resilience.CircuitBreakerHalfOpenMax = parseInt(v, cfg.Resilience.CircuitBreakerHalfOpenMax)
	}

	// per-module knobs: OSINTGRAPH_MODULES_EMAILINTEL_ENABLED=false etc.
	for name := range cfg.Modules {
		prefix := "OSINTGRAPH_MODULES_" + strings.ToUpper(name) + "_"
		mc := cfg.Modules[name]

		if v := getenv(prefix+"ENABLED", ""); v != "" {
			mc.Enabled = parseBool(v)
		}
		if v := getenv(prefix+"TIMEOUT", ""); v != "" {
			mc.Timeout = time.Duration(parseInt(v, int(mc.Timeout.Seconds()))) * time.Second
		}
		if v := getenv(prefix+"RATELIMIT", ""); v != "" {
			mc.RateLimit = parseFloat(v, mc.RateLimit)
		}
		if v := getenv(prefix+"BURST", ""); v != "" {
			mc.Burst = parseInt(v, mc.Burst)
		}
		if v := getenv(prefix+"PRIORITY", ""); v != "" {
			mc.Priority = parseInt(v, mc.Priority)
		}

		cfg.Modules[name] = mc
	}
}

func loadFromFlags(cfg *Config, args []string) error {
	fs := pflag.NewFlagSet("osintgraph", pflag.ContinueOnError)

	fs.StringVar(&cfg.Kind, "kind", cfg.Kind, "Seed entity kind (email|domain|handle|wallet|phone|ip)")
	fs.StringVar(&cfg.Value, "value", cfg.Value, "Seed entity value")
	fs.IntVar(&cfg.Depth, "depth", cfg.Depth, "Maximum expansion depth (seed is depth 0)")
	fs.IntVar(&cfg.Workers, "workers", cfg.Workers, "Worker pool size")
	fs.IntVar(&cfg.TimeoutS, "timeout", cfg.TimeoutS, "Per-task timeout in seconds")
	fs.IntVar(&cfg.RunTimeoutS, "run-timeout", cfg.RunTimeoutS, "Whole-run timeout in seconds (0 = unbounded)")
	fs.IntVar(&cfg.Retries, "retries", cfg.Retries, "Dispatch attempts per task, retries included")

	fs.BoolVar(&cfg.Anonymize, "anonymize", cfg.Anonymize, "Route traffic through an embedded Tor")
	fs.IntVar(&cfg.TorCircuits, "tor-circuits", cfg.TorCircuits, "Isolated Tor circuits when anonymized")
	fs.StringSliceVar(&cfg.Proxies, "proxy", cfg.Proxies, "SOCKS5 proxy host:port (repeatable)")

	fs.StringVar(&cfg.CacheDir, "cache-dir", cfg.CacheDir, "Result cache directory")
	fs.BoolVar(&cfg.CacheDisabled, "no-cache", cfg.CacheDisabled, "Disable the result cache")

	fs.StringVar(&cfg.OutputDir, "out", cfg.OutputDir, "Output directory")
	fs.BoolVar(&cfg.TableDisabled, "no-table", cfg.TableDisabled, "Disable the summary table (JSON is always written)")

	fs.BoolVar(&cfg.PrintVersion, "version", false, "Print version and exit")
	fs.BoolVar(&cfg.PrintModules, "modules", false, "List registered modules and exit")

	// parsed by configFilePath before flags run; declared here so pflag
	// accepts and documents it
	fs.String("config", "", "YAML config file")

	return fs.Parse(args)
}

func normalize(c *Config) {
	c.Kind = strings.ToLower(strings.TrimSpace(c.Kind))
	c.Value = strings.TrimSpace(c.Value)

	if c.Depth < 0 {
		c.Depth = 0
	}
	if c.Workers < 1 {
		c.Workers = 1
	}
	if c.TimeoutS < 0 {
		c.TimeoutS = 0
	}
	if c.RunTimeoutS < 0 {
		c.RunTimeoutS = 0
	}
	if c.Retries < 1 {
		c.Retries = 1
	}
	if c.TorCircuits < 1 {
		c.TorCircuits = 1
	}
	if c.OutputDir == "" {
		c.OutputDir = "osintgraph_out"
	}
	if c.Resilience.BackoffBase <= 0 {
		c.Resilience.BackoffBase = 500 * time.Millisecond
	}
	if c.Resilience.BackoffMultiplier < 1.0 {
		c.Resilience.BackoffMultiplier = 2.0
	}
	if c.Resilience.JitterFraction < 0 || c.Resilience.JitterFraction >= 1 {
		c.Resilience.JitterFraction = 0.5
	}
	if c.Resilience.CircuitBreakerThreshold < 1 {
		c.Resilience.CircuitBreakerThreshold = 5
	}
	if c.Resilience.CircuitBreakerTimeout <= 0 {
		c.Resilience.CircuitBreakerTimeout = 60 * time.Second
	}
	if c.Resilience.CircuitBreakerHalfOpenMax < 1 {
		c.Resilience.CircuitBreakerHalfOpenMax = 3
	}
}

// TaskTimeout returns the per-task limit as a duration.
func (c Config) TaskTimeout() time.Duration {
	if c.TimeoutS <= 0 {
		return 0
	}
	return time.Duration(c.TimeoutS) * time.Second
}

// RunTimeout returns the whole-run limit as a duration.
func (c Config) RunTimeout() time.Duration {
	if c.RunTimeoutS <= 0 {
		return 0
	}
	return time.Duration(c.RunTimeoutS) * time.Second
}

// ResolvedModules returns the module config map with the run-level task
// timeout applied to modules that kept the default; an explicit per-module
// timeout from the config file wins.
func (c Config) ResolvedModules() map[string]ports.ModuleConfig {
	defaultTimeout := ports.DefaultModuleConfig().Timeout

	out := make(map[string]ports.ModuleConfig, len(c.Modules))
	for name, mc := range c.Modules {
		if t := c.TaskTimeout(); t > 0 && mc.Timeout == defaultTimeout {
			mc.Timeout = t
		}
		if c.CacheDisabled {
			mc.CacheTTL = 0
		}
		out[name] = mc
	}
	return out
}

// Helpers

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok {
		return v
	}
	return def
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "t", "true", "y", "yes", "on":
		return true
	default:
		return false
	}
}

func parseInt(v string, def int) int {
	i, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return i
}

func parseFloat(v string, def float64) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return def
	}
	return f
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

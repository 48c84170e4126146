package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/AzouC/Outils-Osintt/internal/testutil"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	testutil.AssertEqual(t, cfg.Depth, 2, "depth")
	testutil.AssertEqual(t, cfg.Workers, 5, "workers")
	testutil.AssertEqual(t, cfg.Retries, 3, "retries")
	testutil.AssertFalse(t, cfg.Anonymize, "anonymize off by default")
	testutil.AssertEqual(t, len(cfg.Modules), 5, "builtin module configs")

	for name, mc := range cfg.Modules {
		testutil.AssertTrue(t, mc.Enabled, name+" enabled")
	}
}

func TestLoadFlagsOverrideDefaults(t *testing.T) {
	cfg, err := Load([]string{
		"--kind", "domain",
		"--value", "example.com",
		"--depth", "3",
		"--workers", "8",
		"--anonymize",
		"--no-table",
	})
	testutil.AssertNoError(t, err, "load")

	testutil.AssertEqual(t, cfg.Kind, "domain", "kind")
	testutil.AssertEqual(t, cfg.Value, "example.com", "value")
	testutil.AssertEqual(t, cfg.Depth, 3, "depth")
	testutil.AssertEqual(t, cfg.Workers, 8, "workers")
	testutil.AssertTrue(t, cfg.Anonymize, "anonymize")
	testutil.AssertTrue(t, cfg.TableDisabled, "table disabled")
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("OSINTGRAPH_DEPTH", "1")
	t.Setenv("OSINTGRAPH_MODULES_SOCIALINTEL_ENABLED", "false")

	cfg, err := Load(nil)
	testutil.AssertNoError(t, err, "load")

	testutil.AssertEqual(t, cfg.Depth, 1, "depth from env")
	testutil.AssertFalse(t, cfg.Modules["socialintel"].Enabled, "module disabled via env")
	testutil.AssertTrue(t, cfg.Modules["emailintel"].Enabled, "other modules untouched")
}

func TestLoadYAMLFileAndFlagPriority(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := `
kind: handle
value: janedoe
depth: 3
workers: 2
modules:
  walletintel:
    enabled: false
  emailintel:
    rate_limit: 0.5
    cache_ttl: 60
`
	testutil.AssertNoError(t, os.WriteFile(path, []byte(body), 0o644), "write config")

	// the flag wins over the file value
	cfg, err := Load([]string{"--config", path, "--depth", "1"})
	testutil.AssertNoError(t, err, "load")

	testutil.AssertEqual(t, cfg.Kind, "handle", "kind from file")
	testutil.AssertEqual(t, cfg.Value, "janedoe", "value from file")
	testutil.AssertEqual(t, cfg.Depth, 1, "flag beats file")
	testutil.AssertEqual(t, cfg.Workers, 2, "workers from file")

	testutil.AssertFalse(t, cfg.Modules["walletintel"].Enabled, "module disabled via file")
	testutil.AssertEqual(t, cfg.Modules["emailintel"].RateLimit, 0.5, "rate limit from file")
	testutil.AssertEqual(t, cfg.Modules["emailintel"].CacheTTL, time.Minute, "cache ttl from file")
}

func TestLoadResilienceFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := `
resilience:
  backoff_base: 100
  backoff_multiplier: 3.0
  jitter_fraction: 0.25
  breaker_threshold: 2
  breaker_timeout: 5
  breaker_half_open_max: 1
`
	testutil.AssertNoError(t, os.WriteFile(path, []byte(body), 0o644), "write config")

	cfg, err := Load([]string{"--config", path})
	testutil.AssertNoError(t, err, "load")

	testutil.AssertEqual(t, cfg.Resilience.BackoffBase, 100*time.Millisecond, "backoff base")
	testutil.AssertEqual(t, cfg.Resilience.BackoffMultiplier, 3.0, "backoff multiplier")
	testutil.AssertEqual(t, cfg.Resilience.JitterFraction, 0.25, "jitter fraction")
	testutil.AssertEqual(t, cfg.Resilience.CircuitBreakerThreshold, 2, "breaker threshold")
	testutil.AssertEqual(t, cfg.Resilience.CircuitBreakerTimeout, 5*time.Second, "breaker timeout")
	testutil.AssertEqual(t, cfg.Resilience.CircuitBreakerHalfOpenMax, 1, "breaker half-open max")
}

func TestLoadResilienceFromEnv(t *testing.T) {
	t.Setenv("OSINTGRAPH_BREAKER_THRESHOLD", "7")
	t.Setenv("OSINTGRAPH_JITTER_FRACTION", "0.1")

	cfg, err := Load(nil)
	testutil.AssertNoError(t, err, "load")

	testutil.AssertEqual(t, cfg.Resilience.CircuitBreakerThreshold, 7, "breaker threshold from env")
	testutil.AssertEqual(t, cfg.Resilience.JitterFraction, 0.1, "jitter fraction from env")
}

func TestLoadBadFile(t *testing.T) {
	_, err := Load([]string{"--config", "/nonexistent/osintgraph.yaml"})
	testutil.AssertError(t, err, "missing config file")
}

func TestNormalizeBounds(t *testing.T) {
	cfg, err := Load([]string{"--depth", "-4", "--workers", "0", "--retries", "0"})
	testutil.AssertNoError(t, err, "load")

	testutil.AssertEqual(t, cfg.Depth, 0, "negative depth clamped")
	testutil.AssertEqual(t, cfg.Workers, 1, "workers floor")
	testutil.AssertEqual(t, cfg.Retries, 1, "retries floor")
}

func TestResolvedModules(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TimeoutS = 10
	cfg.CacheDisabled = true

	resolved := cfg.ResolvedModules()
	for name, mc := range resolved {
		testutil.AssertEqual(t, mc.Timeout, 10*time.Second, name+" timeout applied")
		testutil.AssertEqual(t, mc.CacheTTL, time.Duration(0), name+" cache disabled")
	}
}

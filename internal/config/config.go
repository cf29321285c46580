// Package config defines the node's flag-bound runtime configuration and
// its validation, following the same flag.*Var pattern the node uses for
// every other startup parameter.
package config

import (
	"errors"
	"flag"
	"os"
	"path/filepath"
	"time"
)

var (
	ErrMissingDataDir   = errors.New("config: data-dir must not be empty")
	ErrInvalidAPIPort   = errors.New("config: api-port must be in [1,65535]")
	ErrInvalidControl   = errors.New("config: control-port must be in [1,65535]")
	ErrSamePorts        = errors.New("config: api-port and control-port must differ")
	ErrInvalidScanFloor = errors.New("config: min-scan-interval must be positive")
)

// Config is the node's full startup configuration, bound to command-line
// flags in New.
type Config struct {
	DataDir         string
	APIPort         int
	ControlPort     int
	BindIP          string
	MDNSServiceTag  string
	MinScanInterval time.Duration
	EnvPassEnvVar   string
	NewIdentity     bool
}

func defaults() Config {
	return Config{
		DataDir:         filepath.Join(os.Getenv("HOME"), ".drift"),
		APIPort:         7700,
		ControlPort:     7701,
		BindIP:          "",
		MDNSServiceTag:  "driftmesh",
		MinScanInterval: 500 * time.Millisecond,
		EnvPassEnvVar:   "DRIFT_SECRETS_PASS",
	}
}

// New binds flags to a Config seeded with defaults and parses args.
func New(args []string) (*Config, error) {
	cfg := defaults()
	fs := flag.NewFlagSet("drift-node", flag.ContinueOnError)

	fs.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "directory for identity, ledger, and outbox state")
	fs.IntVar(&cfg.APIPort, "api-port", cfg.APIPort, "public HTTP API port")
	fs.IntVar(&cfg.ControlPort, "control-port", cfg.ControlPort, "localhost-only control API port")
	fs.StringVar(&cfg.BindIP, "bind", cfg.BindIP, "HTTP bind IP (default: all interfaces)")
	fs.StringVar(&cfg.MDNSServiceTag, "mdns-tag", cfg.MDNSServiceTag, "mDNS service tag (not read: drift-node does not start mDNS discovery)")
	fs.DurationVar(&cfg.MinScanInterval, "min-scan-interval", cfg.MinScanInterval, "interval between maintenance ticks")
	fs.StringVar(&cfg.EnvPassEnvVar, "env-pass-var", cfg.EnvPassEnvVar, "environment variable holding the secrets passphrase")
	fs.BoolVar(&cfg.NewIdentity, "new-identity", false, "generate a fresh identity and ledger key, overwriting any existing bundle")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate fails fast at startup rather than surfacing configuration
// errors mid-run.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return ErrMissingDataDir
	}
	if c.APIPort < 1 || c.APIPort > 65535 {
		return ErrInvalidAPIPort
	}
	if c.ControlPort < 1 || c.ControlPort > 65535 {
		return ErrInvalidControl
	}
	if c.APIPort == c.ControlPort {
		return ErrSamePorts
	}
	if c.MinScanInterval <= 0 {
		return ErrInvalidScanFloor
	}
	return nil
}

func (c *Config) SecretsPath() string { return filepath.Join(c.DataDir, "secrets.enc") }
func (c *Config) LedgerPath() string  { return filepath.Join(c.DataDir, "ledger.json") }
func (c *Config) OutboxPath() string  { return filepath.Join(c.DataDir, "outbox.enc") }

// EnsureDataDir creates DataDir with restrictive permissions if missing.
func (c *Config) EnsureDataDir() error {
	return os.MkdirAll(c.DataDir, 0o700)
}

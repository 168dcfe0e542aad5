package config

import (
	"fmt"
	"net"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cuemby/edgerunner/pkg/pool"
)

// UserWorkerPolicy carries the eviction/limits knobs passed through to
// the pool controller, opaque to the core beyond the one predicate it
// compiles into.
type UserWorkerPolicy struct {
	// IdleTimeout, if non-zero, evicts a worker once it has gone this
	// long without a dispatch. Zero means never evict on idle.
	IdleTimeout time.Duration
}

// Policy compiles the configured knobs into a pool.EvictionPolicy.
func (p UserWorkerPolicy) Policy() pool.EvictionPolicy {
	if p.IdleTimeout <= 0 {
		return pool.NeverEvict
	}
	return pool.IdleAfter(p.IdleTimeout)
}

// UnmarshalYAML reads the snake_case idle_timeout key and decodes it as
// a Go duration string ("30s", "5m"), the same form the --idle-timeout
// flag accepts.
func (p *UserWorkerPolicy) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		IdleTimeout string `yaml:"idle_timeout"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if raw.IdleTimeout == "" {
		return nil
	}
	d, err := time.ParseDuration(raw.IdleTimeout)
	if err != nil {
		return fmt.Errorf("user_worker_policy.idle_timeout: %w", err)
	}
	p.IdleTimeout = d
	return nil
}

// Config is the runtime's full set of configuration options. It is
// both the flag-parsing target in cmd/edgerunnerd and, via its yaml
// tags, the shape of an on-disk --config file: a zero-value field in
// the file simply leaves the flag-derived (or Default) value in place.
type Config struct {
	IP        string `yaml:"ip"`
	DataPort  uint16 `yaml:"data_port"`
	AdminPort uint16 `yaml:"admin_port"`

	MainServicePath   string `yaml:"main_service_path"`
	EventsServicePath string `yaml:"events_service_path"`

	UserWorkerPolicy UserWorkerPolicy `yaml:"user_worker_policy"`

	// NoSignalHandler disables interrupt-driven graceful shutdown; set
	// by embedders that install their own signal handling.
	NoSignalHandler bool `yaml:"no_signal_handler"`
}

// DataAddr returns the data-port listen address.
func (c Config) DataAddr() string {
	return net.JoinHostPort(c.IP, fmt.Sprintf("%d", c.DataPort))
}

// AdminAddr returns the admin-port listen address.
func (c Config) AdminAddr() string {
	return net.JoinHostPort(c.IP, fmt.Sprintf("%d", c.AdminPort))
}

// Validate checks that the configuration is complete enough to start
// serving. It does not touch the filesystem or network.
func (c Config) Validate() error {
	if c.IP == "" {
		return fmt.Errorf("config: ip must not be empty")
	}
	if net.ParseIP(c.IP) == nil {
		return fmt.Errorf("config: %q is not a valid IPv4/IPv6 address", c.IP)
	}
	if c.DataPort == 0 {
		return fmt.Errorf("config: data_port must be non-zero")
	}
	if c.AdminPort == 0 {
		return fmt.Errorf("config: admin_port must be non-zero")
	}
	if c.DataPort == c.AdminPort {
		return fmt.Errorf("config: data_port and admin_port must differ")
	}
	if c.MainServicePath == "" {
		return fmt.Errorf("config: main_service_path must not be empty")
	}
	return nil
}

// Default returns a Config with the runtime's default bind address and
// ports.
func Default() Config {
	return Config{
		IP:              "127.0.0.1",
		DataPort:        9000,
		AdminPort:       9001,
		MainServicePath: "/main",
	}
}

// LoadFile reads a YAML config file from path, the on-disk counterpart
// to the flags cmd/edgerunnerd also accepts. Zero-value fields in the
// returned Config mean the file was silent on that option; callers
// layer it over Default (or flag-derived values) rather than treating
// it as complete on its own.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return cfg, nil
}

// MergeOverrides layers override on top of c, field by field: any
// non-zero field in override replaces the corresponding field in c.
// Used to apply explicitly-set command-line flags on top of a
// --config file's values.
func (c Config) MergeOverrides(override Config) Config {
	if override.IP != "" {
		c.IP = override.IP
	}
	if override.DataPort != 0 {
		c.DataPort = override.DataPort
	}
	if override.AdminPort != 0 {
		c.AdminPort = override.AdminPort
	}
	if override.MainServicePath != "" {
		c.MainServicePath = override.MainServicePath
	}
	if override.EventsServicePath != "" {
		c.EventsServicePath = override.EventsServicePath
	}
	if override.UserWorkerPolicy.IdleTimeout != 0 {
		c.UserWorkerPolicy.IdleTimeout = override.UserWorkerPolicy.IdleTimeout
	}
	if override.NoSignalHandler {
		c.NoSignalHandler = true
	}
	return c
}

/*
Package config holds the run-time settings of SubHound: the CT search endpoint,
the size of the probe worker pool, the per-probe timeout and where results are
written. Settings start from DefaultConfig, can be overlaid from a YAML file and
are finally overridden by explicit command-line flags.
*/
package config

/*
SubHound: subdomain enumeration through certificate transparency search
Copyright (C) 2025  The SubHound authors

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU Affero General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU Affero General Public License for more details.

You should have received a copy of the GNU Affero General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultEndpoint is the crt.sh search page; %s receives the query-escaped domain.
	DefaultEndpoint = "https://crt.sh/?q=%s"
	// DefaultWorkers is the number of probes allowed in flight at once.
	DefaultWorkers = 10
	// DefaultProbeTimeout bounds a single HEAD request.
	DefaultProbeTimeout = 10 * time.Second
	// DefaultDiscoveryTimeout bounds the crt.sh query. crt.sh is slow for large domains.
	DefaultDiscoveryTimeout = 60 * time.Second
	// DefaultOutputDir is where <domain>.txt is created.
	DefaultOutputDir = "."
	// DefaultUserAgent is sent with the discovery request.
	DefaultUserAgent = "SubHound (+https://github.com/mxngel/SubHound)"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the complete set of tunables for one run.
// A zero-value field means "use the default" (see ApplyDefaults).
type Config struct {
	Discovery struct {
		Endpoint  string        `yaml:"endpoint"`
		Timeout   time.Duration `yaml:"timeout"`
		UserAgent string        `yaml:"user_agent"`
	} `yaml:"discovery"`

	Probe struct {
		Workers int           `yaml:"workers"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"probe"`

	Output struct {
		Dir      string `yaml:"dir"`
		Progress bool   `yaml:"progress"`
		NoColor  bool   `yaml:"no_color"`
	} `yaml:"output"`

	Metrics struct {
		// Addr enables the Prometheus endpoint when non-empty, e.g. ":9090".
		Addr string `yaml:"addr"`
	} `yaml:"metrics"`
}

// DefaultConfig returns a Config populated with the stock behaviour:
// 10 workers, 10 second probes, results in the working directory.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills every zero-valued field with its default.
func (c *Config) ApplyDefaults() {
	if c.Discovery.Endpoint == "" {
		c.Discovery.Endpoint = DefaultEndpoint
	}
	if c.Discovery.Timeout == 0 {
		c.Discovery.Timeout = DefaultDiscoveryTimeout
	}
	if c.Discovery.UserAgent == "" {
		c.Discovery.UserAgent = DefaultUserAgent
	}
	if c.Probe.Workers == 0 {
		c.Probe.Workers = DefaultWorkers
	}
	if c.Probe.Timeout == 0 {
		c.Probe.Timeout = DefaultProbeTimeout
	}
	if c.Output.Dir == "" {
		c.Output.Dir = DefaultOutputDir
	}
}

// Validate reports settings that cannot produce a working run.
func (c *Config) Validate() error {
	if c.Probe.Workers < 1 {
		return fmt.Errorf("%w: probe workers must be at least 1, got %d", ErrInvalidConfig, c.Probe.Workers)
	}
	if c.Probe.Timeout <= 0 {
		return fmt.Errorf("%w: probe timeout must be positive, got %v", ErrInvalidConfig, c.Probe.Timeout)
	}
	if c.Discovery.Timeout <= 0 {
		return fmt.Errorf("%w: discovery timeout must be positive, got %v", ErrInvalidConfig, c.Discovery.Timeout)
	}
	if strings.Count(c.Discovery.Endpoint, "%s") != 1 {
		return fmt.Errorf("%w: endpoint %q must contain exactly one %%s placeholder", ErrInvalidConfig, c.Discovery.Endpoint)
	}
	return nil
}

// Load reads a YAML configuration file and returns it with defaults applied
// to anything the file leaves out. Durations use Go syntax ("10s", "1m").
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	cfg.ApplyDefaults()
	return &cfg, nil
}

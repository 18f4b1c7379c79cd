// Package config is the configuration shared by the server and the cli.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"maharera-api/internal/agents"
	"maharera-api/internal/maharera"
	"maharera-api/internal/telemetry"
	"maharera-api/lib/configutil"
	"maharera-api/lib/restyutil"
)

const DefaultPort = 3010

type RegistryConfig struct {
	BaseUrl           string  `json:"base_url"`
	UserAgent         string  `json:"user_agent"`
	TimeoutSeconds    int     `json:"timeout_seconds"`
	RequestsPerSecond float64 `json:"requests_per_second"`
	// DumpDir, when set, receives a file per request made to the registry.
	DumpDir string `json:"dump_dir"`
}

type AggregateConfig struct {
	MaxPages int `json:"max_pages"`
	PacingMs int `json:"pacing_ms"`
	// Lanes is the number of sessions a batch is fetched over in parallel.
	Lanes int `json:"lanes"`
}

type Config struct {
	Port      int              `json:"port"`
	Registry  RegistryConfig   `json:"registry"`
	Aggregate AggregateConfig  `json:"aggregate"`
	Telemetry telemetry.Config `json:"telemetry"`
}

func Defaults() Config {
	return Config{
		Port: DefaultPort,
		Registry: RegistryConfig{
			BaseUrl:           maharera.DefaultBaseUrl,
			UserAgent:         maharera.DefaultUserAgent,
			TimeoutSeconds:    int(maharera.DefaultTimeout / time.Second),
			RequestsPerSecond: maharera.DefaultRequestsPerSecond,
		},
		Aggregate: AggregateConfig{
			MaxPages: agents.DefaultMaxPages,
			PacingMs: int(agents.DefaultPacing / time.Millisecond),
			Lanes:    1,
		},
	}
}

// Load reads the config file at path (a missing file means defaults), the
// PORT environment variable takes precedence over the configured port.
func Load(path string) (Config, error) {
	cfg, err := configutil.ReadConfigOrDefault(path, Defaults())
	if err != nil {
		return Config{}, err
	}

	port, ok := os.LookupEnv("PORT")
	if ok && port != "" {
		n, err := strconv.Atoi(port)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("invalid PORT %q", port)
		}
		cfg.Port = n
	}
	return cfg, nil
}

func (c Config) RegistryOptions(tel telemetry.API) (maharera.Options, error) {
	opts := maharera.Options{
		BaseUrl:           c.Registry.BaseUrl,
		UserAgent:         c.Registry.UserAgent,
		Timeout:           time.Duration(c.Registry.TimeoutSeconds) * time.Second,
		RequestsPerSecond: c.Registry.RequestsPerSecond,
		Telemetry:         tel,
	}
	if c.Registry.DumpDir != "" {
		output, err := restyutil.NewDirectoryOutput(c.Registry.DumpDir)
		if err != nil {
			return maharera.Options{}, fmt.Errorf("create dump dir: %w", err)
		}
		opts.Dump = output
	}
	return opts, nil
}

func (c Config) AggregatorOptions(tel telemetry.API) []agents.AggregatorOption {
	return []agents.AggregatorOption{
		agents.WithMaxPages(c.Aggregate.MaxPages),
		agents.WithLanes(c.Aggregate.Lanes),
		agents.WithPacer(agents.IntervalPacer{
			Interval: time.Duration(c.Aggregate.PacingMs) * time.Millisecond,
		}),
		agents.WithTelemetry(tel),
	}
}

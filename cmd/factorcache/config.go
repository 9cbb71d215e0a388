/*
Copyright 2026 Vimeo Inc.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

     http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const envPrefix = "FACTORCACHE_"

var errConfig = errors.New("invalid configuration")

// Config holds the settings of both subcommands. Values come from
// FACTORCACHE_* environment variables (optionally from a .env file) and
// can be overridden by flags.
type Config struct {
	Capacity int           `env:"CAPACITY" envDefault:"1000"`
	Shards   int           `env:"SHARDS" envDefault:"8"`
	Delay    time.Duration `env:"DELAY" envDefault:"5ms"`

	Requests int    `env:"REQUESTS" envDefault:"1000"`
	KeySpace uint64 `env:"KEY_SPACE" envDefault:"2000"`
	Workers  int    `env:"WORKERS" envDefault:"8"`
	Seed     uint64 `env:"SEED" envDefault:"1"`

	GRPCAddr        string        `env:"GRPC_ADDR" envDefault:"localhost:9090"`
	HTTPAddr        string        `env:"HTTP_ADDR" envDefault:"localhost:8080"`
	BasePath        string        `env:"BASE_PATH" envDefault:"/factor/"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"5s"`
	ReportInterval  time.Duration `env:"REPORT_INTERVAL" envDefault:"1m"`

	LogLevel  slog.Level `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string     `env:"LOG_FORMAT" envDefault:"text"`
}

// readEnvironment returns the process environment on top of the
// variables in dotenvPath. A missing default .env file is not an error;
// a missing file named explicitly is.
func readEnvironment(dotenvPath string) (map[string]string, error) {
	explicit := dotenvPath != ""
	if !explicit {
		dotenvPath = ".env"
	}
	vars, err := godotenv.Read(dotenvPath)
	switch {
	case err == nil:
	case !explicit && errors.Is(err, fs.ErrNotExist):
		vars = map[string]string{}
	default:
		return nil, fmt.Errorf("reading %s: %w", dotenvPath, err)
	}
	for k, v := range env.ToMap(os.Environ()) {
		vars[k] = v
	}
	return vars, nil
}

// loadConfig parses environ into a Config.
func loadConfig(environ map[string]string) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: envPrefix, Environment: environ}); err != nil {
		return Config{}, fmt.Errorf("%w: %w", errConfig, err)
	}
	return cfg, nil
}

// bindFlags registers a flag for every setting, defaulting to its current
// value.
func (c *Config) bindFlags(flags *flag.FlagSet) {
	flags.IntVar(&c.Capacity, "capacity", c.Capacity, "number of factorisations to cache")
	flags.IntVar(&c.Shards, "shards", c.Shards, "number of cache shards when serving or in the concurrent benchmark")
	flags.DurationVar(&c.Delay, "delay", c.Delay, "simulated cost of each factorisation")
	flags.IntVar(&c.Requests, "requests", c.Requests, "number of benchmark requests")
	flags.Uint64Var(&c.KeySpace, "keyspace", c.KeySpace, "benchmark numbers are drawn from [2, 2+keyspace)")
	flags.IntVar(&c.Workers, "workers", c.Workers, "concurrent callers in the concurrent benchmark")
	flags.Uint64Var(&c.Seed, "seed", c.Seed, "benchmark random seed")
	flags.StringVar(&c.GRPCAddr, "grpc-addr", c.GRPCAddr, "gRPC listen address")
	flags.StringVar(&c.HTTPAddr, "http-addr", c.HTTPAddr, "HTTP listen address")
	flags.StringVar(&c.BasePath, "base-path", c.BasePath, "HTTP path prefix")
	flags.DurationVar(&c.ShutdownTimeout, "shutdown-timeout", c.ShutdownTimeout, "grace period for in-flight requests on shutdown")
	flags.DurationVar(&c.ReportInterval, "report-interval", c.ReportInterval, "how often to log opencensus views")
	flags.TextVar(&c.LogLevel, "log-level", c.LogLevel, "minimum log level")
	flags.StringVar(&c.LogFormat, "log-format", c.LogFormat, "log format, text or json")
}

func (c Config) validate() error {
	switch {
	case c.Capacity <= 0:
		return fmt.Errorf("%w: capacity must be positive, got %d", errConfig, c.Capacity)
	case c.Shards <= 0:
		return fmt.Errorf("%w: shards must be positive, got %d", errConfig, c.Shards)
	case c.Shards > c.Capacity:
		return fmt.Errorf("%w: %d shards exceed capacity %d", errConfig, c.Shards, c.Capacity)
	case c.Delay < 0:
		return fmt.Errorf("%w: delay must not be negative, got %s", errConfig, c.Delay)
	case c.Requests < 0:
		return fmt.Errorf("%w: requests must not be negative, got %d", errConfig, c.Requests)
	case c.KeySpace == 0 || c.KeySpace > math.MaxUint64-2:
		return fmt.Errorf("%w: keyspace must be in [1, %d], got %d", errConfig, uint64(math.MaxUint64-2), c.KeySpace)
	case c.Workers <= 0:
		return fmt.Errorf("%w: workers must be positive, got %d", errConfig, c.Workers)
	case c.LogFormat != "text" && c.LogFormat != "json":
		return fmt.Errorf("%w: log format must be text or json, got %q", errConfig, c.LogFormat)
	}
	return nil
}

func (c Config) newLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

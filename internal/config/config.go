// Package config resolves ejcluster settings from built-in defaults, a YAML
// file, the environment (optionally seeded from a .env file) and CLI flags,
// in that order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/rcliao/ejcluster/internal/pipeline"
	"github.com/rcliao/ejcluster/internal/votes"
)

// EnvPrefix prefixes every environment variable.
const EnvPrefix = "EJCLUSTER_"

type ValueSource string

const (
	SourceDefault ValueSource = "default"
	SourceConfig  ValueSource = "config"
	SourceEnv     ValueSource = "env"
	SourceCLI     ValueSource = "cli"
)

type ResolvedValue struct {
	Value  string      `json:"value"`
	Source ValueSource `json:"source"`
	From   string      `json:"from,omitempty"`
}

// Config is the effective configuration.
type Config struct {
	DBPath     string
	LogLevel   string
	LogFormat  string
	Imputation votes.Imputation
	Pipeline   pipeline.Options
	Worker     WorkerConfig
}

type WorkerConfig struct {
	Interval    time.Duration
	MetricsAddr string
}

// Resolved is a Config along with where each value came from, keyed by
// the YAML key name.
type Resolved struct {
	Config     Config                   `json:"-"`
	ConfigPath string                   `json:"config_path"`
	Values     map[string]ResolvedValue `json:"values"`
}

// ResolveOptions carry the locations to read and the CLI overrides. Empty
// strings mean "not given".
type ResolveOptions struct {
	ConfigPath string
	EnvFile    string

	CLIDBPath   string
	CLILogLevel string
}

type fileConfig struct {
	DBPath     string `yaml:"db_path"`
	LogLevel   string `yaml:"log_level"`
	LogFormat  string `yaml:"log_format"`
	Imputation string `yaml:"imputation"`
	Pipeline   struct {
		MaxIter   string `yaml:"max_iter"`
		Tolerance string `yaml:"tolerance"`
		Scale     string `yaml:"scale"`
	} `yaml:"pipeline"`
	Worker struct {
		Interval    string `yaml:"interval"`
		MetricsAddr string `yaml:"metrics_addr"`
	} `yaml:"worker"`
}

// envConfig mirrors fileConfig. Pointers stay nil for unset variables.
type envConfig struct {
	DBPath            *string `env:"DB"`
	LogLevel          *string `env:"LOG_LEVEL"`
	LogFormat         *string `env:"LOG_FORMAT"`
	Imputation        *string `env:"IMPUTATION"`
	PipelineMaxIter   *string `env:"PIPELINE_MAX_ITER"`
	PipelineTolerance *string `env:"PIPELINE_TOLERANCE"`
	PipelineScale     *string `env:"PIPELINE_SCALE"`
	WorkerInterval    *string `env:"WORKER_INTERVAL"`
	WorkerMetricsAddr *string `env:"WORKER_METRICS_ADDR"`
}

// Config keys, as written in the YAML file.
const (
	KeyDBPath            = "db_path"
	KeyLogLevel          = "log_level"
	KeyLogFormat         = "log_format"
	KeyImputation        = "imputation"
	KeyPipelineMaxIter   = "pipeline.max_iter"
	KeyPipelineTolerance = "pipeline.tolerance"
	KeyPipelineScale     = "pipeline.scale"
	KeyWorkerInterval    = "worker.interval"
	KeyWorkerMetricsAddr = "worker.metrics_addr"
)

func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".ejcluster", "config.yaml")
}

func DefaultDBPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".ejcluster", "ejcluster.db")
}

func defaults() map[string]string {
	return map[string]string{
		KeyDBPath:            DefaultDBPath(),
		KeyLogLevel:          "info",
		KeyLogFormat:         "console",
		KeyImputation:        string(votes.ImputeMean),
		KeyPipelineMaxIter:   strconv.Itoa(pipeline.DefaultMaxIter),
		KeyPipelineTolerance: strconv.FormatFloat(pipeline.DefaultTolerance, 'g', -1, 64),
		KeyPipelineScale:     "true",
		KeyWorkerInterval:    "10m",
		KeyWorkerMetricsAddr: ":9090",
	}
}

// Resolve layers every source and validates the result.
func Resolve(opts ResolveOptions) (*Resolved, error) {
	path := strings.TrimSpace(opts.ConfigPath)
	if path == "" {
		path = DefaultConfigPath()
	}

	out := &Resolved{ConfigPath: path, Values: map[string]ResolvedValue{}}
	for k, v := range defaults() {
		out.Values[k] = ResolvedValue{Value: v, Source: SourceDefault, From: "built-in default"}
	}

	fc, err := loadConfig(path)
	if err != nil {
		return nil, err
	}
	if fc != nil {
		out.apply(KeyDBPath, fc.DBPath, SourceConfig, path)
		out.apply(KeyLogLevel, fc.LogLevel, SourceConfig, path)
		out.apply(KeyLogFormat, fc.LogFormat, SourceConfig, path)
		out.apply(KeyImputation, fc.Imputation, SourceConfig, path)
		out.apply(KeyPipelineMaxIter, fc.Pipeline.MaxIter, SourceConfig, path)
		out.apply(KeyPipelineTolerance, fc.Pipeline.Tolerance, SourceConfig, path)
		out.apply(KeyPipelineScale, fc.Pipeline.Scale, SourceConfig, path)
		out.apply(KeyWorkerInterval, fc.Worker.Interval, SourceConfig, path)
		out.apply(KeyWorkerMetricsAddr, fc.Worker.MetricsAddr, SourceConfig, path)
	}

	if err := loadEnvFile(opts.EnvFile); err != nil {
		return nil, err
	}
	var ec envConfig
	if err := env.ParseWithOptions(&ec, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parsing environment config: %w", err)
	}
	out.applyEnv(KeyDBPath, ec.DBPath, "DB")
	out.applyEnv(KeyLogLevel, ec.LogLevel, "LOG_LEVEL")
	out.applyEnv(KeyLogFormat, ec.LogFormat, "LOG_FORMAT")
	out.applyEnv(KeyImputation, ec.Imputation, "IMPUTATION")
	out.applyEnv(KeyPipelineMaxIter, ec.PipelineMaxIter, "PIPELINE_MAX_ITER")
	out.applyEnv(KeyPipelineTolerance, ec.PipelineTolerance, "PIPELINE_TOLERANCE")
	out.applyEnv(KeyPipelineScale, ec.PipelineScale, "PIPELINE_SCALE")
	out.applyEnv(KeyWorkerInterval, ec.WorkerInterval, "WORKER_INTERVAL")
	out.applyEnv(KeyWorkerMetricsAddr, ec.WorkerMetricsAddr, "WORKER_METRICS_ADDR")

	out.apply(KeyDBPath, opts.CLIDBPath, SourceCLI, "--db")
	out.apply(KeyLogLevel, opts.CLILogLevel, SourceCLI, "--log-level")

	if v := out.Values[KeyDBPath]; v.Value != "" {
		v.Value = expandUserPath(v.Value)
		out.Values[KeyDBPath] = v
	}

	cfg, err := out.build()
	if err != nil {
		return nil, err
	}
	out.Config = cfg
	return out, nil
}

func (r *Resolved) apply(key, raw string, source ValueSource, from string) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return
	}
	r.Values[key] = ResolvedValue{Value: v, Source: source, From: from}
}

func (r *Resolved) applyEnv(key string, raw *string, name string) {
	if raw == nil {
		return
	}
	r.apply(key, *raw, SourceEnv, EnvPrefix+name)
}

// build parses and validates the resolved strings.
func (r *Resolved) build() (Config, error) {
	var cfg Config
	var errs []error
	bad := func(key string, err error) {
		v := r.Values[key]
		errs = append(errs, fmt.Errorf("%s=%q (from %s): %w", key, v.Value, v.Source, err))
	}
	get := func(key string) string { return r.Values[key].Value }

	cfg.DBPath = get(KeyDBPath)

	cfg.LogLevel = get(KeyLogLevel)
	if _, err := zerolog.ParseLevel(cfg.LogLevel); err != nil {
		bad(KeyLogLevel, err)
	}

	cfg.LogFormat = get(KeyLogFormat)
	if cfg.LogFormat != "console" && cfg.LogFormat != "json" {
		bad(KeyLogFormat, errors.New("must be console or json"))
	}

	imp, err := votes.ParseImputation(get(KeyImputation))
	if err != nil {
		bad(KeyImputation, err)
	}
	cfg.Imputation = imp

	if cfg.Pipeline.MaxIter, err = strconv.Atoi(get(KeyPipelineMaxIter)); err != nil || cfg.Pipeline.MaxIter <= 0 {
		bad(KeyPipelineMaxIter, errors.New("must be a positive integer"))
	}
	if cfg.Pipeline.Tolerance, err = strconv.ParseFloat(get(KeyPipelineTolerance), 64); err != nil || cfg.Pipeline.Tolerance <= 0 {
		bad(KeyPipelineTolerance, errors.New("must be a positive number"))
	}
	if cfg.Pipeline.Scale, err = strconv.ParseBool(get(KeyPipelineScale)); err != nil {
		bad(KeyPipelineScale, err)
	}

	if cfg.Worker.Interval, err = time.ParseDuration(get(KeyWorkerInterval)); err != nil || cfg.Worker.Interval <= 0 {
		bad(KeyWorkerInterval, errors.New("must be a positive duration"))
	}
	cfg.Worker.MetricsAddr = get(KeyWorkerMetricsAddr)

	return cfg, errors.Join(errs...)
}

func loadConfig(path string) (*fileConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var cfg fileConfig
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &cfg, nil
}

// loadEnvFile loads path, or ./.env when path is empty. A missing default
// file is not an error; a missing explicit file is. Variables already in the
// environment win.
func loadEnvFile(path string) error {
	if path == "" {
		_ = godotenv.Load()
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading env file %s: %w", path, err)
	}
	return nil
}

func expandUserPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}

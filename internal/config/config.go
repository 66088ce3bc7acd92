// Package config loads enzyflow settings from YAML and ENZYFLOW_ environment
// variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"enzyflow/internal/logging"
)

const EnvPrefix = "ENZYFLOW"

type Config struct {
	Logging    logging.Config   `mapstructure:"logging"`
	Store      StoreConfig      `mapstructure:"store"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Simulation SimulationConfig `mapstructure:"simulation"`
	Design     DesignConfig     `mapstructure:"design"`
	Dataset    DatasetConfig    `mapstructure:"dataset"`
	Surrogate  SurrogateConfig  `mapstructure:"surrogate"`
	Server     ServerConfig     `mapstructure:"server"`
}

type StoreConfig struct {
	Kind string `mapstructure:"kind"`
	Path string `mapstructure:"path"`
}

type CacheConfig struct {
	Kind     string        `mapstructure:"kind"`
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type SimulationConfig struct {
	Method    string  `mapstructure:"method"`
	RelTol    float64 `mapstructure:"rtol"`
	AbsTol    float64 `mapstructure:"atol"`
	MaxSteps  int     `mapstructure:"max_steps"`
	Duration  float64 `mapstructure:"duration"`
	Steps     int     `mapstructure:"steps"`
	Substrate float64 `mapstructure:"substrate"`
	Enzyme    float64 `mapstructure:"enzyme"`
}

type DesignConfig struct {
	Rounds               int     `mapstructure:"rounds"`
	Candidates           int     `mapstructure:"candidates"`
	CandidatePolicy      string  `mapstructure:"candidate_policy"`
	CandidatePolicyParam float64 `mapstructure:"candidate_policy_param"`
	Attempts             int     `mapstructure:"attempts"`
	Seed                 int64   `mapstructure:"seed"`
}

type DatasetConfig struct {
	Workers      int       `mapstructure:"workers"`
	Temperatures []float64 `mapstructure:"temperatures"`
	PHs          []float64 `mapstructure:"phs"`
	Substrates   []string  `mapstructure:"substrates"`
}

type SurrogateConfig struct {
	ModelPath    string  `mapstructure:"model_path"`
	MaxSamples   int     `mapstructure:"max_samples"`
	TestFraction float64 `mapstructure:"test_fraction"`
	Seed         int64   `mapstructure:"seed"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// Load reads path when given, otherwise enzyflow.yaml from . or ./config
// when present, then applies environment overrides.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("enzyflow")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.UnmarshalExact(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Default returns the configuration used when no file or environment
// override is present.
func Default() Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.UnmarshalExact(&cfg)
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.output_path", "stderr")

	v.SetDefault("store.kind", "memory")
	v.SetDefault("store.path", "./data/enzyflow.db")

	v.SetDefault("cache.kind", "memory")
	v.SetDefault("cache.addr", "localhost:6379")
	v.SetDefault("cache.password", "")
	v.SetDefault("cache.db", 0)
	v.SetDefault("cache.ttl", "24h")

	v.SetDefault("simulation.method", "auto")
	v.SetDefault("simulation.rtol", 1e-6)
	v.SetDefault("simulation.atol", 1e-9)
	v.SetDefault("simulation.max_steps", 200000)
	v.SetDefault("simulation.duration", 86400.0)
	v.SetDefault("simulation.steps", 100)
	v.SetDefault("simulation.substrate", 100.0)
	v.SetDefault("simulation.enzyme", 1e-5)

	v.SetDefault("design.rounds", 5)
	v.SetDefault("design.candidates", 10)
	v.SetDefault("design.candidate_policy", "fixed")
	v.SetDefault("design.candidate_policy_param", 0.0)
	v.SetDefault("design.attempts", 20)
	v.SetDefault("design.seed", 1)

	v.SetDefault("dataset.workers", 4)
	v.SetDefault("dataset.temperatures", []float64{30, 40, 50, 60, 70})
	v.SetDefault("dataset.phs", []float64{4, 5, 6, 7, 8})
	v.SetDefault("dataset.substrates", []string{"Cellulose", "Xylan", "Bagasse"})

	v.SetDefault("surrogate.model_path", "")
	v.SetDefault("surrogate.max_samples", 1500)
	v.SetDefault("surrogate.test_fraction", 0.2)
	v.SetDefault("surrogate.seed", 42)

	v.SetDefault("server.addr", ":8080")
}

func (c Config) Validate() error {
	var errs []error
	switch c.Store.Kind {
	case "memory", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("store.kind %q must be memory or sqlite", c.Store.Kind))
	}
	switch c.Cache.Kind {
	case "none", "memory", "redis":
	default:
		errs = append(errs, fmt.Errorf("cache.kind %q must be none, memory or redis", c.Cache.Kind))
	}
	switch c.Simulation.Method {
	case "auto", "dopri5", "rosenbrock":
	default:
		errs = append(errs, fmt.Errorf("simulation.method %q is unknown", c.Simulation.Method))
	}
	if c.Simulation.RelTol <= 0 || c.Simulation.AbsTol <= 0 {
		errs = append(errs, errors.New("simulation tolerances must be positive"))
	}
	if c.Simulation.MaxSteps <= 0 || c.Simulation.Steps <= 0 || c.Simulation.Duration <= 0 {
		errs = append(errs, errors.New("simulation max_steps, steps and duration must be positive"))
	}
	if c.Simulation.Substrate <= 0 || c.Simulation.Enzyme <= 0 {
		errs = append(errs, errors.New("simulation substrate and enzyme must be positive"))
	}
	if c.Design.Rounds < 0 || c.Design.Candidates <= 0 || c.Design.Attempts <= 0 {
		errs = append(errs, errors.New("design rounds must be >= 0, candidates and attempts > 0"))
	}
	switch c.Design.CandidatePolicy {
	case "", "fixed", "const", "linear_decay", "length_scaled":
	default:
		errs = append(errs, fmt.Errorf("design.candidate_policy %q is unknown", c.Design.CandidatePolicy))
	}
	if c.Dataset.Workers <= 0 {
		errs = append(errs, errors.New("dataset.workers must be positive"))
	}
	if len(c.Dataset.Temperatures) == 0 || len(c.Dataset.PHs) == 0 || len(c.Dataset.Substrates) == 0 {
		errs = append(errs, errors.New("dataset grid axes must be non-empty"))
	}
	if c.Surrogate.MaxSamples <= 0 || c.Surrogate.TestFraction < 0 || c.Surrogate.TestFraction >= 1 {
		errs = append(errs, errors.New("surrogate max_samples must be positive and test_fraction in [0,1)"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Package config provides the configuration schema, loader and LLM provider
// registry for decksmith.
package config

import (
	"time"

	"github.com/MrWong99/decksmith/internal/pipeline"
)

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// RecognizerMode selects the intent recognizer.
type RecognizerMode string

const (
	// RecognizerRuleBased uses trigger patterns and keywords only.
	RecognizerRuleBased RecognizerMode = "rule_based"

	// RecognizerHybrid escalates unsure rule results to the LLM classifier.
	RecognizerHybrid RecognizerMode = "hybrid"
)

// IsValid reports whether m is a recognised recognizer mode.
func (m RecognizerMode) IsValid() bool {
	return m == RecognizerRuleBased || m == RecognizerHybrid
}

// AssetSourceKind selects where field assets are looked up.
type AssetSourceKind string

const (
	AssetsMemory   AssetSourceKind = "memory"
	AssetsPostgres AssetSourceKind = "postgres"
	AssetsRedis    AssetSourceKind = "redis"
)

// IsValid reports whether k is a recognised asset source kind.
func (k AssetSourceKind) IsValid() bool {
	switch k {
	case AssetsMemory, AssetsPostgres, AssetsRedis:
		return true
	}
	return false
}

// Config is the root configuration of decksmith. Load it with [Load] or
// [LoadFromReader]; zero values are replaced by [Config.WithDefaults].
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Taxonomy   TaxonomyConfig   `yaml:"taxonomy"`
	Providers  ProvidersConfig  `yaml:"providers"`
	Recognizer RecognizerConfig `yaml:"recognizer"`
	Assets     AssetsConfig     `yaml:"assets"`
	Pipeline   PipelineConfig   `yaml:"pipeline"`
}

// ServerConfig holds logging and the metrics/health listener.
type ServerConfig struct {
	// LogLevel controls verbosity. Default: info.
	LogLevel LogLevel `yaml:"log_level"`

	// MetricsAddr is the address /metrics, /healthz and /readyz are served
	// on (e.g. ":9090"). Empty disables the listener.
	MetricsAddr string `yaml:"metrics_addr"`

	// TLS enables HTTPS on the metrics listener when set.
	TLS *TLSConfig `yaml:"tls"`
}

// TLSConfig holds PEM certificate and key paths.
type TLSConfig struct {
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// TaxonomyConfig locates the intent taxonomy.
type TaxonomyConfig struct {
	// Path is the taxonomy YAML file. Empty uses the built-in taxonomy.
	Path string `yaml:"path"`

	// ReloadInterval is the polling interval for hot reload. Zero disables
	// reloading.
	ReloadInterval time.Duration `yaml:"reload_interval"`
}

// ProvidersConfig declares the LLM backends used by the hybrid recognizer.
type ProvidersConfig struct {
	LLM ProviderEntry `yaml:"llm"`

	// LLMFallbacks are tried in order when the primary fails.
	LLMFallbacks []ProviderEntry `yaml:"llm_fallbacks"`
}

// ProviderEntry configures one LLM backend. Name selects the factory in the
// [Registry].
type ProviderEntry struct {
	Name    string `yaml:"name"`
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`

	// Options holds backend-specific values not covered above.
	Options map[string]any `yaml:"options"`
}

// RecognizerConfig tunes intent recognition.
type RecognizerConfig struct {
	// Mode is rule_based (default) or hybrid.
	Mode RecognizerMode `yaml:"mode"`

	// PartialConfidence scales the keyword tier. Default: 0.6.
	PartialConfidence float64 `yaml:"partial_confidence"`

	// FuzzyThreshold is the Jaro-Winkler similarity at which a word counts
	// as a keyword. Default: 0.9.
	FuzzyThreshold float64 `yaml:"fuzzy_threshold"`

	// HybridThreshold is the rule confidence under which the classifier is
	// consulted. Default: 0.7.
	HybridThreshold float64 `yaml:"hybrid_threshold"`

	// AmbiguityMargin is the score gap between the two best rule candidates
	// under which the classifier is consulted. Default: 0.1.
	AmbiguityMargin float64 `yaml:"ambiguity_margin"`

	// LLMTimeout bounds each classifier call. Default: 3s.
	LLMTimeout time.Duration `yaml:"llm_timeout"`
}

// AssetsConfig selects and tunes the asset source.
type AssetsConfig struct {
	// Kind is memory (default), postgres or redis.
	Kind AssetSourceKind `yaml:"kind"`

	// Catalog is a YAML asset catalog. For memory it is the source itself;
	// for postgres and redis it seeds the store at startup.
	Catalog string `yaml:"catalog"`

	// PostgresDSN is the connection string for kind postgres.
	PostgresDSN string `yaml:"postgres_dsn"`

	Redis RedisConfig `yaml:"redis"`

	// LookupTimeout bounds each existence check. Default: 2s.
	LookupTimeout time.Duration `yaml:"lookup_timeout"`

	// MaxSuggestions caps the near-miss names offered for an unknown well.
	// Default: 3.
	MaxSuggestions int `yaml:"max_suggestions"`

	Breaker BreakerConfig `yaml:"breaker"`
}

// RedisConfig configures the redis asset source.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`

	// Key is the set holding asset names. Default: decksmith:assets.
	Key string `yaml:"key"`
}

// BreakerConfig configures the circuit breaker around remote asset sources.
type BreakerConfig struct {
	MaxFailures  int           `yaml:"max_failures"`
	ResetTimeout time.Duration `yaml:"reset_timeout"`
	HalfOpenMax  int           `yaml:"half_open_max"`
}

// PipelineConfig tunes the controller and the CLI batch mode.
type PipelineConfig struct {
	// Thresholds are the per-stage checkpoint thresholds. A zero field
	// takes the default.
	Thresholds pipeline.Thresholds `yaml:"thresholds"`

	// Workers bounds concurrent translations in batch mode. Default: 4.
	Workers int `yaml:"workers"`
}

// WithDefaults returns a copy of c with zero values replaced by defaults.
func (c Config) WithDefaults() Config {
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = LogInfo
	}
	if c.Recognizer.Mode == "" {
		c.Recognizer.Mode = RecognizerRuleBased
	}
	if c.Recognizer.LLMTimeout <= 0 {
		c.Recognizer.LLMTimeout = 3 * time.Second
	}
	if c.Assets.Kind == "" {
		c.Assets.Kind = AssetsMemory
	}
	if c.Assets.LookupTimeout <= 0 {
		c.Assets.LookupTimeout = 2 * time.Second
	}
	if c.Assets.MaxSuggestions <= 0 {
		c.Assets.MaxSuggestions = 3
	}
	if c.Pipeline.Workers <= 0 {
		c.Pipeline.Workers = 4
	}

	def := pipeline.DefaultThresholds()
	th := &c.Pipeline.Thresholds
	for _, f := range []struct {
		v *float64
		d float64
	}{
		{&th.Intent, def.Intent},
		{&th.Entities, def.Entities},
		{&th.Assets, def.Assets},
		{&th.Syntax, def.Syntax},
		{&th.Deck, def.Deck},
	} {
		if *f.v == 0 {
			*f.v = f.d
		}
	}
	return c
}

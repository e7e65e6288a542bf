package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidLLMProviders lists the LLM backend names decksmith knows about.
// [Validate] warns about any other name.
var ValidLLMProviders = []string{"openai", "anthropic", "ollama", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile"}

// Load reads and validates the YAML configuration file at path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates it. Unknown
// fields are rejected.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cfg for coherence and returns every problem found, joined.
// Unknown provider names only log a warning.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if tls := cfg.Server.TLS; tls != nil && (tls.CertFile == "" || tls.KeyFile == "") {
		errs = append(errs, errors.New("server.tls requires both cert_file and key_file"))
	}
	if cfg.Taxonomy.ReloadInterval < 0 {
		errs = append(errs, fmt.Errorf("taxonomy.reload_interval %s is negative", cfg.Taxonomy.ReloadInterval))
	}
	if cfg.Taxonomy.ReloadInterval > 0 && cfg.Taxonomy.Path == "" {
		errs = append(errs, errors.New("taxonomy.reload_interval requires taxonomy.path"))
	}

	// Recognizer
	rc := cfg.Recognizer
	if rc.Mode != "" && !rc.Mode.IsValid() {
		errs = append(errs, fmt.Errorf("recognizer.mode %q is invalid; valid values: rule_based, hybrid", rc.Mode))
	}
	if rc.Mode == RecognizerHybrid && cfg.Providers.LLM.Name == "" {
		errs = append(errs, errors.New("recognizer.mode hybrid requires providers.llm"))
	}
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"recognizer.partial_confidence", rc.PartialConfidence},
		{"recognizer.fuzzy_threshold", rc.FuzzyThreshold},
		{"recognizer.hybrid_threshold", rc.HybridThreshold},
		{"recognizer.ambiguity_margin", rc.AmbiguityMargin},
	} {
		if f.v < 0 || f.v > 1 {
			errs = append(errs, fmt.Errorf("%s %.2f is out of range [0, 1]", f.name, f.v))
		}
	}
	if rc.LLMTimeout < 0 {
		errs = append(errs, fmt.Errorf("recognizer.llm_timeout %s is negative", rc.LLMTimeout))
	}

	// Providers
	validateProviderName("providers.llm", cfg.Providers.LLM.Name)
	for i, fb := range cfg.Providers.LLMFallbacks {
		prefix := fmt.Sprintf("providers.llm_fallbacks[%d]", i)
		if fb.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", prefix))
			continue
		}
		validateProviderName(prefix, fb.Name)
	}
	if len(cfg.Providers.LLMFallbacks) > 0 && cfg.Providers.LLM.Name == "" {
		errs = append(errs, errors.New("providers.llm_fallbacks requires providers.llm"))
	}

	// Assets
	ac := cfg.Assets
	if ac.Kind != "" && !ac.Kind.IsValid() {
		errs = append(errs, fmt.Errorf("assets.kind %q is invalid; valid values: memory, postgres, redis", ac.Kind))
	}
	switch ac.Kind {
	case AssetsPostgres:
		if ac.PostgresDSN == "" {
			errs = append(errs, errors.New("assets.postgres_dsn is required when kind is postgres"))
		}
	case AssetsRedis:
		if ac.Redis.Addr == "" {
			errs = append(errs, errors.New("assets.redis.addr is required when kind is redis"))
		}
	case "", AssetsMemory:
		if ac.Catalog == "" {
			slog.Warn("assets.catalog is empty; every well will be reported unknown")
		}
	}
	if ac.LookupTimeout < 0 {
		errs = append(errs, fmt.Errorf("assets.lookup_timeout %s is negative", ac.LookupTimeout))
	}
	if ac.MaxSuggestions < 0 {
		errs = append(errs, fmt.Errorf("assets.max_suggestions %d is negative", ac.MaxSuggestions))
	}
	if ac.Breaker.MaxFailures < 0 || ac.Breaker.HalfOpenMax < 0 || ac.Breaker.ResetTimeout < 0 {
		errs = append(errs, errors.New("assets.breaker values must not be negative"))
	}

	// Pipeline
	th := cfg.Pipeline.Thresholds
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"intent", th.Intent},
		{"entities", th.Entities},
		{"assets", th.Assets},
		{"syntax", th.Syntax},
		{"deck", th.Deck},
	} {
		if f.v < 0 || f.v > 1 {
			errs = append(errs, fmt.Errorf("pipeline.thresholds.%s %.2f is out of range [0, 1]", f.name, f.v))
		}
	}
	if cfg.Pipeline.Workers < 0 {
		errs = append(errs, fmt.Errorf("pipeline.workers %d is negative", cfg.Pipeline.Workers))
	}

	return errors.Join(errs...)
}

// validateProviderName warns when name is set but not a known backend.
func validateProviderName(field, name string) {
	if name == "" || slices.Contains(ValidLLMProviders, name) {
		return
	}
	slog.Warn("unknown provider name; may be a typo or third-party provider",
		"field", field,
		"name", name,
		"known", ValidLLMProviders,
	)
}

package config

import (
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// ConfigDiff describes what changed between two configs. Log level and
// thresholds apply on the fly; every other change is listed in
// RestartRequired.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	ThresholdsChanged bool

	// RestartRequired names the top-level sections that changed but only
	// take effect after a restart.
	RestartRequired []string
}

// Empty reports whether nothing changed.
func (d ConfigDiff) Empty() bool {
	return !d.LogLevelChanged && !d.ThresholdsChanged && len(d.RestartRequired) == 0
}

// Diff compares two configs after applying defaults to both.
func Diff(old, new *Config) ConfigDiff {
	o, n := old.WithDefaults(), new.WithDefaults()
	var d ConfigDiff

	if o.Server.LogLevel != n.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = n.Server.LogLevel
	}
	if o.Pipeline.Thresholds != n.Pipeline.Thresholds {
		d.ThresholdsChanged = true
	}

	if o.Server.MetricsAddr != n.Server.MetricsAddr || !sameTLS(o.Server.TLS, n.Server.TLS) {
		d.RestartRequired = append(d.RestartRequired, "server")
	}
	if o.Taxonomy != n.Taxonomy {
		d.RestartRequired = append(d.RestartRequired, "taxonomy")
	}
	if !cmp.Equal(o.Providers, n.Providers, cmpopts.EquateEmpty()) {
		d.RestartRequired = append(d.RestartRequired, "providers")
	}
	if o.Recognizer != n.Recognizer {
		d.RestartRequired = append(d.RestartRequired, "recognizer")
	}
	if o.Assets != n.Assets {
		d.RestartRequired = append(d.RestartRequired, "assets")
	}
	if o.Pipeline.Workers != n.Pipeline.Workers {
		d.RestartRequired = append(d.RestartRequired, "pipeline.workers")
	}
	return d
}

func sameTLS(a, b *TLSConfig) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

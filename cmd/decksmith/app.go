package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MrWong99/decksmith/internal/asset"
	"github.com/MrWong99/decksmith/internal/config"
	"github.com/MrWong99/decksmith/internal/generate"
	"github.com/MrWong99/decksmith/internal/health"
	"github.com/MrWong99/decksmith/internal/observe"
	"github.com/MrWong99/decksmith/internal/pipeline"
	"github.com/MrWong99/decksmith/internal/recognize"
	"github.com/MrWong99/decksmith/internal/recognize/llmclassify"
	"github.com/MrWong99/decksmith/internal/resilience"
	"github.com/MrWong99/decksmith/internal/taxonomy"
	"github.com/MrWong99/decksmith/pkg/provider/llm"
)

// app is the wired translation stack of one CLI invocation.
type app struct {
	cfg        config.Config
	holder     *taxonomy.Holder
	controller *pipeline.Controller
	metrics    *observe.Metrics

	// closers run in reverse order on close.
	closers []func(context.Context) error
}

func newApp(ctx context.Context, cfg config.Config) (_ *app, err error) {
	a := &app{cfg: cfg}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	tel, err := observe.Setup(ctx, observe.TelemetryConfig{ServiceVersion: version})
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	a.closers = append(a.closers, tel.Shutdown)
	if a.metrics, err = observe.NewMetrics(tel.MeterProvider); err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}

	if err := a.loadTaxonomy(); err != nil {
		return nil, err
	}

	src, sourceName, err := a.buildAssetSource(ctx)
	if err != nil {
		return nil, err
	}
	validator := asset.NewValidator(src,
		asset.WithLookupTimeout(cfg.Assets.LookupTimeout),
		asset.WithMaxSuggestions(cfg.Assets.MaxSuggestions),
		asset.WithMetrics(a.metrics, sourceName),
	)

	recognizer, err := a.buildRecognizer()
	if err != nil {
		return nil, err
	}

	a.controller, err = pipeline.New(a.holder, validator,
		pipeline.WithRecognizer(recognizer),
		pipeline.WithThresholds(cfg.Pipeline.Thresholds),
		pipeline.WithMetrics(a.metrics),
	)
	if err != nil {
		return nil, err
	}

	if cfg.Server.MetricsAddr != "" {
		var checks []health.Checker
		if p, ok := src.(asset.Pinger); ok {
			checks = append(checks, health.AssetSource("assets", p))
		}
		checks = append(checks, health.Taxonomy(a.holder))
		a.serveMetrics(tel, health.New(checks...))
	}

	slog.Info("decksmith ready",
		"taxonomy_version", a.holder.Current().Version(),
		"intents", a.holder.Current().Len(),
		"assets", sourceName,
		"recognizer", cfg.Recognizer.Mode,
	)
	return a, nil
}

func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, fn := range slices.Backward(a.closers) {
		if err := fn(ctx); err != nil {
			slog.Warn("shutdown error", "err", err)
		}
	}
	a.closers = nil
}

// loadTaxonomy publishes the configured taxonomy, watching the file when a
// reload interval is set.
func (a *app) loadTaxonomy() error {
	tc := a.cfg.Taxonomy
	switch {
	case tc.Path == "":
		a.holder = taxonomy.NewHolder(taxonomy.Default())
	case tc.ReloadInterval > 0:
		w, err := taxonomy.NewWatcher(tc.Path,
			taxonomy.WithInterval(tc.ReloadInterval),
			taxonomy.WithOnChange(func(_, t *taxonomy.Taxonomy) {
				a.metrics.RecordTaxonomyReload(context.Background(), t.Version())
				warnUncovered(t)
			}),
		)
		if err != nil {
			return err
		}
		a.holder = w.Holder()
		a.closers = append(a.closers, func(context.Context) error { w.Stop(); return nil })
	default:
		t, err := taxonomy.LoadFile(tc.Path)
		if err != nil {
			return err
		}
		a.holder = taxonomy.NewHolder(t)
	}
	warnUncovered(a.holder.Current())
	return nil
}

func warnUncovered(t *taxonomy.Taxonomy) {
	if missing := generate.Builtin().CheckCoverage(t); len(missing) > 0 {
		slog.Warn("intents without a deck template will fail to generate", "intents", missing)
	}
}

// buildAssetSource opens the configured source. Remote sources are seeded
// from the catalog when one is configured and guarded by a circuit breaker.
func (a *app) buildAssetSource(ctx context.Context) (asset.Source, string, error) {
	ac := a.cfg.Assets
	var catalog *asset.CatalogFile
	if ac.Catalog != "" {
		cf, err := asset.LoadCatalogFile(ac.Catalog)
		if err != nil {
			return nil, "", err
		}
		catalog = cf
	}

	var remote asset.Source
	switch ac.Kind {
	case config.AssetsPostgres:
		pool, err := pgxpool.New(ctx, ac.PostgresDSN)
		if err != nil {
			return nil, "", fmt.Errorf("postgres: %w", err)
		}
		a.closers = append(a.closers, func(context.Context) error { pool.Close(); return nil })
		pg := asset.NewPostgresSource(pool)
		if err := pg.Migrate(ctx); err != nil {
			return nil, "", err
		}
		if catalog != nil {
			for _, as := range catalog.Assets {
				if err := pg.Upsert(ctx, as); err != nil {
					return nil, "", err
				}
			}
		}
		remote = pg

	case config.AssetsRedis:
		client, err := asset.NewRedisClient(ctx, asset.RedisOptions{
			Addr:     ac.Redis.Addr,
			Password: ac.Redis.Password,
			DB:       ac.Redis.DB,
		})
		if err != nil {
			return nil, "", err
		}
		a.closers = append(a.closers, func(context.Context) error { return client.Close() })
		rs := asset.NewRedisSource(client, ac.Redis.Key)
		if catalog != nil {
			names := make([]string, 0, len(catalog.Assets))
			for _, as := range catalog.Assets {
				names = append(names, as.Name)
			}
			if err := rs.Add(ctx, names...); err != nil {
				return nil, "", err
			}
		}
		remote = rs

	default:
		if catalog == nil {
			return asset.NewMemStore(), string(config.AssetsMemory), nil
		}
		return catalog.Store(), string(config.AssetsMemory), nil
	}

	guarded := resilience.NewGuardedSource(remote, resilience.CircuitBreakerConfig{
		Name:          "assets-" + string(ac.Kind),
		MaxFailures:   ac.Breaker.MaxFailures,
		ResetTimeout:  ac.Breaker.ResetTimeout,
		HalfOpenMax:   ac.Breaker.HalfOpenMax,
		OnStateChange: a.breakerChanged,
	})
	return guarded, string(ac.Kind), nil
}

func (a *app) breakerChanged(name string, from, to resilience.State) {
	slog.Warn("circuit breaker changed state", "breaker", name, "from", from, "to", to)
	a.metrics.RecordBreakerTransition(context.Background(), name, to.String())
}

func (a *app) buildRecognizer() (recognize.Recognizer, error) {
	rc := a.cfg.Recognizer
	var ruleOpts []recognize.RuleOption
	if rc.PartialConfidence > 0 {
		ruleOpts = append(ruleOpts, recognize.WithPartialConfidence(rc.PartialConfidence))
	}
	if rc.FuzzyThreshold > 0 {
		ruleOpts = append(ruleOpts, recognize.WithFuzzyThreshold(rc.FuzzyThreshold))
	}
	rules := recognize.NewRuleBased(ruleOpts...)
	if rc.Mode != config.RecognizerHybrid {
		return rules, nil
	}

	provider, err := a.buildLLM()
	if err != nil {
		return nil, err
	}
	hybridOpts := []recognize.HybridOption{recognize.WithTimeout(rc.LLMTimeout)}
	if rc.HybridThreshold > 0 {
		hybridOpts = append(hybridOpts, recognize.WithThreshold(rc.HybridThreshold))
	}
	if rc.AmbiguityMargin > 0 {
		hybridOpts = append(hybridOpts, recognize.WithAmbiguityMargin(rc.AmbiguityMargin))
	}
	return recognize.NewHybrid(rules, llmclassify.New(provider), hybridOpts...), nil
}

// buildLLM creates the primary provider and its fallbacks, each
// instrumented and behind its own breaker.
func (a *app) buildLLM() (llm.Provider, error) {
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	pc := a.cfg.Providers
	primary, err := reg.CreateLLM(pc.LLM)
	if err != nil {
		return nil, err
	}
	slog.Info("provider created", "kind", "llm", "name", pc.LLM.Name, "model", pc.LLM.Model)
	if len(pc.LLMFallbacks) == 0 {
		return observe.InstrumentLLM(primary, pc.LLM.Name, a.metrics), nil
	}

	fb := resilience.NewLLMFallback(observe.InstrumentLLM(primary, pc.LLM.Name, a.metrics), pc.LLM.Name,
		resilience.FallbackConfig{CircuitBreaker: resilience.CircuitBreakerConfig{OnStateChange: a.breakerChanged}})
	var errs []error
	for _, entry := range pc.LLMFallbacks {
		p, err := reg.CreateLLM(entry)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		fb.AddFallback(entry.Name, observe.InstrumentLLM(p, entry.Name, a.metrics))
	}
	if len(errs) > 0 {
		slog.Warn("some llm fallbacks could not be created", "err", errors.Join(errs...))
	}
	slog.Info("llm failover order", "providers", fb.Names())
	return fb, nil
}

func (a *app) serveMetrics(tel *observe.Telemetry, h *health.Handler) {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", tel.Handler())
	h.Register(mux)

	srv := &http.Server{
		Addr:              a.cfg.Server.MetricsAddr,
		Handler:           observe.Middleware(a.metrics)(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}
	tls := a.cfg.Server.TLS
	go func() {
		var err error
		if tls != nil {
			err = srv.ListenAndServeTLS(tls.CertFile, tls.KeyFile)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics listener stopped", "addr", srv.Addr, "err", err)
		}
	}()
	slog.Info("serving metrics and health probes", "addr", srv.Addr, "tls", tls != nil)
	a.closers = append(a.closers, srv.Shutdown)
}

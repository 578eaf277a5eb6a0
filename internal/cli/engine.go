package cli

import (
	"context"
	"fmt"

	"formrunner/internal/attempt"
	"formrunner/internal/browser"
	"formrunner/internal/catalog"
	"formrunner/internal/config"
	"formrunner/internal/run"
)

func loadCatalog(cfg *config.Config) (*catalog.Catalog, error) {
	if cfg.CatalogPath != "" {
		return catalog.Load(cfg.CatalogPath)
	}
	return catalog.Default()
}

// newAggregator assembles one run's full stack: a fresh browser
// session owned by the aggregator, the attempt runner and the catalog.
func newAggregator(ctx context.Context, cfg *config.Config, runID string) (*run.Aggregator, error) {
	cat, err := loadCatalog(cfg)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	launcher, err := browser.NewLauncher(ctx, browser.Options{
		Headless: cfg.Browser.Headless,
		SlowMo:   cfg.Browser.SlowMo,
	})
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	runner := attempt.NewRunner(attempt.Config{
		PageLoadTimeout: cfg.Engine.PageLoadTimeout,
		FieldDelay:      cfg.Engine.FieldFillDelay,
		KeyDelay:        cfg.Engine.KeyDelay,
		CaptchaWait:     cfg.Engine.CaptchaWait,
	}, cat, logger.With().Str("comp", "attempt").Logger())

	return run.NewAggregator(runID, run.Config{
		MaxRetries: cfg.Engine.MaxRetries,
		RetryDelay: cfg.Engine.RetryDelay,
	}, launcher, runner, logger), nil
}

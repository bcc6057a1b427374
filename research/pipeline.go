// Package research sequences the full pipeline: session acquisition,
// harvest, per-product extraction and analysis, and report assembly.
package research

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/shelf-labs/scout/browser"
	"github.com/shelf-labs/scout/cache"
	"github.com/shelf-labs/scout/config"
	"github.com/shelf-labs/scout/extract"
	"github.com/shelf-labs/scout/harvest"
	"github.com/shelf-labs/scout/llm"
	"github.com/shelf-labs/scout/market"
	"github.com/shelf-labs/scout/models"
	"github.com/shelf-labs/scout/session"
)

// harvester yields identifiers for a query.
type harvester interface {
	Harvest(page browser.Page, query string) ([]string, error)
}

// extractor resolves one listing's attributes.
type extractor interface {
	Extract(page browser.Page, asin string) (*models.ProductInfo, error)
}

// analyzer is the fail-closed analysis client: it cannot fail outward.
type analyzer interface {
	Analyze(ctx context.Context, info *models.ProductInfo) *models.ProductAnalysis
}

// Pipeline owns one run's collaborators. The remote session and the model
// client are held exclusively for the duration of a run and released on
// every exit path.
type Pipeline struct {
	cfg       *config.Config
	sessions  *session.Client
	harvester harvester
	extractor extractor
	analyzer  analyzer
	analyses  *cache.Cache
}

// New wires a Pipeline from configuration. The analysis cache may be shared
// across pipelines; pass nil to run uncached.
func New(cfg *config.Config, analyses *cache.Cache) *Pipeline {
	if analyses == nil {
		analyses = cache.New(cfg.Cache.MaxEntries, 0)
	}
	return &Pipeline{
		cfg:      cfg,
		sessions: session.NewClient(nil, cfg.Session),
		harvester: &harvest.Harvester{
			BaseURL: cfg.Market.BaseURL,
			Settle:  cfg.Market.SearchSettle,
		},
		extractor: extract.NewExtractor(cfg.Market.BaseURL, cfg.Market.ProductSettle),
		analyzer:  llm.NewAnalyzer(nil, cfg.LLM),
		analyses:  analyses,
	}
}

// Run executes one research batch: harvest identifiers for query, process
// at most limit of them in harvested order, and return the ordered report.
//
// Error surface: only batch-fatal errors (session, search) come back as
// errors. A single dead listing becomes a failure marker in its entry and
// the batch continues; analysis cannot fail outward at all.
// The results are named so the deferred total-time write lands in the
// values the caller actually receives, on success and failure alike.
func (p *Pipeline) Run(ctx context.Context, query string, limit int) (report *models.Report, timing models.ResearchTimingInfo, err error) {
	totalStart := time.Now()
	defer func() { timing.TotalMs = time.Since(totalStart).Milliseconds() }()

	report = &models.Report{Query: query}

	// ── 1. Acquire browser ───────────────────────────────────────────
	// Remote session when a provider is configured, local launch
	// otherwise. Both are released via defers so the session's resources
	// are never leaked and its replay artifact stays retrievable, even
	// when an item-level step panics or a fatal error returns early.
	sessionStart := time.Now()
	br, cleanup, err := p.acquireBrowser(ctx, report)
	timing.SessionMs = time.Since(sessionStart).Milliseconds()
	if err != nil {
		return nil, timing, err
	}
	defer cleanup()

	if err := p.runBatch(ctx, br.Page(ctx), query, limit, report, &timing); err != nil {
		return nil, timing, err
	}

	slog.Info("research run complete",
		"query", query,
		"harvested", report.Harvested,
		"processed", len(report.Entries),
	)
	return report, timing, nil
}

// runBatch drives the harvested batch on an already-acquired page.
func (p *Pipeline) runBatch(ctx context.Context, page browser.Page, query string, limit int, report *models.Report, timing *models.ResearchTimingInfo) error {
	// ── 2. Harvest ───────────────────────────────────────────────────
	// Fatal on failure: without search results there is nothing to process.
	harvestStart := time.Now()
	asins, err := p.harvester.Harvest(page, query)
	timing.HarvestMs = time.Since(harvestStart).Milliseconds()
	if err != nil {
		return err
	}
	report.Harvested = len(asins)

	p.screenshotResults(page)

	// ── 3. Bound the batch ───────────────────────────────────────────
	// First `limit` identifiers in harvested order; the rest never
	// trigger a navigation.
	if limit > 0 && len(asins) > limit {
		asins = asins[:limit]
	}

	// ── 4. Process sequentially ──────────────────────────────────────
	// One product at a time: all products share the single tab, which
	// can only point at one URL at a time.
	productsStart := time.Now()
	for _, asin := range asins {
		report.Entries = append(report.Entries, p.processProduct(ctx, page, asin))
	}
	timing.ProductsMs = time.Since(productsStart).Milliseconds()

	return nil
}

// acquireBrowser provisions the browsing resource and returns it with its
// release function. When a remote session is used, the report gets the
// session id and replay URL; release runs against a fresh context so
// cleanup succeeds even after the run context has expired.
func (p *Pipeline) acquireBrowser(ctx context.Context, report *models.Report) (*browser.Browser, func(), error) {
	if p.cfg.Session.APIKey == "" {
		br, err := browser.Launch(ctx, p.cfg.Browser)
		if err != nil {
			return nil, nil, err
		}
		return br, br.Close, nil
	}

	s, err := p.sessions.Create(ctx)
	if err != nil {
		return nil, nil, err
	}
	report.SessionID = s.ID
	report.ReplayURL = p.sessions.ReplayURL(s.ID)

	release := func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		p.sessions.Release(releaseCtx, s.ID)
	}

	br, err := browser.Connect(ctx, s.ConnectURL, p.cfg.Browser)
	if err != nil {
		release()
		return nil, nil, err
	}

	return br, func() {
		br.Close()
		release()
	}, nil
}

// processProduct runs extract-then-analyze for one identifier. Extraction
// failure becomes a failure marker; once extraction succeeds an analysis is
// always present, possibly as a negative default.
func (p *Pipeline) processProduct(ctx context.Context, page browser.Page, asin string) models.ReportEntry {
	entry := models.ReportEntry{
		ASIN: asin,
		URL:  market.ProductURL(p.cfg.Market.BaseURL, asin),
	}

	info, err := p.extractor.Extract(page, asin)
	if err != nil {
		slog.Warn("extraction failed, continuing batch", "asin", asin, "error", err)
		entry.Failure = failureDetail(err)
		return entry
	}
	entry.Info = info

	key := cache.Key(asin, p.cfg.LLM.Model, p.cfg.LLM.IncludeBrandReputation)
	if analysis, ok := p.analyses.Get(key); ok {
		slog.Debug("analysis cache hit", "asin", asin)
		entry.Analysis = analysis
		return entry
	}

	analysis := p.analyzer.Analyze(ctx, info)
	// Negative defaults sit at the score floor; only genuine analyses
	// (intended range starts at 1) are worth keeping.
	if analysis.ValueScore >= 1 {
		p.analyses.Set(key, analysis)
	}
	entry.Analysis = analysis
	return entry
}

// screenshotResults captures the results surface when configured. Purely
// best-effort diagnostics.
func (p *Pipeline) screenshotResults(page browser.Page) {
	if p.cfg.Market.ScreenshotDir == "" {
		return
	}
	path := filepath.Join(p.cfg.Market.ScreenshotDir,
		fmt.Sprintf("results-%d.png", time.Now().Unix()))
	if err := page.Screenshot(path); err != nil {
		slog.Warn("results screenshot failed", "path", path, "error", err)
		return
	}
	slog.Debug("results screenshot saved", "path", path)
}

// failureDetail converts any error into an entry-level failure marker.
func failureDetail(err error) *models.ErrorDetail {
	var re *models.ResearchError
	if errors.As(err, &re) {
		return re.ToDetail()
	}
	return &models.ErrorDetail{Code: models.ErrCodeExtraction, Message: err.Error()}
}

package research

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelf-labs/scout/browser"
	"github.com/shelf-labs/scout/cache"
	"github.com/shelf-labs/scout/config"
	"github.com/shelf-labs/scout/models"
)

// stubPage satisfies browser.Page for batch tests; the stub collaborators
// below never touch it.
type stubPage struct{}

func (stubPage) Navigate(string) error        { return nil }
func (stubPage) Fill(string, string) error    { return nil }
func (stubPage) Click(string) error           { return nil }
func (stubPage) HTML() (string, error)        { return "", nil }
func (stubPage) WaitSettle(time.Duration)     {}
func (stubPage) Screenshot(string) error      { return nil }

type stubHarvester struct {
	asins []string
	err   error
}

func (s *stubHarvester) Harvest(browser.Page, string) ([]string, error) {
	return s.asins, s.err
}

type stubExtractor struct {
	calls   []string
	failFor map[string]error
}

func (s *stubExtractor) Extract(_ browser.Page, asin string) (*models.ProductInfo, error) {
	s.calls = append(s.calls, asin)
	if err, ok := s.failFor[asin]; ok {
		return nil, err
	}
	return &models.ProductInfo{ASIN: asin, Title: "Product " + asin}, nil
}

type stubAnalyzer struct {
	calls  int
	result *models.ProductAnalysis
}

func (s *stubAnalyzer) Analyze(context.Context, *models.ProductInfo) *models.ProductAnalysis {
	s.calls++
	if s.result != nil {
		return s.result
	}
	return &models.ProductAnalysis{IsPortable: true, IsRechargeable: true, ValueScore: 7, Reasoning: "fine"}
}

func testConfig() *config.Config {
	return &config.Config{
		Market: config.MarketConfig{BaseURL: "https://www.amazon.com", ProductLimit: 3},
		LLM:    config.LLMConfig{Model: "gpt-4o-mini"},
		Cache:  config.CacheConfig{MaxEntries: 100, MaxAge: time.Hour},
	}
}

func newTestPipeline(h *stubHarvester, e *stubExtractor, a *stubAnalyzer, analyses *cache.Cache) *Pipeline {
	cfg := testConfig()
	if analyses == nil {
		analyses = cache.New(cfg.Cache.MaxEntries, 0)
	}
	return &Pipeline{
		cfg:       cfg,
		harvester: h,
		extractor: e,
		analyzer:  a,
		analyses:  analyses,
	}
}

func TestRunBatch_OrderedReport(t *testing.T) {
	h := &stubHarvester{asins: []string{"B0AAAA0001", "B0AAAA0002", "B0AAAA0003"}}
	e := &stubExtractor{}
	a := &stubAnalyzer{}
	p := newTestPipeline(h, e, a, nil)

	report := &models.Report{Query: "water flosser"}
	var timing models.ResearchTimingInfo
	require.NoError(t, p.runBatch(context.Background(), stubPage{}, "water flosser", 3, report, &timing))

	assert.Equal(t, 3, report.Harvested)
	require.Len(t, report.Entries, 3)
	for i, asin := range h.asins {
		assert.Equal(t, asin, report.Entries[i].ASIN, "entries keep harvested order")
		assert.Equal(t, "https://www.amazon.com/dp/"+asin, report.Entries[i].URL)
		assert.NotNil(t, report.Entries[i].Analysis)
		assert.Nil(t, report.Entries[i].Failure)
	}
	assert.Equal(t, 3, a.calls)
}

func TestRunBatch_LimitBoundsProcessing(t *testing.T) {
	h := &stubHarvester{asins: []string{"A1", "A2", "A3", "A4", "A5"}}
	e := &stubExtractor{}
	p := newTestPipeline(h, e, &stubAnalyzer{}, nil)

	report := &models.Report{}
	var timing models.ResearchTimingInfo
	require.NoError(t, p.runBatch(context.Background(), stubPage{}, "q", 3, report, &timing))

	assert.Equal(t, 5, report.Harvested, "harvested count reflects the full scan")
	assert.Equal(t, []string{"A1", "A2", "A3"}, e.calls, "identifiers past the limit never trigger a navigation")
	assert.Len(t, report.Entries, 3)
}

func TestRunBatch_FailureIsolation(t *testing.T) {
	h := &stubHarvester{asins: []string{"A1", "A2", "A3"}}
	e := &stubExtractor{failFor: map[string]error{
		"A2": models.NewResearchError(models.ErrCodeExtraction, "listing not reachable", errors.New("net timeout")),
	}}
	a := &stubAnalyzer{}
	p := newTestPipeline(h, e, a, nil)

	report := &models.Report{}
	var timing models.ResearchTimingInfo
	require.NoError(t, p.runBatch(context.Background(), stubPage{}, "q", 3, report, &timing))

	require.Len(t, report.Entries, 3)

	assert.Nil(t, report.Entries[0].Failure)
	assert.NotNil(t, report.Entries[0].Analysis)

	require.NotNil(t, report.Entries[1].Failure, "a dead listing is marked, not dropped")
	assert.Equal(t, models.ErrCodeExtraction, report.Entries[1].Failure.Code)
	assert.Nil(t, report.Entries[1].Info)
	assert.Nil(t, report.Entries[1].Analysis)

	assert.Nil(t, report.Entries[2].Failure, "the batch continues past a failed item")
	assert.Equal(t, 2, a.calls, "failed extractions never reach the analyzer")
}

func TestRunBatch_HarvestErrorIsFatal(t *testing.T) {
	h := &stubHarvester{err: models.NewResearchError(models.ErrCodeSearch, "search page broke", nil)}
	p := newTestPipeline(h, &stubExtractor{}, &stubAnalyzer{}, nil)

	report := &models.Report{}
	var timing models.ResearchTimingInfo
	err := p.runBatch(context.Background(), stubPage{}, "q", 3, report, &timing)

	var re *models.ResearchError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, models.ErrCodeSearch, re.Code)
	assert.Empty(t, report.Entries)
}

func TestRunBatch_AnalysisCacheHit(t *testing.T) {
	analyses := cache.New(100, time.Hour)
	h := &stubHarvester{asins: []string{"A1"}}
	a := &stubAnalyzer{}
	p := newTestPipeline(h, &stubExtractor{}, a, analyses)

	report := &models.Report{}
	var timing models.ResearchTimingInfo
	require.NoError(t, p.runBatch(context.Background(), stubPage{}, "q", 1, report, &timing))
	assert.Equal(t, 1, a.calls)

	// Same identifier again: the cached analysis is reused.
	report2 := &models.Report{}
	require.NoError(t, p.runBatch(context.Background(), stubPage{}, "q", 1, report2, &timing))
	assert.Equal(t, 1, a.calls, "second run hits the cache")
	require.NotNil(t, report2.Entries[0].Analysis)
	assert.Equal(t, 7.0, report2.Entries[0].Analysis.ValueScore)
}

func TestRunBatch_NegativeDefaultNotCached(t *testing.T) {
	analyses := cache.New(100, time.Hour)
	h := &stubHarvester{asins: []string{"A1"}}
	a := &stubAnalyzer{result: &models.ProductAnalysis{Reasoning: "analysis failed: model unreachable"}}
	p := newTestPipeline(h, &stubExtractor{}, a, analyses)

	report := &models.Report{}
	var timing models.ResearchTimingInfo
	require.NoError(t, p.runBatch(context.Background(), stubPage{}, "q", 1, report, &timing))
	require.NoError(t, p.runBatch(context.Background(), stubPage{}, "q", 1, report, &timing))

	assert.Equal(t, 2, a.calls, "fail-closed defaults are retried, not cached")
}

func TestRunBatch_EmptyHarvest(t *testing.T) {
	h := &stubHarvester{asins: nil}
	p := newTestPipeline(h, &stubExtractor{}, &stubAnalyzer{}, nil)

	report := &models.Report{}
	var timing models.ResearchTimingInfo
	require.NoError(t, p.runBatch(context.Background(), stubPage{}, "obscure query", 3, report, &timing))

	assert.Zero(t, report.Harvested)
	assert.Empty(t, report.Entries, "an empty harvest is a valid, empty report")
}

func TestRun_TotalTimeRecordedOnFailure(t *testing.T) {
	// A session provider with measurable latency, handing out a connect
	// endpoint nothing listens on: Run fails at browser attach, after
	// real time has elapsed.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(30 * time.Millisecond)
		json.NewEncoder(w).Encode(map[string]string{
			"id":         "sess-timing",
			"connectUrl": "ws://127.0.0.1:1",
		})
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.Session = config.SessionConfig{
		BaseURL:       srv.URL,
		APIKey:        "bb-key",
		ProjectID:     "proj-1",
		ReplayBaseURL: "https://browserbase.com/sessions",
	}
	p := New(cfg, nil)

	_, timing, err := p.Run(context.Background(), "q", 3)
	require.Error(t, err)

	assert.GreaterOrEqual(t, timing.SessionMs, int64(30))
	assert.GreaterOrEqual(t, timing.TotalMs, timing.SessionMs,
		"total duration must survive every return path, error returns included")
}

func TestFailureDetail(t *testing.T) {
	re := models.NewResearchError(models.ErrCodeNavigation, "listing gone", nil)
	detail := failureDetail(re)
	assert.Equal(t, models.ErrCodeNavigation, detail.Code)
	assert.Equal(t, "listing gone", detail.Message)

	plain := failureDetail(errors.New("boom"))
	assert.Equal(t, models.ErrCodeExtraction, plain.Code)
	assert.Equal(t, "boom", plain.Message)
}

package prometheus

import (
	"strconv"
	"time"
)

// AppMetrics holds all NeedsFine metric families. It satisfies the metric
// ports of the analysis service, the learner and the lexicon cache.
type AppMetrics struct {
	// HTTP
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec
	HTTPActiveRequests  GaugeVec

	// Scoring
	AnalysesTotal       CounterVec
	AnalysisScore       HistogramVec
	AnalysisTrust       HistogramVec
	AnalysisDuration    HistogramVec
	RecalculatedReviews CounterVec

	// Learning
	TermsMinedTotal        CounterVec
	CandidatesUpdatedTotal CounterVec
	TermsPromotedTotal     CounterVec

	// Caches
	CacheHitsTotal    CounterVec
	CacheMissesTotal  CounterVec
	CacheLoadFailures CounterVec

	// Messaging
	MessagesHandled    CounterVec
	MessageProcessTime HistogramVec

	// System
	BuildInfo         GaugeVec
	HealthCheckStatus GaugeVec
}

var (
	DefaultHTTPDurationBuckets     = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5}
	DefaultAnalysisDurationBuckets = []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25}
	ScoreBuckets                   = []float64{1.5, 2, 2.5, 3, 3.5, 4, 4.5, 4.9}
	TrustBuckets                   = []float64{50, 60, 70, 80, 90, 99}
)

// NewAppMetrics registers every family on collector.
func NewAppMetrics(collector MetricsCollector) *AppMetrics {
	m := &AppMetrics{}

	m.HTTPRequestsTotal = collector.RegisterCounter("http_requests_total", "Total HTTP requests", "method", "route", "status_code")
	m.HTTPRequestDuration = collector.RegisterHistogram("http_request_duration_seconds", "HTTP request duration", DefaultHTTPDurationBuckets, "method", "route")
	m.HTTPActiveRequests = collector.RegisterGauge("http_active_requests", "In-flight HTTP requests", "method")

	m.AnalysesTotal = collector.RegisterCounter("analyses_total", "Reviews scored", "mode")
	m.AnalysisScore = collector.RegisterHistogram("analysis_score", "NeedsFine score distribution", ScoreBuckets, "mode")
	m.AnalysisTrust = collector.RegisterHistogram("analysis_trust_level", "Trust level distribution", TrustBuckets, "mode")
	m.AnalysisDuration = collector.RegisterHistogram("analysis_duration_seconds", "Scoring latency", DefaultAnalysisDurationBuckets, "mode")
	m.RecalculatedReviews = collector.RegisterCounter("recalculated_reviews_total", "Reviews rescored by recalculation", "result")

	m.TermsMinedTotal = collector.RegisterCounter("terms_mined_total", "Term events mined from reviews")
	m.CandidatesUpdatedTotal = collector.RegisterCounter("term_candidates_updated_total", "Term candidates created or updated")
	m.TermsPromotedTotal = collector.RegisterCounter("terms_promoted_total", "Terms promoted into the dynamic lexicon", "source")

	m.CacheHitsTotal = collector.RegisterCounter("cache_hits_total", "Cache hits", "cache")
	m.CacheMissesTotal = collector.RegisterCounter("cache_misses_total", "Cache misses", "cache")
	m.CacheLoadFailures = collector.RegisterCounter("cache_load_failures_total", "Cache loads that fell back to stale or empty data", "cache")

	m.MessagesHandled = collector.RegisterCounter("messages_handled_total", "Consumed records by outcome", "topic", "outcome")
	m.MessageProcessTime = collector.RegisterHistogram("message_process_duration_seconds", "Record handling latency", DefaultHTTPDurationBuckets, "topic")

	m.BuildInfo = collector.RegisterGauge("build_info", "Build and scoring logic version", "version", "logic_version")
	m.HealthCheckStatus = collector.RegisterGauge("health_check_status", "Dependency health (1=up, 0=down)", "component")

	return m
}

// ObserveAnalysis records one scored review under its decision-ladder mode.
func (m *AppMetrics) ObserveAnalysis(mode string, score float64, trust int, elapsed time.Duration) {
	m.AnalysesTotal.WithLabelValues(mode).Inc()
	m.AnalysisScore.WithLabelValues(mode).Observe(score)
	m.AnalysisTrust.WithLabelValues(mode).Observe(float64(trust))
	m.AnalysisDuration.WithLabelValues(mode).Observe(elapsed.Seconds())
}

// ObserveRecalculation records one recalculation run.
func (m *AppMetrics) ObserveRecalculation(succeeded, failed int) {
	m.RecalculatedReviews.WithLabelValues("succeeded").Add(float64(succeeded))
	m.RecalculatedReviews.WithLabelValues("failed").Add(float64(failed))
}

// ObserveMining records one learning pass.
func (m *AppMetrics) ObserveMining(mined, updated, promoted int) {
	m.TermsMinedTotal.WithLabelValues().Add(float64(mined))
	m.CandidatesUpdatedTotal.WithLabelValues().Add(float64(updated))
	m.TermsPromotedTotal.WithLabelValues("auto").Add(float64(promoted))
}

// ObserveManualPromotion records an admin approval.
func (m *AppMetrics) ObserveManualPromotion() {
	m.TermsPromotedTotal.WithLabelValues("manual").Inc()
}

// ObserveMessage records one consumed record.
func (m *AppMetrics) ObserveMessage(topic string, err error, elapsed time.Duration) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.MessagesHandled.WithLabelValues(topic, outcome).Inc()
	m.MessageProcessTime.WithLabelValues(topic).Observe(elapsed.Seconds())
}

// RecordHTTPRequest records a served request. route is the matched pattern,
// not the raw path, to bound label cardinality.
func (m *AppMetrics) RecordHTTPRequest(method, route string, statusCode int, elapsed time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// SetHealth marks component up or down.
func (m *AppMetrics) SetHealth(component string, up bool) {
	v := 0.0
	if up {
		v = 1
	}
	m.HealthCheckStatus.WithLabelValues(component).Set(v)
}

// SetBuildInfo publishes the running versions.
func (m *AppMetrics) SetBuildInfo(version, logicVersion string) {
	m.BuildInfo.WithLabelValues(version, logicVersion).Set(1)
}

// LexiconCacheMetrics adapts AppMetrics to the lexicon cache hooks.
func (m *AppMetrics) LexiconCacheMetrics() *CacheMetrics {
	return &CacheMetrics{app: m, cache: "lexicon"}
}

// CacheMetrics counts accesses for one named cache.
type CacheMetrics struct {
	app   *AppMetrics
	cache string
}

func (c *CacheMetrics) CacheHit()   { c.app.CacheHitsTotal.WithLabelValues(c.cache).Inc() }
func (c *CacheMetrics) CacheMiss()  { c.app.CacheMissesTotal.WithLabelValues(c.cache).Inc() }
func (c *CacheMetrics) LoadFailed() { c.app.CacheLoadFailures.WithLabelValues(c.cache).Inc() }

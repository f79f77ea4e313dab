// Package metrics 提供网关服务的业务指标收集。
package metrics

import (
	"sync"
	"time"

	obs "github.com/kart-io/nyx/pkg/observability/metrics"
)

// DefaultNamespace 全局实例使用的指标前缀。
const DefaultNamespace = "nyx"

// 首个增量耗时分桶（秒）。
var firstDeltaBuckets = []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 16, 30}

// Metrics 网关业务指标。
type Metrics struct {
	registry *obs.Registry

	// 对话指标
	chatTotal         obs.Counter
	chatStreams       obs.Counter
	chatDemo          obs.Counter
	streamsCompleted  obs.Counter
	streamsTruncated  obs.Counter
	streamsSuperseded obs.Counter
	deltasEmitted     obs.Counter
	providerCalls     obs.CounterVec
	providerFailures  obs.CounterVec
	firstDelta        obs.HistogramVec

	// 检索指标
	retrievalTotal     obs.Counter
	retrievalErrors    obs.Counter
	retrievalCacheHits obs.Counter
	retrievalPassages  obs.Counter

	// 入库指标
	documentsIngested   obs.Counter
	chunksCreated       obs.Counter
	embeddingsGenerated obs.Counter
	ingestErrors        obs.Counter
	documentsDeleted    obs.Counter

	// 抓取指标
	scrapeTotal  obs.Counter
	scrapeErrors obs.Counter

	uptime    obs.Gauge
	startTime time.Time
}

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Get 获取全局指标实例。
func Get() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = New(DefaultNamespace)
	})
	return globalMetrics
}

// New 创建独立的指标实例，指标名以 namespace_ 开头。
func New(namespace string) *Metrics {
	p := namespace + "_"
	m := &Metrics{
		registry:  obs.NewRegistry(),
		startTime: time.Now(),
	}

	counter := func(name, help string) obs.Counter {
		c := obs.NewCounter(p+name, help)
		m.registry.Register(c)
		return c
	}
	counterVec := func(name, help string) obs.CounterVec {
		c := obs.NewCounterVec(p+name, help)
		m.registry.Register(c)
		return c
	}

	m.chatTotal = counter("chat_requests_total", "Total number of chat requests.")
	m.chatStreams = counter("chat_streams_total", "Chat requests answered with a stream.")
	m.chatDemo = counter("chat_demo_total", "Chat requests answered in demo mode.")
	m.streamsCompleted = counter("streams_completed_total", "Streams terminated with the sentinel.")
	m.streamsTruncated = counter("streams_truncated_total", "Streams broken by an upstream failure.")
	m.streamsSuperseded = counter("streams_superseded_total", "Streams cancelled by a newer request in the same session.")
	m.deltasEmitted = counter("stream_deltas_total", "Content deltas emitted.")
	m.providerCalls = counterVec("provider_calls_total", "Upstream provider invocations.")
	m.providerFailures = counterVec("provider_failures_total", "Upstream provider invocations that failed before the first delta.")
	m.firstDelta = obs.NewHistogramVec(p+"provider_first_delta_seconds", "Time to first delta of successful invocations.", firstDeltaBuckets)
	m.registry.Register(m.firstDelta)

	m.retrievalTotal = counter("retrieval_total", "Knowledge base retrievals.")
	m.retrievalErrors = counter("retrieval_errors_total", "Retrievals that degraded to no context.")
	m.retrievalCacheHits = counter("retrieval_cache_hits_total", "Retrievals served from the cache.")
	m.retrievalPassages = counter("retrieval_passages_total", "Passages added to prompts.")

	m.documentsIngested = counter("documents_ingested_total", "Documents ingested.")
	m.chunksCreated = counter("chunks_created_total", "Chunks created.")
	m.embeddingsGenerated = counter("embeddings_generated_total", "Chunk embeddings generated.")
	m.ingestErrors = counter("ingest_errors_total", "Ingestions that failed.")
	m.documentsDeleted = counter("documents_deleted_total", "Documents deleted.")

	m.scrapeTotal = counter("scrape_total", "URL extractions.")
	m.scrapeErrors = counter("scrape_errors_total", "URL extractions that failed.")

	m.uptime = obs.NewGauge(p+"uptime_seconds", "Seconds since the process started.")
	m.registry.Register(m.uptime)
	return m
}

// RecordChat 记录一次对话请求，demo 为 true 表示返回了演示回复。
func (m *Metrics) RecordChat(demo bool) {
	m.chatTotal.Inc()
	if demo {
		m.chatDemo.Inc()
	} else {
		m.chatStreams.Inc()
	}
}

// RecordProviderCall 记录一次上游调用（到首个增量或失败为止）。
func (m *Metrics) RecordProviderCall(provider string, duration time.Duration, err error) {
	labels := map[string]string{"provider": provider}
	m.providerCalls.With(labels).Inc()
	if err != nil {
		m.providerFailures.With(labels).Inc()
		return
	}
	m.firstDelta.With(labels).Observe(duration.Seconds())
}

// StreamOutcome 流结束方式。
type StreamOutcome int

const (
	StreamCompleted StreamOutcome = iota
	StreamTruncated
	StreamSuperseded
)

// RecordStream 记录一次流的结束方式与发送的增量数。
func (m *Metrics) RecordStream(outcome StreamOutcome, deltas int) {
	m.deltasEmitted.Add(float64(deltas))
	switch outcome {
	case StreamCompleted:
		m.streamsCompleted.Inc()
	case StreamTruncated:
		m.streamsTruncated.Inc()
	case StreamSuperseded:
		m.streamsSuperseded.Inc()
	}
}

// RecordRetrieval 记录检索。
func (m *Metrics) RecordRetrieval(passages int, cacheHit bool, err error) {
	m.retrievalTotal.Inc()
	if err != nil {
		m.retrievalErrors.Inc()
		return
	}
	if cacheHit {
		m.retrievalCacheHits.Inc()
	}
	m.retrievalPassages.Add(float64(passages))
}

// RecordIngest 记录入库。
func (m *Metrics) RecordIngest(chunks, embeddings int, err error) {
	if err != nil {
		m.ingestErrors.Inc()
		return
	}
	m.documentsIngested.Inc()
	m.chunksCreated.Add(float64(chunks))
	m.embeddingsGenerated.Add(float64(embeddings))
}

// RecordDelete 记录文档删除。
func (m *Metrics) RecordDelete() {
	m.documentsDeleted.Inc()
}

// RecordScrape 记录抓取。
func (m *Metrics) RecordScrape(err error) {
	m.scrapeTotal.Inc()
	if err != nil {
		m.scrapeErrors.Inc()
	}
}

// Snapshot 指标快照，测试与调试使用。
type Snapshot struct {
	ChatTotal           uint64
	ChatStreams         uint64
	ChatDemo            uint64
	StreamsCompleted    uint64
	StreamsTruncated    uint64
	StreamsSuperseded   uint64
	RetrievalTotal      uint64
	RetrievalErrors     uint64
	RetrievalCacheHits  uint64
	DocumentsIngested   uint64
	ChunksCreated       uint64
	EmbeddingsGenerated uint64
	IngestErrors        uint64
	ScrapeTotal         uint64
	ScrapeErrors        uint64
}

func count(c obs.Counter) uint64 {
	return uint64(c.Get())
}

// Snapshot 返回当前计数。
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		ChatTotal:           count(m.chatTotal),
		ChatStreams:         count(m.chatStreams),
		ChatDemo:            count(m.chatDemo),
		StreamsCompleted:    count(m.streamsCompleted),
		StreamsTruncated:    count(m.streamsTruncated),
		StreamsSuperseded:   count(m.streamsSuperseded),
		RetrievalTotal:      count(m.retrievalTotal),
		RetrievalErrors:     count(m.retrievalErrors),
		RetrievalCacheHits:  count(m.retrievalCacheHits),
		DocumentsIngested:   count(m.documentsIngested),
		ChunksCreated:       count(m.chunksCreated),
		EmbeddingsGenerated: count(m.embeddingsGenerated),
		IngestErrors:        count(m.ingestErrors),
		ScrapeTotal:         count(m.scrapeTotal),
		ScrapeErrors:        count(m.scrapeErrors),
	}
}

// Export 导出 Prometheus 文本格式指标。
func (m *Metrics) Export() string {
	m.uptime.Set(time.Since(m.startTime).Seconds())
	return m.registry.Export()
}

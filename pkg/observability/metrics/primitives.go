package metrics

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

type baseMetric struct {
	name string
	help string
	typ  MetricType
}

func (m *baseMetric) Name() string     { return m.name }
func (m *baseMetric) Help() string     { return m.help }
func (m *baseMetric) Type() MetricType { return m.typ }

func (m *baseMetric) header(sb *strings.Builder) {
	fmt.Fprintf(sb, "# HELP %s %s\n", m.name, m.help)
	fmt.Fprintf(sb, "# TYPE %s %s\n", m.name, m.typ)
}

// atomicFloat 以 uint64 位模式保存的 float64。
type atomicFloat struct {
	bits uint64
}

func (f *atomicFloat) add(v float64) {
	for {
		old := atomic.LoadUint64(&f.bits)
		next := math.Float64bits(math.Float64frombits(old) + v)
		if atomic.CompareAndSwapUint64(&f.bits, old, next) {
			return
		}
	}
}

func (f *atomicFloat) set(v float64) {
	atomic.StoreUint64(&f.bits, math.Float64bits(v))
}

func (f *atomicFloat) get() float64 {
	return math.Float64frombits(atomic.LoadUint64(&f.bits))
}

type counter struct {
	baseMetric
	val atomicFloat
}

// NewCounter creates a counter.
func NewCounter(name, help string) Counter {
	return &counter{baseMetric: baseMetric{name: name, help: help, typ: TypeCounter}}
}

func (c *counter) Inc() { c.Add(1) }

func (c *counter) Add(v float64) {
	if v < 0 {
		return
	}
	c.val.add(v)
}

func (c *counter) Get() float64 { return c.val.get() }

func (c *counter) Describe() string {
	var sb strings.Builder
	c.header(&sb)
	fmt.Fprintf(&sb, "%s %.6f\n", c.name, c.Get())
	return sb.String()
}

type gauge struct {
	baseMetric
	val atomicFloat
}

// NewGauge creates a gauge.
func NewGauge(name, help string) Gauge {
	return &gauge{baseMetric: baseMetric{name: name, help: help, typ: TypeGauge}}
}

func (g *gauge) Set(v float64) { g.val.set(v) }
func (g *gauge) Inc()          { g.val.add(1) }
func (g *gauge) Dec()          { g.val.add(-1) }
func (g *gauge) Add(v float64) { g.val.add(v) }
func (g *gauge) Sub(v float64) { g.val.add(-v) }
func (g *gauge) Get() float64  { return g.val.get() }

func (g *gauge) Describe() string {
	var sb strings.Builder
	g.header(&sb)
	fmt.Fprintf(&sb, "%s %.6f\n", g.name, g.Get())
	return sb.String()
}

// DefaultBuckets 未指定分桶时使用（秒）。
var DefaultBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

type histogram struct {
	baseMetric
	mu      sync.RWMutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

// NewHistogram creates a histogram. buckets 会被复制并排序。
func NewHistogram(name, help string, buckets []float64) Histogram {
	return newHistogram(name, help, buckets)
}

func newHistogram(name, help string, buckets []float64) *histogram {
	if len(buckets) == 0 {
		buckets = DefaultBuckets
	}
	buckets = append([]float64(nil), buckets...)
	sort.Float64s(buckets)
	return &histogram{
		baseMetric: baseMetric{name: name, help: help, typ: TypeHistogram},
		buckets:    buckets,
		counts:     make([]uint64, len(buckets)),
	}
}

func (h *histogram) Observe(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += v
	for i, upper := range h.buckets {
		if v <= upper {
			h.counts[i]++
		}
	}
}

// writeSeries 输出分桶、sum 与 count。labels 为 `k="v",...` 形式，可为空。
func (h *histogram) writeSeries(sb *strings.Builder, name, labels string) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	sep := ""
	if labels != "" {
		sep = ","
	}
	for i, upper := range h.buckets {
		fmt.Fprintf(sb, "%s_bucket{le=\"%.6g\"%s%s} %d\n", name, upper, sep, labels, h.counts[i])
	}
	fmt.Fprintf(sb, "%s_bucket{le=\"+Inf\"%s%s} %d\n", name, sep, labels, h.count)

	suffix := ""
	if labels != "" {
		suffix = "{" + labels + "}"
	}
	fmt.Fprintf(sb, "%s_sum%s %.6f\n", name, suffix, h.sum)
	fmt.Fprintf(sb, "%s_count%s %d\n", name, suffix, h.count)
}

func (h *histogram) Describe() string {
	var sb strings.Builder
	h.header(&sb)
	h.writeSeries(&sb, h.name, "")
	return sb.String()
}

// formatLabels 按键排序输出 `k="v",...`，值按 Go 字符串转义。
func formatLabels(labels map[string]string) string {
	pairs := make([]string, 0, len(labels))
	for k, v := range labels {
		pairs = append(pairs, fmt.Sprintf("%s=%q", k, v))
	}
	sort.Strings(pairs)
	return strings.Join(pairs, ",")
}

// sortedKeys 返回 sync.Map 中的字符串键。
func sortedKeys(m *sync.Map) []string {
	var keys []string
	m.Range(func(k, _ any) bool {
		keys = append(keys, k.(string))
		return true
	})
	sort.Strings(keys)
	return keys
}

type counterVec struct {
	baseMetric
	series sync.Map // labels -> *counter
}

// NewCounterVec creates a labeled counter family.
func NewCounterVec(name, help string) CounterVec {
	return &counterVec{baseMetric: baseMetric{name: name, help: help, typ: TypeCounter}}
}

func (v *counterVec) WithLabels(labels map[string]string) Metric {
	return v.With(labels)
}

func (v *counterVec) With(labels map[string]string) Counter {
	key := formatLabels(labels)
	if c, ok := v.series.Load(key); ok {
		return c.(*counter)
	}
	c, _ := v.series.LoadOrStore(key, NewCounter(v.name, v.help))
	return c.(*counter)
}

func (v *counterVec) Describe() string {
	var sb strings.Builder
	v.header(&sb)
	for _, key := range sortedKeys(&v.series) {
		c, _ := v.series.Load(key)
		fmt.Fprintf(&sb, "%s{%s} %.6f\n", v.name, key, c.(*counter).Get())
	}
	return sb.String()
}

type histogramVec struct {
	baseMetric
	buckets []float64
	series  sync.Map // labels -> *histogram
}

// NewHistogramVec creates a labeled histogram family.
func NewHistogramVec(name, help string, buckets []float64) HistogramVec {
	return &histogramVec{
		baseMetric: baseMetric{name: name, help: help, typ: TypeHistogram},
		buckets:    buckets,
	}
}

func (v *histogramVec) WithLabels(labels map[string]string) Metric {
	return v.With(labels)
}

func (v *histogramVec) With(labels map[string]string) Histogram {
	key := formatLabels(labels)
	if h, ok := v.series.Load(key); ok {
		return h.(*histogram)
	}
	h, _ := v.series.LoadOrStore(key, newHistogram(v.name, v.help, v.buckets))
	return h.(*histogram)
}

func (v *histogramVec) Describe() string {
	var sb strings.Builder
	v.header(&sb)
	for _, key := range sortedKeys(&v.series) {
		h, _ := v.series.Load(key)
		h.(*histogram).writeSeries(&sb, v.name, key)
	}
	return sb.String()
}

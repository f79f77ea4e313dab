// Package metrics 提供以 Prometheus 文本格式导出的计数器、仪表与直方图。
package metrics

// MetricType is the Prometheus TYPE of a metric.
type MetricType string

const (
	TypeCounter   MetricType = "counter"
	TypeGauge     MetricType = "gauge"
	TypeHistogram MetricType = "histogram"
)

// Metric is the base interface for all metrics.
type Metric interface {
	Name() string
	Help() string
	Type() MetricType
	// Describe 返回 Prometheus 文本格式，包含 HELP 与 TYPE 行。
	Describe() string
}

// Counter 单调递增，负增量被忽略。
type Counter interface {
	Metric
	Inc()
	Add(float64)
	Get() float64
}

// Gauge 可增可减的当前值。
type Gauge interface {
	Metric
	Set(float64)
	Inc()
	Dec()
	Add(float64)
	Sub(float64)
	Get() float64
}

// Histogram 按分桶统计观测值。
type Histogram interface {
	Metric
	Observe(float64)
}

// Vector 同名、按标签区分的一组指标。
type Vector interface {
	Metric
	WithLabels(labels map[string]string) Metric
}

// CounterVec is a vector of counters.
type CounterVec interface {
	Vector
	With(labels map[string]string) Counter
}

// HistogramVec is a vector of histograms.
type HistogramVec interface {
	Vector
	With(labels map[string]string) Histogram
}

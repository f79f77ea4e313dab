package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCounter(t *testing.T) {
	c := NewCounter("chat_requests_total", "Chat requests")
	assert.Equal(t, "chat_requests_total", c.Name())
	assert.Equal(t, TypeCounter, c.Type())

	c.Inc()
	c.Add(5)
	c.Add(-3)
	assert.Equal(t, float64(6), c.Get())
}

func TestGauge(t *testing.T) {
	g := NewGauge("uptime_seconds", "Uptime")

	g.Set(10)
	g.Inc()
	g.Dec()
	g.Sub(5)
	assert.Equal(t, float64(5), g.Get())
}

func TestHistogram(t *testing.T) {
	buckets := []float64{10, 1, 5}
	h := NewHistogram("first_delta_seconds", "First delta", buckets)

	h.Observe(2)
	h.Observe(7)
	h.Observe(12)

	desc := h.Describe()
	assert.Contains(t, desc, `first_delta_seconds_bucket{le="1"} 0`)
	assert.Contains(t, desc, `first_delta_seconds_bucket{le="5"} 1`)
	assert.Contains(t, desc, `first_delta_seconds_bucket{le="10"} 2`)
	assert.Contains(t, desc, `first_delta_seconds_bucket{le="+Inf"} 3`)
	assert.Contains(t, desc, "first_delta_seconds_count 3")
	assert.Equal(t, []float64{10, 1, 5}, buckets)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	c := NewCounter("scrape_total", "help")
	r.Register(c)
	c.Inc()

	out := r.Export()
	assert.Contains(t, out, "# HELP scrape_total help")
	assert.Contains(t, out, "scrape_total 1")

	r.Reset()
	assert.Empty(t, r.Export())
}

func TestVectors(t *testing.T) {
	cv := NewCounterVec("provider_calls_total", "Provider calls")
	cv.With(map[string]string{"provider": "openai"}).Inc()
	cv.With(map[string]string{"provider": "gemini"}).Add(2)
	cv.With(map[string]string{"provider": `a"b`}).Inc()

	out := cv.Describe()
	assert.Contains(t, out, `provider_calls_total{provider="openai"} 1`)
	assert.Contains(t, out, `provider_calls_total{provider="gemini"} 2`)
	assert.Contains(t, out, `provider_calls_total{provider="a\"b"} 1`)

	hv := NewHistogramVec("latency_seconds", "Latency", []float64{1})
	hv.With(map[string]string{"provider": "openai"}).Observe(0.5)
	out = hv.Describe()
	assert.Contains(t, out, `latency_seconds_bucket{le="1",provider="openai"} 1`)
	assert.Contains(t, out, `latency_seconds_count{provider="openai"} 1`)
}

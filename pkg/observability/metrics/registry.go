package metrics

import (
	"sort"
	"strings"
	"sync"
)

// Registry 按名称保存指标，导出时按名称排序。
type Registry struct {
	metrics sync.Map // name -> Metric
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register 注册指标，同名指标被替换。
func (r *Registry) Register(m Metric) {
	r.metrics.Store(m.Name(), m)
}

// Unregister removes a metric from the registry.
func (r *Registry) Unregister(name string) {
	r.metrics.Delete(name)
}

// Reset clears all metrics from the registry.
func (r *Registry) Reset() {
	r.metrics.Clear()
}

// Export returns all metrics in Prometheus text format.
func (r *Registry) Export() string {
	var names []string
	r.metrics.Range(func(key, _ any) bool {
		names = append(names, key.(string))
		return true
	})
	sort.Strings(names)

	var sb strings.Builder
	for _, name := range names {
		if val, ok := r.metrics.Load(name); ok {
			sb.WriteString(val.(Metric).Describe())
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

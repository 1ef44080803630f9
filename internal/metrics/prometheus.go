package metrics

import (
	"net/http"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace prefixes every exported metric name.
const Namespace = "webbaby"

// Collector exposes a Registry to Prometheus. Metric names are dynamic, so it
// is an unchecked collector: Describe sends nothing.
type Collector struct {
	reg *Registry
}

func NewCollector(reg *Registry) *Collector {
	return &Collector{reg: reg}
}

func (c *Collector) Describe(chan<- *prometheus.Desc) {}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	snap := c.reg.Snapshot()

	for _, name := range sortedKeys(snap.Counters) {
		desc := prometheus.NewDesc(promName(name)+"_total", "Counter "+name, nil, nil)
		ch <- prometheus.MustNewConstMetric(desc, prometheus.CounterValue, float64(snap.Counters[name]))
	}
	for _, name := range sortedKeys(snap.Gauges) {
		desc := prometheus.NewDesc(promName(name), "Gauge "+name, nil, nil)
		ch <- prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, snap.Gauges[name])
	}
	for _, name := range sortedKeys(snap.Timers) {
		t := snap.Timers[name]
		desc := prometheus.NewDesc(promName(name)+"_seconds", "Timer "+name, nil, nil)
		ch <- prometheus.MustNewConstSummary(desc, uint64(t.Count), t.Sum, nil)
	}
}

// Handler returns a /metrics handler serving the registry plus Go runtime metrics.
func Handler(reg *Registry) http.Handler {
	pr := prometheus.NewRegistry()
	pr.MustRegister(NewCollector(reg))
	pr.MustRegister(collectors.NewGoCollector())
	return promhttp.HandlerFor(pr, promhttp.HandlerOpts{})
}

// promName maps "rss.sources_ok" to "webbaby_rss_sources_ok".
func promName(name string) string {
	var b strings.Builder
	b.Grow(len(Namespace) + 1 + len(name))
	b.WriteString(Namespace)
	b.WriteByte('_')
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

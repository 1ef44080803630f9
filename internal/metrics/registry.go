// Package metrics holds the process-wide observability counters.
//
// A Registry is created once at startup and handed to every component that
// wants to count things. All methods are safe for concurrent use and a nil
// *Registry is a valid no-op receiver, so components can be built without one.
package metrics

import (
	"sync"
	"time"
)

// Registry is a mutex-guarded set of counters, gauges and timers.
type Registry struct {
	mu       sync.Mutex
	counters map[string]int64
	gauges   map[string]float64
	timers   map[string]*timerStat
}

type timerStat struct {
	count int64
	sum   float64
	min   float64
	max   float64
}

// TimerSnapshot is the aggregated view of one timer, in seconds.
type TimerSnapshot struct {
	Count int64   `json:"count"`
	Sum   float64 `json:"sum"`
	Avg   float64 `json:"avg"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

// Snapshot is a point-in-time copy of every metric.
type Snapshot struct {
	Counters map[string]int64         `json:"counters"`
	Gauges   map[string]float64       `json:"gauges"`
	Timers   map[string]TimerSnapshot `json:"timers"`
}

func NewRegistry() *Registry {
	return &Registry{
		counters: make(map[string]int64),
		gauges:   make(map[string]float64),
		timers:   make(map[string]*timerStat),
	}
}

// Inc increments a counter by one.
func (r *Registry) Inc(name string) { r.Add(name, 1) }

// Add increments a counter by n.
func (r *Registry) Add(name string, n int64) {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.counters[name] += n
	r.mu.Unlock()
}

// Get returns the current value of a counter (0 when unknown).
func (r *Registry) Get(name string) int64 {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counters[name]
}

func (r *Registry) SetGauge(name string, v float64) {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.gauges[name] = v
	r.mu.Unlock()
}

func (r *Registry) Gauge(name string) float64 {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.gauges[name]
}

// Observe records one duration sample for a timer.
func (r *Registry) Observe(name string, d time.Duration) {
	if r == nil {
		return
	}
	sec := d.Seconds()

	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.timers[name]
	if !ok {
		r.timers[name] = &timerStat{count: 1, sum: sec, min: sec, max: sec}
		return
	}
	t.count++
	t.sum += sec
	if sec < t.min {
		t.min = sec
	}
	if sec > t.max {
		t.max = sec
	}
}

// Time starts a timer and returns the function that stops it.
//
//	defer m.Time("rss.fetch")()
func (r *Registry) Time(name string) func() {
	start := time.Now()
	return func() { r.Observe(name, time.Since(start)) }
}

// Snapshot copies every metric under the lock.
func (r *Registry) Snapshot() Snapshot {
	s := Snapshot{
		Counters: map[string]int64{},
		Gauges:   map[string]float64{},
		Timers:   map[string]TimerSnapshot{},
	}
	if r == nil {
		return s
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for k, v := range r.counters {
		s.Counters[k] = v
	}
	for k, v := range r.gauges {
		s.Gauges[k] = v
	}
	for k, t := range r.timers {
		var avg float64
		if t.count > 0 {
			avg = t.sum / float64(t.count)
		}
		s.Timers[k] = TimerSnapshot{Count: t.count, Sum: t.sum, Avg: avg, Min: t.min, Max: t.max}
	}
	return s
}

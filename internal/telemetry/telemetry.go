package telemetry

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Collector accumulates in-process counters and timers for one CLI
// invocation. When disabled every call is a no-op.
type Collector struct {
	mu       sync.Mutex
	enabled  bool
	counters map[string]float64
	timers   map[string]time.Duration
}

// NewCollector creates a collector.
func NewCollector(enabled bool) *Collector {
	return &Collector{
		enabled:  enabled,
		counters: map[string]float64{},
		timers:   map[string]time.Duration{},
	}
}

// Counter adds value to the named counter.
func (c *Collector) Counter(name string, value float64) {
	if !c.enabled {
		return
	}
	c.mu.Lock()
	c.counters[name] += value
	c.mu.Unlock()
}

// Timer accumulates a duration under name.
func (c *Collector) Timer(name string, d time.Duration) {
	if !c.enabled {
		return
	}
	c.mu.Lock()
	c.timers[name] += d
	c.mu.Unlock()
}

// Flush logs everything collected so far and resets the collector.
func (c *Collector) Flush() {
	if !c.enabled {
		return
	}
	c.mu.Lock()
	counters := c.counters
	timers := c.timers
	c.counters = map[string]float64{}
	c.timers = map[string]time.Duration{}
	c.mu.Unlock()

	for name, value := range counters {
		log.Info().Str("name", name).Float64("value", value).Msg("telemetry_counter")
	}
	for name, d := range timers {
		log.Info().Str("name", name).Dur("total", d).Msg("telemetry_timer")
	}
}

// Global collector instance
var globalCollector *Collector

// InitGlobal initializes the global telemetry collector
func InitGlobal(enabled bool) {
	globalCollector = NewCollector(enabled)
}

// GetGlobal returns the global collector
func GetGlobal() *Collector {
	if globalCollector == nil {
		globalCollector = NewCollector(false)
	}
	return globalCollector
}

// CounterGlobal increments a counter using the global collector
func CounterGlobal(name string, value float64) {
	GetGlobal().Counter(name, value)
}

// TimerGlobal records a timer using the global collector
func TimerGlobal(name string, d time.Duration) {
	GetGlobal().Timer(name, d)
}

// Shutdown flushes the global collector
func Shutdown() {
	if globalCollector != nil {
		globalCollector.Flush()
	}
}

package services

import (
	"runtime"
	"time"

	"github.com/shopspring/decimal"
)

// PerformanceTimeLayout formats the report timestamp with milliseconds.
const PerformanceTimeLayout = "2006-01-02 15:04:05.000"

var bytesPerMB = decimal.NewFromInt(1024 * 1024)

// Performance is a snapshot of the running process.
type Performance struct {
	Time    string `json:"time"`
	Memory  string `json:"memory"`
	Threads int    `json:"threads"`
}

// PerformanceReporter samples process metrics. Now is overridable in tests.
type PerformanceReporter struct {
	Now func() time.Time
}

// NewPerformanceReporter returns a reporter using the wall clock.
func NewPerformanceReporter() *PerformanceReporter {
	return &PerformanceReporter{Now: time.Now}
}

// Report returns the current time, heap in use and goroutine count.
func (r *PerformanceReporter) Report() Performance {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return Performance{
		Time:    r.Now().Format(PerformanceTimeLayout),
		Memory:  FormatMemory(m.HeapInuse),
		Threads: runtime.NumGoroutine(),
	}
}

// FormatMemory renders a byte count as megabytes with two places.
func FormatMemory(bytes uint64) string {
	mb := decimal.NewFromUint64(bytes).Div(bytesPerMB)
	return mb.StringFixed(2) + " MB"
}

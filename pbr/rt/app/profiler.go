package app

import (
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/gekko3d/lumen/pbr/rt/frame"
)

// Profiler keeps the last duration of each named CPU scope and the counters
// of the last drawn frame.
type Profiler struct {
	Scopes     map[string]time.Duration
	StartTimes map[string]time.Time
	Counts     map[string]int
	Order      []string
}

func NewProfiler() *Profiler {
	return &Profiler{
		Scopes:     make(map[string]time.Duration),
		StartTimes: make(map[string]time.Time),
		Counts:     make(map[string]int),
	}
}

func (p *Profiler) BeginScope(name string) {
	p.StartTimes[name] = time.Now()
	if !slices.Contains(p.Order, name) {
		p.Order = append(p.Order, name)
	}
}

func (p *Profiler) EndScope(name string) {
	if start, ok := p.StartTimes[name]; ok {
		p.Scopes[name] = time.Since(start)
	}
}

// Record copies the submission counters of a frame.
func (p *Profiler) Record(st frame.Stats) {
	p.Counts["Deferred"] = st.Deferred
	p.Counts["Forward"] = st.Forward
	p.Counts["Culled"] = st.Culled
	p.Counts["Skipped"] = st.Skipped
}

func (p *Profiler) GetStatsString() string {
	var sb strings.Builder

	sb.WriteString("Timings (CPU):\n")
	for _, name := range p.Order {
		ms := float64(p.Scopes[name].Microseconds()) / 1000.0
		fmt.Fprintf(&sb, "  %-10s: %.2f ms\n", name, ms)
	}

	sb.WriteString("Submissions:\n")
	keys := make([]string, 0, len(p.Counts))
	for k := range p.Counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&sb, "  %-10s: %d\n", k, p.Counts[k])
	}
	return sb.String()
}

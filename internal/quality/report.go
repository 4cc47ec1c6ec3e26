package quality

import (
	"fmt"
	"time"

	"github.com/leapstack-labs/silverline/pkg/core"
)

// DefaultMaxQuarantineRate is the quarantine rate above which a source is
// reported as breaching its threshold.
const DefaultMaxQuarantineRate = 0.2

// Totals are the sums over all sources.
type Totals struct {
	Total        int     `json:"total"`
	Valid        int     `json:"valid"`
	Quarantined  int     `json:"quarantined"`
	Deduplicated int     `json:"deduplicated"`
	Orphaned     int     `json:"orphaned"`
	Nullified    int     `json:"nullified"`
	PassRate     float64 `json:"pass_rate"`
}

// Breach is a source whose quarantine rate exceeded the configured maximum.
type Breach struct {
	Source string  `json:"source"`
	Rate   float64 `json:"rate"`
	Max    float64 `json:"max"`
}

func (b Breach) String() string {
	return fmt.Sprintf("%s: quarantine rate %.1f%% exceeds %.1f%%", b.Source, b.Rate*100, b.Max*100)
}

// Report is the quality report of one run.
type Report struct {
	ReferenceTime  string                 `json:"reference_time"`
	Sources        []SourceStats          `json:"sources"`
	Totals         Totals                 `json:"totals"`
	ErrorHistogram map[core.ErrorKind]int `json:"error_histogram"`
	FailedSources  []string               `json:"failed_sources"`
	Breaches       []Breach               `json:"threshold_breaches"`
}

// Options control report derivation.
type Options struct {
	ReferenceTime time.Time
	// MaxQuarantineRate is the breach threshold; zero disables breach checks.
	MaxQuarantineRate float64
}

// Report derives the report from everything observed so far.
// The result depends only on the observations and opts.
func (c *Collector) Report(opts Options) *Report {
	c.mu.Lock()
	defer c.mu.Unlock()

	r := &Report{
		Sources:        make([]SourceStats, 0, len(c.order)),
		ErrorHistogram: make(map[core.ErrorKind]int, len(core.AllErrorKinds)),
		FailedSources:  []string{},
		Breaches:       []Breach{},
	}
	if !opts.ReferenceTime.IsZero() {
		r.ReferenceTime = opts.ReferenceTime.UTC().Format(time.RFC3339)
	}
	for _, kind := range core.AllErrorKinds {
		r.ErrorHistogram[kind] = 0
	}

	for _, name := range c.order {
		s := c.stats[name].clone()
		s.PassRate = rate(s.Valid, s.Total)

		r.Totals.Total += s.Total
		r.Totals.Valid += s.Valid
		r.Totals.Quarantined += s.Quarantined
		r.Totals.Deduplicated += s.Deduplicated
		r.Totals.Orphaned += s.Orphaned
		r.Totals.Nullified += s.NullifiedTotal()
		for kind, n := range s.ErrorCounts {
			r.ErrorHistogram[kind] += n
		}

		if s.Failed {
			r.FailedSources = append(r.FailedSources, s.Source)
		}
		if opts.MaxQuarantineRate > 0 && s.Total > 0 {
			if qr := rate(s.Quarantined, s.Total); qr > opts.MaxQuarantineRate {
				r.Breaches = append(r.Breaches, Breach{Source: s.Source, Rate: qr, Max: opts.MaxQuarantineRate})
			}
		}

		r.Sources = append(r.Sources, s)
	}
	r.Totals.PassRate = rate(r.Totals.Valid, r.Totals.Total)

	return r
}

// Source returns the stats of a named source.
func (r *Report) Source(name string) (SourceStats, bool) {
	for _, s := range r.Sources {
		if s.Source == name {
			return s, true
		}
	}
	return SourceStats{}, false
}

// HasFailures reports whether any source failed.
func (r *Report) HasFailures() bool {
	return len(r.FailedSources) > 0
}

func rate(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total)
}

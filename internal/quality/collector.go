// Package quality aggregates per-source and global statistics from the
// outcomes observed during a run, and renders them as JSON, Markdown, or a
// terminal table.
package quality

import (
	"sync"

	"github.com/leapstack-labs/silverline/pkg/core"
)

// SourceStats are the observed counts of one source.
type SourceStats struct {
	Source       string `json:"source"`
	Position     int    `json:"position"`
	Total        int    `json:"total"`
	Valid        int    `json:"valid"`
	Quarantined  int    `json:"quarantined"`
	Deduplicated int    `json:"deduplicated"`
	// Orphaned counts records with at least one referential integrity failure.
	Orphaned int `json:"orphaned"`
	// Nullified counts fields set to null by a null_and_keep policy, per field.
	Nullified map[string]int `json:"nullified"`
	// FieldsCleaned counts values changed by cleaning, per field.
	FieldsCleaned map[string]int         `json:"fields_cleaned"`
	ErrorCounts   map[core.ErrorKind]int `json:"error_counts"`
	PassRate      float64                `json:"pass_rate"`
	Failed        bool                   `json:"failed"`
	Error         string                 `json:"error,omitempty"`
}

// NullifiedTotal returns the number of nulled fields across all fields.
func (s *SourceStats) NullifiedTotal() int {
	n := 0
	for _, c := range s.Nullified {
		n += c
	}
	return n
}

// Balanced reports whether every input record is accounted for.
func (s *SourceStats) Balanced() bool {
	return s.Valid+s.Quarantined+s.Deduplicated == s.Total
}

// Collector accumulates statistics while a run progresses. Sources appear in
// the report in the order they were first observed.
type Collector struct {
	mu    sync.Mutex
	order []string
	stats map[string]*SourceStats
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{stats: make(map[string]*SourceStats)}
}

func (c *Collector) source(name string) *SourceStats {
	s, ok := c.stats[name]
	if !ok {
		s = &SourceStats{
			Source:        name,
			Position:      len(c.order),
			Nullified:     make(map[string]int),
			FieldsCleaned: make(map[string]int),
			ErrorCounts:   make(map[core.ErrorKind]int),
		}
		c.stats[name] = s
		c.order = append(c.order, name)
	}
	return s
}

// Loaded records the number of input records of a source.
func (c *Collector) Loaded(source string, total int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.source(source).Total = total
}

// Cleaned adds per-field cleaning counts.
func (c *Collector) Cleaned(source string, counts map[string]int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.source(source)
	for field, n := range counts {
		s.FieldsCleaned[field] += n
	}
}

// Deduplicated records dropped duplicates.
func (c *Collector) Deduplicated(source string, dropped int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.source(source).Deduplicated += dropped
}

// Valid records a record that reached the Silver dataset, with the failures
// that were resolved by nulling a field.
func (c *Collector) Valid(source string, nullified []core.ValidationError) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.source(source)
	s.Valid++
	for _, n := range nullified {
		s.Nullified[n.Field]++
	}
}

// Quarantined records a rejected record with its errors.
func (c *Collector) Quarantined(source string, errs []core.ValidationError) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.source(source)
	s.Quarantined++

	orphaned := false
	for _, e := range errs {
		s.ErrorCounts[e.Kind]++
		if e.Kind == core.ErrReferentialIntegrity {
			orphaned = true
		}
	}
	if orphaned {
		s.Orphaned++
	}
}

// Discard drops the classification of a source's records, keeping the number
// loaded. Used when the outputs of a classified source could not be written.
func (c *Collector) Discard(source string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.source(source)
	s.Valid = 0
	s.Quarantined = 0
	s.Deduplicated = 0
	s.Orphaned = 0
	s.Nullified = make(map[string]int)
	s.ErrorCounts = make(map[core.ErrorKind]int)
}

// Failed marks a source as failed. Counts observed so far are kept.
func (c *Collector) Failed(source string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.source(source)
	s.Failed = true
	if err != nil {
		s.Error = err.Error()
	}
}

// Stats returns a copy of one source's statistics.
func (c *Collector) Stats(source string) (SourceStats, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.stats[source]
	if !ok {
		return SourceStats{}, false
	}
	return s.clone(), true
}

func (s *SourceStats) clone() SourceStats {
	out := *s
	out.Nullified = copyCounts(s.Nullified)
	out.FieldsCleaned = copyCounts(s.FieldsCleaned)
	out.ErrorCounts = make(map[core.ErrorKind]int, len(s.ErrorCounts))
	for k, v := range s.ErrorCounts {
		out.ErrorCounts[k] = v
	}
	return out
}

func copyCounts(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

package http

import (
	"context"
	"slices"
	"sync"

	"github.com/couchcryptid/weather-stats/internal/domain"
)

// Reports keeps the year reports finished during the current run so they can
// be inspected while the batch is still going. It implements
// pipeline.ReportLoader.
type Reports struct {
	mu      sync.RWMutex
	reports map[int]domain.YearReport
}

// NewReports creates an empty report store.
func NewReports() *Reports {
	return &Reports{reports: make(map[int]domain.YearReport)}
}

// LoadReport stores r, replacing any earlier report for the same year.
func (s *Reports) LoadReport(_ context.Context, r domain.YearReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports[r.Year] = r
	return nil
}

// Get returns the report for year.
func (s *Reports) Get(year int) (domain.YearReport, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reports[year]
	return r, ok
}

// All returns every stored report ordered by year.
func (s *Reports) All() []domain.YearReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.YearReport, 0, len(s.reports))
	for _, r := range s.reports {
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b domain.YearReport) int { return a.Year - b.Year })
	return out
}

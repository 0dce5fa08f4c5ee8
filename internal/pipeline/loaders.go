package pipeline

import (
	"context"

	"github.com/couchcryptid/weather-stats/internal/domain"
)

// Loaders fans a report out to several sinks in order, stopping at the
// first failure.
type Loaders []ReportLoader

// LoadReport implements ReportLoader.
func (ls Loaders) LoadReport(ctx context.Context, r domain.YearReport) error {
	for _, l := range ls {
		if err := l.LoadReport(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

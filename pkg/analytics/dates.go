package analytics

import (
	"time"

	"github.com/adfharrison1/go-analytics/pkg/aggregation"
	"github.com/adfharrison1/go-analytics/pkg/domain"
)

// DateRange is an inclusive time window.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// ParseDateRange parses both bounds. Missing or unparsable bounds and a
// start after the end are validation errors. A date-only end bound means
// midnight of that day.
func ParseDateRange(start, end string) (DateRange, error) {
	if start == "" || end == "" {
		return DateRange{}, domain.Validation("startDate and endDate are required")
	}
	from, err := domain.ParseTime(start)
	if err != nil {
		return DateRange{}, domain.Validation("invalid startDate %q", start)
	}
	to, err := domain.ParseTime(end)
	if err != nil {
		return DateRange{}, domain.Validation("invalid endDate %q", end)
	}
	if from.After(to) {
		return DateRange{}, domain.Validation("startDate %s is after endDate %s", start, end)
	}
	return DateRange{Start: from, End: to}, nil
}

// Contains reports whether t lies within the range.
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// Match returns a stage keeping documents whose field lies within the range.
func (r DateRange) Match(field string) aggregation.Match {
	return aggregation.Where(
		aggregation.Gte(field, r.Start),
		aggregation.Lte(field, r.End),
	)
}

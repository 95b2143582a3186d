package convert

import (
	"fmt"
	"time"
)

// SetSummary counts job outcomes for one set.
type SetSummary struct {
	Name string

	Converted int
	Skipped   int // existing destinations, duplicates and jobs never attempted
	Failed    int
	Planned   int // dry run only

	// Errors holds one error per failed job, in order.
	Errors []error
}

func (s *SetSummary) String() string {
	if s.Planned > 0 {
		return fmt.Sprintf("%d planned, %d skipped, %d failed", s.Planned, s.Skipped, s.Failed)
	}
	return fmt.Sprintf("%d converted, %d skipped, %d failed", s.Converted, s.Skipped, s.Failed)
}

// Summary is the result of a Run.
type Summary struct {
	RunID    string
	DryRun   bool
	Sets     []*SetSummary
	Duration time.Duration
}

// Totals sums the counters over every set.
func (s *Summary) Totals() SetSummary {
	total := SetSummary{Name: "total"}
	for _, set := range s.Sets {
		total.Converted += set.Converted
		total.Skipped += set.Skipped
		total.Failed += set.Failed
		total.Planned += set.Planned
		total.Errors = append(total.Errors, set.Errors...)
	}
	return total
}

// HasFailures reports whether any job failed.
func (s *Summary) HasFailures() bool {
	for _, set := range s.Sets {
		if set.Failed > 0 {
			return true
		}
	}
	return false
}

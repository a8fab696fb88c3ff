package healthcheck

import "context"

var statusRank = map[string]int{
	StatusOK:      0,
	StatusUnknown: 1,
	StatusWarn:    2,
	StatusError:   3,
}

// Report aggregates check results; Status is the worst status observed.
type Report struct {
	Status string        `json:"status"`
	Checks []CheckResult `json:"checks"`
}

// Healthy reports whether no check failed.
func (r Report) Healthy() bool {
	return r.Status != StatusError
}

// Run evaluates checkers in order. Nil checkers are skipped.
func Run(ctx context.Context, checkers ...Checker) Report {
	report := Report{Status: StatusOK, Checks: []CheckResult{}}
	for _, checker := range checkers {
		if checker == nil {
			continue
		}
		for _, item := range checker.ListChecks(ctx) {
			if worse(item.Status, report.Status) {
				report.Status = item.Status
			}
			report.Checks = append(report.Checks, item)
		}
	}
	return report
}

func worse(a, b string) bool {
	ra, ok := statusRank[a]
	if !ok {
		ra = statusRank[StatusUnknown]
	}
	return ra > statusRank[b]
}

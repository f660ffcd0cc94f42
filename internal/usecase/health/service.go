// Package health reports whether esgate can serve searches.
package health

import "context"

// Status is the overall verdict.
type Status string

const (
	Healthy   Status = "ok"
	Degraded  Status = "degraded" // database up, some declared index missing
	Unhealthy Status = "error"    // database unreachable
)

// CheckResult is the outcome of one check.
type CheckResult string

const (
	CheckOK      CheckResult = "ok"
	CheckMissing CheckResult = "missing"
	CheckError   CheckResult = "error"
)

// Report is keyed by check name: "database" and "index:<name>" per declared index.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service runs the checks.
type Service struct {
	db      DBPinger
	checker IndexChecker
	indexes []Index
}

// New creates a Service. With a nil checker only the database is checked.
func New(db DBPinger, checker IndexChecker, indexes []Index) *Service {
	return &Service{db: db, checker: checker, indexes: indexes}
}

// Check pings the database and, when it answers, probes every declared index.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult, len(s.indexes)+1)

	if err := s.db.Ping(ctx); err != nil {
		checks["database"] = CheckError
		return Report{Status: Unhealthy, Checks: checks}
	}
	checks["database"] = CheckOK

	status := Healthy
	if s.checker == nil {
		return Report{Status: status, Checks: checks}
	}
	for _, idx := range s.indexes {
		result := CheckOK
		exists, err := s.checker.IndexExists(ctx, idx.FTIndex)
		switch {
		case err != nil:
			result = CheckError
		case !exists:
			result = CheckMissing
		}
		if result != CheckOK {
			status = Degraded
		}
		checks["index:"+idx.Name] = result
	}

	return Report{Status: status, Checks: checks}
}

package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates the backend answers but a served index is missing.
	Degraded Status = "degraded"
	// Unhealthy indicates the backend is unreachable.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	CheckOK      CheckResult = "ok"
	CheckMissing CheckResult = "missing"
	CheckError   CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	backend BackendPinger
	indices IndexChecker
	names   []string
}

// New creates a Service. indices can be nil, in which case only the
// backend is checked.
func New(backend BackendPinger, indices IndexChecker, names ...string) *Service {
	return &Service{backend: backend, indices: indices, names: names}
}

// Check pings the backend and then checks every served index.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult, 1+len(s.names))

	if err := s.backend.Ping(ctx); err != nil {
		checks["elasticsearch"] = CheckError
		return Report{Status: Unhealthy, Checks: checks}
	}
	checks["elasticsearch"] = CheckOK

	status := Healthy
	if s.indices == nil {
		return Report{Status: status, Checks: checks}
	}
	for _, name := range s.names {
		key := "index:" + name
		ok, err := s.indices.IndexExists(ctx, name)
		switch {
		case err != nil:
			checks[key] = CheckError
			status = Degraded
		case !ok:
			checks[key] = CheckMissing
			status = Degraded
		default:
			checks[key] = CheckOK
		}
	}
	return Report{Status: status, Checks: checks}
}

package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// SearchPath names the vector search execution mode currently in effect.
type SearchPath string

const (
	// PathNative means KNN queries run against the database's vector index.
	PathNative SearchPath = "native"
	// PathFallback means candidates are scanned and scored in process.
	PathFallback SearchPath = "fallback"
)

// Report aggregates health check results.
type Report struct {
	Status     Status                 `json:"status"`
	Checks     map[string]CheckResult `json:"checks"`
	SearchPath SearchPath             `json:"search_path"`
}

// Service coordinates health checks.
type Service struct {
	db        DBPinger
	embedding EmbeddingChecker
	vectors   VectorProber
}

// New creates a Service. embedding and vectors can be nil.
func New(db DBPinger, embedding EmbeddingChecker, vectors VectorProber) *Service {
	return &Service{db: db, embedding: embedding, vectors: vectors}
}

// Check runs health checks against all components. The fallback search path
// is reported but does not count as a failure.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	if err := s.db.Ping(ctx); err != nil {
		checks["database"] = CheckError
	} else {
		checks["database"] = CheckOK
	}

	if s.embedding != nil {
		if err := s.embedding.HealthCheck(ctx); err != nil {
			checks["embedding_provider"] = CheckError
		} else {
			checks["embedding_provider"] = CheckOK
		}
	}

	path := PathFallback
	if s.vectors != nil && s.vectors.SupportsVectorSearch(ctx) {
		path = PathNative
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}

	return Report{Status: status, Checks: checks, SearchPath: path}
}

package health

import "context"

// DBPinger checks database availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}

// VectorProber reports whether the database carries a native vector index.
type VectorProber interface {
	SupportsVectorSearch(ctx context.Context) bool
}

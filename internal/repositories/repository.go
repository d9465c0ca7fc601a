package repositories

import "context"

// Repository groups the catalog repositories
type Repository interface {
	// Lookup domain
	Lookup() LookupRepository

	// Question domain
	Question() QuestionRepository
	Explanation() ExplanationRepository

	// Health check
	Ping(ctx context.Context) error

	// Close connections
	Close() error
}

// RepositoryManager interface for managing repository lifecycle
type RepositoryManager interface {
	// Initialize repositories with database connections
	Initialize() error

	// Get repository instance
	GetRepository() Repository

	// Health check for all repositories
	HealthCheck(ctx context.Context) error

	// Graceful shutdown
	Shutdown(ctx context.Context) error
}

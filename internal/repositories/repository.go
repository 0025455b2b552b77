package repositories

import "context"

// Repository aggregates all storage interfaces the service depends on.
type Repository interface {
	// Exam catalog (read-only, owned by the authoring subsystem)
	Exam() ExamRepository

	// Session domain
	Session() SessionRepository

	// Grading domain
	Result() ResultRepository
	ReportCard() ReportCardRepository

	// User domain (read-only for the exam service)
	User() UserRepository

	// Transaction support
	WithTransaction(ctx context.Context, fn func(Repository) error) error

	// Health check
	Ping(ctx context.Context) error

	// Close connections
	Close() error
}

// RepositoryManager manages repository lifecycle.
type RepositoryManager interface {
	Initialize() error
	GetRepository() Repository
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

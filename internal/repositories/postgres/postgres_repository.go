package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/campusfleet/exam-service/internal/cache"
	"github.com/campusfleet/exam-service/internal/repositories"
	"github.com/campusfleet/exam-service/internal/repositories/casdoor"
)

// RepositoryConfig holds the connections the repository layer is built from.
type RepositoryConfig struct {
	DB            *gorm.DB
	RedisClient   *redis.Client
	CasdoorConfig casdoor.CasdoorConfig
}

// PostgreSQLRepository is the aggregate repository. Exams, sessions, results
// and report cards live in Postgres; user lookups go to Casdoor.
type PostgreSQLRepository struct {
	db           *gorm.DB
	redisClient  *redis.Client
	cacheManager *cache.CacheManager

	exam       repositories.ExamRepository
	session    repositories.SessionRepository
	result     repositories.ResultRepository
	reportCard repositories.ReportCardRepository
	user       repositories.UserRepository
}

func NewPostgreSQLRepository(config RepositoryConfig) repositories.Repository {
	repo := &PostgreSQLRepository{
		db:           config.DB,
		redisClient:  config.RedisClient,
		cacheManager: cache.NewCacheManager(config.RedisClient),
		user:         casdoor.NewUserCasdoor(config.CasdoorConfig, config.RedisClient),
	}
	repo.bindStores(config.DB)
	return repo
}

// bindStores wires the Postgres-backed repositories against db, which is
// either the root connection or an open transaction.
func (r *PostgreSQLRepository) bindStores(db *gorm.DB) {
	r.exam = NewExamPostgreSQL(db, r.redisClient)
	r.session = NewSessionPostgreSQL(db, r.redisClient)
	r.result = NewResultPostgreSQL(db, r.redisClient)
	r.reportCard = NewReportCardPostgreSQL(db, r.redisClient)
}

func (r *PostgreSQLRepository) Exam() repositories.ExamRepository { return r.exam }

func (r *PostgreSQLRepository) Session() repositories.SessionRepository { return r.session }

func (r *PostgreSQLRepository) Result() repositories.ResultRepository { return r.result }

func (r *PostgreSQLRepository) ReportCard() repositories.ReportCardRepository { return r.reportCard }

func (r *PostgreSQLRepository) User() repositories.UserRepository { return r.user }

// WithTransaction runs fn against a repository view bound to one transaction.
// The user repository is external and stays shared.
func (r *PostgreSQLRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepo := &PostgreSQLRepository{
			db:           tx,
			redisClient:  r.redisClient,
			cacheManager: r.cacheManager,
			user:         r.user,
		}
		txRepo.bindStores(tx)
		return fn(txRepo)
	})
}

// Ping verifies the database and, when configured, the cache connection.
func (r *PostgreSQLRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	if r.redisClient != nil {
		if err := r.cacheManager.HealthCheck(ctx); err != nil {
			return fmt.Errorf("cache ping failed: %w", err)
		}
	}
	return nil
}

// Close releases the database and cache connections.
func (r *PostgreSQLRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	if r.redisClient != nil {
		if err := r.redisClient.Close(); err != nil {
			return fmt.Errorf("failed to close Redis: %w", err)
		}
	}
	return nil
}

// RepositoryManager validates connections before handing out the repository.
type RepositoryManager struct {
	config RepositoryConfig
	repo   repositories.Repository
}

func NewRepositoryManager(config RepositoryConfig) repositories.RepositoryManager {
	return &RepositoryManager{config: config}
}

// Initialize pings every configured connection and builds the repository.
func (rm *RepositoryManager) Initialize() error {
	if rm.config.DB == nil {
		return fmt.Errorf("database connection is required")
	}

	sqlDB, err := rm.config.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	if rm.config.RedisClient != nil {
		if _, err := rm.config.RedisClient.Ping(ctx).Result(); err != nil {
			return fmt.Errorf("redis connection failed: %w", err)
		}
	}

	rm.repo = NewPostgreSQLRepository(rm.config)
	return nil
}

func (rm *RepositoryManager) GetRepository() repositories.Repository {
	return rm.repo
}

func (rm *RepositoryManager) HealthCheck(ctx context.Context) error {
	if rm.repo == nil {
		return fmt.Errorf("repository not initialized")
	}
	return rm.repo.Ping(ctx)
}

func (rm *RepositoryManager) Shutdown(ctx context.Context) error {
	if rm.repo == nil {
		return nil
	}
	return rm.repo.Close()
}

package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/campusfleet/exam-service/internal/events"
	"github.com/campusfleet/exam-service/internal/grading"
	"github.com/campusfleet/exam-service/internal/repositories"
	"github.com/campusfleet/exam-service/internal/session"
	"github.com/campusfleet/exam-service/internal/validator"
)

// ServiceManagerConfig holds configuration for the service manager
type ServiceManagerConfig struct {
	// HydrateResults loads persisted results into the in-memory store
	// during Initialize so report cards survive restarts.
	HydrateResults bool

	// ExpirySweepInterval controls the expired-session poller; zero
	// disables it.
	ExpirySweepInterval time.Duration

	DefaultTimeout time.Duration
}

// serviceManager implements ServiceManager interface
type serviceManager struct {
	// Dependencies
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.EventPublisher
	config    ServiceManagerConfig

	// Shared domain state
	registry *session.Registry
	store    *grading.Store

	// Service instances
	catalogService ExamCatalogService
	sessionService SessionService
	gradingService GradingService
	reportService  ReportService
	sweeper        *ExpirySweeper

	// Lifecycle management
	initialized bool
	shutdown    bool
	mu          sync.RWMutex
}

// NewServiceManager creates a new service manager with all dependencies
func NewServiceManager(repo repositories.Repository, publisher events.EventPublisher, logger *slog.Logger, v *validator.Validator, config ServiceManagerConfig) ServiceManager {
	return &serviceManager{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		validator: v,
		config:    config,
	}
}

// NewDefaultServiceManager creates a service manager with default configuration
func NewDefaultServiceManager(repo repositories.Repository, publisher events.EventPublisher, logger *slog.Logger, v *validator.Validator) ServiceManager {
	config := ServiceManagerConfig{
		HydrateResults:      true,
		ExpirySweepInterval: 30 * time.Second,
		DefaultTimeout:      30 * time.Second,
	}
	return NewServiceManager(repo, publisher, logger, v, config)
}

// Initialize sets up all services and their dependencies
func (sm *serviceManager) Initialize(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}

	sm.logger.Info("Initializing service manager")

	catalog := NewExamCatalogService(sm.repo, sm.logger)
	sm.catalogService = catalog

	sm.registry = session.NewRegistry(catalog, NewSessionRecordStore(sm.repo), nil)
	sm.store = grading.NewStore()

	sm.sessionService = NewSessionService(sm.repo, sm.registry, sm.publisher, sm.logger, sm.validator)
	sm.gradingService = NewGradingService(sm.repo, sm.registry, grading.NewGrader(catalog), sm.store, sm.publisher, sm.logger, sm.validator)
	sm.reportService = NewReportService(sm.repo, sm.store, sm.publisher, sm.logger)

	if sm.config.HydrateResults {
		if err := sm.hydrateStore(ctx); err != nil {
			return fmt.Errorf("failed to hydrate result store: %w", err)
		}
	}

	if sm.config.ExpirySweepInterval > 0 {
		sm.sweeper = NewExpirySweeper(sm.registry, sm.config.ExpirySweepInterval, sm.logger)
		sm.sweeper.Start(context.WithoutCancel(ctx))
		sm.logger.Info("Expiry sweeper started", "interval", sm.config.ExpirySweepInterval)
	}

	sm.initialized = true
	sm.logger.Info("Service manager initialized successfully")

	return nil
}

// hydrateStore loads every persisted result into the in-memory store.
func (sm *serviceManager) hydrateStore(ctx context.Context) error {
	rows, _, err := sm.repo.Result().List(ctx, nil, repositories.ResultFilters{})
	if err != nil {
		return err
	}

	loaded := 0
	for _, row := range rows {
		result, err := grading.FromModel(row)
		if err != nil {
			sm.logger.Warn("Skipping unreadable persisted result",
				"student_id", row.StudentID,
				"exam_id", row.ExamID,
				"error", err)
			continue
		}
		sm.store.Add(result)
		loaded++
	}

	sm.logger.Info("Hydrated result store", "results", loaded)
	return nil
}

func (sm *serviceManager) Catalog() ExamCatalogService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.catalogService
}

func (sm *serviceManager) Session() SessionService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.sessionService
}

func (sm *serviceManager) Grading() GradingService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.gradingService
}

func (sm *serviceManager) Report() ReportService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.reportService
}

func (sm *serviceManager) Registry() *session.Registry {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.registry
}

func (sm *serviceManager) Store() *grading.Store {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.store
}

func (sm *serviceManager) HealthCheck(ctx context.Context) error {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		return fmt.Errorf("service manager not initialized")
	}
	if sm.shutdown {
		return fmt.Errorf("service manager is shut down")
	}

	return sm.repo.Ping(ctx)
}

// Shutdown stops background work and flushes in-memory sessions.
func (sm *serviceManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if !sm.initialized || sm.shutdown {
		return nil
	}

	sm.logger.Info("Shutting down service manager")

	if sm.sweeper != nil {
		sm.sweeper.Stop()
	}

	if saved, err := sm.registry.SaveAll(ctx); err != nil {
		sm.logger.Error("Failed to persist all sessions on shutdown",
			"saved", saved,
			"error", err)
	} else {
		sm.logger.Info("Persisted sessions on shutdown", "saved", saved)
	}

	if sm.publisher != nil {
		if err := sm.publisher.Close(); err != nil {
			sm.logger.Error("Failed to close event publisher", "error", err)
		}
	}

	sm.shutdown = true
	return nil
}

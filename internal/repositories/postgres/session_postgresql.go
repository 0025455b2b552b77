package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/campusfleet/exam-service/internal/cache"
	"github.com/campusfleet/exam-service/internal/models"
	"github.com/campusfleet/exam-service/internal/repositories"
)

type SessionPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewSessionPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.SessionRepository {
	return &SessionPostgreSQL{
		db:           db,
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

func (s *SessionPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return s.db
}

// Save upserts the record for its (student, exam) key. The in-memory
// session is the source of truth while running; the row is a snapshot.
func (s *SessionPostgreSQL) Save(ctx context.Context, tx *gorm.DB, record *models.SessionRecord) error {
	db := s.getDB(tx)
	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "student_id"}, {Name: "exam_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"finished", "answers", "updated_at"}),
		}).
		Create(record).Error
	if err != nil {
		return repositories.NewPersistenceError("save session", err)
	}

	cache.InvalidateSessionCache(ctx, s.cacheManager, record.StudentID, record.ExamID)
	return nil
}

func (s *SessionPostgreSQL) Find(ctx context.Context, tx *gorm.DB, studentID string, examID uint) (*models.SessionRecord, error) {
	db := s.getDB(tx)
	cacheKey := fmt.Sprintf("key:%s:%d", studentID, examID)
	var record models.SessionRecord

	err := s.cacheManager.Session.CacheOrExecute(ctx, cacheKey, &record, cache.SessionCacheConfig.TTL, func() (interface{}, error) {
		var dbRecord models.SessionRecord
		if err := db.WithContext(ctx).
			Where("student_id = ? AND exam_id = ?", studentID, examID).
			First(&dbRecord).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, repositories.NewNotFoundError("session", fmt.Sprintf("%s/%d", studentID, examID))
			}
			return nil, fmt.Errorf("failed to get session: %w", err)
		}
		return &dbRecord, nil
	})
	if err != nil {
		return nil, err
	}

	return &record, nil
}

func (s *SessionPostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.SessionFilters) ([]*models.SessionRecord, int64, error) {
	db := s.getDB(tx)
	query := db.WithContext(ctx).Model(&models.SessionRecord{})

	if filters.Finished != nil {
		query = query.Where("finished = ?", *filters.Finished)
	}
	if filters.StudentID != nil {
		query = query.Where("student_id = ?", *filters.StudentID)
	}
	if filters.DateFrom != nil {
		query = query.Where("created_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("created_at <= ?", *filters.DateTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count sessions: %w", err)
	}

	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	var records []*models.SessionRecord
	if err := query.Order("updated_at DESC").Find(&records).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list sessions: %w", err)
	}

	return records, total, nil
}

func (s *SessionPostgreSQL) Delete(ctx context.Context, tx *gorm.DB, studentID string, examID uint) error {
	db := s.getDB(tx)
	result := db.WithContext(ctx).
		Where("student_id = ? AND exam_id = ?", studentID, examID).
		Delete(&models.SessionRecord{})
	if result.Error != nil {
		return repositories.NewPersistenceError("delete session", result.Error)
	}
	if result.RowsAffected == 0 {
		return repositories.NewNotFoundError("session", fmt.Sprintf("%s/%d", studentID, examID))
	}

	cache.SafeDelete(ctx, s.cacheManager.Session, fmt.Sprintf("key:%s:%d", studentID, examID))
	return nil
}

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

type ReportCardPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewReportCardPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.ReportCardRepository {
	return &ReportCardPostgreSQL{
		db:           db,
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

func (r *ReportCardPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

// Save upserts the student's report card. The card is always a full
// rebuild, so the previous row is simply overwritten.
func (r *ReportCardPostgreSQL) Save(ctx context.Context, tx *gorm.DB, card *models.ReportCard) error {
	db := r.getDB(tx)
	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "student_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"average_score", "results", "generated_at", "updated_at"}),
		}).
		Create(card).Error
	if err != nil {
		return repositories.NewPersistenceError("save report card", err)
	}

	cache.SafeDelete(ctx, r.cacheManager.Result, fmt.Sprintf("report:%s", card.StudentID))
	return nil
}

func (r *ReportCardPostgreSQL) GetByStudent(ctx context.Context, tx *gorm.DB, studentID string) (*models.ReportCard, error) {
	db := r.getDB(tx)
	cacheKey := fmt.Sprintf("report:%s", studentID)
	var card models.ReportCard

	err := r.cacheManager.Result.CacheOrExecute(ctx, cacheKey, &card, cache.ResultCacheConfig.TTL, func() (interface{}, error) {
		var dbCard models.ReportCard
		if err := db.WithContext(ctx).
			Where("student_id = ?", studentID).
			First(&dbCard).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, repositories.NewNotFoundError("report card", studentID)
			}
			return nil, fmt.Errorf("failed to get report card: %w", err)
		}
		return &dbCard, nil
	})
	if err != nil {
		return nil, err
	}

	return &card, nil
}

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

type ResultPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewResultPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.ResultRepository {
	return &ResultPostgreSQL{
		db:           db,
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

func (r *ResultPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

// Upsert writes a graded result, replacing any prior result for the same
// (student, exam) pair. A re-grade overwrites, it does not accumulate.
func (r *ResultPostgreSQL) Upsert(ctx context.Context, tx *gorm.DB, result *models.Result) error {
	db := r.getDB(tx)
	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "student_id"}, {Name: "exam_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"score", "exam_type", "correct_answers", "total_questions",
				"comments", "feedback", "graded_at", "updated_at",
			}),
		}).
		Create(result).Error
	if err != nil {
		return repositories.NewPersistenceError("upsert result", err)
	}

	cache.InvalidateResultCache(ctx, r.cacheManager, result.StudentID, result.ExamID)
	return nil
}

func (r *ResultPostgreSQL) Find(ctx context.Context, tx *gorm.DB, studentID string, examID uint) (*models.Result, error) {
	db := r.getDB(tx)
	cacheKey := fmt.Sprintf("key:%s:%d", studentID, examID)
	var result models.Result

	err := r.cacheManager.Result.CacheOrExecute(ctx, cacheKey, &result, cache.ResultCacheConfig.TTL, func() (interface{}, error) {
		var dbResult models.Result
		if err := db.WithContext(ctx).
			Where("student_id = ? AND exam_id = ?", studentID, examID).
			First(&dbResult).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, repositories.NewNotFoundError("result", fmt.Sprintf("%s/%d", studentID, examID))
			}
			return nil, fmt.Errorf("failed to get result: %w", err)
		}
		return &dbResult, nil
	})
	if err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *ResultPostgreSQL) GetByStudent(ctx context.Context, tx *gorm.DB, studentID string) ([]*models.Result, error) {
	db := r.getDB(tx)
	var results []*models.Result
	if err := db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("graded_at ASC, id ASC").
		Find(&results).Error; err != nil {
		return nil, fmt.Errorf("failed to get results by student: %w", err)
	}
	return results, nil
}

func (r *ResultPostgreSQL) GetByExam(ctx context.Context, tx *gorm.DB, examID uint) ([]*models.Result, error) {
	db := r.getDB(tx)
	var results []*models.Result
	if err := db.WithContext(ctx).
		Where("exam_id = ?", examID).
		Order("graded_at ASC, id ASC").
		Find(&results).Error; err != nil {
		return nil, fmt.Errorf("failed to get results by exam: %w", err)
	}
	return results, nil
}

func (r *ResultPostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.ResultFilters) ([]*models.Result, int64, error) {
	db := r.getDB(tx)
	query := db.WithContext(ctx).Model(&models.Result{})

	if filters.ExamID != nil {
		query = query.Where("exam_id = ?", *filters.ExamID)
	}
	if filters.StudentID != nil {
		query = query.Where("student_id = ?", *filters.StudentID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count results: %w", err)
	}

	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	var results []*models.Result
	if err := query.Order("graded_at DESC").Find(&results).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list results: %w", err)
	}

	return results, total, nil
}

// GetExamStats aggregates score statistics for one exam across all
// graded students.
func (r *ResultPostgreSQL) GetExamStats(ctx context.Context, tx *gorm.DB, examID uint) (*repositories.ExamScoreStats, error) {
	db := r.getDB(tx)
	cacheKey := fmt.Sprintf("exam:%d:scores", examID)
	var stats repositories.ExamScoreStats

	err := r.cacheManager.Stats.CacheOrExecute(ctx, cacheKey, &stats, cache.StatsCacheConfig.TTL, func() (interface{}, error) {
		var row struct {
			StudentCount int
			AverageScore float64
			HighestScore int
			LowestScore  int
		}
		err := db.WithContext(ctx).
			Model(&models.Result{}).
			Select("COUNT(*) as student_count, COALESCE(AVG(score), 0) as average_score, COALESCE(MAX(score), 0) as highest_score, COALESCE(MIN(score), 0) as lowest_score").
			Where("exam_id = ?", examID).
			Scan(&row).Error
		if err != nil {
			return nil, fmt.Errorf("failed to aggregate exam stats: %w", err)
		}

		var subject string
		if err := db.WithContext(ctx).
			Model(&models.Exam{}).
			Select("subject").
			Where("id = ?", examID).
			Scan(&subject).Error; err != nil {
			return nil, fmt.Errorf("failed to resolve exam subject: %w", err)
		}

		return &repositories.ExamScoreStats{
			ExamID:       examID,
			Subject:      subject,
			StudentCount: row.StudentCount,
			AverageScore: row.AverageScore,
			HighestScore: row.HighestScore,
			LowestScore:  row.LowestScore,
		}, nil
	})
	if err != nil {
		return nil, err
	}

	return &stats, nil
}

package repository

import (
	"context"
	"encoding/json"
	"time"

	"course_platform_backend/internal/model"
	"course_platform_backend/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// questionCacheTTL bounds staleness of the cached catalog between explicit
// invalidations on question writes.
const questionCacheTTL = 10 * time.Minute

// TestRepository holds tests, questions and answer options. It is the
// question catalog the scoring engine reads from; question reads per test are
// cached in redis because attempts hit them far more often than authoring
// mutates them.
type TestRepository struct {
	DB    *gorm.DB
	Redis *redis.Client
}

func NewTestRepository(db *gorm.DB, rdb *redis.Client) *TestRepository {
	return &TestRepository{DB: db, Redis: rdb}
}

func (r *TestRepository) CreateTest(test *model.Test) error {
	return r.DB.Create(test).Error
}

func (r *TestRepository) FindTestByID(id string) (*model.Test, error) {
	var test model.Test
	err := r.DB.First(&test, "id = ?", id).Error
	return &test, err
}

func (r *TestRepository) UpdateTest(test *model.Test) error {
	return r.DB.Save(test).Error
}

func (r *TestRepository) DeleteTest(id string) error {
	err := r.DB.Transaction(func(tx *gorm.DB) error {
		var questionIDs []string
		if err := tx.Model(&model.Question{}).Where("test_id = ?", id).Pluck("id", &questionIDs).Error; err != nil {
			return err
		}
		if len(questionIDs) > 0 {
			if err := tx.Where("question_id IN ?", questionIDs).Delete(&model.AnswerOption{}).Error; err != nil {
				return err
			}
			if err := tx.Where("test_id = ?", id).Delete(&model.Question{}).Error; err != nil {
				return err
			}
		}
		var submissionIDs []string
		if err := tx.Model(&model.Submission{}).Where("test_id = ?", id).Pluck("id", &submissionIDs).Error; err != nil {
			return err
		}
		if len(submissionIDs) > 0 {
			if err := tx.Where("submission_id IN ?", submissionIDs).Delete(&model.StudentAnswer{}).Error; err != nil {
				return err
			}
			if err := tx.Where("test_id = ?", id).Delete(&model.Submission{}).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&model.Test{}, "id = ?", id).Error
	})
	if err != nil {
		return err
	}
	r.invalidateQuestionCache(id)
	return nil
}

func (r *TestRepository) ListTestsByLesson(lessonID string) ([]model.Test, error) {
	var tests []model.Test
	err := r.DB.Where("lesson_id = ?", lessonID).Order("created_at asc").Find(&tests).Error
	return tests, err
}

func (r *TestRepository) ListTestsByLessonIDs(lessonIDs []string) ([]model.Test, error) {
	var tests []model.Test
	if len(lessonIDs) == 0 {
		return tests, nil
	}
	err := r.DB.Where("lesson_id IN ?", lessonIDs).Find(&tests).Error
	return tests, err
}

func (r *TestRepository) CreateQuestion(question *model.Question) error {
	if err := r.DB.Create(question).Error; err != nil {
		return err
	}
	r.invalidateQuestionCache(question.TestID)
	return nil
}

func (r *TestRepository) FindQuestionByID(id string) (*model.Question, error) {
	var q model.Question
	err := r.DB.Preload("Options", func(db *gorm.DB) *gorm.DB {
		return db.Order("`order` asc, created_at asc")
	}).First(&q, "id = ?", id).Error
	return &q, err
}

// UpdateQuestion replaces the question row and its full option set. Options
// are hard-deleted so replacements can reuse display order without colliding
// with soft-deleted rows.
func (r *TestRepository) UpdateQuestion(question *model.Question) error {
	err := r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("question_id = ?", question.ID).Delete(&model.AnswerOption{}).Error; err != nil {
			return err
		}
		return tx.Save(question).Error
	})
	if err != nil {
		return err
	}
	r.invalidateQuestionCache(question.TestID)
	return nil
}

func (r *TestRepository) DeleteQuestion(id, testID string) error {
	err := r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("question_id = ?", id).Delete(&model.AnswerOption{}).Error; err != nil {
			return err
		}
		if err := tx.Where("question_id = ?", id).Delete(&model.StudentAnswer{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Question{}, "id = ?", id).Error
	})
	if err != nil {
		return err
	}
	r.invalidateQuestionCache(testID)
	return nil
}

// QuestionsForTest returns the test's questions in authoring order with their
// answer options, serving from redis when possible.
func (r *TestRepository) QuestionsForTest(testID string) ([]model.Question, error) {
	key := questionCacheKey(testID)
	if r.Redis != nil {
		if cached, err := r.Redis.Get(context.Background(), key).Result(); err == nil {
			var qs []model.Question
			if err := json.Unmarshal([]byte(cached), &qs); err == nil {
				return qs, nil
			}
		}
	}

	var qs []model.Question
	err := r.DB.Where("test_id = ?", testID).
		Preload("Options", func(db *gorm.DB) *gorm.DB {
			return db.Order("`order` asc, created_at asc")
		}).
		Order("`order` asc, created_at asc").
		Find(&qs).Error
	if err != nil {
		return nil, err
	}

	if r.Redis != nil {
		if payload, err := json.Marshal(qs); err == nil {
			if err := r.Redis.Set(context.Background(), key, payload, questionCacheTTL).Err(); err != nil {
				logger.Log.Warn("question cache write failed", zap.String("testId", testID), zap.Error(err))
			}
		}
	}
	return qs, nil
}

func (r *TestRepository) invalidateQuestionCache(testID string) {
	if r.Redis == nil {
		return
	}
	if err := r.Redis.Del(context.Background(), questionCacheKey(testID)).Err(); err != nil {
		logger.Log.Warn("question cache invalidation failed", zap.String("testId", testID), zap.Error(err))
	}
}

func questionCacheKey(testID string) string {
	return "catalog:questions:" + testID
}

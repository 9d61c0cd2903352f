package repository

import (
	"errors"
	"time"

	"course_platform_backend/internal/model"
	"course_platform_backend/internal/util"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SubmissionRepository is the attempt store: submissions plus the student
// answers they own. Multi-row writes (finalize, manual grade, delete) commit
// in a single transaction so a submission can never be observed half graded.
type SubmissionRepository struct {
	DB *gorm.DB
}

func NewSubmissionRepository(db *gorm.DB) *SubmissionRepository {
	return &SubmissionRepository{DB: db}
}

// Create opens a submission. The one-open-attempt rule is backed by the
// idx_open_attempt unique index, so two racing starts cannot both land: the
// loser's insert fails on the duplicate key and surfaces as an in-progress
// conflict.
func (r *SubmissionRepository) Create(submission *model.Submission) error {
	if err := r.DB.Create(submission).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return util.ErrAttemptInProgress
		}
		return err
	}
	return nil
}

func (r *SubmissionRepository) FindByID(id string) (*model.Submission, error) {
	var s model.Submission
	err := r.DB.First(&s, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// FindOpenSubmission returns the student's unfinalized submission for a test,
// or gorm.ErrRecordNotFound. At most one can exist at a time.
func (r *SubmissionRepository) FindOpenSubmission(userID uint, testID string) (*model.Submission, error) {
	var s model.Submission
	err := r.DB.Where("user_id = ? AND test_id = ? AND ended_at IS NULL", userID, testID).First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// UpsertAnswer records an in-progress answer. Resubmitting for the same
// question overwrites the prior value, keeping one row per (submission,
// question). The owning submission row is locked for the duration of the
// transaction, serializing recording against a concurrent finalize: either
// the answer lands before grading starts, or the attempt is already closed
// and the write is rejected.
func (r *SubmissionRepository) UpsertAnswer(answer *model.StudentAnswer) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		var sub model.Submission
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&sub, "id = ?", answer.SubmissionID).Error; err != nil {
			return err
		}
		if sub.EndedAt != nil {
			return util.ErrAttemptClosed
		}

		var existing model.StudentAnswer
		err := tx.Where("submission_id = ? AND question_id = ?", answer.SubmissionID, answer.QuestionID).
			First(&existing).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return tx.Create(answer).Error
			}
			return err
		}
		existing.AnswerText = answer.AnswerText
		existing.IsCorrect = nil
		existing.Score = nil
		if err := tx.Save(&existing).Error; err != nil {
			return err
		}
		*answer = existing
		return nil
	})
}

func (r *SubmissionRepository) FindAnswer(submissionID, questionID string) (*model.StudentAnswer, error) {
	var a model.StudentAnswer
	err := r.DB.Where("submission_id = ? AND question_id = ?", submissionID, questionID).First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *SubmissionRepository) AnswersForSubmission(submissionID string) ([]model.StudentAnswer, error) {
	var answers []model.StudentAnswer
	err := r.DB.Where("submission_id = ?", submissionID).Find(&answers).Error
	return answers, err
}

// FinalizeSubmission commits a finalize pass atomically: the submission's
// end time, total score and review flag together with every graded answer
// row. The submission update is guarded on ended_at IS NULL; a raced second
// finalize touches zero rows and the whole transaction fails with
// ErrAttemptClosed, leaving the first result intact.
func (r *SubmissionRepository) FinalizeSubmission(submission *model.Submission, answers []model.StudentAnswer) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Submission{}).
			Where("id = ? AND ended_at IS NULL", submission.ID).
			Updates(map[string]interface{}{
				"ended_at":     submission.EndedAt,
				"score":        submission.Score,
				"needs_review": submission.NeedsReview,
				"updated_at":   time.Now(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return util.ErrAttemptClosed
		}

		for i := range answers {
			a := &answers[i]
			var existing model.StudentAnswer
			err := tx.Where("submission_id = ? AND question_id = ?", a.SubmissionID, a.QuestionID).
				First(&existing).Error
			if err != nil {
				if !errors.Is(err, gorm.ErrRecordNotFound) {
					return err
				}
				if err := tx.Create(a).Error; err != nil {
					return err
				}
				continue
			}
			existing.AnswerText = a.AnswerText
			existing.IsCorrect = a.IsCorrect
			existing.Score = a.Score
			if err := tx.Save(&existing).Error; err != nil {
				return err
			}
			*a = existing
		}
		return nil
	})
}

// SaveManualGrade commits a reviewed answer together with the recomputed
// submission totals.
func (r *SubmissionRepository) SaveManualGrade(answer *model.StudentAnswer, submission *model.Submission) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(answer).Error; err != nil {
			return err
		}
		return tx.Model(&model.Submission{}).
			Where("id = ?", submission.ID).
			Updates(map[string]interface{}{
				"score":      submission.Score,
				"reviewed":   submission.Reviewed,
				"updated_at": time.Now(),
			}).Error
	})
}

// DeleteSubmission removes a submission and its answers; answers go first so
// no orphan can survive a partial failure.
func (r *SubmissionRepository) DeleteSubmission(id string) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("submission_id = ?", id).Delete(&model.StudentAnswer{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Submission{}, "id = ?", id).Error
	})
}

func (r *SubmissionRepository) ListByTest(testID string, page, limit int) ([]model.Submission, int64, error) {
	var total int64
	query := r.DB.Model(&model.Submission{}).Where("test_id = ?", testID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var subs []model.Submission
	offset := (page - 1) * limit
	err := query.Order("created_at desc").Offset(offset).Limit(limit).Find(&subs).Error
	return subs, total, err
}

// ListPendingReview returns finalized submissions still waiting on manual
// grading for one test.
func (r *SubmissionRepository) ListPendingReview(testID string) ([]model.Submission, error) {
	var subs []model.Submission
	err := r.DB.Where("test_id = ? AND ended_at IS NOT NULL AND needs_review = ? AND reviewed = ?", testID, true, false).
		Order("ended_at asc").
		Find(&subs).Error
	return subs, err
}

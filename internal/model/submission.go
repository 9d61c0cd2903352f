package model

import "time"

// Submission is one student's attempt at one test. StartedAt is set when the
// attempt is opened; EndedAt and Score are set exactly once, at finalize.
// NeedsReview is true when the owning test requires manual checking or any
// answer graded unknown; Reviewed flips only through a teacher review action.
//
// swagger:model Submission
type Submission struct {
	UUIDBase
	TestID      string     `gorm:"index;uniqueIndex:idx_open_attempt,priority:1;type:varchar(36)" json:"testId"`
	UserID      uint       `gorm:"index;uniqueIndex:idx_open_attempt,priority:2;type:bigint unsigned" json:"userId"`
	StartedAt   time.Time  `json:"startedAt"`
	EndedAt     *time.Time `json:"endedAt,omitempty"`
	Score       *int       `json:"score,omitempty"`
	NeedsReview bool       `gorm:"default:false" json:"needsReview"`
	Reviewed    bool       `gorm:"default:false" json:"reviewed"`
	// OpenFlag is a stored generated column: 1 while the attempt is open,
	// NULL once finalized. The unique index over (test, user, open flag)
	// makes MySQL reject a second open attempt for the same pair even when
	// two starts race past the application-level check.
	OpenFlag *uint8 `gorm:"->;type:tinyint unsigned GENERATED ALWAYS AS (IF(ended_at IS NULL, 1, NULL)) STORED;uniqueIndex:idx_open_attempt,priority:3" json:"-"`
}

func (Submission) TableName() string {
	return "submissions"
}

func (s *Submission) Finalized() bool {
	return s.EndedAt != nil
}

// StudentAnswer is the recorded answer of one submission to one question.
// AnswerText holds the raw submitted value: comma-separated option ids for
// choice questions, free text otherwise. IsCorrect and Score stay nil until
// graded; both stay nil after finalize for answers awaiting manual review.
//
// swagger:model StudentAnswer
type StudentAnswer struct {
	UUIDBase
	SubmissionID string `gorm:"index;uniqueIndex:idx_submission_question;type:varchar(36)" json:"submissionId"`
	QuestionID   string `gorm:"uniqueIndex:idx_submission_question;type:varchar(36)" json:"questionId"`
	AnswerText   string `gorm:"type:text" json:"answerText"`
	IsCorrect    *bool  `json:"isCorrect,omitempty"`
	Score        *int   `json:"score,omitempty"`
}

func (StudentAnswer) TableName() string {
	return "student_answers"
}

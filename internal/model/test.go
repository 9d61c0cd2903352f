package model

import "time"

// QuestionKind is the closed set of supported question types. Choice kinds
// carry answer options, text_input carries a canonical answer, essay carries
// neither and is always graded by a teacher.
type QuestionKind string

const (
	SingleChoice   QuestionKind = "single_choice"
	MultipleChoice QuestionKind = "multiple_choice"
	TextInput      QuestionKind = "text_input"
	Essay          QuestionKind = "essay"
)

// swagger:model Test
type Test struct {
	UUIDBase
	LessonID            string     `gorm:"index;type:varchar(36)" json:"lessonId"`
	Title               string     `gorm:"size:255;not null" json:"title"`
	Description         string     `gorm:"type:text" json:"description"`
	TimeLimit           int        `gorm:"default:0" json:"timeLimit"` // Minutes
	RequiresManualCheck bool       `gorm:"default:false" json:"requiresManualCheck"`
	IsPublished         bool       `gorm:"default:false" json:"isPublished"`
	PublishedAt         *time.Time `json:"publishedAt,omitempty"`
	CreatorID           uint       `gorm:"index;type:bigint unsigned" json:"creatorId"`
}

func (Test) TableName() string {
	return "tests"
}

// swagger:model Question
type Question struct {
	UUIDBase
	TestID string       `gorm:"index;type:varchar(36)" json:"testId"`
	Kind   QuestionKind `gorm:"size:50;not null" json:"kind"`
	Text   string       `gorm:"type:text;not null" json:"text"`
	Points int          `gorm:"default:1" json:"points"`
	// Canonical answer for text_input questions. Empty means not configured,
	// which defers grading to manual review.
	CanonicalAnswer string         `gorm:"type:text" json:"canonicalAnswer,omitempty"`
	Explanation     string         `gorm:"type:text" json:"explanation"`
	Order           int            `gorm:"default:0" json:"order"`
	Options         []AnswerOption `gorm:"foreignKey:QuestionID" json:"options,omitempty"`
}

func (Question) TableName() string {
	return "questions"
}

// swagger:model AnswerOption
type AnswerOption struct {
	UUIDBase
	QuestionID string `gorm:"index;type:varchar(36)" json:"questionId"`
	Text       string `gorm:"type:text;not null" json:"text"`
	IsCorrect  bool   `gorm:"default:false" json:"isCorrect"`
	Order      int    `gorm:"default:0" json:"order"`
}

func (AnswerOption) TableName() string {
	return "answer_options"
}

package model

import "time"

// swagger:model Course
type Course struct {
	UUIDBase
	Title       string     `gorm:"size:255;not null" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	TeacherID   uint       `gorm:"index;type:bigint unsigned" json:"teacherId"`
	IsPublished bool       `gorm:"default:false" json:"isPublished"`
	PublishedAt *time.Time `json:"publishedAt,omitempty"`
}

func (Course) TableName() string {
	return "courses"
}

// swagger:model Lesson
type Lesson struct {
	UUIDBase
	CourseID      string `gorm:"index;type:varchar(36)" json:"courseId"`
	Title         string `gorm:"size:255;not null" json:"title"`
	Content       string `gorm:"type:text" json:"content"`
	AttachmentURL string `gorm:"size:500" json:"attachmentUrl"`
	Order         int    `gorm:"default:0" json:"order"`
}

func (Lesson) TableName() string {
	return "lessons"
}

type Enrollment struct {
	UUIDBase
	CourseID string `gorm:"index:idx_course_student,unique;type:varchar(36)" json:"courseId"`
	UserID   uint   `gorm:"index:idx_course_student,unique;type:bigint unsigned" json:"userId"`
}

func (Enrollment) TableName() string {
	return "enrollments"
}

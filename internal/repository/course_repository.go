package repository

import (
	"course_platform_backend/internal/model"

	"gorm.io/gorm"
)

type CourseRepository struct {
	DB *gorm.DB
}

func NewCourseRepository(db *gorm.DB) *CourseRepository {
	return &CourseRepository{DB: db}
}

func (r *CourseRepository) CreateCourse(course *model.Course) error {
	return r.DB.Create(course).Error
}

func (r *CourseRepository) FindCourseByID(id string) (*model.Course, error) {
	var course model.Course
	err := r.DB.First(&course, "id = ?", id).Error
	return &course, err
}

func (r *CourseRepository) UpdateCourse(course *model.Course) error {
	return r.DB.Save(course).Error
}

func (r *CourseRepository) DeleteCourse(id string) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("course_id = ?", id).Delete(&model.Lesson{}).Error; err != nil {
			return err
		}
		if err := tx.Where("course_id = ?", id).Delete(&model.Enrollment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Course{}, "id = ?", id).Error
	})
}

func (r *CourseRepository) ListCourses(teacherID uint, publishedOnly bool, page, limit int) ([]model.Course, int64, error) {
	var courses []model.Course
	var total int64

	query := r.DB.Model(&model.Course{})
	if teacherID > 0 {
		query = query.Where("teacher_id = ?", teacherID)
	}
	if publishedOnly {
		query = query.Where("is_published = ?", true)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	err := query.Order("created_at desc").Offset(offset).Limit(limit).Find(&courses).Error
	return courses, total, err
}

func (r *CourseRepository) CreateLesson(lesson *model.Lesson) error {
	return r.DB.Create(lesson).Error
}

func (r *CourseRepository) FindLessonByID(id string) (*model.Lesson, error) {
	var lesson model.Lesson
	err := r.DB.First(&lesson, "id = ?", id).Error
	return &lesson, err
}

func (r *CourseRepository) UpdateLesson(lesson *model.Lesson) error {
	return r.DB.Save(lesson).Error
}

func (r *CourseRepository) DeleteLesson(id string) error {
	return r.DB.Delete(&model.Lesson{}, "id = ?", id).Error
}

func (r *CourseRepository) ListLessons(courseID string) ([]model.Lesson, error) {
	var lessons []model.Lesson
	err := r.DB.Where("course_id = ?", courseID).Order("`order` asc, created_at asc").Find(&lessons).Error
	return lessons, err
}

func (r *CourseRepository) LessonIDs(courseID string) ([]string, error) {
	var ids []string
	err := r.DB.Model(&model.Lesson{}).Where("course_id = ?", courseID).Pluck("id", &ids).Error
	return ids, err
}

func (r *CourseRepository) CreateEnrollment(enrollment *model.Enrollment) error {
	return r.DB.Create(enrollment).Error
}

func (r *CourseRepository) FindEnrollment(userID uint, courseID string) (*model.Enrollment, error) {
	var e model.Enrollment
	err := r.DB.Where("user_id = ? AND course_id = ?", userID, courseID).First(&e).Error
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// IsEnrolledForLesson reports whether the student is enrolled in the course
// owning the lesson.
func (r *CourseRepository) IsEnrolledForLesson(userID uint, lessonID string) (bool, error) {
	var count int64
	err := r.DB.Model(&model.Enrollment{}).
		Joins("JOIN lessons ON lessons.course_id = enrollments.course_id").
		Where("enrollments.user_id = ? AND lessons.id = ?", userID, lessonID).
		Count(&count).Error
	return count > 0, err
}

func (r *CourseRepository) ListEnrollments(userID uint) ([]model.Enrollment, error) {
	var es []model.Enrollment
	err := r.DB.Where("user_id = ?", userID).Find(&es).Error
	return es, err
}

package service

import (
	"errors"
	"fmt"

	"course_platform_backend/internal/model"
	"course_platform_backend/internal/repository"
	"course_platform_backend/internal/util"

	"gorm.io/gorm"
)

type CourseService struct {
	Repo     *repository.CourseRepository
	TestRepo *repository.TestRepository
}

func NewCourseService(repo *repository.CourseRepository, testRepo *repository.TestRepository) *CourseService {
	return &CourseService{Repo: repo, TestRepo: testRepo}
}

type CourseReq struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	IsPublished *bool   `json:"isPublished"`
}

type LessonReq struct {
	Title   *string `json:"title"`
	Content *string `json:"content"`
	Order   *int    `json:"order"`
}

func (s *CourseService) CreateCourse(teacherID uint, req CourseReq) (*model.Course, error) {
	if req.Title == nil || *req.Title == "" {
		return nil, fmt.Errorf("%w: title is required", util.ErrValidation)
	}

	course := &model.Course{
		Title:     *req.Title,
		TeacherID: teacherID,
	}
	if req.Description != nil {
		course.Description = *req.Description
	}
	if req.IsPublished != nil {
		course.IsPublished = *req.IsPublished
	}

	if err := s.Repo.CreateCourse(course); err != nil {
		return nil, err
	}
	return course, nil
}

func (s *CourseService) UpdateCourse(courseID string, req CourseReq) (*model.Course, error) {
	course, err := s.Repo.FindCourseByID(courseID)
	if err != nil {
		return nil, courseNotFound(err)
	}

	if req.Title != nil {
		course.Title = *req.Title
	}
	if req.Description != nil {
		course.Description = *req.Description
	}
	if req.IsPublished != nil {
		course.IsPublished = *req.IsPublished
	}

	if err := s.Repo.UpdateCourse(course); err != nil {
		return nil, err
	}
	return course, nil
}

// DeleteCourse removes the course with its lessons and every test hanging off
// those lessons (which in turn cascades questions and submissions).
func (s *CourseService) DeleteCourse(courseID string) error {
	if _, err := s.Repo.FindCourseByID(courseID); err != nil {
		return courseNotFound(err)
	}

	lessonIDs, err := s.Repo.LessonIDs(courseID)
	if err != nil {
		return err
	}
	tests, err := s.TestRepo.ListTestsByLessonIDs(lessonIDs)
	if err != nil {
		return err
	}
	for _, t := range tests {
		if err := s.TestRepo.DeleteTest(t.ID); err != nil {
			return err
		}
	}
	return s.Repo.DeleteCourse(courseID)
}

func (s *CourseService) GetCourse(courseID string) (*model.Course, []model.Lesson, error) {
	course, err := s.Repo.FindCourseByID(courseID)
	if err != nil {
		return nil, nil, courseNotFound(err)
	}
	lessons, err := s.Repo.ListLessons(courseID)
	return course, lessons, err
}

func (s *CourseService) ListCourses(teacherID uint, publishedOnly bool, page, limit int) ([]model.Course, int64, error) {
	return s.Repo.ListCourses(teacherID, publishedOnly, page, limit)
}

func (s *CourseService) AddLesson(courseID string, req LessonReq) (*model.Lesson, error) {
	if _, err := s.Repo.FindCourseByID(courseID); err != nil {
		return nil, courseNotFound(err)
	}
	if req.Title == nil || *req.Title == "" {
		return nil, fmt.Errorf("%w: title is required", util.ErrValidation)
	}

	lesson := &model.Lesson{
		CourseID: courseID,
		Title:    *req.Title,
	}
	if req.Content != nil {
		lesson.Content = *req.Content
	}
	if req.Order != nil {
		lesson.Order = *req.Order
	}

	if err := s.Repo.CreateLesson(lesson); err != nil {
		return nil, err
	}
	return lesson, nil
}

func (s *CourseService) UpdateLesson(lessonID string, req LessonReq) (*model.Lesson, error) {
	lesson, err := s.Repo.FindLessonByID(lessonID)
	if err != nil {
		return nil, lessonNotFound(err)
	}

	if req.Title != nil {
		lesson.Title = *req.Title
	}
	if req.Content != nil {
		lesson.Content = *req.Content
	}
	if req.Order != nil {
		lesson.Order = *req.Order
	}

	if err := s.Repo.UpdateLesson(lesson); err != nil {
		return nil, err
	}
	return lesson, nil
}

func (s *CourseService) DeleteLesson(lessonID string) error {
	if _, err := s.Repo.FindLessonByID(lessonID); err != nil {
		return lessonNotFound(err)
	}
	tests, err := s.TestRepo.ListTestsByLesson(lessonID)
	if err != nil {
		return err
	}
	for _, t := range tests {
		if err := s.TestRepo.DeleteTest(t.ID); err != nil {
			return err
		}
	}
	return s.Repo.DeleteLesson(lessonID)
}

func (s *CourseService) SetLessonAttachment(lessonID, url string) (*model.Lesson, error) {
	lesson, err := s.Repo.FindLessonByID(lessonID)
	if err != nil {
		return nil, lessonNotFound(err)
	}
	lesson.AttachmentURL = url
	if err := s.Repo.UpdateLesson(lesson); err != nil {
		return nil, err
	}
	return lesson, nil
}

// Enroll registers a student into a published course.
func (s *CourseService) Enroll(userID uint, courseID string) (*model.Enrollment, error) {
	course, err := s.Repo.FindCourseByID(courseID)
	if err != nil {
		return nil, courseNotFound(err)
	}
	if !course.IsPublished {
		return nil, util.ErrCourseNotPublished
	}

	if _, err := s.Repo.FindEnrollment(userID, courseID); err == nil {
		return nil, util.ErrAlreadyEnrolled
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	enrollment := &model.Enrollment{CourseID: courseID, UserID: userID}
	if err := s.Repo.CreateEnrollment(enrollment); err != nil {
		return nil, err
	}
	return enrollment, nil
}

func (s *CourseService) ListEnrollments(userID uint) ([]model.Enrollment, error) {
	return s.Repo.ListEnrollments(userID)
}

func courseNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return util.ErrCourseNotFound
	}
	return err
}

func lessonNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return util.ErrLessonNotFound
	}
	return err
}

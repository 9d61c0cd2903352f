package service

import (
	"errors"
	"fmt"
	"time"

	"course_platform_backend/internal/model"
	"course_platform_backend/internal/repository"
	"course_platform_backend/internal/util"

	"gorm.io/gorm"
)

type TestService struct {
	Repo       *repository.TestRepository
	CourseRepo *repository.CourseRepository
}

func NewTestService(repo *repository.TestRepository, courseRepo *repository.CourseRepository) *TestService {
	return &TestService{Repo: repo, CourseRepo: courseRepo}
}

type AnswerOptionReq struct {
	ID        string `json:"id"`
	Text      string `json:"text" binding:"required"`
	IsCorrect bool   `json:"isCorrect"`
	Order     int    `json:"order"`
}

type QuestionReq struct {
	ID              string             `json:"id"`
	Kind            model.QuestionKind `json:"kind" binding:"required"`
	Text            string             `json:"text" binding:"required"`
	Points          int                `json:"points"`
	CanonicalAnswer string             `json:"canonicalAnswer"`
	Explanation     string             `json:"explanation"`
	Order           int                `json:"order"`
	Options         []AnswerOptionReq  `json:"options"`
}

type TestReq struct {
	Title               *string        `json:"title"`
	Description         *string        `json:"description"`
	TimeLimit           *int           `json:"timeLimit"`
	RequiresManualCheck *bool          `json:"requiresManualCheck"`
	IsPublished         *bool          `json:"isPublished"`
	Questions           *[]QuestionReq `json:"questions"`
}

// validateQuestion enforces the kind invariants at authoring time: a single
// choice question has exactly one correct option, a multiple choice one at
// least one, text and essay questions carry no options.
func validateQuestion(req QuestionReq) error {
	correct := 0
	for _, o := range req.Options {
		if o.IsCorrect {
			correct++
		}
	}

	switch req.Kind {
	case model.SingleChoice:
		if len(req.Options) < 2 {
			return fmt.Errorf("%w: single choice question needs at least two options", util.ErrValidation)
		}
		if correct != 1 {
			return fmt.Errorf("%w: single choice question needs exactly one correct option", util.ErrValidation)
		}
	case model.MultipleChoice:
		if len(req.Options) < 2 {
			return fmt.Errorf("%w: multiple choice question needs at least two options", util.ErrValidation)
		}
		if correct < 1 {
			return fmt.Errorf("%w: multiple choice question needs at least one correct option", util.ErrValidation)
		}
	case model.TextInput, model.Essay:
		if len(req.Options) > 0 {
			return fmt.Errorf("%w: %s question cannot carry answer options", util.ErrValidation, req.Kind)
		}
	default:
		return fmt.Errorf("%w: unknown question kind %q", util.ErrValidation, req.Kind)
	}

	if req.Points < 0 {
		return fmt.Errorf("%w: points must not be negative", util.ErrValidation)
	}
	return nil
}

func questionFromReq(testID string, req QuestionReq) *model.Question {
	points := req.Points
	if points == 0 {
		points = 1
	}
	q := &model.Question{
		TestID:          testID,
		Kind:            req.Kind,
		Text:            req.Text,
		Points:          points,
		CanonicalAnswer: req.CanonicalAnswer,
		Explanation:     req.Explanation,
		Order:           req.Order,
	}
	q.ID = req.ID
	for _, o := range req.Options {
		opt := model.AnswerOption{
			Text:      o.Text,
			IsCorrect: o.IsCorrect,
			Order:     o.Order,
		}
		opt.ID = o.ID
		q.Options = append(q.Options, opt)
	}
	return q
}

func (s *TestService) CreateTest(creatorID uint, lessonID string, req TestReq) (*model.Test, error) {
	if _, err := s.CourseRepo.FindLessonByID(lessonID); err != nil {
		return nil, lessonNotFound(err)
	}
	if req.Title == nil || *req.Title == "" {
		return nil, fmt.Errorf("%w: title is required", util.ErrValidation)
	}

	test := &model.Test{
		LessonID:  lessonID,
		Title:     *req.Title,
		CreatorID: creatorID,
	}
	if req.Description != nil {
		test.Description = *req.Description
	}
	if req.TimeLimit != nil {
		test.TimeLimit = *req.TimeLimit
	}
	if req.RequiresManualCheck != nil {
		test.RequiresManualCheck = *req.RequiresManualCheck
	}
	if req.IsPublished != nil && *req.IsPublished {
		now := time.Now()
		test.IsPublished = true
		test.PublishedAt = &now
	}

	if req.Questions != nil {
		for _, qReq := range *req.Questions {
			if err := validateQuestion(qReq); err != nil {
				return nil, err
			}
		}
	}

	if err := s.Repo.CreateTest(test); err != nil {
		return nil, err
	}

	if req.Questions != nil {
		for _, qReq := range *req.Questions {
			qReq.ID = ""
			if err := s.Repo.CreateQuestion(questionFromReq(test.ID, qReq)); err != nil {
				return nil, err
			}
		}
	}

	return test, nil
}

func (s *TestService) UpdateTest(testID string, req TestReq) (*model.Test, error) {
	test, err := s.Repo.FindTestByID(testID)
	if err != nil {
		return nil, testNotFound(err)
	}

	if req.Title != nil {
		test.Title = *req.Title
	}
	if req.Description != nil {
		test.Description = *req.Description
	}
	if req.TimeLimit != nil {
		test.TimeLimit = *req.TimeLimit
	}
	if req.RequiresManualCheck != nil {
		test.RequiresManualCheck = *req.RequiresManualCheck
	}
	if req.IsPublished != nil {
		if *req.IsPublished && !test.IsPublished {
			now := time.Now()
			test.PublishedAt = &now
		}
		test.IsPublished = *req.IsPublished
	}

	if err := s.Repo.UpdateTest(test); err != nil {
		return nil, err
	}

	if req.Questions != nil {
		if err := s.reconcileQuestions(testID, *req.Questions); err != nil {
			return nil, err
		}
	}

	return test, nil
}

// reconcileQuestions applies an authoring snapshot: requests with a known id
// update in place, requests without create, and existing questions absent
// from the snapshot are removed.
func (s *TestService) reconcileQuestions(testID string, reqs []QuestionReq) error {
	for _, qReq := range reqs {
		if err := validateQuestion(qReq); err != nil {
			return err
		}
	}

	existing, err := s.Repo.QuestionsForTest(testID)
	if err != nil {
		return err
	}
	existingIDs := make(map[string]bool, len(existing))
	for _, q := range existing {
		existingIDs[q.ID] = true
	}

	kept := make(map[string]bool)
	for _, qReq := range reqs {
		if qReq.ID != "" && existingIDs[qReq.ID] {
			// Options are replaced wholesale; fresh ids avoid colliding with
			// the rows being swapped out.
			for i := range qReq.Options {
				qReq.Options[i].ID = ""
			}
			if err := s.Repo.UpdateQuestion(questionFromReq(testID, qReq)); err != nil {
				return err
			}
			kept[qReq.ID] = true
			continue
		}
		qReq.ID = ""
		if err := s.Repo.CreateQuestion(questionFromReq(testID, qReq)); err != nil {
			return err
		}
	}

	for id := range existingIDs {
		if !kept[id] {
			if err := s.Repo.DeleteQuestion(id, testID); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *TestService) DeleteTest(testID string) error {
	if _, err := s.Repo.FindTestByID(testID); err != nil {
		return testNotFound(err)
	}
	return s.Repo.DeleteTest(testID)
}

func (s *TestService) GetTest(testID string) (*model.Test, []model.Question, error) {
	test, err := s.Repo.FindTestByID(testID)
	if err != nil {
		return nil, nil, testNotFound(err)
	}
	qs, err := s.Repo.QuestionsForTest(testID)
	return test, qs, err
}

func (s *TestService) ListTestsByLesson(lessonID string) ([]model.Test, error) {
	return s.Repo.ListTestsByLesson(lessonID)
}

// StudentQuestion is a question stripped of everything that gives the answer
// away: option correctness flags, the canonical answer and the explanation.
type StudentQuestion struct {
	ID      string             `json:"id"`
	Kind    model.QuestionKind `json:"kind"`
	Text    string             `json:"text"`
	Points  int                `json:"points"`
	Order   int                `json:"order"`
	Options []StudentOption    `json:"options,omitempty"`
}

type StudentOption struct {
	ID    string `json:"id"`
	Text  string `json:"text"`
	Order int    `json:"order"`
}

// GetTestForStudent returns a published test with sanitized questions.
func (s *TestService) GetTestForStudent(testID string) (*model.Test, []StudentQuestion, error) {
	test, err := s.Repo.FindTestByID(testID)
	if err != nil {
		return nil, nil, testNotFound(err)
	}
	if !test.IsPublished {
		return nil, nil, util.ErrTestNotPublished
	}

	qs, err := s.Repo.QuestionsForTest(testID)
	if err != nil {
		return nil, nil, err
	}

	out := make([]StudentQuestion, len(qs))
	for i, q := range qs {
		sq := StudentQuestion{
			ID:     q.ID,
			Kind:   q.Kind,
			Text:   q.Text,
			Points: q.Points,
			Order:  q.Order,
		}
		for _, o := range q.Options {
			sq.Options = append(sq.Options, StudentOption{ID: o.ID, Text: o.Text, Order: o.Order})
		}
		out[i] = sq
	}
	return test, out, nil
}

func testNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return util.ErrTestNotFound
	}
	return err
}

package service

import (
	"errors"
	"time"

	"course_platform_backend/internal/grading"
	"course_platform_backend/internal/model"
	"course_platform_backend/internal/util"
	"course_platform_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// QuestionCatalog is the engine's read-only view of authored questions.
type QuestionCatalog interface {
	QuestionsForTest(testID string) ([]model.Question, error)
	FindQuestionByID(id string) (*model.Question, error)
}

// TestProvider resolves test metadata (publication, manual-check flag).
type TestProvider interface {
	FindTestByID(id string) (*model.Test, error)
}

// AttemptStore persists submissions and their answers. Finalize and manual
// grade commits are atomic; not-found is reported as gorm.ErrRecordNotFound.
type AttemptStore interface {
	Create(submission *model.Submission) error
	FindByID(id string) (*model.Submission, error)
	FindOpenSubmission(userID uint, testID string) (*model.Submission, error)
	UpsertAnswer(answer *model.StudentAnswer) error
	FindAnswer(submissionID, questionID string) (*model.StudentAnswer, error)
	AnswersForSubmission(submissionID string) ([]model.StudentAnswer, error)
	FinalizeSubmission(submission *model.Submission, answers []model.StudentAnswer) error
	SaveManualGrade(answer *model.StudentAnswer, submission *model.Submission) error
	DeleteSubmission(id string) error
	ListPendingReview(testID string) ([]model.Submission, error)
	ListByTest(testID string, page, limit int) ([]model.Submission, int64, error)
}

// EnrollmentGate answers whether a student may attempt tests of a lesson.
type EnrollmentGate interface {
	IsEnrolledForLesson(userID uint, lessonID string) (bool, error)
}

// AttemptService drives a submission through its lifecycle:
// in progress -> finalized -> (reviewed, when manual checking applies).
// Grading is deferred to finalize so answer revisions during the attempt cost
// nothing and the scoring pass is a single atomic commit.
type AttemptService struct {
	Catalog     QuestionCatalog
	Tests       TestProvider
	Store       AttemptStore
	Enrollments EnrollmentGate
	Policy      *grading.Policy
}

func NewAttemptService(catalog QuestionCatalog, tests TestProvider, store AttemptStore, enrollments EnrollmentGate, policy *grading.Policy) *AttemptService {
	if policy == nil {
		policy = grading.NewPolicy()
	}
	return &AttemptService{
		Catalog:     catalog,
		Tests:       tests,
		Store:       store,
		Enrollments: enrollments,
		Policy:      policy,
	}
}

type FinalizeResult struct {
	SubmissionID         string `json:"submissionId"`
	Score                int    `json:"score"`
	MaxPoints            int    `json:"maxPoints"`
	RequiresManualReview bool   `json:"requiresManualReview"`
}

type ReviewResult struct {
	SubmissionID string `json:"submissionId"`
	Score        int    `json:"score"`
	Reviewed     bool   `json:"reviewed"`
}

type AttemptDetail struct {
	Submission *model.Submission     `json:"submission"`
	Answers    []model.StudentAnswer `json:"answers"`
	Questions  []model.Question      `json:"questions"`
}

// StartAttempt opens a submission for (student, test). At most one
// unfinalized submission may exist per pair.
func (s *AttemptService) StartAttempt(userID uint, testID string) (*model.Submission, error) {
	test, err := s.Tests.FindTestByID(testID)
	if err != nil {
		return nil, notFoundOr(err, util.ErrTestNotFound)
	}
	if !test.IsPublished {
		return nil, util.ErrTestNotPublished
	}

	if s.Enrollments != nil {
		enrolled, err := s.Enrollments.IsEnrolledForLesson(userID, test.LessonID)
		if err != nil {
			return nil, err
		}
		if !enrolled {
			return nil, util.ErrNotEnrolled
		}
	}

	if _, err := s.Store.FindOpenSubmission(userID, testID); err == nil {
		return nil, util.ErrAttemptInProgress
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	submission := &model.Submission{
		TestID:    testID,
		UserID:    userID,
		StartedAt: time.Now(),
	}
	if err := s.Store.Create(submission); err != nil {
		return nil, err
	}
	return submission, nil
}

// RecordAnswer upserts the student's answer for one question of an open
// attempt. No grading happens here.
func (s *AttemptService) RecordAnswer(userID uint, submissionID, questionID, answerText string) (*model.StudentAnswer, error) {
	submission, err := s.Store.FindByID(submissionID)
	if err != nil {
		return nil, notFoundOr(err, util.ErrSubmissionNotFound)
	}
	if submission.UserID != userID {
		return nil, util.ErrNotSubmissionOwner
	}
	if submission.Finalized() {
		return nil, util.ErrAttemptClosed
	}

	question, err := s.Catalog.FindQuestionByID(questionID)
	if err != nil {
		return nil, notFoundOr(err, util.ErrQuestionNotFound)
	}
	if question.TestID != submission.TestID {
		return nil, util.ErrQuestionNotInTest
	}

	answer := &model.StudentAnswer{
		SubmissionID: submissionID,
		QuestionID:   questionID,
		AnswerText:   answerText,
	}
	if err := s.Store.UpsertAnswer(answer); err != nil {
		return nil, err
	}
	return answer, nil
}

// FinalizeAttempt grades every question of the test in one pass and closes
// the attempt. Questions without a recorded answer grade incorrect with zero
// points. Answers the policy cannot decide stay ungraded (nil correctness and
// score) and count as zero until manual review. The whole result commits
// atomically; losing a finalize race fails with InvalidStateError.
func (s *AttemptService) FinalizeAttempt(userID uint, submissionID string) (*FinalizeResult, error) {
	submission, err := s.Store.FindByID(submissionID)
	if err != nil {
		return nil, notFoundOr(err, util.ErrSubmissionNotFound)
	}
	if submission.UserID != userID {
		return nil, util.ErrNotSubmissionOwner
	}
	if submission.Finalized() {
		return nil, util.ErrAttemptClosed
	}

	test, err := s.Tests.FindTestByID(submission.TestID)
	if err != nil {
		return nil, notFoundOr(err, util.ErrTestNotFound)
	}
	questions, err := s.Catalog.QuestionsForTest(submission.TestID)
	if err != nil {
		return nil, err
	}

	recorded, err := s.Store.AnswersForSubmission(submissionID)
	if err != nil {
		return nil, err
	}
	byQuestion := make(map[string]model.StudentAnswer, len(recorded))
	for _, a := range recorded {
		byQuestion[a.QuestionID] = a
	}

	totalScore := 0
	maxPoints := 0
	pending := 0
	graded := make([]model.StudentAnswer, 0, len(questions))

	for i := range questions {
		q := &questions[i]
		maxPoints += q.Points

		answer, ok := byQuestion[q.ID]
		if !ok {
			// Unanswered questions get a zero-score row so the stored sum
			// invariant is literal and manual review has a target.
			answer = model.StudentAnswer{SubmissionID: submissionID, QuestionID: q.ID}
		}

		result := s.Policy.Grade(q, answer.AnswerText)
		switch result.Outcome {
		case grading.Unknown:
			pending++
			answer.IsCorrect = nil
			answer.Score = nil
		default:
			correct := result.Outcome == grading.Correct
			score := result.Score
			answer.IsCorrect = &correct
			answer.Score = &score
			totalScore += score
		}
		graded = append(graded, answer)
	}

	now := time.Now()
	score := totalScore
	submission.EndedAt = &now
	submission.Score = &score
	submission.NeedsReview = test.RequiresManualCheck || pending > 0

	if err := s.Store.FinalizeSubmission(submission, graded); err != nil {
		return nil, err
	}

	logger.Log.Info("attempt finalized",
		zap.String("submissionId", submissionID),
		zap.String("testId", submission.TestID),
		zap.Int("score", totalScore),
		zap.Int("maxPoints", maxPoints),
		zap.Int("pendingManual", pending),
	)

	return &FinalizeResult{
		SubmissionID:         submissionID,
		Score:                totalScore,
		MaxPoints:            maxPoints,
		RequiresManualReview: submission.NeedsReview,
	}, nil
}

// ApplyManualGrade lets a teacher resolve one answer of a finalized
// submission. The submission total is recomputed over all answers, and the
// submission flips to reviewed once no undecided answer remains. Partial
// review is fine and leaves reviewed false.
func (s *AttemptService) ApplyManualGrade(graderID uint, submissionID, questionID string, isCorrect bool, score int) (*ReviewResult, error) {
	submission, err := s.Store.FindByID(submissionID)
	if err != nil {
		return nil, notFoundOr(err, util.ErrSubmissionNotFound)
	}
	if !submission.Finalized() {
		return nil, util.ErrAttemptNotFinalized
	}

	test, err := s.Tests.FindTestByID(submission.TestID)
	if err != nil {
		return nil, notFoundOr(err, util.ErrTestNotFound)
	}
	question, err := s.Catalog.FindQuestionByID(questionID)
	if err != nil {
		return nil, notFoundOr(err, util.ErrQuestionNotFound)
	}
	if question.TestID != submission.TestID {
		return nil, util.ErrQuestionNotInTest
	}
	if !grading.ManuallyGradable(question, test) {
		return nil, util.ErrNotManuallyGradable
	}
	if score < 0 || score > question.Points {
		return nil, util.ErrScoreOutOfRange
	}

	answer, err := s.Store.FindAnswer(submissionID, questionID)
	if err != nil {
		return nil, notFoundOr(err, util.ErrAnswerNotFound)
	}
	answer.IsCorrect = &isCorrect
	answer.Score = &score

	answers, err := s.Store.AnswersForSubmission(submissionID)
	if err != nil {
		return nil, err
	}

	questions, err := s.Catalog.QuestionsForTest(submission.TestID)
	if err != nil {
		return nil, err
	}
	known := make(map[string]bool, len(questions))
	for _, q := range questions {
		known[q.ID] = true
	}

	total := 0
	reviewed := true
	for _, a := range answers {
		// Answers orphaned by a question deletion neither score nor block review.
		if !known[a.QuestionID] {
			continue
		}
		if a.QuestionID == questionID {
			a = *answer
		}
		if a.Score != nil {
			total += *a.Score
		}
		if a.IsCorrect == nil {
			reviewed = false
		}
	}

	submission.Score = &total
	submission.Reviewed = reviewed
	if err := s.Store.SaveManualGrade(answer, submission); err != nil {
		return nil, err
	}

	logger.Log.Info("manual grade applied",
		zap.Uint("graderId", graderID),
		zap.String("submissionId", submissionID),
		zap.String("questionId", questionID),
		zap.Int("score", score),
		zap.Bool("reviewed", reviewed),
	)

	return &ReviewResult{SubmissionID: submissionID, Score: total, Reviewed: reviewed}, nil
}

func (s *AttemptService) DeleteSubmission(submissionID string) error {
	if _, err := s.Store.FindByID(submissionID); err != nil {
		return notFoundOr(err, util.ErrSubmissionNotFound)
	}
	return s.Store.DeleteSubmission(submissionID)
}

// GetAttemptDetail returns a submission with its answers and the owning
// test's questions. Students may only read their own submissions.
func (s *AttemptService) GetAttemptDetail(userID uint, submissionID string, teacherView bool) (*AttemptDetail, error) {
	submission, err := s.Store.FindByID(submissionID)
	if err != nil {
		return nil, notFoundOr(err, util.ErrSubmissionNotFound)
	}
	if !teacherView && submission.UserID != userID {
		return nil, util.ErrNotSubmissionOwner
	}

	answers, err := s.Store.AnswersForSubmission(submissionID)
	if err != nil {
		return nil, err
	}
	questions, err := s.Catalog.QuestionsForTest(submission.TestID)
	if err != nil {
		return nil, err
	}
	if !teacherView && !submission.Finalized() {
		questions = sanitizeQuestions(questions)
	}
	return &AttemptDetail{Submission: submission, Answers: answers, Questions: questions}, nil
}

// sanitizeQuestions blanks the grading key on a question list so an open
// attempt never shows option correctness, canonical answers or explanations
// to the student working on it.
func sanitizeQuestions(questions []model.Question) []model.Question {
	out := make([]model.Question, len(questions))
	for i, q := range questions {
		q.CanonicalAnswer = ""
		q.Explanation = ""
		opts := make([]model.AnswerOption, len(q.Options))
		for j, o := range q.Options {
			o.IsCorrect = false
			opts[j] = o
		}
		q.Options = opts
		out[i] = q
	}
	return out
}

func (s *AttemptService) ListPendingReview(testID string) ([]model.Submission, error) {
	return s.Store.ListPendingReview(testID)
}

func (s *AttemptService) ListSubmissions(testID string, page, limit int) ([]model.Submission, int64, error) {
	return s.Store.ListByTest(testID, page, limit)
}

// notFoundOr translates storage not-found into the engine taxonomy, passing
// other storage errors through untouched.
func notFoundOr(err error, sentinel error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sentinel
	}
	return err
}

package service

import (
	"errors"
	"fmt"
	"testing"

	"course_platform_backend/internal/grading"
	"course_platform_backend/internal/model"
	"course_platform_backend/internal/util"

	"gorm.io/gorm"
)

// In-memory fakes implementing the orchestrator's collaborator interfaces.
// They honor the same contracts as the gorm-backed repositories: not-found is
// gorm.ErrRecordNotFound, finalize is guarded against a closed attempt.

type memCatalog struct {
	tests     map[string]*model.Test
	questions []model.Question
}

func (c *memCatalog) FindTestByID(id string) (*model.Test, error) {
	t, ok := c.tests[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *t
	return &cp, nil
}

func (c *memCatalog) QuestionsForTest(testID string) ([]model.Question, error) {
	var out []model.Question
	for _, q := range c.questions {
		if q.TestID == testID {
			out = append(out, q)
		}
	}
	return out, nil
}

func (c *memCatalog) FindQuestionByID(id string) (*model.Question, error) {
	for i := range c.questions {
		if c.questions[i].ID == id {
			cp := c.questions[i]
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

type memStore struct {
	submissions map[string]*model.Submission
	answers     map[string]map[string]*model.StudentAnswer
	nextID      int
}

func newMemStore() *memStore {
	return &memStore{
		submissions: make(map[string]*model.Submission),
		answers:     make(map[string]map[string]*model.StudentAnswer),
	}
}

// Create mirrors the gorm store's idx_open_attempt unique index: at most one
// open submission per (user, test).
func (s *memStore) Create(submission *model.Submission) error {
	for _, sub := range s.submissions {
		if sub.UserID == submission.UserID && sub.TestID == submission.TestID && sub.EndedAt == nil {
			return util.ErrAttemptInProgress
		}
	}
	s.nextID++
	submission.ID = fmt.Sprintf("sub-%d", s.nextID)
	cp := *submission
	s.submissions[submission.ID] = &cp
	s.answers[submission.ID] = make(map[string]*model.StudentAnswer)
	return nil
}

func (s *memStore) FindByID(id string) (*model.Submission, error) {
	sub, ok := s.submissions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *sub
	return &cp, nil
}

func (s *memStore) FindOpenSubmission(userID uint, testID string) (*model.Submission, error) {
	for _, sub := range s.submissions {
		if sub.UserID == userID && sub.TestID == testID && sub.EndedAt == nil {
			cp := *sub
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *memStore) UpsertAnswer(answer *model.StudentAnswer) error {
	sub, ok := s.submissions[answer.SubmissionID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if sub.EndedAt != nil {
		return util.ErrAttemptClosed
	}
	byQuestion := s.answers[answer.SubmissionID]
	if existing, ok := byQuestion[answer.QuestionID]; ok {
		existing.AnswerText = answer.AnswerText
		existing.IsCorrect = nil
		existing.Score = nil
		*answer = *existing
		return nil
	}
	s.nextID++
	answer.ID = fmt.Sprintf("ans-%d", s.nextID)
	cp := *answer
	byQuestion[answer.QuestionID] = &cp
	return nil
}

func (s *memStore) FindAnswer(submissionID, questionID string) (*model.StudentAnswer, error) {
	byQuestion, ok := s.answers[submissionID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	a, ok := byQuestion[questionID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *memStore) AnswersForSubmission(submissionID string) ([]model.StudentAnswer, error) {
	var out []model.StudentAnswer
	for _, a := range s.answers[submissionID] {
		out = append(out, *a)
	}
	return out, nil
}

func (s *memStore) FinalizeSubmission(submission *model.Submission, answers []model.StudentAnswer) error {
	stored, ok := s.submissions[submission.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if stored.EndedAt != nil {
		return util.ErrAttemptClosed
	}
	stored.EndedAt = submission.EndedAt
	stored.Score = submission.Score
	stored.NeedsReview = submission.NeedsReview
	for i := range answers {
		a := answers[i]
		if a.ID == "" {
			s.nextID++
			a.ID = fmt.Sprintf("ans-%d", s.nextID)
		}
		cp := a
		s.answers[submission.ID][a.QuestionID] = &cp
	}
	return nil
}

func (s *memStore) SaveManualGrade(answer *model.StudentAnswer, submission *model.Submission) error {
	stored, ok := s.submissions[submission.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *answer
	s.answers[submission.ID][answer.QuestionID] = &cp
	stored.Score = submission.Score
	stored.Reviewed = submission.Reviewed
	return nil
}

func (s *memStore) DeleteSubmission(id string) error {
	delete(s.answers, id)
	delete(s.submissions, id)
	return nil
}

func (s *memStore) ListPendingReview(testID string) ([]model.Submission, error) {
	var out []model.Submission
	for _, sub := range s.submissions {
		if sub.TestID == testID && sub.EndedAt != nil && sub.NeedsReview && !sub.Reviewed {
			out = append(out, *sub)
		}
	}
	return out, nil
}

func (s *memStore) ListByTest(testID string, page, limit int) ([]model.Submission, int64, error) {
	var out []model.Submission
	for _, sub := range s.submissions {
		if sub.TestID == testID {
			out = append(out, *sub)
		}
	}
	return out, int64(len(out)), nil
}

type allowAll struct{}

func (allowAll) IsEnrolledForLesson(userID uint, lessonID string) (bool, error) { return true, nil }

// fixture builds a published test with one single-choice question worth 2
// points (correct option optA) and one essay worth 3 points.
func fixture() (*AttemptService, *memStore, *memCatalog) {
	catalog := &memCatalog{
		tests: map[string]*model.Test{
			"t1": {UUIDBase: model.UUIDBase{ID: "t1"}, LessonID: "l1", IsPublished: true},
		},
		questions: []model.Question{
			{
				UUIDBase: model.UUIDBase{ID: "q1"},
				TestID:   "t1",
				Kind:     model.SingleChoice,
				Points:   2,
				Options: []model.AnswerOption{
					{UUIDBase: model.UUIDBase{ID: "optA"}, IsCorrect: true},
					{UUIDBase: model.UUIDBase{ID: "optB"}},
				},
			},
			{
				UUIDBase: model.UUIDBase{ID: "q2"},
				TestID:   "t1",
				Kind:     model.Essay,
				Points:   3,
			},
		},
	}
	store := newMemStore()
	svc := NewAttemptService(catalog, catalog, store, allowAll{}, grading.NewPolicy())
	return svc, store, catalog
}

func TestStartAttempt(t *testing.T) {
	svc, _, catalog := fixture()

	sub, err := svc.StartAttempt(7, "t1")
	if err != nil {
		t.Fatalf("StartAttempt: %v", err)
	}
	if sub.StartedAt.IsZero() || sub.EndedAt != nil || sub.Score != nil {
		t.Fatalf("fresh submission in wrong state: %+v", sub)
	}

	if _, err := svc.StartAttempt(7, "t1"); !errors.Is(err, util.ErrConflict) {
		t.Fatalf("duplicate in-progress attempt: got %v, want ConflictError", err)
	}

	if _, err := svc.StartAttempt(7, "missing"); !errors.Is(err, util.ErrNotFound) {
		t.Fatalf("unknown test: got %v, want NotFound", err)
	}

	catalog.tests["t1"].IsPublished = false
	if _, err := svc.StartAttempt(8, "t1"); !errors.Is(err, util.ErrValidation) {
		t.Fatalf("unpublished test: got %v, want ValidationError", err)
	}
}

type denyAll struct{}

func (denyAll) IsEnrolledForLesson(userID uint, lessonID string) (bool, error) { return false, nil }

func TestStartAttemptRequiresEnrollment(t *testing.T) {
	svc, store, catalog := fixture()
	svc = NewAttemptService(catalog, catalog, store, denyAll{}, nil)

	if _, err := svc.StartAttempt(7, "t1"); !errors.Is(err, util.ErrValidation) {
		t.Fatalf("unenrolled student: got %v, want ValidationError", err)
	}
}

func TestRecordAnswerUpsert(t *testing.T) {
	svc, store, _ := fixture()
	sub, _ := svc.StartAttempt(7, "t1")

	if _, err := svc.RecordAnswer(7, sub.ID, "q1", "optB"); err != nil {
		t.Fatalf("RecordAnswer: %v", err)
	}
	if _, err := svc.RecordAnswer(7, sub.ID, "q1", "optA"); err != nil {
		t.Fatalf("RecordAnswer resubmit: %v", err)
	}

	answers, _ := store.AnswersForSubmission(sub.ID)
	if len(answers) != 1 {
		t.Fatalf("expected exactly one answer row, got %d", len(answers))
	}
	if answers[0].AnswerText != "optA" {
		t.Fatalf("resubmit did not overwrite: %q", answers[0].AnswerText)
	}
}

func TestRecordAnswerValidation(t *testing.T) {
	svc, _, catalog := fixture()
	catalog.tests["t2"] = &model.Test{UUIDBase: model.UUIDBase{ID: "t2"}, IsPublished: true}
	catalog.questions = append(catalog.questions, model.Question{
		UUIDBase: model.UUIDBase{ID: "other"}, TestID: "t2", Kind: model.Essay, Points: 1,
	})

	sub, _ := svc.StartAttempt(7, "t1")

	if _, err := svc.RecordAnswer(7, sub.ID, "other", "x"); !errors.Is(err, util.ErrValidation) {
		t.Fatalf("foreign question: got %v, want ValidationError", err)
	}
	if _, err := svc.RecordAnswer(7, sub.ID, "missing", "x"); !errors.Is(err, util.ErrNotFound) {
		t.Fatalf("unknown question: got %v, want NotFound", err)
	}
	if _, err := svc.RecordAnswer(9, sub.ID, "q1", "optA"); !errors.Is(err, util.ErrForbidden) {
		t.Fatalf("foreign submission: got %v, want Forbidden", err)
	}
	if _, err := svc.RecordAnswer(7, "missing", "q1", "optA"); !errors.Is(err, util.ErrNotFound) {
		t.Fatalf("unknown submission: got %v, want NotFound", err)
	}
}

func TestFinalizeMixedAutoAndEssay(t *testing.T) {
	svc, store, _ := fixture()
	sub, _ := svc.StartAttempt(7, "t1")
	svc.RecordAnswer(7, sub.ID, "q1", "optA")
	svc.RecordAnswer(7, sub.ID, "q2", "my essay text")

	res, err := svc.FinalizeAttempt(7, sub.ID)
	if err != nil {
		t.Fatalf("FinalizeAttempt: %v", err)
	}
	if res.Score != 2 || res.MaxPoints != 5 || !res.RequiresManualReview {
		t.Fatalf("finalize result = %+v, want score 2, max 5, manual review", res)
	}

	stored, _ := store.FindByID(sub.ID)
	if stored.EndedAt == nil || stored.Score == nil || *stored.Score != 2 {
		t.Fatalf("stored submission not finalized correctly: %+v", stored)
	}
	if stored.Reviewed {
		t.Fatal("submission reviewed before any teacher action")
	}

	essay, _ := store.FindAnswer(sub.ID, "q2")
	if essay.IsCorrect != nil || essay.Score != nil {
		t.Fatalf("essay answer should stay ungraded, got %+v", essay)
	}
	choice, _ := store.FindAnswer(sub.ID, "q1")
	if choice.IsCorrect == nil || !*choice.IsCorrect || choice.Score == nil || *choice.Score != 2 {
		t.Fatalf("choice answer graded wrong: %+v", choice)
	}
}

func TestFinalizeIsIdempotentlyRejected(t *testing.T) {
	svc, store, _ := fixture()
	sub, _ := svc.StartAttempt(7, "t1")
	svc.RecordAnswer(7, sub.ID, "q1", "optA")

	first, err := svc.FinalizeAttempt(7, sub.ID)
	if err != nil {
		t.Fatalf("first finalize: %v", err)
	}

	if _, err := svc.FinalizeAttempt(7, sub.ID); !errors.Is(err, util.ErrInvalidState) {
		t.Fatalf("second finalize: got %v, want InvalidStateError", err)
	}

	stored, _ := store.FindByID(sub.ID)
	if *stored.Score != first.Score {
		t.Fatalf("second finalize changed score: %d -> %d", first.Score, *stored.Score)
	}
}

// staleReadStore serves reads that predate a concurrent finalize, so the
// service's in-memory check passes and only the guarded store write can
// reject the second finalize.
type staleReadStore struct {
	*memStore
}

func (s staleReadStore) FindByID(id string) (*model.Submission, error) {
	sub, err := s.memStore.FindByID(id)
	if err != nil {
		return nil, err
	}
	sub.EndedAt = nil
	sub.Score = nil
	return sub, nil
}

func TestFinalizeRaceLostAtStore(t *testing.T) {
	_, store, catalog := fixture()
	svc := NewAttemptService(catalog, catalog, staleReadStore{store}, allowAll{}, nil)

	sub, _ := svc.StartAttempt(7, "t1")
	if _, err := svc.FinalizeAttempt(7, sub.ID); err != nil {
		t.Fatalf("first finalize: %v", err)
	}
	if _, err := svc.FinalizeAttempt(7, sub.ID); !errors.Is(err, util.ErrInvalidState) {
		t.Fatalf("raced finalize: got %v, want InvalidStateError", err)
	}
}

func TestFinalizeGradesMissingAnswersAsZero(t *testing.T) {
	svc, store, _ := fixture()
	sub, _ := svc.StartAttempt(7, "t1")
	// No answer recorded for q1 at all.

	res, err := svc.FinalizeAttempt(7, sub.ID)
	if err != nil {
		t.Fatalf("FinalizeAttempt with missing answers: %v", err)
	}
	if res.Score != 0 {
		t.Fatalf("missing answers should score 0, got %d", res.Score)
	}

	answers, _ := store.AnswersForSubmission(sub.ID)
	if len(answers) != 2 {
		t.Fatalf("finalize should materialize a row per question, got %d", len(answers))
	}
	missing, _ := store.FindAnswer(sub.ID, "q1")
	if missing.IsCorrect == nil || *missing.IsCorrect || missing.Score == nil || *missing.Score != 0 {
		t.Fatalf("missing answer graded wrong: %+v", missing)
	}
}

func TestFinalizeSumPropertyWithoutEssays(t *testing.T) {
	catalog := &memCatalog{
		tests: map[string]*model.Test{
			"t1": {UUIDBase: model.UUIDBase{ID: "t1"}, IsPublished: true},
		},
		questions: []model.Question{
			{
				UUIDBase: model.UUIDBase{ID: "q1"}, TestID: "t1", Kind: model.SingleChoice, Points: 2,
				Options: []model.AnswerOption{
					{UUIDBase: model.UUIDBase{ID: "a"}, IsCorrect: true},
					{UUIDBase: model.UUIDBase{ID: "b"}},
				},
			},
			{UUIDBase: model.UUIDBase{ID: "q2"}, TestID: "t1", Kind: model.TextInput, Points: 3, CanonicalAnswer: "Paris"},
			{
				UUIDBase: model.UUIDBase{ID: "q3"}, TestID: "t1", Kind: model.MultipleChoice, Points: 4,
				Options: []model.AnswerOption{
					{UUIDBase: model.UUIDBase{ID: "x"}, IsCorrect: true},
					{UUIDBase: model.UUIDBase{ID: "y"}, IsCorrect: true},
					{UUIDBase: model.UUIDBase{ID: "z"}},
				},
			},
		},
	}
	store := newMemStore()
	svc := NewAttemptService(catalog, catalog, store, allowAll{}, nil)

	sub, _ := svc.StartAttempt(7, "t1")
	svc.RecordAnswer(7, sub.ID, "q1", "a")
	svc.RecordAnswer(7, sub.ID, "q2", " paris ")
	svc.RecordAnswer(7, sub.ID, "q3", "x,z") // wrong set

	res, err := svc.FinalizeAttempt(7, sub.ID)
	if err != nil {
		t.Fatalf("FinalizeAttempt: %v", err)
	}
	if res.RequiresManualReview {
		t.Fatal("fully auto-gradable test flagged for review")
	}
	if res.Score != 5 || res.MaxPoints != 9 {
		t.Fatalf("score = %d/%d, want 5/9", res.Score, res.MaxPoints)
	}

	answers, _ := store.AnswersForSubmission(sub.ID)
	sum := 0
	for _, a := range answers {
		if a.Score != nil {
			sum += *a.Score
		}
	}
	stored, _ := store.FindByID(sub.ID)
	if sum != *stored.Score {
		t.Fatalf("sum invariant broken: answers sum %d, submission score %d", sum, *stored.Score)
	}
}

func TestRecordAnswerAfterFinalize(t *testing.T) {
	svc, store, _ := fixture()
	sub, _ := svc.StartAttempt(7, "t1")
	svc.RecordAnswer(7, sub.ID, "q1", "optA")
	svc.FinalizeAttempt(7, sub.ID)

	before, _ := store.FindAnswer(sub.ID, "q1")
	if _, err := svc.RecordAnswer(7, sub.ID, "q1", "optB"); !errors.Is(err, util.ErrInvalidState) {
		t.Fatalf("record after finalize: got %v, want InvalidStateError", err)
	}
	after, _ := store.FindAnswer(sub.ID, "q1")
	if after.AnswerText != before.AnswerText || *after.Score != *before.Score {
		t.Fatalf("rejected record mutated state: %+v -> %+v", before, after)
	}
}

func TestApplyManualGradeResolvesEssay(t *testing.T) {
	svc, store, _ := fixture()
	sub, _ := svc.StartAttempt(7, "t1")
	svc.RecordAnswer(7, sub.ID, "q1", "optA")
	svc.RecordAnswer(7, sub.ID, "q2", "essay text")
	svc.FinalizeAttempt(7, sub.ID)

	res, err := svc.ApplyManualGrade(42, sub.ID, "q2", true, 3)
	if err != nil {
		t.Fatalf("ApplyManualGrade: %v", err)
	}
	if res.Score != 5 || !res.Reviewed {
		t.Fatalf("review result = %+v, want total 5 and reviewed", res)
	}

	stored, _ := store.FindByID(sub.ID)
	if *stored.Score != 5 || !stored.Reviewed {
		t.Fatalf("stored submission = %+v, want score 5, reviewed", stored)
	}
}

func TestApplyManualGradeGuards(t *testing.T) {
	svc, _, _ := fixture()
	sub, _ := svc.StartAttempt(7, "t1")

	if _, err := svc.ApplyManualGrade(42, sub.ID, "q2", true, 3); !errors.Is(err, util.ErrInvalidState) {
		t.Fatalf("manual grade before finalize: got %v, want InvalidStateError", err)
	}

	svc.RecordAnswer(7, sub.ID, "q1", "optA")
	svc.FinalizeAttempt(7, sub.ID)

	if _, err := svc.ApplyManualGrade(42, sub.ID, "q2", true, 4); !errors.Is(err, util.ErrValidation) {
		t.Fatalf("score above question points: got %v, want ValidationError", err)
	}
	if _, err := svc.ApplyManualGrade(42, sub.ID, "q2", true, -1); !errors.Is(err, util.ErrValidation) {
		t.Fatalf("negative score: got %v, want ValidationError", err)
	}
	if _, err := svc.ApplyManualGrade(42, sub.ID, "q1", true, 2); !errors.Is(err, util.ErrValidation) {
		t.Fatalf("manual grade on auto question: got %v, want ValidationError", err)
	}
}

func TestPartialReviewLeavesReviewedFalse(t *testing.T) {
	catalog := &memCatalog{
		tests: map[string]*model.Test{
			"t1": {UUIDBase: model.UUIDBase{ID: "t1"}, IsPublished: true},
		},
		questions: []model.Question{
			{UUIDBase: model.UUIDBase{ID: "e1"}, TestID: "t1", Kind: model.Essay, Points: 3},
			{UUIDBase: model.UUIDBase{ID: "e2"}, TestID: "t1", Kind: model.Essay, Points: 3},
		},
	}
	store := newMemStore()
	svc := NewAttemptService(catalog, catalog, store, allowAll{}, nil)

	sub, _ := svc.StartAttempt(7, "t1")
	svc.RecordAnswer(7, sub.ID, "e1", "first")
	svc.RecordAnswer(7, sub.ID, "e2", "second")
	svc.FinalizeAttempt(7, sub.ID)

	res, err := svc.ApplyManualGrade(42, sub.ID, "e1", true, 2)
	if err != nil {
		t.Fatalf("ApplyManualGrade: %v", err)
	}
	if res.Reviewed {
		t.Fatal("partial review must leave reviewed false")
	}
	if res.Score != 2 {
		t.Fatalf("partial review total = %d, want 2", res.Score)
	}

	res, err = svc.ApplyManualGrade(42, sub.ID, "e2", false, 0)
	if err != nil {
		t.Fatalf("ApplyManualGrade second essay: %v", err)
	}
	if !res.Reviewed || res.Score != 2 {
		t.Fatalf("full review result = %+v, want reviewed with total 2", res)
	}

	pending, _ := svc.ListPendingReview("t1")
	if len(pending) != 0 {
		t.Fatalf("reviewed submission still pending: %+v", pending)
	}
}

func TestManualCheckTestAllowsGradingAnyQuestion(t *testing.T) {
	svc, store, catalog := fixture()
	catalog.tests["t1"].RequiresManualCheck = true

	sub, _ := svc.StartAttempt(7, "t1")
	svc.RecordAnswer(7, sub.ID, "q1", "optB") // auto-graded wrong
	svc.RecordAnswer(7, sub.ID, "q2", "essay")

	res, _ := svc.FinalizeAttempt(7, sub.ID)
	if !res.RequiresManualReview {
		t.Fatal("manual-check test must require review")
	}

	// Teacher overrides the auto grade of the choice question.
	if _, err := svc.ApplyManualGrade(42, sub.ID, "q1", true, 2); err != nil {
		t.Fatalf("override on manual-check test: %v", err)
	}
	review, err := svc.ApplyManualGrade(42, sub.ID, "q2", true, 3)
	if err != nil {
		t.Fatalf("ApplyManualGrade essay: %v", err)
	}
	if review.Score != 5 || !review.Reviewed {
		t.Fatalf("review result = %+v, want 5 reviewed", review)
	}

	stored, _ := store.FindByID(sub.ID)
	if *stored.Score != 5 {
		t.Fatalf("stored score %d, want 5", *stored.Score)
	}
}

func TestDeleteSubmissionCascades(t *testing.T) {
	svc, store, _ := fixture()
	sub, _ := svc.StartAttempt(7, "t1")
	svc.RecordAnswer(7, sub.ID, "q1", "optA")

	if err := svc.DeleteSubmission(sub.ID); err != nil {
		t.Fatalf("DeleteSubmission: %v", err)
	}
	if _, err := store.FindByID(sub.ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatal("submission survived delete")
	}
	if answers, _ := store.AnswersForSubmission(sub.ID); len(answers) != 0 {
		t.Fatalf("orphaned answers after delete: %d", len(answers))
	}

	if err := svc.DeleteSubmission("missing"); !errors.Is(err, util.ErrNotFound) {
		t.Fatalf("delete unknown submission: got %v, want NotFound", err)
	}
}

func TestGetAttemptDetailOwnership(t *testing.T) {
	svc, _, _ := fixture()
	sub, _ := svc.StartAttempt(7, "t1")

	if _, err := svc.GetAttemptDetail(9, sub.ID, false); !errors.Is(err, util.ErrForbidden) {
		t.Fatalf("foreign student read: got %v, want Forbidden", err)
	}
	detail, err := svc.GetAttemptDetail(9, sub.ID, true)
	if err != nil {
		t.Fatalf("teacher view: %v", err)
	}
	if len(detail.Questions) != 2 {
		t.Fatalf("detail questions = %d, want 2", len(detail.Questions))
	}
}

func TestAttemptDetailHidesKeyWhileOpen(t *testing.T) {
	svc, _, catalog := fixture()
	catalog.questions[0].Explanation = "optA matches the lesson"
	catalog.questions = append(catalog.questions, model.Question{
		UUIDBase:        model.UUIDBase{ID: "q3"},
		TestID:          "t1",
		Kind:            model.TextInput,
		Points:          4,
		CanonicalAnswer: "Paris",
	})

	sub, _ := svc.StartAttempt(7, "t1")

	detail, err := svc.GetAttemptDetail(7, sub.ID, false)
	if err != nil {
		t.Fatalf("GetAttemptDetail: %v", err)
	}
	for _, q := range detail.Questions {
		if q.CanonicalAnswer != "" || q.Explanation != "" {
			t.Fatalf("open attempt exposes key on %s: %+v", q.ID, q)
		}
		for _, o := range q.Options {
			if o.IsCorrect {
				t.Fatalf("open attempt exposes correct option %s of %s", o.ID, q.ID)
			}
		}
	}

	// The teacher view keeps the full key, and hiding it from the student
	// must not have scrubbed the catalog itself.
	teacher, err := svc.GetAttemptDetail(0, sub.ID, true)
	if err != nil {
		t.Fatalf("teacher view: %v", err)
	}
	var correct, canonical bool
	for _, q := range teacher.Questions {
		if q.CanonicalAnswer != "" {
			canonical = true
		}
		for _, o := range q.Options {
			if o.IsCorrect {
				correct = true
			}
		}
	}
	if !correct || !canonical {
		t.Fatalf("teacher view lost the key: %+v", teacher.Questions)
	}

	// Once finalized the student gets the key back for feedback.
	svc.RecordAnswer(7, sub.ID, "q1", "optA")
	if _, err := svc.FinalizeAttempt(7, sub.ID); err != nil {
		t.Fatalf("FinalizeAttempt: %v", err)
	}
	after, err := svc.GetAttemptDetail(7, sub.ID, false)
	if err != nil {
		t.Fatalf("GetAttemptDetail after finalize: %v", err)
	}
	correct = false
	for _, q := range after.Questions {
		for _, o := range q.Options {
			if o.IsCorrect {
				correct = true
			}
		}
	}
	if !correct {
		t.Fatal("finalized attempt should show option correctness to its owner")
	}
}

func TestManualGradeIgnoresDeletedQuestionAnswers(t *testing.T) {
	catalog := &memCatalog{
		tests: map[string]*model.Test{
			"t1": {UUIDBase: model.UUIDBase{ID: "t1"}, IsPublished: true},
		},
		questions: []model.Question{
			{UUIDBase: model.UUIDBase{ID: "e1"}, TestID: "t1", Kind: model.Essay, Points: 3},
		},
	}
	store := newMemStore()
	svc := NewAttemptService(catalog, catalog, store, allowAll{}, nil)

	sub, _ := svc.StartAttempt(7, "t1")
	svc.RecordAnswer(7, sub.ID, "e1", "essay text")
	svc.FinalizeAttempt(7, sub.ID)

	// An ungraded answer whose question has since been removed from the test.
	store.answers[sub.ID]["gone"] = &model.StudentAnswer{
		UUIDBase:     model.UUIDBase{ID: "ans-gone"},
		SubmissionID: sub.ID,
		QuestionID:   "gone",
	}

	res, err := svc.ApplyManualGrade(42, sub.ID, "e1", true, 3)
	if err != nil {
		t.Fatalf("ApplyManualGrade: %v", err)
	}
	if res.Score != 3 || !res.Reviewed {
		t.Fatalf("review result = %+v, want total 3 and reviewed", res)
	}
}

// blindStore never sees an open submission, standing in for the window where
// a concurrent start has not yet become visible to the read. Only the store's
// unique open-attempt constraint can reject the duplicate then.
type blindStore struct{ *memStore }

func (s blindStore) FindOpenSubmission(userID uint, testID string) (*model.Submission, error) {
	return nil, gorm.ErrRecordNotFound
}

func TestStartAttemptRaceLostAtStore(t *testing.T) {
	_, store, catalog := fixture()
	svc := NewAttemptService(catalog, catalog, blindStore{store}, allowAll{}, nil)

	if _, err := svc.StartAttempt(7, "t1"); err != nil {
		t.Fatalf("first start: %v", err)
	}
	if _, err := svc.StartAttempt(7, "t1"); !errors.Is(err, util.ErrConflict) {
		t.Fatalf("raced second start: got %v, want ConflictError", err)
	}
	if len(store.submissions) != 1 {
		t.Fatalf("open submissions = %d, want exactly 1", len(store.submissions))
	}
}

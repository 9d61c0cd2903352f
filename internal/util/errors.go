package util

import (
	"errors"
	"fmt"
)

// Base sentinels of the engine's error taxonomy. Operation-specific errors
// wrap one of these with %w so callers can classify with errors.Is.
var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation failed")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrForbidden    = errors.New("forbidden")
)

var (
	ErrEmailRegistered      = fmt.Errorf("%w: email already registered", ErrConflict)
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrTestNotPublished     = fmt.Errorf("%w: test not published or not accessible", ErrValidation)
	ErrCourseNotPublished   = fmt.Errorf("%w: course not published", ErrValidation)
	ErrNotEnrolled          = fmt.Errorf("%w: student not enrolled in course", ErrValidation)
	ErrAttemptInProgress    = fmt.Errorf("%w: an attempt for this test is already in progress", ErrConflict)
	ErrAttemptClosed        = fmt.Errorf("%w: attempt already finalized", ErrInvalidState)
	ErrAttemptNotFinalized  = fmt.Errorf("%w: attempt not finalized yet", ErrInvalidState)
	ErrQuestionNotInTest    = fmt.Errorf("%w: question does not belong to this test", ErrValidation)
	ErrNotManuallyGradable  = fmt.Errorf("%w: question is not subject to manual grading", ErrValidation)
	ErrScoreOutOfRange      = fmt.Errorf("%w: score outside question point range", ErrValidation)
	ErrSubmissionNotFound   = fmt.Errorf("%w: submission", ErrNotFound)
	ErrTestNotFound         = fmt.Errorf("%w: test", ErrNotFound)
	ErrQuestionNotFound     = fmt.Errorf("%w: question", ErrNotFound)
	ErrCourseNotFound       = fmt.Errorf("%w: course", ErrNotFound)
	ErrLessonNotFound       = fmt.Errorf("%w: lesson", ErrNotFound)
	ErrAnswerNotFound       = fmt.Errorf("%w: student answer", ErrNotFound)
	ErrUserNotFound         = fmt.Errorf("%w: user", ErrNotFound)
	ErrAlreadyEnrolled      = fmt.Errorf("%w: already enrolled", ErrConflict)
	ErrNotSubmissionOwner   = fmt.Errorf("%w: submission belongs to another student", ErrForbidden)
)

// Package grading decides correctness and point value for a single student
// answer. It only computes; persistence and lifecycle sequencing live in the
// attempt service.
package grading

import (
	"strings"

	"course_platform_backend/internal/model"
)

// Outcome is the graded correctness of one answer. Unknown means the policy
// cannot decide and a teacher has to.
type Outcome int

const (
	Incorrect Outcome = iota
	Correct
	Unknown
)

// Result of grading one answer. Score is always 0 when the outcome is
// Unknown; the awarded points for such answers come from manual review.
type Result struct {
	Outcome Outcome
	Score   int
}

// TextMatcher compares a submitted text answer against the canonical one.
// Injectable so deployments can tune matching (exact, fuzzy, ...) without
// touching the per-kind dispatch.
type TextMatcher func(submitted, canonical string) bool

type Policy struct {
	matchText TextMatcher
}

type PolicyOption func(*Policy)

func WithTextMatcher(m TextMatcher) PolicyOption {
	return func(p *Policy) { p.matchText = m }
}

func NewPolicy(opts ...PolicyOption) *Policy {
	p := &Policy{matchText: NormalizedMatch}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Grade dispatches on the question kind. Bad student input (unparsable option
// ids, ids of another question, empty text) grades incorrect, never errors, so
// one malformed answer can never abort a scoring pass.
func (p *Policy) Grade(q *model.Question, answerText string) Result {
	switch q.Kind {
	case model.SingleChoice:
		return gradeSingleChoice(q, answerText)
	case model.MultipleChoice:
		return gradeMultipleChoice(q, answerText)
	case model.TextInput:
		return p.gradeTextInput(q, answerText)
	case model.Essay:
		return Result{Outcome: Unknown}
	default:
		// Unknown kinds fall back to manual review rather than guessing.
		return Result{Outcome: Unknown}
	}
}

func gradeSingleChoice(q *model.Question, answerText string) Result {
	ids := parseOptionIDs(answerText)
	if len(ids) != 1 {
		return Result{Outcome: Incorrect}
	}
	for _, opt := range q.Options {
		if opt.ID == ids[0] {
			if opt.IsCorrect {
				return Result{Outcome: Correct, Score: q.Points}
			}
			return Result{Outcome: Incorrect}
		}
	}
	// Option id from a different question.
	return Result{Outcome: Incorrect}
}

func gradeMultipleChoice(q *model.Question, answerText string) Result {
	selected := make(map[string]bool)
	for _, id := range parseOptionIDs(answerText) {
		selected[id] = true
	}

	correct := make(map[string]bool)
	for _, opt := range q.Options {
		if opt.IsCorrect {
			correct[opt.ID] = true
		}
	}

	// All-or-nothing: the selected set must equal the correct set exactly.
	// Supersets, subsets, disjoint sets and foreign option ids all miss.
	if len(correct) == 0 || len(selected) != len(correct) {
		return Result{Outcome: Incorrect}
	}
	for id := range selected {
		if !correct[id] {
			return Result{Outcome: Incorrect}
		}
	}
	return Result{Outcome: Correct, Score: q.Points}
}

func (p *Policy) gradeTextInput(q *model.Question, answerText string) Result {
	if strings.TrimSpace(q.CanonicalAnswer) == "" {
		// No canonical answer configured, fall back to manual grading.
		return Result{Outcome: Unknown}
	}
	if p.matchText(answerText, q.CanonicalAnswer) {
		return Result{Outcome: Correct, Score: q.Points}
	}
	return Result{Outcome: Incorrect}
}

// ManuallyGradable reports whether a question's answer may be adjusted through
// teacher review: essays always, text inputs without a canonical answer, and
// every question of a test flagged for manual checking.
func ManuallyGradable(q *model.Question, test *model.Test) bool {
	if test != nil && test.RequiresManualCheck {
		return true
	}
	switch q.Kind {
	case model.Essay:
		return true
	case model.TextInput:
		return strings.TrimSpace(q.CanonicalAnswer) == ""
	default:
		return false
	}
}

func parseOptionIDs(answerText string) []string {
	parts := strings.Split(answerText, ",")
	ids := make([]string, 0, len(parts))
	for _, p := range parts {
		if id := strings.TrimSpace(p); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// Package quiz drives a single timed test attempt: question set, countdown,
// answer capture, and at-most-one submission.
package quiz

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/volatiletech/null/v8"
)

var (
	// ErrAttemptNotFound means the user has no attempt record for this test;
	// terminal for the session, there is no retry loop.
	ErrAttemptNotFound = errors.New("test attempt not found")
	// ErrNoQuestions means the attempt's test has an empty question set.
	ErrNoQuestions = errors.New("test has no questions")
	// ErrAlreadyStarted is returned when Start is called twice.
	ErrAlreadyStarted = errors.New("session already started")
)

type (
	// Attempt is the user's test attempt record, resolved once at session
	// start and immutable thereafter.
	Attempt struct {
		ID        int       `json:"id"`
		UserID    string    `json:"user_id"`
		TestID    int       `json:"test_id"`
		StartedAt time.Time `json:"started_at"`
	}

	// Question is one item of the attempt's test. Regular questions carry an
	// ordered option list; Kraeplin questions carry a digit sequence instead
	// and their choices are derived.
	Question struct {
		ID       int      `json:"id"`
		TestID   int      `json:"test_id"`
		Prompt   string   `json:"question_text"`
		Options  []string `json:"options,omitempty"`
		Sequence []int    `json:"sequence,omitempty"`
		Correct  string   `json:"correct_answer"`
	}

	// Answer is one row of the batch submission.
	Answer struct {
		AttemptID  int         `json:"attempt_id"`
		QuestionID int         `json:"question_id"`
		TestID     int         `json:"test_id"`
		Answer     null.String `json:"answer"`
		IsCorrect  bool        `json:"is_correct"`
		AnsweredAt time.Time   `json:"answered_at"`
	}

	// Gateway is the backend surface the session consumes.
	// The production implementation lives in services/rest.
	Gateway interface {
		FindAttempt(ctx context.Context, userID string) (Attempt, error)
		QuestionsByTest(ctx context.Context, testID int) ([]Question, error)
		TestDuration(ctx context.Context, testID int) (time.Duration, error)
		PriorAnswers(ctx context.Context, attemptID int) ([]Answer, error)
		SubmitAnswers(ctx context.Context, answers []Answer) error
	}
)

func (q Question) IsKraeplin() bool { return len(q.Sequence) > 0 }

// Choices returns the question's selectable answers in order. For Kraeplin
// questions that is always the digits 0-9: the student answers with the last
// digit of the sum of the displayed pair.
func (q Question) Choices() []string {
	if !q.IsKraeplin() {
		return q.Options
	}
	digits := make([]string, 10)
	for i := range digits {
		digits[i] = strconv.Itoa(i)
	}
	return digits
}

// KraeplinAnswer computes the expected answer for a digit sequence: the last
// digit of its sum. Used when the backend leaves Correct empty.
func KraeplinAnswer(seq []int) string {
	var sum int
	for _, n := range seq {
		sum += n
	}
	if sum < 0 {
		sum = -sum
	}
	return strconv.Itoa(sum % 10)
}

// CorrectAnswer returns the question's correct answer, deriving it for
// Kraeplin questions when the backend omitted it.
func (q Question) CorrectAnswer() string {
	if q.Correct == "" && q.IsKraeplin() {
		return KraeplinAnswer(q.Sequence)
	}
	return q.Correct
}

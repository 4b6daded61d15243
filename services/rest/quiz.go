package restsvc

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/trezcool/darasa/core/quiz"
)

// QuizGateway implements quiz.Gateway:
//
//	GET  /test-attempts/user/{userID}
//	GET  /tests/{id}/questions
//	GET  /tests/{id}
//	GET  /test-attempts/{id}/answers
//	POST /test-answers
type QuizGateway struct {
	c *Client
}

var _ quiz.Gateway = (*QuizGateway)(nil)

func NewQuizGateway(c *Client) *QuizGateway {
	return &QuizGateway{c: c}
}

func (gw *QuizGateway) FindAttempt(ctx context.Context, userID string) (quiz.Attempt, error) {
	var out quiz.Attempt
	err := gw.c.get(ctx, "test-attempts/user/"+userID, &out)
	if err != nil {
		if IsStatus(err, http.StatusNotFound) {
			return quiz.Attempt{}, quiz.ErrAttemptNotFound
		}
		return quiz.Attempt{}, err
	}
	return out, nil
}

func (gw *QuizGateway) QuestionsByTest(ctx context.Context, testID int) ([]quiz.Question, error) {
	var out []quiz.Question
	if err := gw.c.get(ctx, fmt.Sprintf("tests/%d/questions", testID), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (gw *QuizGateway) TestDuration(ctx context.Context, testID int) (time.Duration, error) {
	var out struct {
		DurationSeconds int `json:"duration_seconds"`
	}
	if err := gw.c.get(ctx, fmt.Sprintf("tests/%d", testID), &out); err != nil {
		return 0, err
	}
	return time.Duration(out.DurationSeconds) * time.Second, nil
}

func (gw *QuizGateway) PriorAnswers(ctx context.Context, attemptID int) ([]quiz.Answer, error) {
	var out []quiz.Answer
	if err := gw.c.get(ctx, fmt.Sprintf("test-attempts/%d/answers", attemptID), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (gw *QuizGateway) SubmitAnswers(ctx context.Context, answers []quiz.Answer) error {
	return gw.c.post(ctx, "test-answers", answers, nil)
}

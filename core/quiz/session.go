package quiz

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/darasa/core"
)

// Phase is the session's lifecycle state.
type Phase int

const (
	NotStarted Phase = iota
	Active
	Submitted
	AlreadyCompleted
)

func (p Phase) String() string {
	switch p {
	case NotStarted:
		return "not started"
	case Active:
		return "active"
	case Submitted:
		return "submitted"
	case AlreadyCompleted:
		return "already completed"
	}
	return "unknown"
}

// Session runs one timed attempt for one user: it resolves the attempt and
// question set, counts down once per second, captures responses while
// Active, and submits the full answer batch at most once. Once the phase
// leaves Active, responses are frozen and no further tick is delivered.
type Session struct {
	conf   *core.Config
	auth   *core.Session
	gw     Gateway
	clock  core.Clock
	notify core.Notifier
	log    core.Logger

	mu        sync.Mutex
	phase     Phase
	attempt   Attempt
	questions []Question
	responses map[int]int // question id -> choice index
	remaining int
	ticker    core.Ticker
	done      chan struct{}

	nowFunc func() time.Time // mockable
}

func NewSession(conf *core.Config, auth *core.Session, gw Gateway, clock core.Clock, notify core.Notifier, log core.Logger) *Session {
	return &Session{
		conf:      conf,
		auth:      auth,
		gw:        gw,
		clock:     clock,
		notify:    notify,
		log:       log,
		responses: make(map[int]int),
		nowFunc:   time.Now,
	}
}

// Start resolves the attempt, its question set and duration, checks for a
// prior submission, and begins the countdown. Any failure leaves the session
// in NotStarted and is returned for the caller to render; a missing duration
// falls back to the configured default instead of blocking the student.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.phase != NotStarted {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.mu.Unlock()

	attempt, err := s.gw.FindAttempt(ctx, s.auth.UserID)
	if err != nil {
		return err
	}

	questions, err := s.gw.QuestionsByTest(ctx, attempt.TestID)
	if err != nil {
		return errors.Wrap(err, "loading questions")
	}
	if len(questions) == 0 {
		return ErrNoQuestions
	}

	duration, err := s.gw.TestDuration(ctx, attempt.TestID)
	if err != nil || duration <= 0 {
		duration = s.conf.Quiz.DefaultDuration
		s.log.Warn("test duration unavailable, using default", "testID", attempt.TestID, "default", duration)
	}

	prior, err := s.gw.PriorAnswers(ctx, attempt.ID)
	if err != nil {
		return errors.Wrap(err, "checking prior answers")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != NotStarted {
		return ErrAlreadyStarted
	}
	s.attempt = attempt
	s.questions = questions

	// re-attempts are disallowed by policy, not merely hidden in the UI
	if len(prior) > 0 {
		s.phase = AlreadyCompleted
		return nil
	}

	s.remaining = int(duration / time.Second)
	s.phase = Active
	s.ticker = s.clock.NewTicker(time.Second)
	s.done = make(chan struct{})
	go s.run(s.ticker, s.done)
	return nil
}

func (s *Session) run(ticker core.Ticker, done chan struct{}) {
	for {
		select {
		case <-done:
			return
		case _, ok := <-ticker.C():
			if !ok {
				return
			}
			s.Tick()
		}
	}
}

// Tick decrements the countdown; at zero it triggers the one allowed
// submission. Driven once per second by the session's ticker while Active;
// a tick delivered in any other phase has no effect. The Active check and
// the decrement share the mutex with Submit, so a timeout and a manual
// submit can never both fire.
func (s *Session) Tick() {
	s.mu.Lock()
	if s.phase != Active {
		s.mu.Unlock()
		return
	}
	if s.remaining > 0 {
		s.remaining--
	}
	timeUp := s.remaining == 0
	s.mu.Unlock()

	if timeUp {
		s.Submit(context.Background())
	}
}

// Phase returns the current lifecycle state.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Remaining returns the countdown in seconds.
func (s *Session) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remaining
}

// Attempt returns the resolved attempt record.
func (s *Session) Attempt() Attempt {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempt
}

// Questions returns the ordered question set.
func (s *Session) Questions() []Question {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Question(nil), s.questions...)
}

// RecordResponse stores the selected choice for a question, overwriting any
// prior selection (last write wins). Valid only while Active; unknown
// questions and out-of-range indexes are ignored.
func (s *Session) RecordResponse(questionID, choiceIndex int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != Active {
		return
	}
	for _, q := range s.questions {
		if q.ID == questionID {
			if choiceIndex >= 0 && choiceIndex < len(q.Choices()) {
				s.responses[questionID] = choiceIndex
			}
			return
		}
	}
}

// Response returns the recorded choice index for a question, if any.
func (s *Session) Response(questionID int) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, ok := s.responses[questionID]
	return idx, ok
}

// Submit ends the attempt and posts the full answer batch in one request.
// The phase flips to Submitted before the network call, so a double click or
// a timeout racing a manual submit results in exactly one POST. A failed
// POST is reported but does not revert the phase: the attempt is consumed
// either way.
func (s *Session) Submit(ctx context.Context) {
	s.mu.Lock()
	if s.phase != Active {
		s.mu.Unlock()
		return
	}
	s.phase = Submitted
	s.stopTimerLocked()
	batch := s.buildAnswersLocked()
	s.mu.Unlock()

	if err := s.gw.SubmitAnswers(ctx, batch); err != nil {
		err = errors.Wrap(err, "submitting answers")
		s.log.Error(err.Error(), err)
		s.notify.Error("could not submit your answers")
		return
	}
	s.notify.Success("test submitted")
}

// buildAnswersLocked builds one row per question. The chosen answer is
// looked up by index into the question's own choice list and compared
// against the question's correct answer; unanswered questions are submitted
// with a null answer. callers must hold s.mu.
func (s *Session) buildAnswersLocked() []Answer {
	now := s.nowFunc().UTC()
	batch := make([]Answer, 0, len(s.questions))
	for _, q := range s.questions {
		ans := Answer{
			AttemptID:  s.attempt.ID,
			QuestionID: q.ID,
			TestID:     q.TestID,
			AnsweredAt: now,
		}
		if idx, ok := s.responses[q.ID]; ok {
			chosen := q.Choices()[idx]
			ans.Answer = null.StringFrom(chosen)
			ans.IsCorrect = chosen == q.CorrectAnswer()
		}
		batch = append(batch, ans)
	}
	return batch
}

// Score counts correct responses.
func (s *Session) Score() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	var score int
	for _, q := range s.questions {
		if idx, ok := s.responses[q.ID]; ok && q.Choices()[idx] == q.CorrectAnswer() {
			score++
		}
	}
	return score
}

// Close tears the timer down; call on navigation away. The phase is left as
// is, but no further tick fires.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopTimerLocked()
}

// callers must hold s.mu.
func (s *Session) stopTimerLocked() {
	if s.ticker != nil {
		s.ticker.Stop()
		s.ticker = nil
	}
	if s.done != nil {
		close(s.done)
		s.done = nil
	}
}

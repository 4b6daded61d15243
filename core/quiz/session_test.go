package quiz

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/trezcool/darasa/core"
	testutil "github.com/trezcool/darasa/tests"
)

type fakeGateway struct {
	mu sync.Mutex

	attempt    Attempt
	attemptErr error

	questions    []Question
	questionsErr error

	duration    time.Duration
	durationErr error

	prior    []Answer
	priorErr error

	submitErr   error
	submitCalls int
	lastBatch   []Answer
}

var _ Gateway = (*fakeGateway)(nil)

func (gw *fakeGateway) FindAttempt(context.Context, string) (Attempt, error) {
	return gw.attempt, gw.attemptErr
}

func (gw *fakeGateway) QuestionsByTest(context.Context, int) ([]Question, error) {
	return gw.questions, gw.questionsErr
}

func (gw *fakeGateway) TestDuration(context.Context, int) (time.Duration, error) {
	return gw.duration, gw.durationErr
}

func (gw *fakeGateway) PriorAnswers(context.Context, int) ([]Answer, error) {
	return gw.prior, gw.priorErr
}

func (gw *fakeGateway) SubmitAnswers(_ context.Context, answers []Answer) error {
	gw.mu.Lock()
	defer gw.mu.Unlock()
	gw.submitCalls++
	gw.lastBatch = append([]Answer(nil), answers...)
	return gw.submitErr
}

func (gw *fakeGateway) SubmitCalls() int {
	gw.mu.Lock()
	defer gw.mu.Unlock()
	return gw.submitCalls
}

func testConfig() *core.Config {
	conf := &core.Config{TestMode: true}
	conf.Quiz.DefaultDuration = 5 * time.Minute
	return conf
}

func defaultGateway() *fakeGateway {
	return &fakeGateway{
		attempt:  Attempt{ID: 42, UserID: "7", TestID: 3},
		duration: 90 * time.Second,
		questions: []Question{
			{ID: 1, TestID: 3, Prompt: "2+2?", Options: []string{"3", "4", "5"}, Correct: "4"},
			{ID: 2, TestID: 3, Prompt: "Capital of France?", Options: []string{"Paris", "Rome"}, Correct: "Paris"},
		},
	}
}

func newTestSession(gw *fakeGateway) (*Session, *testutil.ManualClock, *testutil.NotifierRecorder) {
	clock := testutil.NewManualClock()
	notif := testutil.NewNotifierRecorder()
	sess := NewSession(testConfig(), core.StaticSession("7"), gw, clock, notif, testutil.NopLogger{})
	return sess, clock, notif
}

func TestSession_Start(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		mutate    func(gw *fakeGateway)
		wantErr   error
		wantPhase Phase
		wantSecs  int
	}{
		{
			name:      "happy path",
			mutate:    func(*fakeGateway) {},
			wantPhase: Active,
			wantSecs:  90,
		},
		{
			name:      "no attempt record",
			mutate:    func(gw *fakeGateway) { gw.attemptErr = ErrAttemptNotFound },
			wantErr:   ErrAttemptNotFound,
			wantPhase: NotStarted,
		},
		{
			name:      "empty question set",
			mutate:    func(gw *fakeGateway) { gw.questions = nil },
			wantErr:   ErrNoQuestions,
			wantPhase: NotStarted,
		},
		{
			name:      "missing duration falls back to default",
			mutate:    func(gw *fakeGateway) { gw.durationErr = errors.New("boom") },
			wantPhase: Active,
			wantSecs:  300,
		},
		{
			name:      "zero duration falls back to default",
			mutate:    func(gw *fakeGateway) { gw.duration = 0 },
			wantPhase: Active,
			wantSecs:  300,
		},
		{
			name: "prior submission short-circuits",
			mutate: func(gw *fakeGateway) {
				gw.prior = []Answer{{AttemptID: 42, QuestionID: 1}}
			},
			wantPhase: AlreadyCompleted,
		},
		{
			name:      "prior answers lookup failure",
			mutate:    func(gw *fakeGateway) { gw.priorErr = errors.New("boom") },
			wantErr:   gwErr,
			wantPhase: NotStarted,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := defaultGateway()
			tt.mutate(gw)
			sess, _, _ := newTestSession(gw)
			defer sess.Close()

			err := sess.Start(ctx)
			if tt.wantErr != nil {
				if err == nil {
					t.Fatal("Start() error = nil, want an error")
				}
				if tt.wantErr != gwErr && !errors.Is(err, tt.wantErr) {
					t.Errorf("Start() error = %v, want %v", err, tt.wantErr)
				}
			} else if err != nil {
				t.Fatalf("Start() error = %v", err)
			}
			if got := sess.Phase(); got != tt.wantPhase {
				t.Errorf("Phase() = %v, want %v", got, tt.wantPhase)
			}
			if tt.wantSecs != 0 {
				if got := sess.Remaining(); got != tt.wantSecs {
					t.Errorf("Remaining() = %d, want %d", got, tt.wantSecs)
				}
			}
			if tt.wantPhase == AlreadyCompleted {
				sess.Tick() // no countdown runs for a completed attempt
				if got := sess.Remaining(); got != 0 {
					t.Errorf("Remaining() after stray tick = %d, want 0", got)
				}
			}
		})
	}
}

// gwErr marks "any wrapped gateway error" in the table above.
var gwErr = errors.New("gateway error")

func TestSession_StartTwice(t *testing.T) {
	ctx := context.Background()
	sess, _, _ := newTestSession(defaultGateway())
	defer sess.Close()

	if err := sess.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := sess.Start(ctx); err != ErrAlreadyStarted {
		t.Errorf("second Start() error = %v, want ErrAlreadyStarted", err)
	}
}

func TestSession_RecordResponse(t *testing.T) {
	ctx := context.Background()
	sess, _, _ := newTestSession(defaultGateway())
	defer sess.Close()

	sess.RecordResponse(1, 1) // before Start: ignored
	if _, ok := sess.Response(1); ok {
		t.Error("response recorded before Start")
	}

	if err := sess.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	sess.RecordResponse(1, 0)
	sess.RecordResponse(1, 1) // last write wins
	if idx, ok := sess.Response(1); !ok || idx != 1 {
		t.Errorf("Response(1) = %d, %v; want 1, true", idx, ok)
	}

	sess.RecordResponse(99, 0) // unknown question
	if _, ok := sess.Response(99); ok {
		t.Error("response recorded for unknown question")
	}

	sess.RecordResponse(2, 5) // out of range
	if _, ok := sess.Response(2); ok {
		t.Error("out-of-range choice recorded")
	}

	sess.Submit(ctx)
	sess.RecordResponse(2, 0) // frozen after submission
	if _, ok := sess.Response(2); ok {
		t.Error("responses must be frozen once submitted")
	}
}

func TestSession_Tick(t *testing.T) {
	ctx := context.Background()

	t.Run("decrements once per tick, never below zero", func(t *testing.T) {
		gw := defaultGateway()
		gw.duration = 2 * time.Second
		sess, _, _ := newTestSession(gw)
		defer sess.Close()

		if err := sess.Start(ctx); err != nil {
			t.Fatalf("Start() error = %v", err)
		}
		sess.Tick()
		if got := sess.Remaining(); got != 1 {
			t.Errorf("Remaining() = %d, want 1", got)
		}
		sess.Tick() // hits zero, auto-submits
		if got := sess.Remaining(); got != 0 {
			t.Errorf("Remaining() = %d, want 0", got)
		}
		sess.Tick() // must not go negative nor fire again
		if got := sess.Remaining(); got != 0 {
			t.Errorf("Remaining() after extra tick = %d, want 0", got)
		}
		if got := gw.SubmitCalls(); got != 1 {
			t.Errorf("submit calls = %d, want exactly 1", got)
		}
	})

	t.Run("auto-submit at zero", func(t *testing.T) {
		gw := defaultGateway()
		gw.duration = 1 * time.Second
		sess, clock, _ := newTestSession(gw)
		defer sess.Close()

		if err := sess.Start(ctx); err != nil {
			t.Fatalf("Start() error = %v", err)
		}
		sess.RecordResponse(1, 1)
		sess.Tick()

		if got := sess.Phase(); got != Submitted {
			t.Errorf("Phase() = %v, want Submitted", got)
		}
		if got := gw.SubmitCalls(); got != 1 {
			t.Errorf("submit calls = %d, want 1", got)
		}
		if !clock.Ticker.Stopped() {
			t.Error("ticker must be stopped on auto-submit")
		}
	})
}

func TestSession_Submit(t *testing.T) {
	ctx := context.Background()

	t.Run("double submit posts once", func(t *testing.T) {
		gw := defaultGateway()
		sess, clock, _ := newTestSession(gw)
		defer sess.Close()

		if err := sess.Start(ctx); err != nil {
			t.Fatalf("Start() error = %v", err)
		}
		sess.Submit(ctx)
		sess.Submit(ctx) // double click / timeout racing the click

		if got := gw.SubmitCalls(); got != 1 {
			t.Errorf("submit calls = %d, want exactly 1", got)
		}
		if !clock.Ticker.Stopped() {
			t.Error("ticker must be stopped on submit")
		}
	})

	t.Run("builds one row per question, null for unanswered", func(t *testing.T) {
		gw := defaultGateway()
		sess, _, _ := newTestSession(gw)
		defer sess.Close()

		if err := sess.Start(ctx); err != nil {
			t.Fatalf("Start() error = %v", err)
		}
		sess.RecordResponse(1, 1) // "4", correct
		sess.Submit(ctx)

		if len(gw.lastBatch) != 2 {
			t.Fatalf("batch size = %d, want 2", len(gw.lastBatch))
		}
		first, second := gw.lastBatch[0], gw.lastBatch[1]
		if first.AttemptID != 42 || first.QuestionID != 1 || first.TestID != 3 {
			t.Errorf("row = %+v", first)
		}
		if !first.Answer.Valid || first.Answer.String != "4" || !first.IsCorrect {
			t.Errorf("answered row = %+v; want answer \"4\", correct", first)
		}
		if second.Answer.Valid || second.IsCorrect {
			t.Errorf("unanswered row = %+v; want null answer, not correct", second)
		}
		if first.AnsweredAt.IsZero() {
			t.Error("answered_at not set")
		}
	})

	t.Run("fail-forward on network failure", func(t *testing.T) {
		gw := defaultGateway()
		gw.submitErr = errors.New("boom")
		sess, _, notif := newTestSession(gw)
		defer sess.Close()

		if err := sess.Start(ctx); err != nil {
			t.Fatalf("Start() error = %v", err)
		}
		sess.Submit(ctx)

		if got := sess.Phase(); got != Submitted {
			t.Errorf("Phase() = %v, want Submitted (attempt is consumed)", got)
		}
		if notif.LastError() == "" {
			t.Error("expected an error notification")
		}
		sess.Submit(ctx) // still no second POST
		if got := gw.SubmitCalls(); got != 1 {
			t.Errorf("submit calls = %d, want 1", got)
		}
	})
}

func TestSession_Score(t *testing.T) {
	ctx := context.Background()
	sess, _, _ := newTestSession(defaultGateway())
	defer sess.Close()

	if err := sess.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	sess.RecordResponse(1, 1) // correct
	sess.RecordResponse(2, 1) // wrong
	if got := sess.Score(); got != 1 {
		t.Errorf("Score() = %d, want 1", got)
	}
}

func TestSession_Close(t *testing.T) {
	ctx := context.Background()
	sess, clock, _ := newTestSession(defaultGateway())

	if err := sess.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	sess.Close()
	if !clock.Ticker.Stopped() {
		t.Error("ticker must be stopped on teardown")
	}
	sess.Close() // idempotent
}

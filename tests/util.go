// Package testutil holds the shared fakes for controller and CLI tests.
package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/entity"
)

// ManualTicker is a core.Ticker driven by the test instead of the wall
// clock.
type ManualTicker struct {
	mu      sync.Mutex
	ch      chan time.Time
	stopped bool
}

var _ core.Ticker = (*ManualTicker)(nil)

func NewManualTicker() *ManualTicker {
	return &ManualTicker{ch: make(chan time.Time, 1)}
}

func (t *ManualTicker) C() <-chan time.Time { return t.ch }

func (t *ManualTicker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
}

func (t *ManualTicker) Stopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

// ManualClock hands out a prepared ticker.
type ManualClock struct {
	Ticker *ManualTicker
}

var _ core.Clock = (*ManualClock)(nil)

func NewManualClock() *ManualClock {
	return &ManualClock{Ticker: NewManualTicker()}
}

func (c *ManualClock) NewTicker(time.Duration) core.Ticker { return c.Ticker }

// NotifierRecorder captures notifications for assertions.
type NotifierRecorder struct {
	mu        sync.Mutex
	Successes []string
	Errors    []string
	Infos     []string
}

var _ core.Notifier = (*NotifierRecorder)(nil)

func NewNotifierRecorder() *NotifierRecorder { return &NotifierRecorder{} }

func (n *NotifierRecorder) Success(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Successes = append(n.Successes, msg)
}

func (n *NotifierRecorder) Error(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Errors = append(n.Errors, msg)
}

func (n *NotifierRecorder) Info(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Infos = append(n.Infos, msg)
}

func (n *NotifierRecorder) LastError() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.Errors) == 0 {
		return ""
	}
	return n.Errors[len(n.Errors)-1]
}

func (n *NotifierRecorder) LastInfo() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.Infos) == 0 {
		return ""
	}
	return n.Infos[len(n.Infos)-1]
}

// StubConfirmer answers every prompt with Answer and counts the calls.
type StubConfirmer struct {
	mu     sync.Mutex
	Answer bool
	Calls  int
}

var _ core.Confirmer = (*StubConfirmer)(nil)

func (c *StubConfirmer) Confirm(ctx context.Context, _ string) bool {
	c.mu.Lock()
	c.Calls++
	c.mu.Unlock()
	if ctx.Err() != nil {
		return false
	}
	return c.Answer
}

// NopLogger discards everything.
type NopLogger struct{}

var _ core.Logger = NopLogger{}

func (NopLogger) Debug(string, ...interface{}) {}
func (NopLogger) Info(string, ...interface{})  {}
func (NopLogger) Warn(string, ...interface{})  {}
func (NopLogger) Error(string, ...interface{}) {}
func (NopLogger) Fatal(string, ...interface{}) {}

// FakeGateway is an in-memory entity.Gateway; the zero value is usable.
type FakeGateway[R entity.Record] struct {
	mu    sync.Mutex
	Items []R

	ListErr   error
	CreateErr error
	UpdateErr error
	DeleteErr error
	BulkErr   error

	ListCalls   int
	CreateCalls int
	UpdateCalls int
	DeleteCalls int
	BulkCalls   int
	LastBulkIDs []int
}

var _ entity.Gateway[entity.User] = (*FakeGateway[entity.User])(nil)

func (gw *FakeGateway[R]) List(context.Context) ([]R, error) {
	gw.mu.Lock()
	defer gw.mu.Unlock()
	gw.ListCalls++
	if gw.ListErr != nil {
		return nil, gw.ListErr
	}
	return append([]R(nil), gw.Items...), nil
}

func (gw *FakeGateway[R]) Create(_ context.Context, rec R) (R, error) {
	gw.mu.Lock()
	defer gw.mu.Unlock()
	gw.CreateCalls++
	if gw.CreateErr != nil {
		return rec, gw.CreateErr
	}
	gw.Items = append(gw.Items, rec)
	return rec, nil
}

func (gw *FakeGateway[R]) Update(_ context.Context, rec R) (R, error) {
	gw.mu.Lock()
	defer gw.mu.Unlock()
	gw.UpdateCalls++
	if gw.UpdateErr != nil {
		return rec, gw.UpdateErr
	}
	for i, it := range gw.Items {
		if it.EntityID() == rec.EntityID() {
			gw.Items[i] = rec
			break
		}
	}
	return rec, nil
}

func (gw *FakeGateway[R]) Delete(_ context.Context, id int) error {
	gw.mu.Lock()
	defer gw.mu.Unlock()
	gw.DeleteCalls++
	if gw.DeleteErr != nil {
		return gw.DeleteErr
	}
	gw.remove(id)
	return nil
}

func (gw *FakeGateway[R]) DeleteMany(_ context.Context, ids []int) error {
	gw.mu.Lock()
	defer gw.mu.Unlock()
	gw.BulkCalls++
	gw.LastBulkIDs = append([]int(nil), ids...)
	if gw.BulkErr != nil {
		return gw.BulkErr
	}
	for _, id := range ids {
		gw.remove(id)
	}
	return nil
}

// callers must hold gw.mu.
func (gw *FakeGateway[R]) remove(id int) {
	for i, it := range gw.Items {
		if it.EntityID() == id {
			gw.Items = append(gw.Items[:i], gw.Items[i+1:]...)
			return
		}
	}
}

package restsvc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/entity"
	"github.com/trezcool/darasa/core/quiz"
)

// fakeBackend is an in-memory rendition of the API, served by echo so the
// client is exercised against a real router and real JSON.
type fakeBackend struct {
	mu      sync.Mutex
	courses map[int]entity.Course
	nextID  int

	lastAuth  string
	lastReqID string
	bulkIDs   []int
	answers   []quiz.Answer
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		courses: map[int]entity.Course{
			1: {ID: 1, Title: "Algebra"},
			2: {ID: 2, Title: "Biology"},
		},
		nextID: 3,
	}
}

func (b *fakeBackend) headers() (auth, reqID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastAuth, b.lastReqID
}

func (b *fakeBackend) receivedBulkIDs() []int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]int(nil), b.bulkIDs...)
}

func (b *fakeBackend) receivedAnswers() []quiz.Answer {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]quiz.Answer(nil), b.answers...)
}

func (b *fakeBackend) handler() http.Handler {
	e := echo.New()
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			b.mu.Lock()
			b.lastAuth = c.Request().Header.Get("Authorization")
			b.lastReqID = c.Request().Header.Get("X-Request-ID")
			b.mu.Unlock()
			return next(c)
		}
	})

	api := e.Group("/api")
	api.POST("/auth/login", func(c echo.Context) error {
		var creds map[string]string
		if err := json.NewDecoder(c.Request().Body).Decode(&creds); err != nil {
			return c.NoContent(http.StatusBadRequest)
		}
		if creds["username"] != "awa" || creds["password"] != "s3cret" {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
		}
		return c.JSON(http.StatusOK, map[string]string{"token": "issued-token"})
	})

	api.GET("/courses", func(c echo.Context) error {
		b.mu.Lock()
		defer b.mu.Unlock()
		out := make([]entity.Course, 0, len(b.courses))
		for _, crs := range b.courses {
			out = append(out, crs)
		}
		return c.JSON(http.StatusOK, out)
	})
	api.POST("/courses", func(c echo.Context) error {
		var crs entity.Course
		if err := json.NewDecoder(c.Request().Body).Decode(&crs); err != nil {
			return c.NoContent(http.StatusBadRequest)
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		crs.ID = b.nextID
		b.nextID++
		b.courses[crs.ID] = crs
		return c.JSON(http.StatusCreated, crs)
	})
	api.PUT("/courses/:id", func(c echo.Context) error {
		id, _ := strconv.Atoi(c.Param("id"))
		var crs entity.Course
		if err := json.NewDecoder(c.Request().Body).Decode(&crs); err != nil {
			return c.NoContent(http.StatusBadRequest)
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.courses[id]; !ok {
			return c.NoContent(http.StatusNotFound)
		}
		crs.ID = id
		b.courses[id] = crs
		return c.JSON(http.StatusOK, crs)
	})
	api.DELETE("/courses/bulk-delete", func(c echo.Context) error {
		var body struct {
			IDs []int `json:"ids"`
		}
		if err := json.NewDecoder(c.Request().Body).Decode(&body); err != nil {
			return c.NoContent(http.StatusBadRequest)
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		b.bulkIDs = append([]int(nil), body.IDs...)
		for _, id := range body.IDs {
			delete(b.courses, id)
		}
		return c.NoContent(http.StatusNoContent)
	})
	api.DELETE("/courses/:id", func(c echo.Context) error {
		id, _ := strconv.Atoi(c.Param("id"))
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.courses[id]; !ok {
			return c.NoContent(http.StatusNotFound)
		}
		delete(b.courses, id)
		return c.NoContent(http.StatusNoContent)
	})

	api.GET("/test-attempts/user/:uid", func(c echo.Context) error {
		if c.Param("uid") != "7" {
			return c.NoContent(http.StatusNotFound)
		}
		return c.JSON(http.StatusOK, quiz.Attempt{ID: 42, UserID: "7", TestID: 3})
	})
	api.GET("/tests/:id", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]int{"duration_seconds": 90})
	})
	api.GET("/tests/:id/questions", func(c echo.Context) error {
		return c.JSON(http.StatusOK, []quiz.Question{
			{ID: 1, TestID: 3, Prompt: "2+2?", Options: []string{"3", "4"}, Correct: "4"},
		})
	})
	api.GET("/test-attempts/:id/answers", func(c echo.Context) error {
		return c.JSON(http.StatusOK, []quiz.Answer{})
	})
	api.POST("/test-answers", func(c echo.Context) error {
		var batch []quiz.Answer
		if err := json.NewDecoder(c.Request().Body).Decode(&batch); err != nil {
			return c.NoContent(http.StatusBadRequest)
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		b.answers = batch
		return c.NoContent(http.StatusCreated)
	})

	return e
}

func newTestClient(t *testing.T, backend *fakeBackend) (*Client, *core.Session) {
	t.Helper()
	srv := httptest.NewServer(backend.handler())
	t.Cleanup(srv.Close)

	conf := &core.Config{TestMode: true}
	conf.API.BaseURL = srv.URL + "/api"
	conf.API.RequestTimeout = 5 * time.Second

	sess := core.StaticSession("7")
	sess.Token = "test-token"
	return NewClient(conf, sess), sess
}

func TestClient_headers(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	client, _ := newTestClient(t, backend)

	if err := client.get(ctx, "courses", nil); err != nil {
		t.Fatalf("get() error = %v", err)
	}
	auth, reqID := backend.headers()
	if auth != "Bearer test-token" {
		t.Errorf("Authorization = %q, want the session bearer token", auth)
	}
	if reqID == "" {
		t.Error("X-Request-ID not set")
	}
}

func TestClient_Login(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	conf := &core.Config{TestMode: true}
	conf.API.BaseURL = srv.URL + "/api"
	conf.API.RequestTimeout = 5 * time.Second
	client := NewClient(conf, nil)

	token, err := client.Login(ctx, "awa", "s3cret")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if token != "issued-token" {
		t.Errorf("token = %q", token)
	}
	if auth, _ := backend.headers(); auth != "" {
		t.Errorf("login must be unauthenticated, got Authorization %q", auth)
	}

	if _, err = client.Login(ctx, "awa", "wrong"); !IsStatus(err, http.StatusUnauthorized) {
		t.Errorf("Login() with bad password error = %v, want 401 StatusError", err)
	}
}

func TestEntityGateway(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	client, _ := newTestClient(t, backend)
	gw := NewEntityGateway(client, entity.Courses)

	t.Run("list", func(t *testing.T) {
		items, err := gw.List(ctx)
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(items) != 2 {
			t.Errorf("List() returned %d items, want 2", len(items))
		}
	})

	t.Run("create", func(t *testing.T) {
		created, err := gw.Create(ctx, entity.Course{Title: "Chemistry"})
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if created.ID == 0 || created.Title != "Chemistry" {
			t.Errorf("Create() = %+v, want a server-assigned id", created)
		}
	})

	t.Run("update", func(t *testing.T) {
		updated, err := gw.Update(ctx, entity.Course{ID: 1, Title: "Linear Algebra"})
		if err != nil {
			t.Fatalf("Update() error = %v", err)
		}
		if updated.Title != "Linear Algebra" {
			t.Errorf("Update() = %+v", updated)
		}
	})

	t.Run("delete", func(t *testing.T) {
		if err := gw.Delete(ctx, 2); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		if err := gw.Delete(ctx, 2); !IsStatus(err, http.StatusNotFound) {
			t.Errorf("Delete() again error = %v, want 404 StatusError", err)
		}
	})

	t.Run("bulk delete sends the id set in the body", func(t *testing.T) {
		if err := gw.DeleteMany(ctx, []int{1, 3}); err != nil {
			t.Fatalf("DeleteMany() error = %v", err)
		}
		if ids := backend.receivedBulkIDs(); len(ids) != 2 || ids[0] != 1 || ids[1] != 3 {
			t.Errorf("backend received ids %v, want [1 3]", ids)
		}
	})
}

func TestQuizGateway(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	client, _ := newTestClient(t, backend)
	gw := NewQuizGateway(client)

	t.Run("find attempt", func(t *testing.T) {
		attempt, err := gw.FindAttempt(ctx, "7")
		if err != nil {
			t.Fatalf("FindAttempt() error = %v", err)
		}
		if attempt.ID != 42 || attempt.TestID != 3 {
			t.Errorf("FindAttempt() = %+v", attempt)
		}
	})

	t.Run("missing attempt maps 404 to the sentinel", func(t *testing.T) {
		if _, err := gw.FindAttempt(ctx, "999"); err != quiz.ErrAttemptNotFound {
			t.Errorf("FindAttempt() error = %v, want ErrAttemptNotFound", err)
		}
	})

	t.Run("test duration", func(t *testing.T) {
		d, err := gw.TestDuration(ctx, 3)
		if err != nil {
			t.Fatalf("TestDuration() error = %v", err)
		}
		if d != 90*time.Second {
			t.Errorf("TestDuration() = %v, want 90s", d)
		}
	})

	t.Run("questions", func(t *testing.T) {
		questions, err := gw.QuestionsByTest(ctx, 3)
		if err != nil {
			t.Fatalf("QuestionsByTest() error = %v", err)
		}
		if len(questions) != 1 || questions[0].Prompt != "2+2?" {
			t.Errorf("QuestionsByTest() = %+v", questions)
		}
	})

	t.Run("prior answers", func(t *testing.T) {
		prior, err := gw.PriorAnswers(ctx, 42)
		if err != nil {
			t.Fatalf("PriorAnswers() error = %v", err)
		}
		if len(prior) != 0 {
			t.Errorf("PriorAnswers() = %+v, want empty", prior)
		}
	})

	t.Run("submit posts the batch", func(t *testing.T) {
		batch := []quiz.Answer{{AttemptID: 42, QuestionID: 1, TestID: 3}}
		if err := gw.SubmitAnswers(ctx, batch); err != nil {
			t.Fatalf("SubmitAnswers() error = %v", err)
		}
		if got := backend.receivedAnswers(); len(got) != 1 || got[0].AttemptID != 42 {
			t.Errorf("backend received %+v", got)
		}
	})
}

func TestStatusError(t *testing.T) {
	err := &StatusError{Code: http.StatusNotFound, Method: http.MethodGet, Path: "courses/9"}
	want := "GET courses/9: Not Found (404)"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !IsStatus(err, http.StatusNotFound) || IsStatus(err, http.StatusConflict) {
		t.Error("IsStatus() misclassifies")
	}
}

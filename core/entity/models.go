package entity

import (
	"time"

	"github.com/volatiletech/null/v8"
)

// The record types below mirror the backend's JSON shapes; `validate` tags
// carry the local required-field rules checked before any network call.

type User struct {
	ID        int       `json:"id"`
	Name      string    `json:"name" validate:"required"`
	Username  string    `json:"username" validate:"required"`
	Email     string    `json:"email" validate:"omitempty,email"`
	RoleID    null.Int  `json:"role_id"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (u User) EntityID() int        { return u.ID }
func (u User) SearchText() []string { return []string{u.Name, u.Username, u.Email} }

type Role struct {
	ID          int         `json:"id"`
	Name        string      `json:"name" validate:"required"`
	Description null.String `json:"description"`
}

func (r Role) EntityID() int        { return r.ID }
func (r Role) SearchText() []string { return []string{r.Name, r.Description.String} }

type Permission struct {
	ID    int    `json:"id"`
	Name  string `json:"name" validate:"required"`
	Group string `json:"group_name"`
}

func (p Permission) EntityID() int        { return p.ID }
func (p Permission) SearchText() []string { return []string{p.Name, p.Group} }

type MenuItem struct {
	ID       int         `json:"id"`
	Title    string      `json:"title" validate:"required"`
	Path     string      `json:"path"`
	Icon     null.String `json:"icon"`
	ParentID null.Int    `json:"parent_id"`
	Sequence int         `json:"sequence"`
}

func (m MenuItem) EntityID() int        { return m.ID }
func (m MenuItem) SearchText() []string { return []string{m.Title, m.Path} }

type Course struct {
	ID          int         `json:"id"`
	Title       string      `json:"title" validate:"required"`
	Description null.String `json:"description"`
	TeacherID   null.Int    `json:"teacher_id"`
	CreatedAt   time.Time   `json:"created_at"`
}

func (c Course) EntityID() int        { return c.ID }
func (c Course) SearchText() []string { return []string{c.Title, c.Description.String} }

type Material struct {
	ID       int         `json:"id"`
	CourseID int         `json:"course_id" validate:"required"`
	Title    string      `json:"title" validate:"required"`
	Content  string      `json:"content"`
	FileURL  null.String `json:"file_url"`
}

func (m Material) EntityID() int        { return m.ID }
func (m Material) SearchText() []string { return []string{m.Title, m.Content} }

type Question struct {
	ID      int      `json:"id"`
	TestID  int      `json:"test_id" validate:"required"`
	Text    string   `json:"question_text" validate:"required"`
	Options []string `json:"options"`
	Correct string   `json:"correct_answer" validate:"required"`
}

func (q Question) EntityID() int        { return q.ID }
func (q Question) SearchText() []string { return []string{q.Text, q.Correct} }

type Test struct {
	ID              int       `json:"id"`
	Title           string    `json:"title" validate:"required"`
	CourseID        null.Int  `json:"course_id"`
	DurationSeconds int       `json:"duration_seconds"`
	IsKraeplin      bool      `json:"is_kraeplin"`
	CreatedAt       time.Time `json:"created_at"`
}

func (t Test) EntityID() int        { return t.ID }
func (t Test) SearchText() []string { return []string{t.Title} }

type TestResult struct {
	ID          int       `json:"id"`
	AttemptID   int       `json:"attempt_id"`
	UserID      int       `json:"user_id"`
	TestID      int       `json:"test_id"`
	Score       int       `json:"score"`
	CompletedAt time.Time `json:"completed_at"`
	UserName    string    `json:"user_name"`
	TestTitle   string    `json:"test_title"`
}

func (r TestResult) EntityID() int        { return r.ID }
func (r TestResult) SearchText() []string { return []string{r.UserName, r.TestTitle} }

// Schemas for the console's screens. Results are read/delete only on the
// backend; the controller still gates create/edit via permissions.
var (
	Users = Schema[User]{
		Name: "user", Plural: "users", Path: "users",
		CreatePerm: "user-create", EditPerm: "user-edit", DeletePerm: "user-delete",
	}
	Roles = Schema[Role]{
		Name: "role", Plural: "roles", Path: "roles",
		CreatePerm: "role-create", EditPerm: "role-edit", DeletePerm: "role-delete",
	}
	Permissions = Schema[Permission]{
		Name: "permission", Plural: "permissions", Path: "permissions",
		CreatePerm: "permission-create", EditPerm: "permission-edit", DeletePerm: "permission-delete",
	}
	Menus = Schema[MenuItem]{
		Name: "menu", Plural: "menus", Path: "menus",
		CreatePerm: "menu-create", EditPerm: "menu-edit", DeletePerm: "menu-delete",
	}
	Courses = Schema[Course]{
		Name: "course", Plural: "courses", Path: "courses",
		CreatePerm: "course-create", EditPerm: "course-edit", DeletePerm: "course-delete",
	}
	Materials = Schema[Material]{
		Name: "material", Plural: "materials", Path: "materials",
		CreatePerm: "material-create", EditPerm: "material-edit", DeletePerm: "material-delete",
	}
	Questions = Schema[Question]{
		Name: "question", Plural: "questions", Path: "questions",
		CreatePerm: "question-create", EditPerm: "question-edit", DeletePerm: "question-delete",
	}
	Tests = Schema[Test]{
		Name: "test", Plural: "tests", Path: "tests",
		CreatePerm: "test-create", EditPerm: "test-edit", DeletePerm: "test-delete",
	}
	Results = Schema[TestResult]{
		Name: "result", Plural: "results", Path: "results",
		DeletePerm: "result-delete",
	}
)

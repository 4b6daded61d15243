package core

import (
	"errors"
	"sort"
	"time"

	"github.com/dgrijalva/jwt-go"
)

var (
	ErrInvalidToken = errors.New("invalid session token")
	ErrTokenExpired = errors.New("session has expired")
)

// Roles
const (
	RoleAdmin   = "admin:"
	RoleTeacher = "teacher:"
	RoleStudent = "student:"
)

// Claims represents the authorization claims transmitted via a JWT.
// The token is issued and signed by the backend; the console only decodes it.
type Claims struct {
	jwt.StandardClaims
	Username    string   `json:"username,omitempty"`
	Email       string   `json:"email,omitempty"`
	Roles       []string `json:"roles,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
}

// Session is the explicit replacement for the browser-local-storage globals
// (token, user id, role, permissions): created at login, destroyed at logout,
// injected into every controller that needs identity or capabilities.
type Session struct {
	Token       string
	UserID      string
	Username    string
	Email       string
	Roles       []string
	permissions []string // sorted
	expiresAt   time.Time
}

// NewSession decodes the bearer token into a Session. The console holds no
// signing key, so claims are parsed unverified; the backend re-checks the
// signature on every call. Expiry is still enforced locally.
func NewSession(token string) (*Session, error) {
	claims := new(Claims)
	if _, _, err := new(jwt.Parser).ParseUnverified(token, claims); err != nil {
		return nil, ErrInvalidToken
	}

	sess := &Session{
		Token:       token,
		UserID:      claims.Subject,
		Username:    claims.Username,
		Email:       claims.Email,
		Roles:       claims.Roles,
		permissions: append([]string(nil), claims.Permissions...),
	}
	sort.Strings(sess.permissions)
	if claims.ExpiresAt > 0 {
		sess.expiresAt = time.Unix(claims.ExpiresAt, 0)
	}
	if sess.Expired() {
		return nil, ErrTokenExpired
	}
	return sess, nil
}

// StaticSession returns a Session with the given identity and permissions,
// bypassing token parsing; for local tooling and tests.
func StaticSession(userID string, perms ...string) *Session {
	sess := &Session{UserID: userID, permissions: append([]string(nil), perms...)}
	sort.Strings(sess.permissions)
	return sess
}

func (s *Session) Expired() bool {
	return !s.expiresAt.IsZero() && time.Now().After(s.expiresAt)
}

// Can reports whether the session carries the named permission.
// A session with no permission claims at all is unrestricted; the backend
// remains the authority either way.
func (s *Session) Can(perm string) bool {
	if perm == "" || len(s.permissions) == 0 {
		return true
	}
	idx := sort.SearchStrings(s.permissions, perm)
	return idx < len(s.permissions) && s.permissions[idx] == perm
}

func (s *Session) RoleStartsWith(prefix string) bool {
	for _, role := range s.Roles {
		if len(role) >= len(prefix) && role[:len(prefix)] == prefix {
			return true
		}
	}
	return false
}

func (s *Session) IsAdmin() bool   { return s.RoleStartsWith(RoleAdmin) }
func (s *Session) IsTeacher() bool { return s.RoleStartsWith(RoleTeacher) }
func (s *Session) IsStudent() bool { return s.RoleStartsWith(RoleStudent) }

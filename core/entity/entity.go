// Package entity provides the generic list controller behind every admin
// screen: one searchable, selectable, CRUD-able collection of records backed
// by a remote resource endpoint.
package entity

import (
	"context"
	"fmt"

	"github.com/trezcool/darasa/core"
)

type (
	// Record is any row the console can list, select and edit.
	Record interface {
		// EntityID returns the record's server-assigned identifier; 0 means
		// the record has not been created yet.
		EntityID() int
		// SearchText returns the field values the list search matches
		// against (case-insensitive substring).
		SearchText() []string
	}

	// Gateway is the remote collection resource behind a list screen.
	// The production implementation lives in services/rest.
	Gateway[R Record] interface {
		List(ctx context.Context) ([]R, error)
		Create(ctx context.Context, rec R) (R, error)
		Update(ctx context.Context, rec R) (R, error)
		Delete(ctx context.Context, id int) error
		DeleteMany(ctx context.Context, ids []int) error
	}

	// Schema describes one entity type to the generic controller and to the
	// REST gateway.
	Schema[R Record] struct {
		Name   string // singular, used in notifications: "user"
		Plural string // used in notifications: "users"
		Path   string // collection endpoint, e.g. "users"

		// BulkDeletePath overrides the default Path + "/bulk-delete".
		BulkDeletePath string

		// Capability gates; empty means ungated.
		CreatePerm string
		EditPerm   string
		DeletePerm string

		// Validate overrides the default struct-tag validation.
		Validate func(rec R) error
	}
)

// BulkPath returns the bulk-delete endpoint, defaulting to
// "{Path}/bulk-delete". The body shape is always {"ids": [...]}.
func (s Schema[R]) BulkPath() string {
	if s.BulkDeletePath != "" {
		return s.BulkDeletePath
	}
	return s.Path + "/bulk-delete"
}

func (s Schema[R]) validate(rec R) error {
	if s.Validate != nil {
		return s.Validate(rec)
	}
	return core.TranslateValidationError(core.Validate.Struct(rec))
}

// FetchError reports a failed collection load; prior items stay available.
type FetchError struct {
	Entity string
	Err    error
}

func (e *FetchError) Error() string { return fmt.Sprintf("fetching %s: %v", e.Entity, e.Err) }
func (e *FetchError) Unwrap() error { return e.Err }

// SubmitError reports a create/update rejected by the backend.
type SubmitError struct {
	Entity string
	Err    error
}

func (e *SubmitError) Error() string { return fmt.Sprintf("saving %s: %v", e.Entity, e.Err) }
func (e *SubmitError) Unwrap() error { return e.Err }

// DeleteError reports a failed single delete.
type DeleteError struct {
	Entity string
	ID     int
	Err    error
}

func (e *DeleteError) Error() string {
	return fmt.Sprintf("deleting %s %d: %v", e.Entity, e.ID, e.Err)
}
func (e *DeleteError) Unwrap() error { return e.Err }

// BulkOperationError reports a failed bulk delete. The backend bulk endpoint
// is atomic; there is no partial-success accounting.
type BulkOperationError struct {
	Entity string
	IDs    []int
	Err    error
}

func (e *BulkOperationError) Error() string {
	return fmt.Sprintf("bulk-deleting %d %s: %v", len(e.IDs), e.Entity, e.Err)
}
func (e *BulkOperationError) Unwrap() error { return e.Err }

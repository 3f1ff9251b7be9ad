// Package store persists session contexts between the requests of a conversation.
package store

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
	"github.com/tutumi2011kt-gif/mulmochat/tools"
)

var logger = xlog.NewPackageLogger("github.com/tutumi2011kt-gif/mulmochat", "store")

// ErrNotFound is returned when the session does not exist or expired
var ErrNotFound = errors.New("session not found")

// SessionStore keeps the session contexts.
// Concurrent saves of the same session are last-writer-wins.
type SessionStore interface {
	// Create stores a new session, it fails if the ID exists
	Create(ctx context.Context, sess *tools.SessionContext) error
	// Get returns the session, or ErrNotFound
	Get(ctx context.Context, id string) (*tools.SessionContext, error)
	// Save stores the session and extends its expiration
	Save(ctx context.Context, sess *tools.SessionContext) error
	// Delete removes the session, deleting a missing session is not an error
	Delete(ctx context.Context, id string) error
	// List returns the IDs of the stored sessions
	List(ctx context.Context) ([]string, error)
	// Cleanup removes the sessions not saved within olderThan,
	// and returns the number of removed sessions.
	Cleanup(ctx context.Context, olderThan time.Duration) (uint32, error)
}

// ErrExists is returned by Create for a duplicate ID
var ErrExists = errors.New("session already exists")

// record is the stored form of a session
type record struct {
	tools.SessionState
	UpdatedAt time.Time `json:"updatedAt"`
}

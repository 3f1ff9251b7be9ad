package tools

import (
	"strconv"
	"sync"
	"time"

	"github.com/effective-security/x/values"
	"github.com/effective-security/xdb/pkg/flake"
)

// SessionContext is the mutable per-conversation state passed to tools.
// Images accumulate in generation order and are never removed.
type SessionContext struct {
	ID           string
	Capabilities Capabilities
	CreatedAt    time.Time

	lock   sync.RWMutex
	images []string
	// saved is the number of images already in the backing store
	saved int
}

// SessionState is the serializable form of SessionContext
type SessionState struct {
	ID           string       `json:"id" yaml:"id"`
	Capabilities Capabilities `json:"capabilities,omitempty" yaml:"capabilities,omitempty"`
	Images       []string     `json:"images,omitempty" yaml:"images,omitempty"`
	CreatedAt    time.Time    `json:"createdAt" yaml:"createdAt"`
}

// NewSessionID returns a new unique session ID
func NewSessionID() string {
	return strconv.FormatUint(flake.DefaultIDGenerator.NextID(), 10)
}

// NewSessionContext returns a new session with the given capabilities.
// A new ID is generated when id is empty.
func NewSessionContext(id string, caps ...Capability) *SessionContext {
	return &SessionContext{
		ID:           values.StringsCoalesce(id, NewSessionID()),
		Capabilities: caps,
		CreatedAt:    time.Now().UTC(),
	}
}

// RestoreSession returns a session from its state
func RestoreSession(st *SessionState) *SessionContext {
	return &SessionContext{
		ID:           st.ID,
		Capabilities: st.Capabilities,
		CreatedAt:    st.CreatedAt,
		images:       append([]string(nil), st.Images...),
		saved:        len(st.Images),
	}
}

// Images returns a copy of the accumulated images, in generation order.
// The returned slice is never nil.
func (s *SessionContext) Images() []string {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return append(make([]string, 0, len(s.images)), s.images...)
}

// ImageCount returns the number of accumulated images
func (s *SessionContext) ImageCount() int {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return len(s.images)
}

// AppendImage appends the image to the session
func (s *SessionContext) AppendImage(img string) {
	if img == "" {
		return
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	s.images = append(s.images, img)
}

// UnsavedImages returns the images appended since the session was
// restored or last marked saved, and the image count they lead up to.
func (s *SessionContext) UnsavedImages() ([]string, int) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return append([]string(nil), s.images[s.saved:]...), len(s.images)
}

// MarkSaved records that the first count images are in the backing store
func (s *SessionContext) MarkSaved(count int) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if count > s.saved && count <= len(s.images) {
		s.saved = count
	}
}

// State returns a snapshot of the session
func (s *SessionContext) State() *SessionState {
	return &SessionState{
		ID:           s.ID,
		Capabilities: s.Capabilities,
		Images:       s.Images(),
		CreatedAt:    s.CreatedAt,
	}
}

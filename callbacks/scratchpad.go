package callbacks

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tutumi2011kt-gif/mulmochat/pkg/llmutils"
	"github.com/tutumi2011kt-gif/mulmochat/tools"
)

var TimeNowFn = time.Now

// SessionStats holds tool activity counters of a session
type SessionStats struct {
	SessionID string `json:"sessionId"`

	Duration            time.Duration `json:"duration"`
	ToolsCalls          uint32        `json:"toolCalls"`
	ToolsCallsSucceeded uint32        `json:"toolCallsSucceeded"`
	ToolsCallsFailed    uint32        `json:"toolCallsFailed"`
	ToolNotFound        uint32        `json:"toolNotFound"`
	Images              uint32        `json:"images"`
}

// Scratchpad records the tool activity of each tracked session.
type Scratchpad struct {
	sessions map[string]*activity
	mode     Mode
	lock     sync.Mutex
}

func NewScratchpad(mode Mode) *Scratchpad {
	return &Scratchpad{
		sessions: make(map[string]*activity),
		mode:     mode,
	}
}

// StartSession starts tracking the session
func (l *Scratchpad) StartSession(sessionID string) {
	l.lock.Lock()
	defer l.lock.Unlock()

	now := TimeNowFn()
	a := &activity{
		stats:   SessionStats{SessionID: sessionID},
		started: now,
		touched: now,
	}
	l.sessions[sessionID] = a
	a.print("*** Session Started ***")
}

// Stats returns the current stats of the session
func (l *Scratchpad) Stats(sessionID string) (*SessionStats, bool) {
	a := l.get(sessionID)
	if a == nil {
		return nil, false
	}
	stats := a.snapshot()
	return &stats, true
}

// EndSession stops tracking the session,
// and returns its stats and activity log.
func (l *Scratchpad) EndSession(sessionID string) (*SessionStats, []byte) {
	a := l.get(sessionID)
	if a == nil {
		return nil, nil
	}

	stats := a.snapshot()
	a.print(fmt.Sprintf("Tool calls: %d, Failed: %d, Not Found: %d, Images: %d",
		stats.ToolsCalls,
		stats.ToolsCallsFailed,
		stats.ToolNotFound,
		stats.Images,
	))
	a.print(fmt.Sprintf("*** Session Ended. Duration: %s ***", stats.Duration))

	l.lock.Lock()
	delete(l.sessions, sessionID)
	l.lock.Unlock()

	a.lock.Lock()
	defer a.lock.Unlock()
	return &stats, bytes.Clone(a.w.Bytes())
}

// Sweep stops tracking the sessions with no activity since idleSince,
// and returns the number of removed sessions.
func (l *Scratchpad) Sweep(idleSince time.Time) int {
	l.lock.Lock()
	defer l.lock.Unlock()

	removed := 0
	for id, a := range l.sessions {
		if a.lastActive().Before(idleSince) {
			delete(l.sessions, id)
			removed++
		}
	}
	return removed
}

func (l *Scratchpad) get(sessionID string) *activity {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.sessions[sessionID]
}

func (l *Scratchpad) OnToolStart(ctx context.Context, p *tools.Plugin, sess *tools.SessionContext, args map[string]any) {
	a := l.get(sess.ID)
	if a == nil {
		return
	}
	atomic.AddUint32(&a.stats.ToolsCalls, 1)
	a.print(p.Name(), "*** Tool Start ***")
	if l.mode == ModeVerbose {
		a.print(p.Name(), "Input:", llmutils.ToJSON(args))
	}
}

func (l *Scratchpad) OnToolEnd(ctx context.Context, p *tools.Plugin, sess *tools.SessionContext, res *tools.PluginResult) {
	a := l.get(sess.ID)
	if a == nil {
		return
	}
	atomic.AddUint32(&a.stats.ToolsCallsSucceeded, 1)
	if res.ImageData != "" {
		atomic.AddUint32(&a.stats.Images, 1)
	}
	if l.mode == ModeVerbose {
		a.print(p.Name(), "Output:", res.Message)
	}
	a.print(p.Name(), "*** Tool End ***")
}

func (l *Scratchpad) OnToolError(ctx context.Context, p *tools.Plugin, sess *tools.SessionContext, err error) {
	a := l.get(sess.ID)
	if a == nil {
		return
	}
	atomic.AddUint32(&a.stats.ToolsCallsFailed, 1)
	a.print(p.Name(), "*** Tool Error ***", err.Error())
}

func (l *Scratchpad) OnToolNotFound(ctx context.Context, sess *tools.SessionContext, name string) {
	a := l.get(sess.ID)
	if a == nil {
		return
	}
	atomic.AddUint32(&a.stats.ToolNotFound, 1)
	a.print("*** Tool Not Found ***", name)
}

type activity struct {
	w       bytes.Buffer
	started time.Time
	touched time.Time
	lock    sync.Mutex
	stats   SessionStats
}

func (a *activity) lastActive() time.Time {
	a.lock.Lock()
	defer a.lock.Unlock()
	return a.touched
}

func (a *activity) snapshot() SessionStats {
	return SessionStats{
		SessionID:           a.stats.SessionID,
		Duration:            TimeNowFn().Sub(a.started),
		ToolsCalls:          atomic.LoadUint32(&a.stats.ToolsCalls),
		ToolsCallsSucceeded: atomic.LoadUint32(&a.stats.ToolsCallsSucceeded),
		ToolsCallsFailed:    atomic.LoadUint32(&a.stats.ToolsCallsFailed),
		ToolNotFound:        atomic.LoadUint32(&a.stats.ToolNotFound),
		Images:              atomic.LoadUint32(&a.stats.Images),
	}
}

// print writes the entries to the session log in the following format:
// [timestamp sessionID] entry entry\n
func (a *activity) print(entries ...string) {
	a.lock.Lock()
	defer a.lock.Unlock()

	now := TimeNowFn()
	a.touched = now
	ts := now.Format("2006-01-02 15:04:05")

	_, _ = a.w.WriteString(ts)
	_, _ = a.w.WriteString(" ")
	_, _ = a.w.WriteString(a.stats.SessionID)
	_, _ = a.w.WriteString(" ")

	for i, entry := range entries {
		if i > 0 {
			_, _ = a.w.WriteString(" ")
		}
		_, _ = a.w.WriteString(entry)
	}
	_, _ = a.w.WriteString("\n")
}

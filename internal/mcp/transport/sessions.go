package transport

import (
	"sync"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/MrWong99/gatewaymcp/internal/mcp"
)

// trackedSession pairs the metadata the management surface reports with
// the live upstream session handle pings and cleanup act on.
type trackedSession struct {
	meta    mcp.SessionMetadata
	session *mcpsdk.ServerSession
	// pinging is true while a ping is already in flight for this session,
	// deduplicating overlapping ping attempts (§4.1.1 "in-flight pings are
	// deduplicated per session").
	pinging bool
}

// sessionTable is the concurrent-safe session map shared by the stateful
// transport and, in analytics mode, the stateless transport (§5 "Session
// table ... process-wide; insertion on initialize, deletion by cleanup or
// background sweep. Lookup and mutation must be safe for concurrent
// readers").
type sessionTable struct {
	mu       sync.RWMutex
	sessions map[string]*trackedSession
}

func newSessionTable() *sessionTable {
	return &sessionTable{sessions: make(map[string]*trackedSession)}
}

func (t *sessionTable) create(id string, session *mcpsdk.ServerSession, authenticated bool, ip string) *trackedSession {
	now := time.Now()
	ts := &trackedSession{
		meta: mcp.SessionMetadata{
			ID:              id,
			ConnectedAt:     now,
			LastActivity:    now,
			IsAuthenticated: authenticated,
			IPAddress:       ip,
			State:           mcp.SessionConnected,
		},
		session: session,
	}
	t.mu.Lock()
	t.sessions[id] = ts
	t.mu.Unlock()
	return ts
}

func (t *sessionTable) get(id string) (*trackedSession, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ts, ok := t.sessions[id]
	return ts, ok
}

func (t *sessionTable) delete(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.sessions, id)
}

// touch records activity on a session: bumps lastActivity and the request
// counter. Called on every request the session handles.
func (t *sessionTable) touch(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if ts, ok := t.sessions[id]; ok {
		ts.meta.LastActivity = time.Now()
		ts.meta.RequestCount++
	}
}

// snapshot returns metadata for every tracked session (§4.1 "getSessions()").
func (t *sessionTable) snapshot() []mcp.SessionMetadata {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]mcp.SessionMetadata, 0, len(t.sessions))
	for _, ts := range t.sessions {
		out = append(out, ts.meta)
	}
	return out
}

// count returns the number of tracked sessions (§4.1 "getActiveConnectionCount()").
func (t *sessionTable) count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.sessions)
}

// staleIDs returns the ids of every session whose lastActivity predates the
// given cutoff (§4.1.1 "Stale sweep").
func (t *sessionTable) staleIDs(cutoff time.Time) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var ids []string
	for id, ts := range t.sessions {
		if ts.meta.LastActivity.Before(cutoff) {
			ids = append(ids, id)
		}
	}
	return ids
}

// ids returns every tracked session id, for the ping sweep.
func (t *sessionTable) ids() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ids := make([]string, 0, len(t.sessions))
	for id := range t.sessions {
		ids = append(ids, id)
	}
	return ids
}

// beginPing marks a session as having a ping in flight, returning false if
// one is already outstanding (dedup).
func (t *sessionTable) beginPing(id string) (*trackedSession, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	ts, ok := t.sessions[id]
	if !ok || ts.pinging {
		return nil, false
	}
	ts.pinging = true
	return ts, true
}

// recordPingResult applies a ping outcome to the session's state machine
// (§4.4.7): success resets the failure count and returns to Connected;
// failure increments it and promotes to Distressed at the threshold.
func (t *sessionTable) recordPingResult(id string, ok bool, failureThreshold int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	ts, found := t.sessions[id]
	if !found {
		return
	}
	ts.pinging = false
	if ok {
		ts.meta.LastActivity = time.Now()
		ts.meta.PingFailures = 0
		ts.meta.State = mcp.SessionConnected
	} else {
		ts.meta.PingFailures++
		if ts.meta.PingFailures >= failureThreshold {
			ts.meta.State = mcp.SessionDistressed
		}
	}
	ts.meta.LastPingAttempt = time.Now()
}

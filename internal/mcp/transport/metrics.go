// Package transport implements the three inbound transports (stdio,
// stateful streaming HTTP, stateless JSON-RPC) that accept MCP traffic and
// hand each logical connection or request to a [server.Factory] (§4.1).
package transport

import (
	"sync"
	"time"
)

// rollingWindow counts events and errors within a fixed trailing duration,
// using a ring buffer of per-second buckets that age out as time advances.
// Adapted from the teacher's sample-count rolling window (mcphost's
// rollingWindow): here the axis is wall-clock time rather than sample
// count, to match the 1/60/180-minute windows the management surface
// reports (§3 "Metrics state").
type rollingWindow struct {
	mu      sync.Mutex
	buckets []int64 // per-second request counts
	errors  []int64 // per-second error counts
	epoch   int64   // unix second the ring currently starts at
}

func newRollingWindow(seconds int) *rollingWindow {
	return &rollingWindow{
		buckets: make([]int64, seconds),
		errors:  make([]int64, seconds),
	}
}

func (w *rollingWindow) record(now time.Time, isError bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.advance(now)
	idx := int(now.Unix() % int64(len(w.buckets)))
	w.buckets[idx]++
	if isError {
		w.errors[idx]++
	}
}

// advance clears any buckets that have aged out since the last write.
func (w *rollingWindow) advance(now time.Time) {
	nowSec := now.Unix()
	if w.epoch == 0 {
		w.epoch = nowSec
		return
	}
	elapsed := nowSec - w.epoch
	if elapsed <= 0 {
		return
	}
	n := int64(len(w.buckets))
	clear := elapsed
	if clear > n {
		clear = n
	}
	for i := int64(0); i < clear; i++ {
		idx := int((w.epoch + i) % n)
		w.buckets[idx] = 0
		w.errors[idx] = 0
	}
	w.epoch = nowSec
}

func (w *rollingWindow) totals(now time.Time) (requests, errs int64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.advance(now)
	for _, v := range w.buckets {
		requests += v
	}
	for _, v := range w.errors {
		errs += v
	}
	return requests, errs
}

// clientStats is the per-client aggregate the management surface reports.
type clientStats struct {
	FirstSeen   time.Time
	LastSeen    time.Time
	ActiveConns int64
	TotalConns  int64
	ToolCalls   int64
}

// methodStats is the per-method aggregate the management surface reports.
type methodStats struct {
	Count      int64
	Errors     int64
	latencySum int64 // ms, for a cheap running average
	byClient   map[string]int64
}

// MethodSnapshot is one method's aggregate, exported for [Metrics.Snapshot].
type MethodSnapshot struct {
	Method       string
	Count        int64
	Errors       int64
	AvgLatencyMs float64
	ByClient     map[string]int64
}

// ClientSnapshot is one client's aggregate, exported for [Metrics.Snapshot].
type ClientSnapshot struct {
	Client      string
	FirstSeen   time.Time
	LastSeen    time.Time
	ActiveConns int64
	TotalConns  int64
	ToolCalls   int64
}

// WindowSnapshot reports request/error counts over one rolling window.
type WindowSnapshot struct {
	Seconds  int
	Requests int64
	Errors   int64
}

// Snapshot is the full management-surface view of [Metrics] (§3, §4.1
// "getMetrics()").
type Snapshot struct {
	Requests           int64
	ConnectionsAuth    int64
	ConnectionsAnon    int64
	ErrorsClient       int64 // 4xx-equivalent protocol errors
	ErrorsServer       int64 // 5xx-equivalent / internal errors
	SessionsCreated    int64
	SessionsResumeFail int64
	SessionsDeleted    int64
	SessionsCleaned    int64
	PingsSent          int64
	PingsOK            int64
	PingsFailed        int64
	UniqueIPs          int64
	Windows            []WindowSnapshot
	Methods            []MethodSnapshot
	Clients            []ClientSnapshot
}

// Metrics is the process-wide counter set exclusively owned by a transport
// instance (§3 "Ownership"). All methods are safe for concurrent use;
// counters are plain int64 fields behind a single mutex rather than
// atomics, matching the teacher's rollingWindow locking style — the
// per-request increment rate here never approaches a point where a mutex
// is the bottleneck.
type Metrics struct {
	mu sync.Mutex

	requests           int64
	connectionsAuth    int64
	connectionsAnon    int64
	errorsClient       int64
	errorsServer       int64
	sessionsCreated    int64
	sessionsResumeFail int64
	sessionsDeleted    int64
	sessionsCleaned    int64
	pingsSent          int64
	pingsOK            int64
	pingsFailed        int64

	clients map[string]*clientStats
	methods map[string]*methodStats
	ips     map[string]struct{}

	win1   *rollingWindow
	win60  *rollingWindow
	win180 *rollingWindow
}

// NewMetrics returns an empty, ready-to-use [Metrics].
func NewMetrics() *Metrics {
	return &Metrics{
		clients: make(map[string]*clientStats),
		methods: make(map[string]*methodStats),
		ips:     make(map[string]struct{}),
		win1:    newRollingWindow(60),
		win60:   newRollingWindow(3600),
		win180:  newRollingWindow(10800),
	}
}

// RecordRequest records one completed request: its method, the client
// identity (subject, or "" for anonymous), the caller's IP, latency, and the
// HTTP status class it completed with. statusCode drives the 4xx/5xx split
// in [Snapshot] (§3 "errors (4xx vs 5xx)"); a status below 400 records no
// error at all.
func (m *Metrics) RecordRequest(method, client, ip string, latencyMs int64, statusCode int) {
	now := time.Now()
	isError := statusCode >= 400

	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests++
	switch {
	case statusCode >= 500:
		m.errorsServer++
	case statusCode >= 400:
		m.errorsClient++
	}

	if ip != "" {
		m.ips[ip] = struct{}{}
	}

	ms, ok := m.methods[method]
	if !ok {
		ms = &methodStats{byClient: make(map[string]int64)}
		m.methods[method] = ms
	}
	ms.Count++
	ms.latencySum += latencyMs
	if isError {
		ms.Errors++
	}
	if client != "" {
		ms.byClient[client]++
	}

	if client != "" {
		cs, ok := m.clients[client]
		if !ok {
			cs = &clientStats{FirstSeen: now}
			m.clients[client] = cs
		}
		cs.LastSeen = now
		cs.ToolCalls++
	}

	m.win1.record(now, isError)
	m.win60.record(now, isError)
	m.win180.record(now, isError)
}

// RecordConnection records a new connection, bucketed by auth status.
func (m *Metrics) RecordConnection(authenticated bool, client string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if authenticated {
		m.connectionsAuth++
	} else {
		m.connectionsAnon++
	}
	if client != "" {
		cs, ok := m.clients[client]
		if !ok {
			cs = &clientStats{FirstSeen: time.Now()}
			m.clients[client] = cs
		}
		cs.ActiveConns++
		cs.TotalConns++
		cs.LastSeen = time.Now()
	}
}

// RecordDisconnection decrements a client's active connection count.
func (m *Metrics) RecordDisconnection(client string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if client == "" {
		return
	}
	if cs, ok := m.clients[client]; ok && cs.ActiveConns > 0 {
		cs.ActiveConns--
	}
}

// RecordServerError records a fatal/internal error (§4.5 "Fatal internal
// errors").
func (m *Metrics) RecordServerError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorsServer++
}

// RecordSessionCreated, RecordSessionResumeFailed, RecordSessionDeleted,
// and RecordSessionCleaned track the session lifecycle counters.
func (m *Metrics) RecordSessionCreated() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessionsCreated++
}

func (m *Metrics) RecordSessionResumeFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessionsResumeFail++
}

func (m *Metrics) RecordSessionDeleted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessionsDeleted++
}

func (m *Metrics) RecordSessionCleaned() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessionsCleaned++
}

// RecordPing records the outcome of one keep-alive ping attempt.
func (m *Metrics) RecordPing(ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingsSent++
	if ok {
		m.pingsOK++
	} else {
		m.pingsFailed++
	}
}

// Snapshot returns a point-in-time copy of every counter and aggregate
// (§4.1 "getMetrics()").
func (m *Metrics) Snapshot() Snapshot {
	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	snap := Snapshot{
		Requests:           m.requests,
		ConnectionsAuth:    m.connectionsAuth,
		ConnectionsAnon:    m.connectionsAnon,
		ErrorsClient:       m.errorsClient,
		ErrorsServer:       m.errorsServer,
		SessionsCreated:    m.sessionsCreated,
		SessionsResumeFail: m.sessionsResumeFail,
		SessionsDeleted:    m.sessionsDeleted,
		SessionsCleaned:    m.sessionsCleaned,
		PingsSent:          m.pingsSent,
		PingsOK:            m.pingsOK,
		PingsFailed:        m.pingsFailed,
		UniqueIPs:          int64(len(m.ips)),
	}

	for window, secs := range map[*rollingWindow]int{m.win1: 60, m.win60: 3600, m.win180: 10800} {
		reqs, errs := window.totals(now)
		snap.Windows = append(snap.Windows, WindowSnapshot{Seconds: secs, Requests: reqs, Errors: errs})
	}

	for method, ms := range m.methods {
		avg := 0.0
		if ms.Count > 0 {
			avg = float64(ms.latencySum) / float64(ms.Count)
		}
		byClient := make(map[string]int64, len(ms.byClient))
		for k, v := range ms.byClient {
			byClient[k] = v
		}
		snap.Methods = append(snap.Methods, MethodSnapshot{
			Method:       method,
			Count:        ms.Count,
			Errors:       ms.Errors,
			AvgLatencyMs: avg,
			ByClient:     byClient,
		})
	}

	for client, cs := range m.clients {
		snap.Clients = append(snap.Clients, ClientSnapshot{
			Client:      client,
			FirstSeen:   cs.FirstSeen,
			LastSeen:    cs.LastSeen,
			ActiveConns: cs.ActiveConns,
			TotalConns:  cs.TotalConns,
			ToolCalls:   cs.ToolCalls,
		})
	}

	return snap
}

package conversation

import (
	"context"
	"sync"
	"time"
)

// Session is one widget conversation.
type Session struct {
	ID         string        `json:"id"`
	History    []ChatMessage `json:"history"`
	LastIntent Intent        `json:"lastIntent,omitempty"`
	// Reserved for lead capture and support flows.
	LeadInfo    map[string]string `json:"leadInfo,omitempty"`
	SupportInfo map[string]string `json:"supportInfo,omitempty"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

// SessionUpdate is a partial update. Nil fields are left untouched; non-nil fields
// replace the stored value in full.
type SessionUpdate struct {
	History     []ChatMessage
	LastIntent  *Intent
	LeadInfo    map[string]string
	SupportInfo map[string]string
}

// SessionStore holds conversation state keyed by session id.
type SessionStore interface {
	// Get returns the session, or a fresh empty one when none exists.
	Get(ctx context.Context, id string) (*Session, error)
	// Update shallow-merges upd onto the stored record.
	Update(ctx context.Context, id string, upd SessionUpdate) (*Session, error)
	// AppendTurn atomically appends messages and records the intent.
	AppendTurn(ctx context.Context, id string, intent Intent, messages ...ChatMessage) (*Session, error)
}

func newSession(id string) *Session {
	return &Session{ID: id, History: []ChatMessage{}}
}

func (s *Session) apply(upd SessionUpdate) {
	if upd.History != nil {
		s.History = append([]ChatMessage(nil), upd.History...)
	}
	if upd.LastIntent != nil {
		s.LastIntent = *upd.LastIntent
	}
	if upd.LeadInfo != nil {
		s.LeadInfo = copyStringMap(upd.LeadInfo)
	}
	if upd.SupportInfo != nil {
		s.SupportInfo = copyStringMap(upd.SupportInfo)
	}
}

func (s *Session) clone() *Session {
	out := *s
	out.History = append(make([]ChatMessage, 0, len(s.History)), s.History...)
	out.LeadInfo = copyStringMap(s.LeadInfo)
	out.SupportInfo = copyStringMap(s.SupportInfo)
	return &out
}

func copyStringMap(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

type memoryEntry struct {
	session   *Session
	expiresAt time.Time
}

// MemorySessionStore keeps sessions in process with an idle TTL.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]*memoryEntry
	ttl      time.Duration
	now      func() time.Time
}

// NewMemorySessionStore builds a store; ttl <= 0 keeps sessions for the process lifetime.
func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]*memoryEntry),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (m *MemorySessionStore) Get(_ context.Context, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.load(id).clone(), nil
}

func (m *MemorySessionStore) Update(_ context.Context, id string, upd SessionUpdate) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.load(id)
	s.apply(upd)
	m.touch(id)
	return s.clone(), nil
}

func (m *MemorySessionStore) AppendTurn(_ context.Context, id string, intent Intent, messages ...ChatMessage) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.load(id)
	s.History = append(s.History, messages...)
	if intent != "" {
		s.LastIntent = intent
	}
	m.touch(id)
	return s.clone(), nil
}

// load returns the live record, creating it when missing or expired. Caller holds mu.
func (m *MemorySessionStore) load(id string) *Session {
	entry, ok := m.sessions[id]
	if ok && (m.ttl <= 0 || m.now().Before(entry.expiresAt)) {
		return entry.session
	}
	entry = &memoryEntry{session: newSession(id), expiresAt: m.now().Add(m.ttl)}
	m.sessions[id] = entry
	return entry.session
}

func (m *MemorySessionStore) touch(id string) {
	entry := m.sessions[id]
	now := m.now()
	entry.session.UpdatedAt = now
	entry.expiresAt = now.Add(m.ttl)
}

// Sweep drops expired sessions and returns how many were removed.
func (m *MemorySessionStore) Sweep() int {
	if m.ttl <= 0 {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	removed := 0
	for id, entry := range m.sessions {
		if !now.Before(entry.expiresAt) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

// Run sweeps expired sessions every interval until ctx is done.
func (m *MemorySessionStore) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

// Len reports the number of tracked sessions, expired or not.
func (m *MemorySessionStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

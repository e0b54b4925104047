// ABOUTME: Mock Store implementation for testing
// ABOUTME: Allows tests to run without SQLite and to inject failures per method

package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MockStore is an in-memory Store and SessionStore implementation for testing.
type MockStore struct {
	mu          sync.RWMutex
	members     map[string]*Member     // keyed by member ID
	byNumber    map[string]string      // keyed by member number -> member ID
	credentials map[string]*Credential // keyed by member ID
	sessions    map[string]*Session    // keyed by session ID
	notices     map[string][]Notice    // keyed by session ID
	events      map[string]*Event      // keyed by event ID
	logs        []*Log
	failures    map[string]error // keyed by method name
}

var (
	_ Store        = (*MockStore)(nil)
	_ SessionStore = (*MockStore)(nil)
)

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{
		members:     make(map[string]*Member),
		byNumber:    make(map[string]string),
		credentials: make(map[string]*Credential),
		sessions:    make(map[string]*Session),
		notices:     make(map[string][]Notice),
		events:      make(map[string]*Event),
		failures:    make(map[string]error),
	}
}

// FailWith makes every later call to method return err. A nil err clears it.
func (m *MockStore) FailWith(method string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err == nil {
		delete(m.failures, method)
		return
	}
	m.failures[method] = err
}

// failure must be called with m.mu held.
func (m *MockStore) failure(method string) error {
	return m.failures[method]
}

// CreateMember stores a member and credential together.
func (m *MockStore) CreateMember(ctx context.Context, member *Member, cred *Credential) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.failure("CreateMember"); err != nil {
		return err
	}
	if _, exists := m.byNumber[member.MemberNumber]; exists {
		return ErrMemberExists
	}

	mem := *member
	m.members[mem.ID] = &mem
	m.byNumber[mem.MemberNumber] = mem.ID

	c := *cred
	c.MemberID = mem.ID
	m.credentials[mem.ID] = &c
	cred.MemberID = mem.ID
	return nil
}

// GetMember retrieves a member by ID.
func (m *MockStore) GetMember(ctx context.Context, id string) (*Member, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.failure("GetMember"); err != nil {
		return nil, err
	}
	mem, ok := m.members[id]
	if !ok {
		return nil, ErrNotFound
	}
	result := *mem
	return &result, nil
}

// GetMemberByNumber retrieves a member by member number.
func (m *MockStore) GetMemberByNumber(ctx context.Context, memberNumber string) (*Member, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.failure("GetMemberByNumber"); err != nil {
		return nil, err
	}
	id, ok := m.byNumber[memberNumber]
	if !ok {
		return nil, ErrNotFound
	}
	result := *m.members[id]
	return &result, nil
}

// GetCredential retrieves a member's credential.
func (m *MockStore) GetCredential(ctx context.Context, memberID string) (*Credential, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.failure("GetCredential"); err != nil {
		return nil, err
	}
	cred, ok := m.credentials[memberID]
	if !ok {
		return nil, ErrNotFound
	}
	result := *cred
	return &result, nil
}

// CountMembers returns the number of members.
func (m *MockStore) CountMembers(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.members), nil
}

// CountCredentials returns the number of stored credentials.
func (m *MockStore) CountCredentials() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.credentials)
}

// RemoveMember deletes a member and its credential, leaving sessions dangling.
func (m *MockStore) RemoveMember(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if mem, ok := m.members[id]; ok {
		delete(m.byNumber, mem.MemberNumber)
	}
	delete(m.members, id)
	delete(m.credentials, id)
}

// CreateSession stores a session.
func (m *MockStore) CreateSession(ctx context.Context, session *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.failure("CreateSession"); err != nil {
		return err
	}
	s := *session
	m.sessions[s.ID] = &s
	return nil
}

// GetSession retrieves a non-expired session.
func (m *MockStore) GetSession(ctx context.Context, id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.failure("GetSession"); err != nil {
		return nil, err
	}
	s, ok := m.sessions[id]
	if !ok || !s.ExpiresAt.After(time.Now()) {
		return nil, ErrSessionNotFound
	}
	result := *s
	return &result, nil
}

// SetSessionMember binds or unbinds a member on a session.
func (m *MockStore) SetSessionMember(ctx context.Context, id, memberID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.failure("SetSessionMember"); err != nil {
		return err
	}
	s, ok := m.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	s.MemberID = memberID
	return nil
}

// DeleteSession removes a session and its notices.
func (m *MockStore) DeleteSession(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.failure("DeleteSession"); err != nil {
		return err
	}
	delete(m.sessions, id)
	delete(m.notices, id)
	return nil
}

// DeleteExpiredSessions removes expired sessions and their notices.
func (m *MockStore) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.failure("DeleteExpiredSessions"); err != nil {
		return 0, err
	}
	now := time.Now()
	var count int64
	for id, s := range m.sessions {
		if !s.ExpiresAt.After(now) {
			delete(m.sessions, id)
			delete(m.notices, id)
			count++
		}
	}
	return count, nil
}

// SessionCount returns the number of stored sessions, expired or not.
func (m *MockStore) SessionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// PushNotice appends a notice to a session's queue.
func (m *MockStore) PushNotice(ctx context.Context, sessionID string, notice Notice) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.failure("PushNotice"); err != nil {
		return err
	}
	if _, ok := m.sessions[sessionID]; !ok {
		return ErrSessionNotFound
	}
	m.notices[sessionID] = append(m.notices[sessionID], notice)
	return nil
}

// DrainNotices returns and clears a session's queue.
func (m *MockStore) DrainNotices(ctx context.Context, sessionID string) ([]Notice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.failure("DrainNotices"); err != nil {
		return nil, err
	}
	notices := m.notices[sessionID]
	delete(m.notices, sessionID)
	if notices == nil {
		notices = []Notice{}
	}
	return notices, nil
}

// CreateEvent stores an event.
func (m *MockStore) CreateEvent(ctx context.Context, event *Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.failure("CreateEvent"); err != nil {
		return err
	}
	e := *event
	m.events[e.ID] = &e
	return nil
}

// GetEvent retrieves an event by ID.
func (m *MockStore) GetEvent(ctx context.Context, id string) (*Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.failure("GetEvent"); err != nil {
		return nil, err
	}
	e, ok := m.events[id]
	if !ok {
		return nil, ErrNotFound
	}
	result := *e
	return &result, nil
}

// ListEvents returns events within the filter window ordered by date.
func (m *MockStore) ListEvents(ctx context.Context, filter EventFilter) ([]*Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.failure("ListEvents"); err != nil {
		return nil, err
	}

	var result []*Event
	for _, e := range m.events {
		if !inWindow(e.Date, filter.From, filter.To) {
			continue
		}
		ev := *e
		result = append(result, &ev)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Date.Equal(result[j].Date) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].Date.Before(result[j].Date)
	})
	return result, nil
}

// UpdateEvent overwrites an existing event.
func (m *MockStore) UpdateEvent(ctx context.Context, event *Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.failure("UpdateEvent"); err != nil {
		return err
	}
	existing, ok := m.events[event.ID]
	if !ok {
		return ErrNotFound
	}
	e := *event
	e.CreatedAt = existing.CreatedAt
	m.events[e.ID] = &e
	return nil
}

// DeleteEvent removes an event.
func (m *MockStore) DeleteEvent(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.failure("DeleteEvent"); err != nil {
		return err
	}
	if _, ok := m.events[id]; !ok {
		return ErrNotFound
	}
	delete(m.events, id)
	return nil
}

// CreateLog stores a game log.
func (m *MockStore) CreateLog(ctx context.Context, log *Log) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.failure("CreateLog"); err != nil {
		return err
	}
	l := *log
	m.logs = append(m.logs, &l)
	return nil
}

// ListLogs returns logs matching the filter ordered by date.
func (m *MockStore) ListLogs(ctx context.Context, filter LogFilter) ([]*Log, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.failure("ListLogs"); err != nil {
		return nil, err
	}

	var result []*Log
	for _, l := range m.logs {
		if filter.MemberNumber != "" && l.MemberNumber != filter.MemberNumber {
			continue
		}
		if !inWindow(l.Date, filter.From, filter.To) {
			continue
		}
		lg := *l
		result = append(result, &lg)
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Date.Before(result[j].Date)
	})
	return result, nil
}

// Ping always succeeds unless a failure is injected.
func (m *MockStore) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.failure("Ping")
}

// Close is a no-op for MockStore.
func (m *MockStore) Close() error {
	return nil
}

// inWindow reports whether t falls in [from, to); zero bounds are open.
func inWindow(t, from, to time.Time) bool {
	if !from.IsZero() && t.Before(from) {
		return false
	}
	if !to.IsZero() && !t.Before(to) {
		return false
	}
	return true
}

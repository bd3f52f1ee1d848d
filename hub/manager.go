// Manager maintains the three associative indexes over connected
// users (SID, CID, case-folded nick) described in spec.md §4.I, and
// the broadcast/send_to primitives the router and command interpreter
// use to reach them.
//
// One goroutine runs per accepted connection (hub/conn.go), so every
// index here is reached concurrently from admission, teardown and
// routing on unrelated connections alike; mu guards all three maps the
// same way sid.Pool guards its slot table.
package hub

import (
	"sync"

	"github.com/direct-connect/adchub/adc"
	"github.com/direct-connect/adchub/internal/sid"
	"github.com/direct-connect/adchub/internal/user"
)

// Manager indexes the hub's currently-connected users.
type Manager struct {
	mu     sync.RWMutex
	bySID  map[sid.SID]*user.User
	byCID  map[string]*user.User
	byNick map[string]*user.User
}

// NewManager creates an empty user manager.
func NewManager() *Manager {
	return &Manager{
		bySID:  make(map[sid.SID]*user.User),
		byCID:  make(map[string]*user.User),
		byNick: make(map[string]*user.User),
	}
}

// Add inserts u into all three indexes atomically (spec.md §4.I).
func (m *Manager) Add(u *user.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bySID[u.SID] = u
	if u.CID != "" {
		m.byCID[u.CID] = u
	}
	if u.Nick != "" {
		m.byNick[user.NickKey(u.Nick)] = u
	}
}

// Remove deletes u from all three indexes.
func (m *Manager) Remove(u *user.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.bySID, u.SID)
	if u.CID != "" {
		delete(m.byCID, u.CID)
	}
	if u.Nick != "" {
		delete(m.byNick, user.NickKey(u.Nick))
	}
}

// LookupBySID resolves a connected user by SID.
func (m *Manager) LookupBySID(s sid.SID) (*user.User, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.bySID[s]
	return u, ok
}

// LookupByCID resolves a connected user by CID.
func (m *Manager) LookupByCID(cid string) (*user.User, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.byCID[cid]
	return u, ok
}

// LookupByNick resolves a connected user by nick, case-insensitively.
func (m *Manager) LookupByNick(nick string) (*user.User, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.byNick[user.NickKey(nick)]
	return u, ok
}

// UserByNick implements command.Resolver.
func (m *Manager) UserByNick(nick string) (*user.User, bool) { return m.LookupByNick(nick) }

// UserByCID implements command.Resolver.
func (m *Manager) UserByCID(cid string) (*user.User, bool) { return m.LookupByCID(cid) }

// Len returns the number of connected users.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.bySID)
}

// CountByAddress returns how many currently-connected users share addr.
func (m *Manager) CountByAddress(addr string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, u := range m.bySID {
		if u.Addr == addr {
			n++
		}
	}
	return n
}

// Predicate selects which users a broadcast reaches.
type Predicate func(*user.User) bool

// All matches every connected user.
func All(*user.User) bool { return true }

// MinCredential matches users whose credential is at or above min.
func MinCredential(min user.Credential) Predicate {
	return func(u *user.User) bool { return u.Cred >= min }
}

// HasFeature matches users advertising feat.
func HasFeature(feat string) Predicate {
	return func(u *user.User) bool { return u.HasFeature(feat) }
}

// Sender delivers a payload verbatim to one user. Production code
// supplies a real io writer; Sender is a seam tests can fake.
type Sender interface {
	Send(u *user.User, payload []byte)
}

// Broadcast delivers msg's serialized cache to every user satisfying
// pred, preserving wire-identical bytes (spec.md §4.I). The recipient
// list is snapshotted under lock before any Send runs, so a concurrent
// Add/Remove on another connection can't race the map iteration.
func (m *Manager) Broadcast(s Sender, msg *adc.Message, pred Predicate) {
	payload := msg.Cache()
	m.mu.RLock()
	recipients := make([]*user.User, 0, len(m.bySID))
	for _, u := range m.bySID {
		if pred(u) {
			recipients = append(recipients, u)
		}
	}
	m.mu.RUnlock()
	for _, u := range recipients {
		s.Send(u, payload)
	}
}

// SendTo delivers msg to exactly one user.
func (m *Manager) SendTo(s Sender, target *user.User, msg *adc.Message) {
	s.Send(target, msg.Cache())
}

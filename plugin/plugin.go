// Package plugin defines the hub's policy-hook trait: a set of
// optional callbacks that observe and veto hub events, each returning
// an Allow/Deny/Default verdict (spec.md §9).
//
// Grounded on uhub's plugin_api/handle.h callback shape and
// mod_restrict.c's st_allow/st_deny/st_default verdict convention.
package plugin

import (
	"github.com/direct-connect/adchub/adc"
	"github.com/direct-connect/adchub/internal/user"
)

// Verdict is a policy hook's answer: Allow/Deny settle the question
// immediately, Default defers to the next hook in the chain (or to
// the hub's built-in behavior if no hook in the chain decides).
type Verdict int

const (
	Default Verdict = iota
	Allow
	Deny
)

// AuthRecord is what an auth plugin returns for a known user.
type AuthRecord struct {
	Nick       string
	Password   string
	Credential user.Credential
	ActivityAt int64
}

// Auth is the credential-store contract consumed by the hub during
// the verify stage and by account-management commands (spec.md §6
// "Auth plugin interface (consumed)").
type Auth interface {
	GetUser(nick string) (AuthRecord, bool)
	RegisterUser(info AuthRecord) Verdict
	UpdateUser(info AuthRecord) Verdict
	DeleteUser(nick string) Verdict
	GetUserList(substr string) []AuthRecord
}

// Hooks is the set of event callbacks a plugin may implement. Every
// method is optional in spirit — the Memory reference implementation
// below answers Default to everything — but Go requires the full
// interface, so embed Base to get no-op defaults and override only
// what you need.
type Hooks interface {
	OnChatMessage(from *user.User, msg *adc.Message) Verdict
	OnPrivateMessage(from, to *user.User, msg *adc.Message) Verdict
	OnSearch(from *user.User, msg *adc.Message) Verdict
	OnSearchResult(from, to *user.User, msg *adc.Message) Verdict
	OnConnectToMe(from, to *user.User) Verdict
	OnRevConnectToMe(from, to *user.User) Verdict
	OnUserLogin(u *user.User)
	OnUserLogout(u *user.User, reason string)
}

// Base implements Hooks with every verdict defaulted and every
// notification a no-op; embed it in a concrete plugin to avoid
// implementing callbacks you don't care about.
type Base struct{}

func (Base) OnChatMessage(*user.User, *adc.Message) Verdict          { return Default }
func (Base) OnPrivateMessage(*user.User, *user.User, *adc.Message) Verdict { return Default }
func (Base) OnSearch(*user.User, *adc.Message) Verdict               { return Default }
func (Base) OnSearchResult(*user.User, *user.User, *adc.Message) Verdict { return Default }
func (Base) OnConnectToMe(*user.User, *user.User) Verdict            { return Default }
func (Base) OnRevConnectToMe(*user.User, *user.User) Verdict         { return Default }
func (Base) OnUserLogin(*user.User)                                  {}
func (Base) OnUserLogout(*user.User, string)                         {}

// Chain runs a sequence of Hooks in order, stopping at the first
// non-Default verdict (spec.md §4.J: "any deny aborts routing").
type Chain struct {
	hooks []Hooks
}

// NewChain builds a Chain from the given hooks, evaluated in order.
func NewChain(hooks ...Hooks) *Chain {
	return &Chain{hooks: hooks}
}

// Verdict runs fn across the chain until one hook decides.
func (c *Chain) verdict(fn func(Hooks) Verdict) Verdict {
	for _, h := range c.hooks {
		if v := fn(h); v != Default {
			return v
		}
	}
	return Default
}

func (c *Chain) OnChatMessage(from *user.User, msg *adc.Message) Verdict {
	return c.verdict(func(h Hooks) Verdict { return h.OnChatMessage(from, msg) })
}

func (c *Chain) OnPrivateMessage(from, to *user.User, msg *adc.Message) Verdict {
	return c.verdict(func(h Hooks) Verdict { return h.OnPrivateMessage(from, to, msg) })
}

func (c *Chain) OnSearch(from *user.User, msg *adc.Message) Verdict {
	return c.verdict(func(h Hooks) Verdict { return h.OnSearch(from, msg) })
}

func (c *Chain) OnSearchResult(from, to *user.User, msg *adc.Message) Verdict {
	return c.verdict(func(h Hooks) Verdict { return h.OnSearchResult(from, to, msg) })
}

func (c *Chain) OnConnectToMe(from, to *user.User) Verdict {
	return c.verdict(func(h Hooks) Verdict { return h.OnConnectToMe(from, to) })
}

func (c *Chain) OnRevConnectToMe(from, to *user.User) Verdict {
	return c.verdict(func(h Hooks) Verdict { return h.OnRevConnectToMe(from, to) })
}

func (c *Chain) OnUserLogin(u *user.User) {
	for _, h := range c.hooks {
		h.OnUserLogin(u)
	}
}

func (c *Chain) OnUserLogout(u *user.User, reason string) {
	for _, h := range c.hooks {
		h.OnUserLogout(u, reason)
	}
}

// Memory is a reference Hooks+Auth implementation backed by an
// in-process map, useful for tests and small hubs that don't need
// internal/store's persistent backing.
type Memory struct {
	Base
	users map[string]AuthRecord
}

// NewMemory creates an empty in-memory auth/policy plugin.
func NewMemory() *Memory {
	return &Memory{users: make(map[string]AuthRecord)}
}

func (m *Memory) GetUser(nick string) (AuthRecord, bool) {
	r, ok := m.users[user.NickKey(nick)]
	return r, ok
}

func (m *Memory) RegisterUser(info AuthRecord) Verdict {
	key := user.NickKey(info.Nick)
	if _, exists := m.users[key]; exists {
		return Deny
	}
	m.users[key] = info
	return Allow
}

func (m *Memory) UpdateUser(info AuthRecord) Verdict {
	key := user.NickKey(info.Nick)
	if _, exists := m.users[key]; !exists {
		return Deny
	}
	m.users[key] = info
	return Allow
}

func (m *Memory) DeleteUser(nick string) Verdict {
	key := user.NickKey(nick)
	if _, exists := m.users[key]; !exists {
		return Deny
	}
	delete(m.users, key)
	return Allow
}

func (m *Memory) GetUserList(substr string) []AuthRecord {
	var out []AuthRecord
	for _, r := range m.users {
		if substr == "" || contains(r.Nick, substr) {
			out = append(out, r)
		}
	}
	return out
}

func contains(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}

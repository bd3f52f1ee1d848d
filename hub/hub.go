// Hub is the process-wide singleton tying configuration, the user
// index, the SID pool, the command registry and the router together
// (spec.md §3 "Hub").
package hub

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/direct-connect/adchub/internal/command"
	"github.com/direct-connect/adchub/internal/sid"
	"github.com/direct-connect/adchub/plugin"
)

// Lifecycle tracks the hub's quiesce/teardown phase.
type Lifecycle int

const (
	Running Lifecycle = iota
	Quiescing // new connections refused, existing users issued a graceful quit
	Stopped
)

// Hub is the process-wide hub instance.
type Hub struct {
	Config   *Config
	Users    *Manager
	SIDs     *sid.Pool
	Commands *command.Registry
	Policy   *plugin.Chain
	Metrics  *Metrics
	Router   *Router

	mu    sync.Mutex
	state Lifecycle
}

// New constructs a Hub from cfg, wiring a SID pool sized from
// hub.users.max, an empty user manager, the given sender and policy
// chain, and a fresh Prometheus registry.
func New(cfg *Config, sender Sender, policy *plugin.Chain) *Hub {
	users := NewManager()
	h := &Hub{
		Config:   cfg,
		Users:    users,
		SIDs:     sid.NewPool(cfg.GetInt(KeyUsersMax)),
		Commands: command.NewRegistry(),
		Policy:   policy,
		Metrics:  NewMetrics(prometheus.NewRegistry()),
		state:    Running,
	}
	h.Router = NewRouter(users, sender, policy)
	h.registerBuiltins()
	return h
}

// State returns the hub's current lifecycle phase.
func (h *Hub) State() Lifecycle {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Quiesce moves the hub into Quiescing: new connections must be
// refused by the caller (the listener/probe layer checks State()),
// and existing users should be sent a graceful IQUI by the caller
// iterating h.Users.
func (h *Hub) Quiesce() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state == Running {
		h.state = Quiescing
	}
}

// Stop marks the hub fully torn down, once all users have
// disconnected and listeners are closed.
func (h *Hub) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.state = Stopped
}

// AcceptsConnections reports whether the hub is still in Running
// state and should accept new connections.
func (h *Hub) AcceptsConnections() bool {
	return h.State() == Running
}

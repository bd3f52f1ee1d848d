// Package session implements the per-connection protocol state
// machine: protocol -> identify -> verify -> normal -> cleanup ->
// closed, with admission checks gating entry into normal (spec.md
// §4.H).
//
// Grounded on go-dcpp's adcStageProtocol/adcStageIdentity/adcServePeer
// progression and the GPA/PAS challenge-response it performs between
// identify and normal.
package session

import (
	"fmt"
	"time"

	"github.com/direct-connect/adchub/internal/user"
)

// State is one point in the session lifecycle.
type State int

const (
	Protocol State = iota
	Identify
	Verify
	Normal
	Cleanup
	Closed
)

func (s State) String() string {
	switch s {
	case Protocol:
		return "protocol"
	case Identify:
		return "identify"
	case Verify:
		return "verify"
	case Normal:
		return "normal"
	case Cleanup:
		return "cleanup"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// Reason classifies why a session is moving to cleanup.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonInvalidFrame
	ReasonQuotaExceeded
	ReasonPolicyDeny
	ReasonTimeout
	ReasonConnectionClosed
	ReasonTLSError
	ReasonAdmissionDenied
	ReasonQuit
)

func (r Reason) String() string {
	switch r {
	case ReasonInvalidFrame:
		return "invalid_frame"
	case ReasonQuotaExceeded:
		return "quota_exceeded"
	case ReasonPolicyDeny:
		return "policy_deny"
	case ReasonTimeout:
		return "timeout"
	case ReasonConnectionClosed:
		return "connection_closed"
	case ReasonTLSError:
		return "tls_error"
	case ReasonAdmissionDenied:
		return "admission_denied"
	case ReasonQuit:
		return "quit"
	default:
		return "none"
	}
}

// Timeouts bounds how long a session may remain in each non-terminal
// state before it is forced to Cleanup.
type Timeouts struct {
	Protocol time.Duration
	Identify time.Duration
	Verify   time.Duration
	Idle     time.Duration // applies while in Normal
}

// DefaultTimeouts mirrors uhub's TIMEOUT_* constants in spirit: short
// handshake windows, a longer idle allowance once established.
var DefaultTimeouts = Timeouts{
	Protocol: 60 * time.Second,
	Identify: 60 * time.Second,
	Verify:   60 * time.Second,
	Idle:     30 * time.Minute,
}

// Admission reports the outcome of the checks run between Verify and
// Normal.
type Admission int

const (
	AdmissionOK Admission = iota
	AdmissionMaxUsers
	AdmissionMaxPerAddress
	AdmissionBanned
	AdmissionCredentialsBelowMinimum
	AdmissionNickInUse
	AdmissionCIDInUse
)

func (a Admission) String() string {
	switch a {
	case AdmissionMaxUsers:
		return "hub_full"
	case AdmissionMaxPerAddress:
		return "too_many_connections_from_address"
	case AdmissionBanned:
		return "banned"
	case AdmissionCredentialsBelowMinimum:
		return "credentials_below_minimum"
	case AdmissionNickInUse:
		return "nick_in_use"
	case AdmissionCIDInUse:
		return "cid_in_use"
	default:
		return "ok"
	}
}

// Session tracks one connection's progress through the state machine.
type Session struct {
	User *user.User

	state    State
	reason   Reason
	deadline time.Time
	timeouts Timeouts

	challenge     []byte // GPA challenge issued during Verify
	reachedNormal bool
}

// New creates a session in Protocol state for the given user shell.
func New(u *user.User, timeouts Timeouts) *Session {
	s := &Session{User: u, state: Protocol, timeouts: timeouts}
	s.arm(timeouts.Protocol)
	return s
}

// State returns the session's current state.
func (s *Session) State() State { return s.state }

// Reason returns why the session moved to Cleanup, if it has.
func (s *Session) Reason() Reason { return s.reason }

// Deadline returns the time at which the current state times out.
func (s *Session) Deadline() time.Time { return s.deadline }

func (s *Session) arm(d time.Duration) {
	if d <= 0 {
		s.deadline = time.Time{}
		return
	}
	s.deadline = time.Now().Add(d)
}

// ErrInvalidTransition is returned when an event is not valid for the
// session's current state.
type ErrInvalidTransition struct {
	From  State
	Event string
}

func (e *ErrInvalidTransition) Error() string {
	return fmt.Sprintf("session: event %q invalid in state %s", e.Event, e.From)
}

// ReceivedSUP handles an HSUP in Protocol: advances to Identify.
func (s *Session) ReceivedSUP() error {
	if s.state != Protocol {
		return &ErrInvalidTransition{s.state, "HSUP"}
	}
	s.state = Identify
	s.arm(s.timeouts.Identify)
	return nil
}

// ReceivedInitialINF handles the first BINF (with CID/NI) in
// Identify: records the GPA challenge the caller issued (nil if none)
// and advances to Verify. It sends nothing itself.
func (s *Session) ReceivedInitialINF(challenge []byte) error {
	if s.state != Identify {
		return &ErrInvalidTransition{s.state, "BINF"}
	}
	s.challenge = challenge
	s.state = Verify
	s.arm(s.timeouts.Verify)
	return nil
}

// ReceivedPassword handles a valid PAS/PD response in Verify,
// advancing to Normal. The caller must have already checked the
// credential against s.Challenge().
func (s *Session) ReceivedPassword() error {
	if s.state != Verify {
		return &ErrInvalidTransition{s.state, "PAS"}
	}
	s.state = Normal
	s.reachedNormal = true
	s.arm(s.timeouts.Idle)
	return nil
}

// Challenge returns the GPA challenge issued for this session, if any.
func (s *Session) Challenge() []byte { return s.challenge }

// Touch resets the idle deadline; called on any traffic while Normal.
func (s *Session) Touch() {
	if s.state == Normal {
		s.arm(s.timeouts.Idle)
	}
}

// Admit applies the checks gating entry from Verify into Normal
// (spec.md §4.H). It does not itself transition the state; callers
// call ReceivedPassword (or Fail) based on the result.
func Admit(maxUsers, curUsers, maxPerAddr, curAddrUsers int, banned, credBelowMin, nickInUse, cidInUse bool) Admission {
	switch {
	case maxUsers > 0 && curUsers >= maxUsers:
		return AdmissionMaxUsers
	case banned:
		return AdmissionBanned
	case maxPerAddr > 0 && curAddrUsers >= maxPerAddr:
		return AdmissionMaxPerAddress
	case credBelowMin:
		return AdmissionCredentialsBelowMinimum
	case nickInUse:
		return AdmissionNickInUse
	case cidInUse:
		return AdmissionCIDInUse
	default:
		return AdmissionOK
	}
}

// Fail forces a transition to Cleanup for any active state, recording
// reason. A session already in Cleanup or Closed is unaffected.
func (s *Session) Fail(reason Reason) {
	if s.state == Cleanup || s.state == Closed {
		return
	}
	s.state = Cleanup
	s.reason = reason
	s.deadline = time.Time{}
}

// CheckTimeout transitions to Cleanup with ReasonTimeout if the
// current state's deadline has elapsed. It is a no-op otherwise.
func (s *Session) CheckTimeout(now time.Time) {
	if s.deadline.IsZero() || now.Before(s.deadline) {
		return
	}
	if s.state == Protocol || s.state == Identify || s.state == Verify || s.state == Normal {
		s.Fail(ReasonTimeout)
	}
}

// Complete transitions Cleanup to Closed once the user has been
// removed from all indexes and the connection closed.
func (s *Session) Complete() error {
	if s.state != Cleanup {
		return &ErrInvalidTransition{s.state, "complete"}
	}
	s.state = Closed
	return nil
}

// BroadcastsQuit reports whether a disconnect from the session's
// current state should produce a quit broadcast to other users — only
// once the user has reached Normal (spec.md §4.H: "losing the
// connection prior to normal does not broadcast a quit").
func (s *Session) BroadcastsQuit() bool {
	return s.reachedNormal
}

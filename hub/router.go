// Router dispatches an accepted, normal-state frame per its context
// character, consulting the plugin policy chain before delivery
// (spec.md §4.J).
package hub

import (
	"strings"

	"github.com/direct-connect/adchub/adc"
	"github.com/direct-connect/adchub/internal/user"
	"github.com/direct-connect/adchub/plugin"
)

// DropReason explains why a router dispatch produced no delivery, for
// metrics (SPEC_FULL.md §4.N) and status replies.
type DropReason int

const (
	DropNone DropReason = iota
	DropPolicyDeny
	DropTargetAbsent
	DropNotAcceptedFromClient
)

// Router wires a Manager, a Sender and a plugin.Chain together to
// implement the context-based dispatch rules.
type Router struct {
	Users  *Manager
	Sender Sender
	Policy *plugin.Chain
}

// NewRouter creates a Router over users, delivering via sender and
// consulting policy before each dispatch.
func NewRouter(users *Manager, sender Sender, policy *plugin.Chain) *Router {
	return &Router{Users: users, Sender: sender, Policy: policy}
}

// Route dispatches msg, sent by from, per its command context.
// It returns DropNone on successful delivery (even to zero
// recipients, for broadcast/feature contexts) or the reason no
// delivery occurred.
func (r *Router) Route(from *user.User, msg *adc.Message) DropReason {
	ctx := msg.Cmd.Context()
	switch ctx {
	case adc.ConnIdentity, adc.InfoCtx:
		// server-originated; never accepted from a client (spec.md §4.J)
		return DropNotAcceptedFromClient

	case adc.Broadcast:
		if v := r.Policy.OnChatMessage(from, msg); v == plugin.Deny {
			return DropPolicyDeny
		}
		r.Users.Broadcast(r.Sender, msg, All)
		return DropNone

	case adc.Direct, adc.ClientToClient:
		to, ok := r.Users.LookupBySID(msg.Target)
		if !ok {
			return DropTargetAbsent
		}
		if v := r.Policy.OnPrivateMessage(from, to, msg); v == plugin.Deny {
			return DropPolicyDeny
		}
		r.Users.SendTo(r.Sender, to, msg)
		return DropNone

	case adc.Echo:
		to, ok := r.Users.LookupBySID(msg.Target)
		if !ok {
			return DropTargetAbsent
		}
		if v := r.Policy.OnPrivateMessage(from, to, msg); v == plugin.Deny {
			return DropPolicyDeny
		}
		r.Users.SendTo(r.Sender, from, msg)
		r.Users.SendTo(r.Sender, to, msg)
		return DropNone

	case adc.FeatureCtx:
		if v := r.Policy.OnChatMessage(from, msg); v == plugin.Deny {
			return DropPolicyDeny
		}
		r.Users.Broadcast(r.Sender, msg, featureFilter(msg.Features))
		return DropNone

	case adc.Hub:
		// addressed to the hub itself: consumed here without delivery
		// to any user and without being handed to the command
		// interpreter.
		return DropNone

	default:
		return DropNotAcceptedFromClient
	}
}

// featureFilter builds a Predicate matching spec.md §4.J's F-context
// rule: every "+FEAT" must be present, no "-FEAT" may be present.
func featureFilter(filters []adc.FeatureSel) Predicate {
	return func(u *user.User) bool {
		for _, f := range filters {
			has := u.HasFeature(f.Feature)
			if f.Require && !has {
				return false
			}
			if !f.Require && has {
				return false
			}
		}
		return true
	}
}

// IsCommandLine reports whether text (a chat message body) is a
// command invocation rather than ordinary chat, per spec.md §4.J:
// "chat lines whose text begins with ! or + are handed to the command
// interpreter instead of broadcast."
func IsCommandLine(text string) (prefix string, rest string, ok bool) {
	if text == "" {
		return "", "", false
	}
	switch text[0] {
	case '!', '+':
		rest = strings.TrimSpace(text[1:])
		return text[:1], rest, true
	default:
		return "", "", false
	}
}

package hub

import (
	"testing"

	"github.com/direct-connect/adchub/adc"
	"github.com/direct-connect/adchub/internal/sid"
	"github.com/direct-connect/adchub/internal/user"
	"github.com/direct-connect/adchub/plugin"
)

type recordingSender struct {
	sent map[sid.SID][][]byte
}

func newRecordingSender() *recordingSender {
	return &recordingSender{sent: make(map[sid.SID][][]byte)}
}

func (s *recordingSender) Send(u *user.User, payload []byte) {
	s.sent[u.SID] = append(s.sent[u.SID], append([]byte(nil), payload...))
}

func addUser(m *Manager, s sid.SID, nick string, su string) *user.User {
	u := user.New(s)
	u.Nick = nick
	u.CID = nick + "234567890123456789012345678901234"
	if su != "" {
		msg, _ := adc.NewCommand(adc.Broadcast, adc.TypeINF)
		inf := adc.New(msg)
		inf.SetSource(s)
		inf.AddNamedArgument("ID", u.CID)
		inf.AddNamedArgument("NI", nick)
		inf.AddNamedArgument("SU", su)
		u.ApplyINF(inf, true, 64)
	}
	m.Add(u)
	return u
}

func TestRouteBroadcastReachesAll(t *testing.T) {
	m := NewManager()
	a := addUser(m, sid.Parse("AAAB"), "alice", "")
	addUser(m, sid.Parse("AAAC"), "bob", "")
	sender := newRecordingSender()
	router := NewRouter(m, sender, plugin.NewChain())

	cmd, _ := adc.NewCommand(adc.Broadcast, adc.TypeMSG)
	msg := adc.New(cmd)
	msg.SetSource(a.SID)
	msg.AddArgument("hi")

	if reason := router.Route(a, msg); reason != DropNone {
		t.Fatalf("Route = %v", reason)
	}
	if len(sender.sent[sid.Parse("AAAB")]) != 1 || len(sender.sent[sid.Parse("AAAC")]) != 1 {
		t.Fatalf("expected both users to receive the broadcast: %+v", sender.sent)
	}
}

func TestRouteDirectDropsOnMissingTarget(t *testing.T) {
	m := NewManager()
	a := addUser(m, sid.Parse("AAAB"), "alice", "")
	sender := newRecordingSender()
	router := NewRouter(m, sender, plugin.NewChain())

	cmd, _ := adc.NewCommand(adc.Direct, adc.TypeMSG)
	msg := adc.New(cmd)
	msg.SetSource(a.SID)
	msg.SetTarget(sid.Parse("AAAZ"))

	if reason := router.Route(a, msg); reason != DropTargetAbsent {
		t.Fatalf("Route = %v", reason)
	}
}

func TestRouteEchoDeliversToBoth(t *testing.T) {
	m := NewManager()
	a := addUser(m, sid.Parse("AAAB"), "alice", "")
	b := addUser(m, sid.Parse("AAAC"), "bob", "")
	sender := newRecordingSender()
	router := NewRouter(m, sender, plugin.NewChain())

	cmd, _ := adc.NewCommand(adc.Echo, adc.TypeMSG)
	msg := adc.New(cmd)
	msg.SetSource(a.SID)
	msg.SetTarget(b.SID)

	if reason := router.Route(a, msg); reason != DropNone {
		t.Fatalf("Route = %v", reason)
	}
	if len(sender.sent[a.SID]) != 1 || len(sender.sent[b.SID]) != 1 {
		t.Fatalf("expected echo to both source and target: %+v", sender.sent)
	}
}

func TestRouteFeatureFilterMatchesOnlyAdvertisers(t *testing.T) {
	m := NewManager()
	a := addUser(m, sid.Parse("AAAB"), "alice", "TCP4")
	addUser(m, sid.Parse("AAAC"), "bob", "")
	sender := newRecordingSender()
	router := NewRouter(m, sender, plugin.NewChain())

	cmd, _ := adc.NewCommand(adc.FeatureCtx, adc.TypeMSG)
	msg := adc.New(cmd)
	msg.SetSource(a.SID)
	msg.Features = []adc.FeatureSel{{Require: true, Feature: "TCP4"}}

	router.Route(a, msg)
	if len(sender.sent[sid.Parse("AAAB")]) != 1 {
		t.Fatalf("expected TCP4-advertising user to receive the message")
	}
	if len(sender.sent[sid.Parse("AAAC")]) != 0 {
		t.Fatalf("expected non-advertising user to be skipped")
	}
}

type denyAll struct{ plugin.Base }

func (denyAll) OnChatMessage(*user.User, *adc.Message) plugin.Verdict { return plugin.Deny }

func TestRoutePolicyDenyBlocksBroadcast(t *testing.T) {
	m := NewManager()
	a := addUser(m, sid.Parse("AAAB"), "alice", "")
	sender := newRecordingSender()
	router := NewRouter(m, sender, plugin.NewChain(denyAll{}))

	cmd, _ := adc.NewCommand(adc.Broadcast, adc.TypeMSG)
	msg := adc.New(cmd)
	msg.SetSource(a.SID)

	if reason := router.Route(a, msg); reason != DropPolicyDeny {
		t.Fatalf("Route = %v", reason)
	}
	if len(sender.sent) != 0 {
		t.Fatalf("expected no delivery on policy deny")
	}
}

func TestIsCommandLine(t *testing.T) {
	if _, _, ok := IsCommandLine("hello"); ok {
		t.Fatalf("expected ordinary chat to not be a command")
	}
	prefix, rest, ok := IsCommandLine("!userdel alice")
	if !ok || prefix != "!" || rest != "userdel alice" {
		t.Fatalf("got prefix=%q rest=%q ok=%v", prefix, rest, ok)
	}
}

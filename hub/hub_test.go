package hub

import (
	"testing"

	"github.com/direct-connect/adchub/internal/user"
	"github.com/direct-connect/adchub/plugin"
)

type nullSender struct{}

func (nullSender) Send(u *user.User, payload []byte) {}

func TestConfigDefaults(t *testing.T) {
	cfg := NewConfig()
	if cfg.GetInt(KeyUsersMax) != 500 {
		t.Fatalf("users.max default = %d", cfg.GetInt(KeyUsersMax))
	}
	if cfg.GetString(KeyTLSALPN) != "adc" {
		t.Fatalf("tls.alpn default = %q", cfg.GetString(KeyTLSALPN))
	}
}

func TestConfigAliasResolvesToCanonicalKey(t *testing.T) {
	cfg := NewConfig()
	cfg.Set("name", "Test Hub")
	if got := cfg.GetString(KeyHubName); got != "Test Hub" {
		t.Fatalf("got %q", got)
	}
}

func TestHubLifecycleTransitions(t *testing.T) {
	cfg := NewConfig()
	h := New(cfg, nullSender{}, plugin.NewChain())
	if h.State() != Running || !h.AcceptsConnections() {
		t.Fatalf("expected Running at construction")
	}
	h.Quiesce()
	if h.State() != Quiescing || h.AcceptsConnections() {
		t.Fatalf("expected Quiescing to refuse new connections")
	}
	h.Stop()
	if h.State() != Stopped {
		t.Fatalf("expected Stopped")
	}
}

package user

import (
	"testing"

	"github.com/direct-connect/adchub/adc"
	"github.com/direct-connect/adchub/internal/sid"
)

func infMessage(t *testing.T, pairs ...string) *adc.Message {
	t.Helper()
	cmd, err := adc.NewCommand(adc.Broadcast, adc.TypeINF)
	if err != nil {
		t.Fatalf("NewCommand: %v", err)
	}
	m := adc.New(cmd)
	m.SetSource(sid.Parse("AAAB"))
	for i := 0; i+1 < len(pairs); i += 2 {
		m.AddNamedArgument(pairs[i], pairs[i+1])
	}
	return m
}

const validCID = "ABCDEFGHIJKLMNOPQRSTUVWXYZ234567ABCDE"

func TestApplyINFFirstEstablishesIdentity(t *testing.T) {
	u := New(sid.Parse("AAAB"))
	msg := infMessage(t, "ID", validCID, "NI", "alice", "DE", "hi")
	if err := u.ApplyINF(msg, true, 64); err != nil {
		t.Fatalf("ApplyINF: %v", err)
	}
	if u.Nick != "alice" || u.CID != validCID {
		t.Fatalf("got nick=%q cid=%q", u.Nick, u.CID)
	}
	if v, _ := u.Info("DE"); v != "hi" {
		t.Fatalf("DE = %q", v)
	}
}

func TestApplyINFRejectsMissingCID(t *testing.T) {
	u := New(sid.Parse("AAAB"))
	msg := infMessage(t, "NI", "alice")
	if err := u.ApplyINF(msg, true, 64); err == nil {
		t.Fatalf("expected error for missing CID")
	}
}

func TestApplyINFUpdateMergesAndClears(t *testing.T) {
	u := New(sid.Parse("AAAB"))
	first := infMessage(t, "ID", validCID, "NI", "alice", "DE", "hi", "SS", "100")
	if err := u.ApplyINF(first, true, 64); err != nil {
		t.Fatalf("ApplyINF(first): %v", err)
	}

	update := infMessage(t, "DE", "", "SS", "200")
	if err := u.ApplyINF(update, false, 64); err != nil {
		t.Fatalf("ApplyINF(update): %v", err)
	}
	if _, ok := u.Info("DE"); ok {
		t.Fatalf("expected DE to be cleared")
	}
	if v, _ := u.Info("SS"); v != "200" {
		t.Fatalf("SS = %q, want 200", v)
	}
}

func TestApplyINFRejectsNickChange(t *testing.T) {
	u := New(sid.Parse("AAAB"))
	first := infMessage(t, "ID", validCID, "NI", "alice")
	if err := u.ApplyINF(first, true, 64); err != nil {
		t.Fatalf("ApplyINF(first): %v", err)
	}
	update := infMessage(t, "NI", "bob")
	if err := u.ApplyINF(update, false, 64); err == nil {
		t.Fatalf("expected error for nick change after identify")
	}
}

func TestValidateNickRejectsLeadingSpace(t *testing.T) {
	if err := ValidateNick(" alice", 64); err == nil {
		t.Fatalf("expected error for leading space")
	}
}

func TestValidateNickRejectsControlChar(t *testing.T) {
	if err := ValidateNick("ali\x01ce", 64); err == nil {
		t.Fatalf("expected error for control character")
	}
}

func TestValidateCIDLength(t *testing.T) {
	if err := ValidateCID("tooshort"); err == nil {
		t.Fatalf("expected error for short CID")
	}
	if err := ValidateCID(validCID); err != nil {
		t.Fatalf("ValidateCID(valid): %v", err)
	}
}

func TestNickKeyCaseFolds(t *testing.T) {
	if NickKey("Alice") != NickKey("ALICE") {
		t.Fatalf("NickKey should case-fold")
	}
}

func TestHasFeature(t *testing.T) {
	u := New(sid.Parse("AAAB"))
	first := infMessage(t, "ID", validCID, "NI", "alice", "SU", "TCP4,SEGA")
	if err := u.ApplyINF(first, true, 64); err != nil {
		t.Fatalf("ApplyINF: %v", err)
	}
	if !u.HasFeature("TCP4") || !u.HasFeature("SEGA") {
		t.Fatalf("expected both features present")
	}
	if u.HasFeature("TLS4") {
		t.Fatalf("did not expect TLS4")
	}
}

func TestClientVersionParsesSemver(t *testing.T) {
	u := New(sid.Parse("AAAB"))
	first := infMessage(t, "ID", validCID, "NI", "alice", "VE", "adchub 1.2.3")
	if err := u.ApplyINF(first, true, 64); err != nil {
		t.Fatalf("ApplyINF: %v", err)
	}
	name, v, ok := u.ClientVersion()
	if !ok || name != "adchub" || v.String() != "1.2.3" {
		t.Fatalf("got name=%q v=%v ok=%v", name, v, ok)
	}
}

func TestToINFRoundTripsStably(t *testing.T) {
	u := New(sid.Parse("AAAB"))
	first := infMessage(t, "ID", validCID, "NI", "alice", "DE", "hi")
	if err := u.ApplyINF(first, true, 64); err != nil {
		t.Fatalf("ApplyINF: %v", err)
	}
	m1, err := u.ToINF()
	if err != nil {
		t.Fatalf("ToINF: %v", err)
	}
	m2, err := u.ToINF()
	if err != nil {
		t.Fatalf("ToINF: %v", err)
	}
	if string(m1.Cache()) != string(m2.Cache()) {
		t.Fatalf("ToINF is not stable across calls: %q vs %q", m1.Cache(), m2.Cache())
	}
}

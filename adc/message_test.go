package adc

import (
	"testing"

	"github.com/direct-connect/adchub/internal/sid"
)

func TestParseSUP(t *testing.T) {
	m, err := Parse([]byte("ISUP ADBASE ADTIGR\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if m.Cmd.Type() != TypeSUP || m.Cmd.Context() != InfoCtx {
		t.Fatalf("got cmd %v", m.Cmd)
	}
	if got, ok := m.GetArgument(0); !ok || got != "BASE" {
		t.Fatalf("arg 0 = %q, %v", got, ok)
	}
	if got, ok := m.GetArgument(1); !ok || got != "TIGR" {
		t.Fatalf("arg 1 = %q, %v", got, ok)
	}
}

func TestParseSIDAssignment(t *testing.T) {
	m, err := Parse([]byte("ISID AAAB\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got, ok := m.GetArgument(0); !ok || got != "AAAB" {
		t.Fatalf("arg = %q", got)
	}
}

func TestParseBINF(t *testing.T) {
	m, err := Parse([]byte("BINF AAAB ID12345 NIalice I41.1.1.1\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !m.sourceSet || m.Source != sid.Parse("AAAB") {
		t.Fatalf("source not set correctly: %v", m.Source)
	}
	if v, ok := m.GetNamedArgument("NI"); !ok || v != "alice" {
		t.Fatalf("NI = %q", v)
	}
	if v, ok := m.GetNamedArgument("ID"); !ok || v != "12345" {
		t.Fatalf("ID = %q", v)
	}
}

func TestParseBMSG(t *testing.T) {
	m, err := Parse([]byte("BMSG AAAB Hello\\sworld\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if v, ok := m.GetArgument(0); !ok || v != "Hello world" {
		t.Fatalf("arg = %q", v)
	}
}

func TestParseDMSG(t *testing.T) {
	m, err := Parse([]byte("DMSG AAAB AAAC private\\smessage\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if m.Source != sid.Parse("AAAB") || m.Target != sid.Parse("AAAC") {
		t.Fatalf("source/target = %v/%v", m.Source, m.Target)
	}
	if v, _ := m.GetArgument(0); v != "private message" {
		t.Fatalf("arg = %q", v)
	}
}

func TestParseEMSG(t *testing.T) {
	m, err := Parse([]byte("EMSG AAAB AAAC echoed\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if m.Cmd.Context() != Echo {
		t.Fatalf("expected Echo context, got %v", m.Cmd.Context())
	}
}

func TestParseFMSG(t *testing.T) {
	m, err := Parse([]byte("FMSG AAAB +TCP1 -TLS1 hi\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(m.Features) != 2 || !m.Features[0].Require || m.Features[0].Feature != "TCP1" {
		t.Fatalf("features = %+v", m.Features)
	}
	if m.Features[1].Require || m.Features[1].Feature != "TLS1" {
		t.Fatalf("features = %+v", m.Features)
	}
	if v, _ := m.GetArgument(0); v != "hi" {
		t.Fatalf("arg = %q", v)
	}
}

func TestParseIQUI(t *testing.T) {
	m, err := Parse([]byte("IQUI AAAB\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if m.Cmd.Type() != TypeQUI {
		t.Fatalf("type = %v", m.Cmd.Type())
	}
}

func TestParseRejectsEmbeddedNUL(t *testing.T) {
	_, err := Parse([]byte("BMSG AAAB a\x00b\n"))
	if err == nil {
		t.Fatalf("expected rejection for embedded NUL")
	}
}

func TestParseRejectsMissingTrailingLF(t *testing.T) {
	_, err := Parse([]byte("BMSG AAAB hello"))
	if err == nil {
		t.Fatalf("expected rejection for missing trailing LF")
	}
}

func TestParseRejectsExtraLF(t *testing.T) {
	_, err := Parse([]byte("BMSG AAAB hel\nlo\n"))
	if err == nil {
		t.Fatalf("expected rejection for embedded LF")
	}
}

func TestParseVerifyRejectsSourceMismatch(t *testing.T) {
	_, err := ParseVerify(sid.Parse("AAAC"), []byte("BMSG AAAB hello\n"))
	if err == nil {
		t.Fatalf("expected rejection for source mismatch")
	}
}

func TestParseVerifyAcceptsMatchingSource(t *testing.T) {
	_, err := ParseVerify(sid.Parse("AAAB"), []byte("BMSG AAAB hello\n"))
	if err != nil {
		t.Fatalf("ParseVerify: %v", err)
	}
}

func TestEscapeUnescapeRoundTrip(t *testing.T) {
	for _, s := range []string{"plain", "has space", "has\nnewline", `has\backslash`, ""} {
		got, err := Unescape(Escape(s))
		if err != nil {
			t.Fatalf("Unescape(Escape(%q)): %v", s, err)
		}
		if got != s {
			t.Fatalf("round trip: got %q, want %q", got, s)
		}
	}
}

func TestTerminateUnterminateIdempotent(t *testing.T) {
	m := New(mustCmd(t, InfoCtx, TypeSTA))
	m.AddArgument("000")
	before := append([]byte(nil), m.Cache()...)

	m.Terminate()
	if string(m.Cache()) != string(before) {
		t.Fatalf("Terminate on already-terminated message changed cache")
	}

	m.Unterminate()
	unterminated := append([]byte(nil), m.Cache()...)
	m.Unterminate()
	if string(m.Cache()) != string(unterminated) {
		t.Fatalf("Unterminate on already-unterminated message changed cache")
	}

	m.Terminate()
	if string(m.Cache()) != string(before) {
		t.Fatalf("Terminate did not restore original cache: got %q want %q", m.Cache(), before)
	}
}

func TestCopyIsIndependent(t *testing.T) {
	m := New(mustCmd(t, Broadcast, TypeMSG))
	m.SetSource(sid.Parse("AAAB"))
	m.AddArgument("hello")

	c := m.Copy()
	if string(c.Cache()) != string(m.Cache()) {
		t.Fatalf("copy cache mismatch: %q vs %q", c.Cache(), m.Cache())
	}

	c.AddArgument("more")
	if string(c.Cache()) == string(m.Cache()) {
		t.Fatalf("mutating the copy affected the original")
	}
	if len(m.Args) != 1 {
		t.Fatalf("original argument list was mutated")
	}
}

func TestReplaceAndRemoveNamedArgument(t *testing.T) {
	m := New(mustCmd(t, Broadcast, TypeINF))
	m.SetSource(sid.Parse("AAAB"))
	m.AddNamedArgument("NI", "alice")

	m.ReplaceNamedArgument("NI", "bob")
	if v, _ := m.GetNamedArgument("NI"); v != "bob" {
		t.Fatalf("NI = %q after replace", v)
	}

	m.ReplaceNamedArgument("DE", "a description")
	if v, _ := m.GetNamedArgument("DE"); v != "a description" {
		t.Fatalf("DE = %q after replace-as-add", v)
	}

	if !m.RemoveNamedArgument("NI") {
		t.Fatalf("expected NI to be removed")
	}
	if m.HasNamedArgument("NI") != 0 {
		t.Fatalf("NI still present after removal")
	}
}

func TestIsEmpty(t *testing.T) {
	m := New(mustCmd(t, InfoCtx, TypeSID))
	if !m.IsEmpty() {
		t.Fatalf("expected new message to be empty")
	}
	m.AddArgument("AAAB")
	if m.IsEmpty() {
		t.Fatalf("expected message with an argument to be non-empty")
	}
}

func mustCmd(t *testing.T, ctx Context, typ string) Command {
	t.Helper()
	c, err := NewCommand(ctx, typ)
	if err != nil {
		t.Fatalf("NewCommand: %v", err)
	}
	return c
}

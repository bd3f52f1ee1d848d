package tlsadapter

import (
	"crypto/sha256"
	"encoding/base32"
	"testing"
)

func TestFingerprintFormat(t *testing.T) {
	der := []byte("fake certificate bytes")
	fp := Fingerprint(der)
	want := sha256.Sum256(der)
	wantEnc := "SHA256/" + base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(want[:])
	if fp != wantEnc {
		t.Fatalf("Fingerprint = %q, want %q", fp, wantEnc)
	}
}

func TestURIFormat(t *testing.T) {
	got := URI("hub.example.org", 5000, "SHA256/ABCDEF")
	want := "adcs://hub.example.org:5000/?kp=SHA256/ABCDEF"
	if got != want {
		t.Fatalf("URI = %q, want %q", got, want)
	}
}

func TestStateStrings(t *testing.T) {
	cases := map[State]string{
		None:          "none",
		Accepting:     "accepting",
		Connecting:    "connecting",
		Connected:     "connected",
		Error:         "error",
		Disconnecting: "disconnecting",
	}
	for s, want := range cases {
		if got := s.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", s, got, want)
		}
	}
}

package probe

import "testing"

func TestClassifyADC(t *testing.T) {
	r := Classify([]byte("HSUP ADBASE\n"), false)
	if r.Kind != ADC {
		t.Fatalf("got %v", r.Kind)
	}
}

func TestClassifyADCRequireTLS(t *testing.T) {
	r := Classify([]byte("HSUP ADBASE\n"), true)
	if r.Kind != ADCRequireTLS {
		t.Fatalf("got %v", r.Kind)
	}
}

func TestClassifyTLSClientHello(t *testing.T) {
	buf := make([]byte, 12)
	buf[0] = 22
	buf[1] = 3
	buf[5] = 1
	buf[9] = 3
	buf[10] = 3
	r := Classify(buf, false)
	if r.Kind != TLS || r.TLSMajor != 3 || r.TLSMinor != 3 {
		t.Fatalf("got %+v", r)
	}
}

func TestClassifyHTTP(t *testing.T) {
	for _, s := range []string{"GET /\r\n", "POST /x\r\n", "HEAD /\r\n", "OPTIONS\r\n"} {
		if r := Classify([]byte(s), false); r.Kind != HTTP {
			t.Errorf("Classify(%q) = %v, want HTTP", s, r.Kind)
		}
	}
}

func TestClassifyIRC(t *testing.T) {
	r := Classify([]byte("NICK foo\r\n"), false)
	if r.Kind != IRC {
		t.Fatalf("got %v", r.Kind)
	}
}

func TestClassifyUnrecognized(t *testing.T) {
	r := Classify([]byte("xxxxxxxxxxxx"), false)
	if r.Kind != Unrecognized {
		t.Fatalf("got %v", r.Kind)
	}
}

func TestClassifyTooShort(t *testing.T) {
	r := Classify([]byte("HS"), false)
	if r.Kind != Unknown {
		t.Fatalf("got %v", r.Kind)
	}
}

func TestHTTPRedirectContentLength(t *testing.T) {
	out := HTTPRedirect("https://example.org/")
	if len(out) == 0 {
		t.Fatalf("empty redirect body")
	}
}

func TestNMDCRedirectFormat(t *testing.T) {
	out := string(NMDCRedirect("dchub://example.org"))
	want := "<hub> Redirecting...|$ForceMove dchub://example.org|"
	if out != want {
		t.Fatalf("got %q, want %q", out, want)
	}
}

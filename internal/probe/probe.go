// Package probe classifies a freshly-accepted connection from its
// first bytes, before any protocol-specific handler takes over.
//
// Grounded on uhub's core/probe.c: peek up to 12 bytes, recognize
// ADC's "HSUP", a TLS ClientHello record header, the common HTTP verb
// prefixes, and IRC's "NICK"; anything else (or a read timeout) is
// handled per spec.md §4.E.
package probe

import "fmt"

// PeekSize is the maximum number of bytes probe needs to see before it
// can classify a connection (uhub's PROBE_RECV_SIZE).
const PeekSize = 12

// Kind identifies the protocol a connection was probed as.
type Kind int

const (
	Unknown Kind = iota
	ADC
	ADCRequireTLS // ADC was spoken but the hub requires TLS; caller must redirect or close
	TLS
	HTTP
	IRC
	Unrecognized
)

func (k Kind) String() string {
	switch k {
	case ADC:
		return "adc"
	case ADCRequireTLS:
		return "adc-require-tls"
	case TLS:
		return "tls"
	case HTTP:
		return "http"
	case IRC:
		return "irc"
	case Unrecognized:
		return "unrecognized"
	default:
		return "unknown"
	}
}

// Result is the outcome of classifying a peeked buffer.
type Result struct {
	Kind        Kind
	TLSMajor    int // set when Kind == TLS
	TLSMinor    int
}

// requireTLS tells Classify whether the hub requires TLS for plain
// ADC connections (spec.md §4.E: "ADC-without-required-TLS redirect").
func Classify(buf []byte, requireTLS bool) Result {
	if len(buf) < 4 {
		return Result{Kind: Unknown}
	}
	switch {
	case string(buf[:4]) == "HSUP":
		if requireTLS {
			return Result{Kind: ADCRequireTLS}
		}
		return Result{Kind: ADC}
	case len(buf) >= 11 &&
		buf[0] == 22 && // TLS record type: handshake
		buf[1] == 3 && // protocol major version (SSLv3/TLSx.y family)
		buf[5] == 1 && // handshake message type: ClientHello
		buf[9] == buf[1]:
		return Result{Kind: TLS, TLSMajor: int(buf[9]), TLSMinor: int(buf[10])}
	case isHTTPPrefix(buf):
		return Result{Kind: HTTP}
	case string(buf[:4]) == "NICK":
		return Result{Kind: IRC}
	default:
		return Result{Kind: Unrecognized}
	}
}

func isHTTPPrefix(buf []byte) bool {
	for _, p := range [][]byte{[]byte("GET "), []byte("POST"), []byte("HEAD"), []byte("OPTI")} {
		if string(buf[:4]) == string(p) {
			return true
		}
	}
	return false
}

// RedirectRequireTLS builds the IQUI redirect frame sent to a plain
// ADC client when the hub requires TLS and a redirect address is
// configured, per spec.md §4.E.
func RedirectRequireTLS(support string, addr string) []byte {
	return []byte(fmt.Sprintf("ISUP %s\nISID AAAB\nIINF NIRedirecting...\nIQUI AAAB RD%s\n", support, addr))
}

// NMDCRedirect builds the NMDC-protocol redirect banner sent on probe
// timeout when hub.probe.nmdc-redirect is configured: NMDC speaks
// first, so a silent client past the probe timeout is assumed to be
// an NMDC client waiting on the server.
func NMDCRedirect(addr string) []byte {
	return []byte(fmt.Sprintf("<hub> Redirecting...|$ForceMove %s|", addr))
}

// HTTPRedirect builds a 307 response pointing at addr.
func HTTPRedirect(addr string) []byte {
	body := fmt.Sprintf(
		"<html>\r\n<head><title>307 Temporary Redirect</title></head>\r\n"+
			"<body>\r\n<center><h1>307 Temporary Redirect</h1></center>\r\n"+
			"<hr><center><a href=\"%s\">Redirect</a></center>\r\n</body>\r\n</html>\r\n", addr)
	return []byte(fmt.Sprintf(
		"HTTP/1.1 307 Temporary Redirect\r\n"+
			"Connection: close\r\n"+
			"Location: %s\r\n"+
			"Content-Type: text/html; charset=utf-8\r\n"+
			"Content-Length: %d\r\n\r\n%s", addr, len(body), body))
}

// HTTPNotImplemented builds the hub's fallback 501 response when no
// HTTP redirect address is configured and the probe page asset
// (internal/webassets) isn't used.
func HTTPNotImplemented() []byte {
	body := "<html>\r\n<head><title>501 Not Implemented</title></head>\r\n" +
		"<body>\r\n<center><h1>501 Not Implemented</h1></center>\r\n<hr>\r\n</body>\r\n</html>\r\n"
	return []byte(fmt.Sprintf(
		"HTTP/1.1 501 Not Implemented\r\n"+
			"Connection: close\r\n"+
			"Content-Type: text/html; charset=utf-8\r\n"+
			"Content-Length: %d\r\n\r\n%s", len(body), body))
}

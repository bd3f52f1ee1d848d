// Package tlsadapter wraps a raw connection in a small state machine
// that tracks TLS handshake progress, and computes certificate key-print fingerprints for the
// adcs:// URI form (spec.md §4.D).
//
// Grounded on uhub's openssl.c SSL state handling and the teacher's
// certs.go (X509KeyPair / keyprint.FromBytes usage, generalized here
// since the teacher's keyprint dependency is not part of this build).
package tlsadapter

import (
	"crypto/sha256"
	"crypto/tls"
	"encoding/base32"
	"fmt"
)

// State is one point in the TLS adapter's lifecycle.
type State int

const (
	None State = iota
	Accepting
	Connecting
	Connected
	Error
	Disconnecting
)

func (s State) String() string {
	switch s {
	case None:
		return "none"
	case Accepting:
		return "accepting"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Error:
		return "error"
	case Disconnecting:
		return "disconnecting"
	default:
		return "unknown"
	}
}

// ALPNProtocol is the only protocol ADC-over-TLS negotiates.
const ALPNProtocol = "adc"

// Config builds the *tls.Config used for both hub-side (accepting)
// and outbound (connecting) handshakes. SSLv2/SSLv3 are never
// selectable: MinVersion floors at TLS 1.2, matching uhub's disabling
// of the two historically-broken protocol versions.
func Config(cert tls.Certificate, minVersion uint16) *tls.Config {
	if minVersion < tls.VersionTLS12 {
		minVersion = tls.VersionTLS12
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   minVersion,
		NextProtos:   []string{ALPNProtocol},
	}
}

// Adapter tracks one connection's TLS handshake state. The caller
// drives it with Advance, which reports the read/write interest the
// handshake still needs.
type Adapter struct {
	conn  *tls.Conn
	state State
	err   error
}

// Accept begins a server-side handshake over conn.
func Accept(conn *tls.Conn) *Adapter {
	return &Adapter{conn: conn, state: Accepting}
}

// ConnectAdapter begins a client-side handshake over conn.
func ConnectAdapter(conn *tls.Conn) *Adapter {
	return &Adapter{conn: conn, state: Connecting}
}

// State returns the adapter's current state.
func (a *Adapter) State() State { return a.state }

// Err returns the handshake error, if State is Error.
func (a *Adapter) Err() error { return a.err }

// Advance drives the handshake forward. Call it once on registration
// and again each time the ioloop reports readiness on the wrapped fd.
// It returns the interest mask the ioloop should now wait on: for
// Connected or Error the caller must stop calling Advance and switch
// to ordinary read/write handling (or teardown).
func (a *Adapter) Advance() (wantRead, wantWrite bool, err error) {
	switch a.state {
	case Connected, Error, Disconnecting, None:
		return false, false, a.err
	}
	err = a.conn.Handshake()
	if err == nil {
		if err := checkALPN(a.conn); err != nil {
			a.state = Error
			a.err = err
			return false, false, err
		}
		a.state = Connected
		return false, false, nil
	}
	if ne, ok := err.(interface{ Temporary() bool }); ok && ne.Temporary() {
		return true, true, nil
	}
	a.state = Error
	a.err = err
	return false, false, err
}

func checkALPN(conn *tls.Conn) error {
	if p := conn.ConnectionState().NegotiatedProtocol; p != "" && p != ALPNProtocol {
		return fmt.Errorf("tlsadapter: unexpected ALPN protocol %q", p)
	}
	return nil
}

// Disconnect marks the adapter as shutting down; Advance becomes a
// no-op after this.
func (a *Adapter) Disconnect() {
	a.state = Disconnecting
}

// Fingerprint computes the adcs:// key-print for a DER-encoded
// certificate: "SHA256/" followed by the unpadded base32 encoding of
// its SHA-256 digest, matching the uhub-derived adcs:// URI form used
// across the ADC ecosystem.
func Fingerprint(der []byte) string {
	sum := sha256.Sum256(der)
	enc := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(sum[:])
	return "SHA256/" + enc
}

// URI formats the adcs:// connect string for host:port with kp as
// returned by Fingerprint.
func URI(host string, port int, kp string) string {
	return fmt.Sprintf("adcs://%s:%d/?kp=%s", host, port, kp)
}

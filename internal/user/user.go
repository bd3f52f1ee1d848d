// Package user implements the hub-side user record: identity,
// credentials, feature set and the INF merge semantics that keep a
// user's cached INF message consistent across updates (spec.md §3,
// §4.G).
//
// Grounded on go-dcpp's adcPeer/adc.User fields and uhub's
// mod_users.c credential enumeration, plus the INF merge behavior uhub calls
// user_update_info.
package user

import (
	"fmt"
	"net/netip"
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/blang/semver"

	"github.com/direct-connect/adchub/adc"
	"github.com/direct-connect/adchub/internal/netaddr"
	"github.com/direct-connect/adchub/internal/sid"
)

// Credential is the user's privilege level, ordered low to high.
type Credential int

const (
	CredNone Credential = iota
	CredBot
	CredUBot
	CredOpBot
	CredOpUBot
	CredGuest
	CredUser
	CredOperator
	CredSuper
	CredLink
	CredAdmin
)

var credNames = map[Credential]string{
	CredNone: "none", CredBot: "bot", CredUBot: "ubot", CredOpBot: "opbot",
	CredOpUBot: "opubot", CredGuest: "guest", CredUser: "user",
	CredOperator: "operator", CredSuper: "super", CredLink: "link", CredAdmin: "admin",
}

func (c Credential) String() string {
	if s, ok := credNames[c]; ok {
		return s
	}
	return "unknown"
}

// ParseCredential maps a configuration/plugin-facing name to a Credential.
func ParseCredential(s string) (Credential, error) {
	for c, name := range credNames {
		if name == s {
			return c, nil
		}
	}
	return CredNone, fmt.Errorf("user: unknown credential %q", s)
}

// Flags holds boolean session attributes.
type Flags struct {
	TLS     bool
	Passive bool
	HubBot  bool
}

// Quotas bounds a user's buffering and message rate.
type Quotas struct {
	MaxSendBuf int
	MaxRecvBuf int
	RateLimit  int // messages per second, 0 = unbounded
}

// Profile names a named permission bundle a user has been assigned
// (SPEC_FULL.md §4.Q); empty when the user has no profile beyond their
// base Credential.
type Profile string

// User is the hub-side record for one connected peer.
type User struct {
	SID   sid.SID
	CID   string
	Nick  string
	Cred  Credential
	Flags Flags
	Quota Quotas

	Addr    string
	Profile Profile
	Warnings int

	ConnectedAt time.Time
	ActivityAt  time.Time

	info map[string]string // raw INF named-argument fields, keyed by 2-letter name
}

// New creates a user shell prior to INF validation. SID is assigned by
// the caller from the hub's sid.Pool (hub/conn.go does so on admission,
// when the session enters Normal).
func New(s sid.SID) *User {
	return &User{
		SID:         s,
		ConnectedAt: time.Now(),
		ActivityAt:  time.Now(),
		info:        make(map[string]string),
	}
}

// NickKey returns the case-folded comparison key used by the user
// manager's nick index (spec.md §4.I: "case-folded string").
func NickKey(nick string) string {
	return strings.ToLower(nick)
}

var errEmptyNick = fmt.Errorf("user: nick must not be empty")

// ValidateNick checks the length, whitespace, control-character and
// UTF-8 rules from spec.md §4.G.
func ValidateNick(nick string, maxLen int) error {
	if nick == "" {
		return errEmptyNick
	}
	if maxLen > 0 && len(nick) > maxLen {
		return fmt.Errorf("user: nick %q exceeds maximum length %d", nick, maxLen)
	}
	if !utf8.ValidString(nick) {
		return fmt.Errorf("user: nick %q is not well-formed UTF-8", nick)
	}
	if !norm.NFC.IsNormalString(nick) {
		return fmt.Errorf("user: nick %q is not NFC-normalized", nick)
	}
	if unicode.IsSpace(rune(nick[0])) {
		return fmt.Errorf("user: nick %q has leading whitespace", nick)
	}
	for _, r := range nick {
		if unicode.IsControl(r) {
			return fmt.Errorf("user: nick %q contains a control character", nick)
		}
	}
	return nil
}

// ValidateCID checks that cid is a well-formed 39-character base32
// client identifier.
func ValidateCID(cid string) error {
	if len(cid) != 39 {
		return fmt.Errorf("user: CID %q must be 39 characters, got %d", cid, len(cid))
	}
	for _, r := range cid {
		if !((r >= 'A' && r <= 'Z') || (r >= '2' && r <= '7')) {
			return fmt.Errorf("user: CID %q contains non-base32 character %q", cid, r)
		}
	}
	return nil
}

// ApplyINF validates and merges msg's named arguments into the user's
// current info set. first indicates whether this is the user's
// initial INF (identity-establishing) rather than an update.
//
// Update semantics (spec.md §4.G): non-empty fields overwrite,
// explicitly-empty fields clear, and fields absent from msg are
// preserved.
func (u *User) ApplyINF(msg *adc.Message, first bool, maxNickLen int) error {
	if msg.Cmd.Type() != adc.TypeINF {
		return fmt.Errorf("user: ApplyINF called with non-INF message %v", msg.Cmd)
	}

	nick, hasNick := msg.GetNamedArgument("NI")
	cid, hasCID := msg.GetNamedArgument("ID")

	if first {
		if !hasCID {
			return fmt.Errorf("user: initial INF is missing ID (CID)")
		}
		if err := ValidateCID(cid); err != nil {
			return err
		}
		if !hasNick {
			return fmt.Errorf("user: initial INF is missing NI (nick)")
		}
		if err := ValidateNick(nick, maxNickLen); err != nil {
			return err
		}
		u.CID = cid
		u.Nick = nick
	} else {
		if hasNick && nick != u.Nick {
			return fmt.Errorf("user: nick may not change after identify")
		}
		if hasCID && cid != u.CID {
			return fmt.Errorf("user: CID may not change after identify")
		}
	}

	for _, a := range msg.Args {
		if a.Name == "" {
			continue
		}
		if a.Value == "" {
			delete(u.info, a.Name)
			continue
		}
		u.info[a.Name] = a.Value
	}
	u.ActivityAt = time.Now()
	return nil
}

// Info returns the current value of a named INF field.
func (u *User) Info(name string) (string, bool) {
	v, ok := u.info[name]
	return v, ok
}

// Features returns the supported-feature set advertised in SU,
// comma-separated in the wire form.
func (u *User) Features() []string {
	su, ok := u.info["SU"]
	if !ok || su == "" {
		return nil
	}
	return strings.Split(su, ",")
}

// HasFeature reports whether the user advertises feat in SU.
func (u *User) HasFeature(feat string) bool {
	for _, f := range u.Features() {
		if f == feat {
			return true
		}
	}
	return false
}

// ClientVersion parses the VE field as a semantic version, e.g.
// "adchub 1.2.3" -> name "adchub", version 1.2.3. Returns ok=false if
// VE is absent or its trailing token does not parse as semver.
func (u *User) ClientVersion() (name string, v semver.Version, ok bool) {
	ve, has := u.info["VE"]
	if !has {
		return "", semver.Version{}, false
	}
	fields := strings.Fields(ve)
	if len(fields) == 0 {
		return "", semver.Version{}, false
	}
	last := fields[len(fields)-1]
	parsed, err := semver.ParseTolerant(last)
	if err != nil {
		return strings.Join(fields[:len(fields)-1], " "), semver.Version{}, false
	}
	return strings.Join(fields[:len(fields)-1], " "), parsed, true
}

// Address returns the user's address parsed as a netip.Addr. It
// returns an error if Addr is unset or malformed.
func (u *User) Address() (netip.Addr, error) {
	if u.Addr == "" {
		return netip.Addr{}, fmt.Errorf("user: address is unset")
	}
	return netaddr.ParseAddress(u.Addr)
}

// ToINF re-serializes the user's current info set as a BINF message
// with a canonical, stable field ordering — required so that
// "the resulting cache must re-encode cleanly" (spec.md §4.G).
func (u *User) ToINF() (*adc.Message, error) {
	cmd, err := adc.NewCommand(adc.Broadcast, adc.TypeINF)
	if err != nil {
		return nil, err
	}
	m := adc.New(cmd)
	m.SetSource(u.SID)
	m.AddNamedArgument("ID", u.CID)
	m.AddNamedArgument("NI", u.Nick)

	names := make([]string, 0, len(u.info))
	for name := range u.info {
		if name == "ID" || name == "NI" {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		m.AddNamedArgument(name, u.info[name])
	}
	return m, nil
}

// Package command implements the hub's "!"/"+" chat command
// interpreter: a small typed argument grammar, a registry of
// prefix -> handler, and a parser that resolves user/CID/command
// references against a Resolver (spec.md §4.K).
//
// Grounded on the teacher's hub.Command/RegisterCommand shape
// (hub/plugins/myip/myip.go) and mod_users.c's argument-pulling style
// (each argument type consumed in turn, first failure aborts parsing).
package command

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/direct-connect/adchub/internal/netaddr"
	"github.com/direct-connect/adchub/internal/user"
)

// Glyph is one token of an argument specification.
type Glyph byte

const (
	GlyphInt        Glyph = 'N'
	GlyphUserByNick Glyph = 'u'
	GlyphUserByCID  Glyph = 'i'
	GlyphCommand    Glyph = 'c'
	GlyphCredential Glyph = 'C'
	GlyphNick       Glyph = 'n'
	GlyphAddress    Glyph = 'a'
	GlyphRange      Glyph = 'r'
	GlyphWord       Glyph = 'm'
	GlyphPath       Glyph = 'p'
	GlyphString     Glyph = 's'
	GlyphOptional   Glyph = '?'
	GlyphRest       Glyph = '+'
)

// Status is the outcome of parsing and dispatching a command line.
type Status int

const (
	StatusOK Status = iota
	StatusSyntax
	StatusNotFound
	StatusAccessDenied
	StatusMissingArgs
	StatusBadInteger
	StatusBadNick
	StatusBadCID
	StatusBadCommand
	StatusBadCredentials
	StatusBadAddress
	StatusBadRange
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusSyntax:
		return "syntax"
	case StatusNotFound:
		return "not_found"
	case StatusAccessDenied:
		return "access_denied"
	case StatusMissingArgs:
		return "missing_args"
	case StatusBadInteger:
		return "bad_integer"
	case StatusBadNick:
		return "bad_nick"
	case StatusBadCID:
		return "bad_cid"
	case StatusBadCommand:
		return "bad_command"
	case StatusBadCredentials:
		return "bad_credentials"
	case StatusBadAddress:
		return "bad_address"
	case StatusBadRange:
		return "bad_range"
	default:
		return "unknown"
	}
}

// Resolver looks up entities referenced by argument glyphs u/i/c.
type Resolver interface {
	UserByNick(nick string) (*user.User, bool)
	UserByCID(cid string) (*user.User, bool)
	CommandRegistered(prefix string) bool
}

// Value is one parsed argument, tagged by which glyph produced it.
type Value struct {
	Glyph   Glyph
	Int     int
	User    *user.User
	Nick    string
	Command string
	Cred    user.Credential
	Addr    string
	Range   netaddr.Range
	Text    string
	Present bool // false when this was an optional argument that was omitted
}

// Handler executes a command once its arguments have parsed
// successfully.
type Handler func(caller *user.User, args []Value) error

// Command is a single registered chat command.
type Command struct {
	Prefix  string
	Aliases []string
	CredMin user.Credential
	Spec    []Glyph // argument specification, in order
	Short   string
	Handler Handler
}

// Registry holds the set of registered commands, keyed by prefix and
// every alias.
type Registry struct {
	byName map[string]*Command
	order  []*Command
}

// NewRegistry creates an empty command registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*Command)}
}

// Register adds cmd under its prefix and all aliases. It returns an
// error if any of those names is already taken.
func (r *Registry) Register(cmd *Command) error {
	names := append([]string{cmd.Prefix}, cmd.Aliases...)
	for _, n := range names {
		if _, exists := r.byName[n]; exists {
			return fmt.Errorf("command: %q is already registered", n)
		}
	}
	for _, n := range names {
		r.byName[n] = cmd
	}
	r.order = append(r.order, cmd)
	return nil
}

// Registered reports whether name is a registered prefix or alias,
// regardless of credential — used by the "c" argument glyph to
// validate a command reference without exposing the registry's
// internal map to callers.
func (r *Registry) Registered(name string) bool {
	_, ok := r.byName[name]
	return ok
}

// Visible returns the commands whose CredMin is at or below cred,
// sorted by registration order — used to build the built-in help
// listing (spec.md §4.K: "help (lists commands the caller may invoke)").
func (r *Registry) Visible(cred user.Credential) []*Command {
	var out []*Command
	for _, c := range r.order {
		if cred >= c.CredMin {
			out = append(out, c)
		}
	}
	return out
}

// Dispatch parses line (without its leading "!"/"+") against the
// registry and, on success, invokes the matched command's handler.
func Dispatch(reg *Registry, res Resolver, caller *user.User, line string) Status {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return StatusSyntax
	}
	cmd, ok := reg.byName[fields[0]]
	if !ok {
		return StatusNotFound
	}
	if caller.Cred < cmd.CredMin {
		return StatusAccessDenied
	}

	rest := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), fields[0]))
	values, status := parseArgs(cmd.Spec, rest, res)
	if status != StatusOK {
		return status
	}
	if err := cmd.Handler(caller, values); err != nil {
		return StatusSyntax
	}
	return StatusOK
}

func parseArgs(spec []Glyph, rest string, res Resolver) ([]Value, Status) {
	var values []Value
	tokens := strings.Fields(rest)
	i := 0
	optional := false

	for si := 0; si < len(spec); si++ {
		g := spec[si]
		switch g {
		case GlyphOptional:
			optional = true
			continue
		case GlyphRest:
			if si+1 >= len(spec) {
				return nil, StatusSyntax
			}
			si++
			text := strings.Join(tokens[min(i, len(tokens)):], " ")
			values = append(values, Value{Glyph: spec[si], Text: text, Present: text != ""})
			i = len(tokens)
			optional = false
			continue
		}

		if i >= len(tokens) {
			if optional {
				values = append(values, Value{Glyph: g, Present: false})
				optional = false
				continue
			}
			return nil, StatusMissingArgs
		}
		tok := tokens[i]
		i++
		optional = false

		switch g {
		case GlyphInt:
			n, err := strconv.Atoi(tok)
			if err != nil {
				return nil, StatusBadInteger
			}
			values = append(values, Value{Glyph: g, Int: n, Present: true})
		case GlyphUserByNick:
			u, ok := res.UserByNick(tok)
			if !ok {
				return nil, StatusBadNick
			}
			values = append(values, Value{Glyph: g, User: u, Present: true})
		case GlyphUserByCID:
			u, ok := res.UserByCID(tok)
			if !ok {
				return nil, StatusBadCID
			}
			values = append(values, Value{Glyph: g, User: u, Present: true})
		case GlyphCommand:
			if !res.CommandRegistered(tok) {
				return nil, StatusBadCommand
			}
			values = append(values, Value{Glyph: g, Command: tok, Present: true})
		case GlyphCredential:
			c, err := user.ParseCredential(tok)
			if err != nil {
				return nil, StatusBadCredentials
			}
			values = append(values, Value{Glyph: g, Cred: c, Present: true})
		case GlyphNick:
			if err := user.ValidateNick(tok, 0); err != nil {
				return nil, StatusBadNick
			}
			values = append(values, Value{Glyph: g, Nick: tok, Present: true})
		case GlyphAddress:
			if _, err := netaddr.ParseAddress(tok); err != nil {
				return nil, StatusBadAddress
			}
			values = append(values, Value{Glyph: g, Addr: tok, Present: true})
		case GlyphRange:
			rg, err := netaddr.ParseRange(tok)
			if err != nil {
				return nil, StatusBadRange
			}
			values = append(values, Value{Glyph: g, Range: rg, Present: true})
		case GlyphWord, GlyphPath, GlyphString:
			values = append(values, Value{Glyph: g, Text: tok, Present: true})
		default:
			return nil, StatusSyntax
		}
	}
	return values, StatusOK
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

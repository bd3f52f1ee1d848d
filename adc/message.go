// Package adc implements the ADC wire message model: parsing,
// validation, escaping, structural editing and cached re-serialization
// of ADC protocol frames (spec.md §3, §4.F, §6).
//
// This is a from-scratch model, not a wrapper around the real
// direct-connect/go-dc library (absent from this build's dependency
// set) — spec.md scopes the message model as core, in-tree work. Its
// consumer-facing shape (named/positional arguments, a cached text
// form kept consistent by every edit, explicit Copy) follows the
// teacher's adc.Conn/*Packet usage pattern.
package adc

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/direct-connect/adchub/internal/sid"
)

// Priority is a routing hint attached to an outgoing message; it has
// no wire representation, and only affects backpressure/drop order
// (spec.md §5).
type Priority int

const (
	Low Priority = iota
	Normal
	High
)

// FeatureSel is one "+FEAT"/"-FEAT" token of an F-context feature
// filter.
type FeatureSel struct {
	Require bool // true for "+FEAT", false for "-FEAT"
	Feature string
}

func (f FeatureSel) String() string {
	if f.Require {
		return "+" + f.Feature
	}
	return "-" + f.Feature
}

// Argument is one element of a message's argument list: either a
// 2-character-prefixed named argument (e.g. "NI" + "alice") or a bare
// positional token.
type Argument struct {
	Name  string // "" for a positional argument
	Value string // decoded (unescaped) value
}

func (a Argument) encode() string {
	if a.Name == "" {
		return Escape(a.Value)
	}
	return a.Name + Escape(a.Value)
}

// Message is a mutable, cached ADC frame.
type Message struct {
	Cmd      Command
	Source   sid.SID
	Target   sid.SID
	Features []FeatureSel
	Args     []Argument
	Priority Priority

	cache       []byte
	terminated  bool
	sourceSet   bool
	targetSet   bool
}

// New creates an empty message with the given command. Source/Target
// must be set with SetSource/SetTarget if the context requires them.
func New(cmd Command) *Message {
	m := &Message{Cmd: cmd, terminated: true}
	m.rebuild()
	return m
}

// SetSource sets the message's Source SID. If the command's context
// does not carry a source, the SID is stored in Source but is not
// written to the frame.
func (m *Message) SetSource(s sid.SID) {
	m.Source = s
	m.sourceSet = true
	m.rebuild()
}

// SetTarget sets the message's Target SID.
func (m *Message) SetTarget(s sid.SID) {
	m.Target = s
	m.targetSet = true
	m.rebuild()
}

// RejectReason is a structured validation failure: spec.md §4.F
// requires "every validation error produces a structured rejection
// reason reported to the user (code + text), never a silent drop."
type RejectReason struct {
	Code int
	Text string
}

func (r *RejectReason) Error() string {
	return fmt.Sprintf("adc: %d %s", r.Code, r.Text)
}

func reject(code int, format string, args ...interface{}) error {
	return &RejectReason{Code: code, Text: fmt.Sprintf(format, args...)}
}

// Parse decodes a single ADC frame. buf must contain exactly one
// trailing LF and no embedded NUL bytes.
func Parse(buf []byte) (*Message, error) {
	if len(buf) == 0 {
		return nil, reject(40, "empty frame")
	}
	if bytes.IndexByte(buf, 0) >= 0 {
		return nil, reject(40, "embedded NUL byte")
	}
	if bytes.Count(buf, []byte{'\n'}) != 1 || buf[len(buf)-1] != '\n' {
		return nil, reject(40, "frame must contain exactly one trailing LF")
	}
	body := buf[:len(buf)-1]
	if len(body) < 4 {
		return nil, reject(40, "frame too short to contain a command header")
	}
	cmd, err := ParseCommand(body[:4])
	if err != nil {
		return nil, reject(40, "%v", err)
	}
	ctx := cmd.Context()

	fields := splitFields(body[4:])
	idx := 0

	m := &Message{Cmd: cmd, terminated: true}

	if ctx.HasSource() {
		if idx >= len(fields) {
			return nil, reject(41, "missing source SID for context %q", string(ctx))
		}
		s := sid.Parse(string(fields[idx]))
		if s == 0 && string(fields[idx]) != sid.String(0) {
			return nil, reject(41, "malformed source SID %q", fields[idx])
		}
		m.Source = s
		m.sourceSet = true
		idx++
	}
	if ctx.HasTarget() {
		if idx >= len(fields) {
			return nil, reject(41, "missing target SID for context %q", string(ctx))
		}
		s := sid.Parse(string(fields[idx]))
		if s == 0 && string(fields[idx]) != sid.String(0) {
			return nil, reject(41, "malformed target SID %q", fields[idx])
		}
		m.Target = s
		m.targetSet = true
		idx++
	}
	if ctx.HasFeatureFilter() {
		for idx < len(fields) && len(fields[idx]) == 5 && (fields[idx][0] == '+' || fields[idx][0] == '-') {
			m.Features = append(m.Features, FeatureSel{
				Require: fields[idx][0] == '+',
				Feature: string(fields[idx][1:]),
			})
			idx++
		}
	}
	// The SID carried by SID and QUI frames ("ISID AAAB", "IQUI AAAB")
	// is positional even though it starts with two uppercase letters.
	positional := 0
	if t := cmd.Type(); t == TypeSID || t == TypeQUI {
		positional = 1
	}
	for ; idx < len(fields); idx++ {
		raw := fields[idx]
		var name string
		var rawVal []byte
		if len(m.Args) >= positional && len(raw) >= 2 && isNameByte(raw[0]) && isNameByte(raw[1]) {
			name = string(raw[:2])
			rawVal = raw[2:]
		} else {
			rawVal = raw
		}
		val, err := Unescape(string(rawVal))
		if err != nil {
			return nil, reject(42, "%v", err)
		}
		m.Args = append(m.Args, Argument{Name: name, Value: val})
	}

	m.cache = append([]byte(nil), buf...)
	return m, nil
}

// ParseVerify parses buf and additionally requires, when want != 0
// (the caller's own known SID), that the message's Source SID equals
// want exactly — spec.md §4.F: "the source SID must equal the user's
// SID; otherwise the message is rejected."
func ParseVerify(want sid.SID, buf []byte) (*Message, error) {
	m, err := Parse(buf)
	if err != nil {
		return nil, err
	}
	if m.Cmd.Context().HasSource() && want != 0 && m.Source != want {
		return nil, reject(43, "source SID %s does not match session SID %s", m.Source, want)
	}
	return m, nil
}

func isNameByte(c byte) bool {
	return c >= 'A' && c <= 'Z'
}

// splitFields splits on single ASCII spaces, respecting that escaped
// spaces ("\s") never appear as raw spaces in the wire form.
func splitFields(b []byte) [][]byte {
	if len(b) == 0 {
		return nil
	}
	// leading space separates the header from the first field
	if b[0] == ' ' {
		b = b[1:]
	}
	if len(b) == 0 {
		return nil
	}
	return bytes.Split(b, []byte{' '})
}

// Cache returns the frame's current textual encoding, always
// terminated with a single trailing LF unless Unterminate was called.
func (m *Message) Cache() []byte {
	return m.cache
}

// String returns the frame's current textual encoding.
func (m *Message) String() string {
	return string(m.cache)
}

// IsEmpty reports whether the message carries no argument payload
// beyond its header tokens.
func (m *Message) IsEmpty() bool {
	return len(m.Args) == 0
}

// rebuild re-encodes the cache from the current structure; called by
// every structural edit so the cache never drifts from the struct
// fields (spec.md §4.F).
func (m *Message) rebuild() {
	var b bytes.Buffer
	b.Write(m.Cmd[:])
	ctx := m.Cmd.Context()
	if ctx.HasSource() {
		b.WriteByte(' ')
		b.WriteString(sid.String(m.Source))
	}
	if ctx.HasTarget() {
		b.WriteByte(' ')
		b.WriteString(sid.String(m.Target))
	}
	for _, f := range m.Features {
		b.WriteByte(' ')
		b.WriteString(f.String())
	}
	for _, a := range m.Args {
		b.WriteByte(' ')
		b.WriteString(a.encode())
	}
	if m.terminated {
		b.WriteByte('\n')
	}
	m.cache = b.Bytes()
}

// Terminate ensures the cache ends with a single trailing LF. It is
// idempotent.
func (m *Message) Terminate() {
	if m.terminated {
		return
	}
	m.terminated = true
	m.rebuild()
}

// Unterminate removes the trailing LF from the cache, if present. It
// is idempotent.
func (m *Message) Unterminate() {
	if !m.terminated {
		return
	}
	m.terminated = false
	m.rebuild()
}

// Copy returns a deep clone independent of m: the clone's Cache()
// equals m.Cache() but is backed by a disjoint buffer, and mutating
// the clone never affects m.
func (m *Message) Copy() *Message {
	clone := &Message{
		Cmd:        m.Cmd,
		Source:     m.Source,
		Target:     m.Target,
		Priority:   m.Priority,
		terminated: m.terminated,
		sourceSet:  m.sourceSet,
		targetSet:  m.targetSet,
	}
	clone.Features = append([]FeatureSel(nil), m.Features...)
	clone.Args = append([]Argument(nil), m.Args...)
	clone.cache = append([]byte(nil), m.cache...)
	return clone
}

// AddArgument appends a positional argument.
func (m *Message) AddArgument(text string) {
	m.Args = append(m.Args, Argument{Value: text})
	m.rebuild()
}

// AddNamedArgument appends a named argument, e.g. AddNamedArgument("NI", "alice").
func (m *Message) AddNamedArgument(name, value string) {
	m.Args = append(m.Args, Argument{Name: name, Value: value})
	m.rebuild()
}

// AddNamedArgumentInt appends a named argument encoding a signed integer.
func (m *Message) AddNamedArgumentInt(name string, v int) {
	m.AddNamedArgument(name, strconv.Itoa(v))
}

// AddNamedArgumentUint64 appends a named argument encoding an unsigned integer.
func (m *Message) AddNamedArgumentUint64(name string, v uint64) {
	m.AddNamedArgument(name, strconv.FormatUint(v, 10))
}

// RemoveNamedArgument removes the first occurrence of a named
// argument. It reports whether one was removed.
func (m *Message) RemoveNamedArgument(name string) bool {
	for i, a := range m.Args {
		if a.Name == name {
			m.Args = append(m.Args[:i], m.Args[i+1:]...)
			m.rebuild()
			return true
		}
	}
	return false
}

// ReplaceNamedArgument replaces the first occurrence of a named
// argument's value, or appends it if absent.
func (m *Message) ReplaceNamedArgument(name, value string) {
	for i, a := range m.Args {
		if a.Name == name {
			m.Args[i].Value = value
			m.rebuild()
			return
		}
	}
	m.AddNamedArgument(name, value)
}

// GetArgument returns the value at positional index across the whole
// argument list (named and positional arguments share one sequence).
func (m *Message) GetArgument(index int) (string, bool) {
	if index < 0 || index >= len(m.Args) {
		return "", false
	}
	return m.Args[index].Value, true
}

// GetNamedArgument returns the value of the first occurrence of name.
func (m *Message) GetNamedArgument(name string) (string, bool) {
	for _, a := range m.Args {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// HasNamedArgument returns the number of occurrences of name (0, 1, 2, ...).
func (m *Message) HasNamedArgument(name string) int {
	n := 0
	for _, a := range m.Args {
		if a.Name == name {
			n++
		}
	}
	return n
}

// GetNamedArgumentIndex returns the first occurrence's positional
// index, or -1 if absent.
func (m *Message) GetNamedArgumentIndex(name string) int {
	for i, a := range m.Args {
		if a.Name == name {
			return i
		}
	}
	return -1
}

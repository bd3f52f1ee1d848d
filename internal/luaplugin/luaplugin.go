// Package luaplugin implements an optional plugin.Hooks backed by a
// single embedded Lua script, letting an operator customize chat/
// search policy without recompiling the hub (SPEC_FULL.md §4.P).
//
// Grounded on the teacher's dependency on a forked Shopify/go-lua
// (github.com/direct-connect/go-lua); no usage site for it was
// retrieved in this build's examples, so the call shape here follows
// go-lua's documented public API (NewState/OpenLibraries/LoadString/
// ProtectedCall/Global/IsFunction/PushString/ToString/Pop), narrowly
// scoped to the on_chat_message
// hook described in SPEC_FULL.md §4.P.
package luaplugin

import (
	"fmt"
	"os"

	lua "github.com/Shopify/go-lua"

	"github.com/direct-connect/adchub/adc"
	"github.com/direct-connect/adchub/internal/user"
	"github.com/direct-connect/adchub/plugin"
)

// Plugin runs one Lua script's on_chat_message(nick, sid, text) ->
// "allow"|"deny"|"default" function as a plugin.Hooks.OnChatMessage
// implementation.
type Plugin struct {
	plugin.Base
	l *lua.State
}

// Load reads and executes path, registering its global functions.
func Load(path string) (*Plugin, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("luaplugin: reading %s: %w", path, err)
	}
	l := lua.NewState()
	lua.OpenLibraries(l)
	if err := lua.LoadString(l, string(src), path); err != nil {
		return nil, fmt.Errorf("luaplugin: loading %s: %w", path, err)
	}
	if err := l.ProtectedCall(0, 0, 0); err != nil {
		return nil, fmt.Errorf("luaplugin: running %s: %w", path, err)
	}
	return &Plugin{l: l}, nil
}

// OnChatMessage calls the script's on_chat_message global, if
// defined, translating its string return value into a plugin.Verdict.
// A missing function, or any Lua-side error, yields plugin.Default so
// a broken script never takes the hub down (SPEC_FULL.md §5: hook
// calls must be synchronous and bounded, never a hard dependency).
func (p *Plugin) OnChatMessage(from *user.User, msg *adc.Message) plugin.Verdict {
	p.l.Global("on_chat_message")
	if !p.l.IsFunction(-1) {
		p.l.Pop(1)
		return plugin.Default
	}
	text, _ := msg.GetArgument(0)
	p.l.PushString(from.Nick)
	p.l.PushString(from.SID.String())
	p.l.PushString(text)
	if err := p.l.ProtectedCall(3, 1, 0); err != nil {
		return plugin.Default
	}
	defer p.l.Pop(1)
	result, _ := p.l.ToString(-1)
	switch result {
	case "allow":
		return plugin.Allow
	case "deny":
		return plugin.Deny
	default:
		return plugin.Default
	}
}

// Close releases the Lua state.
func (p *Plugin) Close() error {
	p.l = nil
	return nil
}

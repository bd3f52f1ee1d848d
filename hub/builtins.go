// Built-in chat commands, registered against h.Commands in New.
// Grounded on the teacher's hub/plugins/myip plugin (hub.RegisterPlugin/
// hub.Command/peer.ChatMsg), adapted to the internal/command registry
// and to replying over the session's own Sender entry instead of a
// peer handle (spec.md §4.K: "myip (reports the caller's own remote
// address)" and "help (lists commands the caller may invoke)").
package hub

import (
	"fmt"
	"strings"

	"github.com/direct-connect/adchub/adc"
	"github.com/direct-connect/adchub/internal/command"
	"github.com/direct-connect/adchub/internal/user"
)

var infoSTA, _ = adc.NewCommand(adc.InfoCtx, adc.TypeSTA)

// reply sends an ISTA status line back to caller only, bypassing the
// router: an InfoCtx message carries no source/target and is never
// broadcast, matching how the teacher's peer.ChatMsg wrote straight
// back to the originating connection.
func (h *Hub) reply(caller *user.User, text string) {
	msg := adc.New(infoSTA)
	msg.AddArgument("1")
	msg.AddArgument(text)
	h.Router.Sender.Send(caller, msg.Cache())
}

// registerBuiltins installs the hub's built-in commands. Called once
// from New.
func (h *Hub) registerBuiltins() {
	_ = h.Commands.Register(&command.Command{
		Prefix:  "myip",
		Aliases: []string{"ip"},
		CredMin: user.CredGuest,
		Short:   "shows your current ip address",
		Handler: func(caller *user.User, args []command.Value) error {
			h.reply(caller, "- "+caller.Addr)
			return nil
		},
	})

	_ = h.Commands.Register(&command.Command{
		Prefix:  "help",
		CredMin: user.CredGuest,
		Short:   "lists the commands available to you",
		Handler: func(caller *user.User, args []command.Value) error {
			var sb strings.Builder
			sb.WriteString("- commands available to you:")
			for _, c := range h.Commands.Visible(caller.Cred) {
				fmt.Fprintf(&sb, "\n!%s - %s", c.Prefix, c.Short)
			}
			h.reply(caller, sb.String())
			return nil
		},
	})
}

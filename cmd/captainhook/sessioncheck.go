package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/opsgate/captainhook/internal/hookio"
)

var sessionCheckFormat string

// sessionCheckCmd backs the user_prompt_submit (Claude) / BeforeAgent
// (Gemini) hook: it doesn't gate anything, it just nudges an operator
// to register an unregistered session with a role.
var sessionCheckCmd = &cobra.Command{
	Use:   "session-check",
	Short: "Check whether the current session is registered; prompt if not",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := hookio.ParseFormat(sessionCheckFormat); err != nil {
			return err
		}

		in, err := hookio.ReadInput(os.Stdin)
		if err != nil {
			return err
		}

		rt, err := loadRuntime(in.Cwd)
		if err != nil {
			return err
		}

		if rt.Sessions.IsDisabled(in.SessionID) || rt.Sessions.IsRegistered(in.SessionID) {
			return nil
		}

		names := rt.Sessions.RoleNames()
		fmt.Fprintf(os.Stderr, "captainhook: session %s is not registered.\n", in.SessionID)
		fmt.Fprintf(os.Stderr, "Available roles: %s\n", strings.Join(names, ", "))
		fmt.Fprintf(os.Stderr, "Register with: captainhook register --session-id %s --role <ROLE>\n", in.SessionID)
		fmt.Fprintf(os.Stderr, "Or disable: captainhook disable --session-id %s\n", in.SessionID)
		return nil
	},
}

func init() {
	sessionCheckCmd.Flags().StringVar(&sessionCheckFormat, "format", "claude", "output format: claude or gemini")
}

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/opsgate/captainhook/internal/cerr"
	"github.com/opsgate/captainhook/internal/decision"
	"github.com/opsgate/captainhook/internal/hookio"
)

var checkFormat string

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Evaluate one tool call (hook mode): reads JSON from stdin, writes JSON to stdout",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := hookio.ParseFormat(checkFormat)
		if err != nil {
			return err
		}

		in, err := hookio.ReadInput(os.Stdin)
		if err != nil {
			return err
		}

		rec := runCheck(in)

		if err := hookio.WriteOutput(os.Stdout, format, rec); err != nil {
			return err
		}
		os.Exit(hookio.ExitCode(format, rec))
		return nil
	},
}

func init() {
	checkCmd.Flags().StringVar(&checkFormat, "format", "claude", "output format: claude or gemini")
}

// runCheck resolves the session and runs the cascade, collapsing every
// failure into a well-formed deny record rather than letting an error
// escape to an unstructured stderr crash -- the hook boundary's output
// must always be the JSON shape the host expects.
func runCheck(in *hookio.Input) *decision.Record {
	rt, err := loadRuntime(in.Cwd)
	if err != nil {
		return denyRecord(in, err.Error())
	}

	sess := rt.Sessions.Get(in.SessionID)
	if rt.Sessions.IsDisabled(in.SessionID) {
		v := decision.Allow
		return &decision.Record{Decision: v, Metadata: decision.Metadata{Tier: decision.TierDefault, Reason: "captainhook disabled for this session", Confidence: 1.0}}
	}
	if !sess.IsRegistered() {
		return denyRecord(in, (&cerr.RegistrationRequired{SessionID: in.SessionID}).Error())
	}

	policy, err := rt.Sessions.CompiledPolicyFor(sess, rt.Policy.SensitivePaths.AskWrite)
	if err != nil {
		return denyRecord(in, err.Error())
	}

	ctx := context.Background()
	rec, err := rt.Runner.Evaluate(ctx, sess, sess.Role, rt.Sessions.RoleDescription(sess.Role), policy, in.ToolName, in.ToolInput, in.Cwd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "captainhook: cascade error: %v\n", err)
		return denyRecord(in, err.Error())
	}
	return rec
}

func denyRecord(in *hookio.Input, reason string) *decision.Record {
	return &decision.Record{
		Decision: decision.Deny,
		Metadata: decision.Metadata{
			Tier:       decision.TierDefault,
			Confidence: 1.0,
			Reason:     reason,
		},
		Timestamp: time.Now().UTC(),
		Scope:     decision.ScopeProject,
		SessionID: in.SessionID,
	}
}

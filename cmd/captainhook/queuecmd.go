package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opsgate/captainhook/internal/decision"
	"github.com/opsgate/captainhook/internal/queue"
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "List pending permission decisions",
	RunE: func(cmd *cobra.Command, args []string) error {
		q := queue.New(teamID())
		pending := q.ListPending()
		if len(pending) == 0 {
			fmt.Println("no pending decisions")
			return nil
		}
		for _, pd := range pending {
			fp := ""
			if pd.FilePath != nil {
				fp = *pd.FilePath
			}
			fmt.Printf("%s\trole=%s\ttool=%s\tfile=%s\tinput=%s\n", pd.ID, pd.Role, pd.ToolName, fp, pd.SanitizedInput)
		}
		return nil
	},
}

var (
	respAlwaysAsk bool
	respAddRule   bool
	respScope     string
)

func respond(id string, d decision.Decision) error {
	var ruleScope *decision.ScopeLevel
	if respAddRule {
		s := decision.ParseScope(respScope)
		ruleScope = &s
	}
	q := queue.New(teamID())
	return q.Respond(id, queue.Response{
		Decision:  d,
		AlwaysAsk: respAlwaysAsk,
		AddRule:   respAddRule,
		RuleScope: ruleScope,
	})
}

var approveCmd = &cobra.Command{
	Use:   "approve <id>",
	Short: "Approve a pending decision",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := respond(args[0], decision.Allow); err != nil {
			return err
		}
		fmt.Printf("approved %s\n", args[0])
		return nil
	},
}

var denyCmd = &cobra.Command{
	Use:   "deny <id>",
	Short: "Deny a pending decision",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := respond(args[0], decision.Deny); err != nil {
			return err
		}
		fmt.Printf("denied %s\n", args[0])
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{approveCmd, denyCmd} {
		c.Flags().BoolVar(&respAlwaysAsk, "always-ask", false, "cache the decision as ask, re-prompting every recurrence")
		c.Flags().BoolVar(&respAddRule, "add-rule", false, "promote this decision into a persistent rule")
		c.Flags().StringVar(&respScope, "scope", "project", "scope for the persisted rule (org|project|user|role)")
	}
}

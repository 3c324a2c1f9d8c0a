package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	regSessionID string
	regRole      string
	regUser      string
	regOrg       string
	regProject   string
	regTask      string
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Register a session with a role",
	RunE: func(cmd *cobra.Command, args []string) error {
		cwd, err := os.Getwd()
		if err != nil {
			return err
		}
		rt, err := loadRuntime(cwd)
		if err != nil {
			return err
		}
		if _, ok := rt.Sessions.GetRole(regRole); !ok {
			return fmt.Errorf("unknown role %q (available: %v)", regRole, rt.Sessions.RoleNames())
		}
		if _, err := rt.Sessions.Register(regSessionID, regUser, regOrg, regProject, rt.TeamID, regRole, regTask); err != nil {
			return err
		}
		fmt.Printf("registered session %s as role %q\n", regSessionID, regRole)
		return nil
	},
}

var disableCmd = &cobra.Command{
	Use:   "disable",
	Short: "Disable captainhook for a session",
	RunE: func(cmd *cobra.Command, args []string) error {
		cwd, err := os.Getwd()
		if err != nil {
			return err
		}
		rt, err := loadRuntime(cwd)
		if err != nil {
			return err
		}
		if err := rt.Sessions.Disable(regSessionID); err != nil {
			return err
		}
		fmt.Printf("disabled session %s\n", regSessionID)
		return nil
	},
}

var enableCmd = &cobra.Command{
	Use:   "enable",
	Short: "Re-enable captainhook for a disabled session",
	RunE: func(cmd *cobra.Command, args []string) error {
		cwd, err := os.Getwd()
		if err != nil {
			return err
		}
		rt, err := loadRuntime(cwd)
		if err != nil {
			return err
		}
		if err := rt.Sessions.Enable(regSessionID); err != nil {
			return err
		}
		fmt.Printf("enabled session %s\n", regSessionID)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{registerCmd, disableCmd, enableCmd} {
		c.Flags().StringVar(&regSessionID, "session-id", "", "session ID")
		_ = c.MarkFlagRequired("session-id")
	}
	registerCmd.Flags().StringVar(&regRole, "role", "", "role name")
	_ = registerCmd.MarkFlagRequired("role")
	registerCmd.Flags().StringVar(&regUser, "user", os.Getenv("USER"), "user name")
	registerCmd.Flags().StringVar(&regOrg, "org", "default", "organization name")
	registerCmd.Flags().StringVar(&regProject, "project", "", "project name")
	registerCmd.Flags().StringVar(&regTask, "task", "", "task description")
}

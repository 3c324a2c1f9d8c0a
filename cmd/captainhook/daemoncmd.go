package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/opsgate/captainhook/internal/daemon"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Manage the background cascade daemon",
}

var daemonStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the daemon in the foreground",
	RunE: func(cmd *cobra.Command, args []string) error {
		cwd, err := os.Getwd()
		if err != nil {
			return err
		}
		rt, err := loadRuntime(cwd)
		if err != nil {
			return err
		}
		d := daemon.New(&daemon.Evaluator{Runner: rt.Runner, Sessions: rt.Sessions, Policy: rt.Policy}, daemon.Config{IdleTimeout: 5 * time.Minute})
		return d.Run()
	},
}

var daemonStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report whether the daemon is running",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println(daemon.Status())
		return nil
	},
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println(daemon.Stop())
		return nil
	},
}

func init() {
	daemonCmd.AddCommand(daemonStartCmd, daemonStatusCmd, daemonStopCmd)
}

package main

import (
	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <slot-id>",
	Short: "查看时间段依赖快照",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		snap, err := a.svc.TimeSlot.Dependencies(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd, snap)
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

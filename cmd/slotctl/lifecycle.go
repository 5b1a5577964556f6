package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"timetable-admin/backend/internal/service"
)

func newTransitionCmd(t service.Transition, short string) *cobra.Command {
	return &cobra.Command{
		Use:   t.String() + " <slot-id>...",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			results := a.svc.TimeSlot.BulkTransition(cmd.Context(), args, t, operatorID(cmd))
			if err := printJSON(cmd, results); err != nil {
				return err
			}

			failed := 0
			for _, r := range results {
				if !r.Success {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d/%d 个时间段操作失败", failed, len(results))
			}
			return nil
		},
	}
}

func init() {
	rootCmd.AddCommand(
		newTransitionCmd(service.TransitionActivate, "启用时间段"),
		newTransitionCmd(service.TransitionDeactivate, "停用时间段（保留已有课表项）"),
		newTransitionCmd(service.TransitionDelete, "永久删除时间段；存在引用时改为停用"),
	)
}

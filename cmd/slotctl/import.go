package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var importICSCmd = &cobra.Command{
	Use:   "import-ics <file>",
	Short: "从 iCalendar 作息表导入时间段",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("打开文件失败: %w", err)
		}
		defer f.Close()

		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := a.svc.TimeSlot.ImportICS(cmd.Context(), f, operatorID(cmd))
		if err != nil {
			return err
		}
		return printJSON(cmd, result)
	},
}

func init() {
	rootCmd.AddCommand(importICSCmd)
}

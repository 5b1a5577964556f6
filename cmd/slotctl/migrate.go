package main

import (
	"github.com/spf13/cobra"

	"timetable-admin/backend/pkg/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "执行数据库迁移（--down N 回滚 N 个版本）",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, logger, db, err := connectDB(cmd)
		if err != nil {
			return err
		}
		defer logger.Sync()

		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		defer sqlDB.Close()

		down, _ := cmd.Flags().GetInt("down")
		if down > 0 {
			return database.RollbackMigrations(sqlDB, down, logger)
		}
		return database.RunMigrations(sqlDB, logger)
	},
}

func init() {
	migrateCmd.Flags().Int("down", 0, "回滚的迁移版本数")
	rootCmd.AddCommand(migrateCmd)
}

package main

import (
	"github.com/spf13/cobra"

	"timetable-admin/backend/internal/service"
	"timetable-admin/backend/pkg/jwt"
)

var issueTokenCmd = &cobra.Command{
	Use:   "issue-token",
	Short: "签发运维 Access Token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		defer logger.Sync()

		userID, _ := cmd.Flags().GetString("user")
		role, _ := cmd.Flags().GetString("role")
		ttl, _ := cmd.Flags().GetDuration("ttl")

		authSvc := service.NewAuthService(jwt.NewManager(&cfg.Auth), nil, logger)
		token, err := authSvc.IssueToken(userID, role, ttl)
		if err != nil {
			return err
		}
		return printJSON(cmd, token)
	},
}

func init() {
	issueTokenCmd.Flags().String("user", "", "用户 ID")
	issueTokenCmd.Flags().String("role", jwt.RoleAdmin, "角色: admin | viewer")
	issueTokenCmd.Flags().Duration("ttl", 0, "有效期（默认取 auth.access_token_ttl）")
	_ = issueTokenCmd.MarkFlagRequired("user")
	rootCmd.AddCommand(issueTokenCmd)
}

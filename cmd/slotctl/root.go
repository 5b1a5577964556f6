package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"timetable-admin/backend/config"
	"timetable-admin/backend/internal/repository"
	"timetable-admin/backend/internal/service"
	"timetable-admin/backend/pkg/database"
	"timetable-admin/backend/pkg/jwt"
	applogger "timetable-admin/backend/pkg/logger"
	"timetable-admin/backend/pkg/mq"
)

var rootCmd = &cobra.Command{
	Use:           "slotctl",
	Short:         "时间段运维命令行工具",
	Long:          "slotctl 直接连接数据库执行时间段批量启停、永久删除、依赖检查、作息表导入与数据库迁移。",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute 执行根命令
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "错误:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "配置文件路径（默认 ./config/config.yaml）")
	rootCmd.PersistentFlags().String("operator", "", "操作人 ID，写入审计字段与生命周期事件")
}

// app 命令执行期间持有的依赖
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	db        *gorm.DB
	publisher *mq.Publisher
	svc       *service.Service
}

// loadConfig 只加载配置与日志，不连接外部依赖
func loadConfig(cmd *cobra.Command) (*config.Config, *zap.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	var fields []zap.Field
	if op := operatorID(cmd); op != "" {
		fields = append(fields, zap.String("operator", op))
	}
	logger, err := applogger.NewLogger(&cfg.Log, "slotctl", fields...)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// connectDB 加载配置并连接数据库
func connectDB(cmd *cobra.Command) (*config.Config, *zap.Logger, *gorm.DB, error) {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, nil, err
	}
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, logger, db, nil
}

// newApp 组装完整的 Service 依赖；命令行不使用 Token 黑名单
func newApp(cmd *cobra.Command) (*app, error) {
	cfg, logger, db, err := connectDB(cmd)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger, db: db}

	var sink service.AuditSink
	if cfg.MQ.Enabled {
		a.publisher, err = mq.NewPublisher(&cfg.MQ, logger)
		if err != nil {
			logger.Warn("RabbitMQ 连接失败，生命周期事件改为写入日志", zap.Error(err))
		} else {
			sink = service.NewMQAuditSink(a.publisher, cfg.MQ.AuditQueue)
		}
	}

	repo := repository.NewRepository(db)
	a.svc = service.NewService(cfg, repo, jwt.NewManager(&cfg.Auth), nil, sink, logger)
	return a, nil
}

func (a *app) Close() {
	if a.publisher != nil {
		a.publisher.Close()
	}
	if sqlDB, err := a.db.DB(); err == nil {
		sqlDB.Close()
	}
	a.logger.Sync()
}

func operatorID(cmd *cobra.Command) string {
	id, _ := cmd.Flags().GetString("operator")
	return id
}

// printJSON 将结果以缩进 JSON 写到标准输出
func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"timetable-admin/backend/config"
)

// NewLogger 根据配置初始化 Zap 日志实例
// component 标识进程（server / slotctl）；fields 为每条日志附带的固定字段，
// slotctl 用它写入 operator，使命令行触发的时间段启停与删除可追溯到操作人
func NewLogger(cfg *config.LogConfig, component string, fields ...zap.Field) (*zap.Logger, error) {
	var zapCfg zap.Config

	switch cfg.Format {
	case "console":
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		zapCfg = zap.NewProductionConfig()
		zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		// 批量启停的逐项日志不采样
		zapCfg.Sampling = nil
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("无效的日志级别 %q: %w", cfg.Level, err)
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	// 命令行工具的标准输出留给 JSON 结果
	if component == "slotctl" {
		zapCfg.OutputPaths = []string{"stderr"}
	}

	fields = append([]zap.Field{zap.String("component", component)}, fields...)
	logger, err := zapCfg.Build(zap.Fields(fields...))
	if err != nil {
		return nil, fmt.Errorf("初始化日志器失败: %w", err)
	}

	return logger, nil
}

package service

import (
	"context"

	"go.uber.org/zap"
)

// AuditSink 生命周期事件的外部接收端（审计日志由外部持久化）
type AuditSink interface {
	Emit(ctx context.Context, event LifecycleEvent) error
}

// EventPublisher 消息发布能力，由 pkg/mq.Publisher 实现
type EventPublisher interface {
	PublishJSON(ctx context.Context, queue string, payload interface{}) error
}

// ── 日志审计端 ──

type logAuditSink struct {
	logger *zap.Logger
}

// NewLogAuditSink 以结构化日志输出生命周期事件（未配置消息队列时使用）
func NewLogAuditSink(logger *zap.Logger) AuditSink {
	return &logAuditSink{logger: logger}
}

func (s *logAuditSink) Emit(_ context.Context, event LifecycleEvent) error {
	s.logger.Info("时间段生命周期事件",
		zap.String("slot_id", event.SlotID),
		zap.String("from_state", string(event.FromState)),
		zap.String("to_state", string(event.ToState)),
		zap.Int("affected_active_entry_count", event.AffectedActiveEntryCount),
		zap.String("operator_id", event.OperatorID),
		zap.Time("occurred_at", event.OccurredAt),
	)
	return nil
}

// ── 消息队列审计端 ──

type mqAuditSink struct {
	publisher EventPublisher
	queue     string
}

// NewMQAuditSink 将生命周期事件以 JSON 发布到消息队列
func NewMQAuditSink(publisher EventPublisher, queue string) AuditSink {
	return &mqAuditSink{publisher: publisher, queue: queue}
}

func (s *mqAuditSink) Emit(ctx context.Context, event LifecycleEvent) error {
	return s.publisher.PublishJSON(ctx, s.queue, event)
}

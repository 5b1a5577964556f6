package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"timetable-admin/backend/config"
)

// Publisher RabbitMQ 发布端封装
// 当前用于时间段生命周期审计事件；队列在首次发布时声明为持久队列
type Publisher struct {
	conn   *amqp.Connection
	ch     *amqp.Channel
	logger *zap.Logger

	mu       sync.Mutex
	declared map[string]bool
}

// NewPublisher 建立连接与 Channel
func NewPublisher(cfg *config.MQConfig, logger *zap.Logger) (*Publisher, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("RabbitMQ 连接失败: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("RabbitMQ 打开 Channel 失败: %w", err)
	}

	logger.Info("RabbitMQ 连接成功")
	return &Publisher{conn: conn, ch: ch, logger: logger, declared: make(map[string]bool)}, nil
}

// PublishJSON 将 payload 序列化为 JSON 并以持久消息投递到默认交换机的 queue
func (p *Publisher) PublishJSON(ctx context.Context, queue string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("序列化消息失败: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.declared[queue] {
		if _, err := p.ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
			return fmt.Errorf("声明队列 %s 失败: %w", queue, err)
		}
		p.declared[queue] = true
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
		Headers:      amqp.Table{"message_type": "JSON"},
	}
	if err := p.ch.PublishWithContext(ctx, "", queue, false, false, msg); err != nil {
		return fmt.Errorf("发布消息失败: %w", err)
	}
	return nil
}

// Close 关闭 Channel 与连接
func (p *Publisher) Close() error {
	if err := p.ch.Close(); err != nil {
		p.logger.Warn("关闭 RabbitMQ Channel 失败", zap.Error(err))
	}
	return p.conn.Close()
}

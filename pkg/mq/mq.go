// Package mq RabbitMQ消息发布
//
// 导入任务结束后发布事件，下游（通知、统计）自行订阅：
//
//	Exchange: bookshelf.events (topic)
//	RoutingKey: bookimport.job.finished
//
// 事件是"尽力而为"的：发布失败只记录日志，不影响导入结果
package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/xiebiao/bookshelf/pkg/metrics"
)

// Publisher 消息发布者
// amqp.Channel不是并发安全的，Publish内部加锁
type Publisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
}

// NewPublisher 连接RabbitMQ并声明Exchange
func NewPublisher(url, exchange, exchangeType string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("连接RabbitMQ失败: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("创建Channel失败: %w", err)
	}

	err = channel.ExchangeDeclare(
		exchange,
		exchangeType,
		true,  // Durable
		false, // AutoDelete
		false, // Internal
		false, // NoWait
		nil,
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("声明Exchange失败: %w", err)
	}

	zap.L().Info("message publisher ready",
		zap.String("exchange", exchange),
		zap.String("type", exchangeType),
	)

	return &Publisher{
		conn:     conn,
		channel:  channel,
		exchange: exchange,
	}, nil
}

// Publish 以JSON格式发布持久化消息
func (p *Publisher) Publish(ctx context.Context, routingKey string, message interface{}) error {
	msg, err := NewMessage(message)
	if err != nil {
		return err
	}

	p.mu.Lock()
	err = p.channel.PublishWithContext(ctx, p.exchange, routingKey, false, false, msg)
	p.mu.Unlock()

	metrics.RecordMessagePublished(p.exchange, routingKey, err)
	if err != nil {
		return fmt.Errorf("发布消息失败: %w", err)
	}

	zap.L().Debug("message published",
		zap.String("routing_key", routingKey),
		zap.Int("bytes", len(msg.Body)),
	)
	return nil
}

// Close 关闭Channel和连接
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// NewMessage 构造持久化的JSON消息
func NewMessage(message interface{}) (amqp.Publishing, error) {
	body, err := json.Marshal(message)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("消息序列化失败: %w", err)
	}

	return amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
	}, nil
}

package kafka

import (
	"context"
	"time"

	"coco/pkg/logger"

	"github.com/segmentio/kafka-go"
)

// ConsumerService 定义了消费 Kafka 消息的通用接口
type ConsumerService interface {
	// Consume 启动一个协程消费指定主题，将消息发送到返回的通道
	Consume(ctx context.Context, topic string, groupID string) (<-chan kafka.Message, error)
	Close()
}

type kafkaConsumer struct {
	brokerURL string
}

func NewKafkaConsumer(brokerURL string) ConsumerService {
	return &kafkaConsumer{
		brokerURL: brokerURL,
	}
}

func (c *kafkaConsumer) Consume(ctx context.Context, topic string, groupID string) (<-chan kafka.Message, error) {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  []string{c.brokerURL},
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
		// 投递任务不能丢，从上次提交的位置继续
		StartOffset:    kafka.FirstOffset,
		CommitInterval: time.Second, // 自动提交，每秒一次
		MaxAttempts:    3,
	})
	outputCh := make(chan kafka.Message, 256)

	go func() {
		defer close(outputCh)
		defer r.Close()
		for {
			// ReadMessage 读取即提交（按 CommitInterval 异步批量），投递失败不重放
			m, err := r.ReadMessage(ctx)
			if err != nil {
				// Context 被取消（服务关闭），正常退出
				if ctx.Err() != nil {
					break
				}
				logger.Errorf("Kafka read error on topic %s: %v", topic, err)
				time.Sleep(time.Second)
				continue
			}

			// 通道满时阻塞，消费速度由下游 worker 决定
			select {
			case outputCh <- m:
			case <-ctx.Done():
				return
			}
		}
		logger.Infof("Kafka Consumer for topic %s finished.", topic)
	}()

	return outputCh, nil
}

func (c *kafkaConsumer) Close() {
	// Reader 在消费协程退出时关闭
	logger.Info("Kafka Consumer Service closing...")
}

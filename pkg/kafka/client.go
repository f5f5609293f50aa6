// Package kafka 提供了向 Kafka 投递图片描述任务的功能。
package kafka

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"image-review/internal/config"
	"image-review/pkg/log"
	"image-review/pkg/tasks"

	"github.com/segmentio/kafka-go"
)

// Producer 投递图片描述任务。本服务只生产消息，消费方是外部的描述生成程序。
type Producer interface {
	ProduceCaptionTask(ctx context.Context, task tasks.CaptionTask) error
	Close() error
}

type writerProducer struct {
	writer *kafka.Writer
}

type noopProducer struct{}

// InitProducer 初始化 Kafka 生产者。未配置 brokers 时返回一个空实现。
func InitProducer(cfg config.KafkaConfig) Producer {
	if cfg.Brokers == "" {
		log.Info("Kafka 未配置，图片描述任务不会被投递")
		return noopProducer{}
	}
	w := &kafka.Writer{
		Addr:     kafka.TCP(strings.Split(cfg.Brokers, ",")...),
		Topic:    cfg.Topic,
		Balancer: &kafka.LeastBytes{},
	}
	log.Info("Kafka 生产者初始化成功")
	return &writerProducer{writer: w}
}

// ProduceCaptionTask 发送一个图片描述任务，以图片 ID 作为消息 key。
func (p *writerProducer) ProduceCaptionTask(ctx context.Context, task tasks.CaptionTask) error {
	value, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatUint(uint64(task.ImageID), 10)),
		Value: value,
	})
}

func (p *writerProducer) Close() error {
	return p.writer.Close()
}

func (noopProducer) ProduceCaptionTask(context.Context, tasks.CaptionTask) error { return nil }

func (noopProducer) Close() error { return nil }

package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/research-orbits/backend-go/internal/logger"
	"go.uber.org/zap"
)

// Producer Kafka生产者，发送查询与摄取审计事件
type Producer struct {
	producer sarama.SyncProducer
	topic    string
}

// QueryEvent 一次问答请求的审计事件
type QueryEvent struct {
	Question     string    `json:"question"`
	Answer       string    `json:"answer"`
	SourceTitles []string  `json:"source_titles"`
	DurationMs   int64     `json:"duration_ms"`
	Timestamp    time.Time `json:"timestamp"`
}

// IngestEvent 语料摄取完成事件
type IngestEvent struct {
	Documents int       `json:"documents"`
	Chunks    int       `json:"chunks"`
	Timestamp time.Time `json:"timestamp"`
}

var globalProducer *Producer

// InitProducer 初始化Kafka生产者
func InitProducer(brokers []string, topic string) error {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Timeout = 10 * time.Second

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return fmt.Errorf("创建Kafka生产者失败: %w", err)
	}

	globalProducer = &Producer{
		producer: producer,
		topic:    topic,
	}

	logger.Info("Kafka生产者初始化成功", zap.Strings("brokers", brokers), zap.String("topic", topic))
	return nil
}

// GetProducer 获取全局生产者实例
func GetProducer() *Producer {
	return globalProducer
}

func (p *Producer) send(key string, payload interface{}) error {
	if p == nil || p.producer == nil {
		return fmt.Errorf("Kafka生产者未初始化")
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("序列化消息失败: %w", err)
	}

	kafkaMsg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(data),
	}

	partition, offset, err := p.producer.SendMessage(kafkaMsg)
	if err != nil {
		logger.Error("发送Kafka消息失败", zap.Error(err))
		return fmt.Errorf("发送消息失败: %w", err)
	}

	logger.Debug("Kafka消息发送成功",
		zap.Int32("partition", partition),
		zap.Int64("offset", offset),
		zap.String("key", key))
	return nil
}

// Close 关闭生产者
func (p *Producer) Close() error {
	if p != nil && p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

// SendQueryEvent 发送问答审计事件（便捷方法）。
// Kafka未配置时静默跳过，不影响主流程。
func SendQueryEvent(question, answer string, sourceTitles []string, duration time.Duration) error {
	producer := GetProducer()
	if producer == nil {
		return nil
	}
	return producer.send("query", &QueryEvent{
		Question:     question,
		Answer:       answer,
		SourceTitles: sourceTitles,
		DurationMs:   duration.Milliseconds(),
		Timestamp:    time.Now(),
	})
}

// SendIngestEvent 发送摄取完成事件（便捷方法）
func SendIngestEvent(documents, chunks int) error {
	producer := GetProducer()
	if producer == nil {
		return nil
	}
	return producer.send("ingest", &IngestEvent{
		Documents: documents,
		Chunks:    chunks,
		Timestamp: time.Now(),
	})
}

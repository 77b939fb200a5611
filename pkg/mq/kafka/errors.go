package kafka

import "errors"

var (
	// ErrInvalidConfig 配置无效
	ErrInvalidConfig = errors.New("kafka: invalid config")

	// ErrNoBrokers 无 broker 地址
	ErrNoBrokers = errors.New("kafka: no brokers configured")

	// ErrEmptyTopic 空主题
	ErrEmptyTopic = errors.New("kafka: empty topic")

	// ErrClientClosed 客户端已关闭
	ErrClientClosed = errors.New("kafka: client is closed")

	// ErrProducerClosed 生产者已关闭
	ErrProducerClosed = errors.New("kafka: producer is closed")

	// ErrConsumerAlreadyRunning 消费者已在运行
	ErrConsumerAlreadyRunning = errors.New("kafka: consumer is already running")

	// ErrConsumerNotRunning 消费者未运行
	ErrConsumerNotRunning = errors.New("kafka: consumer is not running")
)

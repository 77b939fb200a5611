package kafka

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/megatechtrackers/megatechtrackers-sub006/pkg/util/conc"
	"github.com/segmentio/kafka-go"
)

// ConsumerGroup 消费者组
// 单协程拉取、工作池并发处理；offset 按分区以低水位顺序提交：
// 某条消息处理失败会钉住所在分区的提交水位，其后的成功不会越过它提交，
// 重平衡或重启后从失败处重新消费，实现 at-least-once
type ConsumerGroup struct {
	client  *Client
	id      string
	topics  []string
	handler Handler
	reader  *kafka.Reader

	state atomic.Int32

	stopCh   chan struct{}
	fetchWg  sync.WaitGroup
	inflight sync.WaitGroup

	concurrency int
	pool        *conc.Pool[struct{}]

	tracker *offsetTracker

	commitMu  sync.Mutex
	committed map[topicPartition]int64

	stats ConsumerStats
}

// ConsumerOption 消费者选项
type ConsumerOption func(*ConsumerGroup)

// WithConcurrency 设置并发处理数
func WithConcurrency(n int) ConsumerOption {
	return func(cg *ConsumerGroup) {
		if n > 0 {
			cg.concurrency = n
		}
	}
}

// topicPartition 分区标识
type topicPartition struct {
	topic     string
	partition int
}

// pendingMessage 已拉取未提交的消息
type pendingMessage struct {
	msg  kafka.Message
	done bool
	ok   bool
}

// offsetTracker 按拉取顺序跟踪各分区的处理进度
// 失败的队头永不出队，挡住其后所有消息的提交
type offsetTracker struct {
	mu      sync.Mutex
	pending map[topicPartition][]*pendingMessage
}

func newOffsetTracker() *offsetTracker {
	return &offsetTracker{
		pending: make(map[topicPartition][]*pendingMessage),
	}
}

// track 登记拉取到的消息，必须按拉取顺序调用
func (t *offsetTracker) track(msg kafka.Message) {
	key := topicPartition{topic: msg.Topic, partition: msg.Partition}

	t.mu.Lock()
	t.pending[key] = append(t.pending[key], &pendingMessage{msg: msg})
	t.mu.Unlock()
}

// complete 标记消息处理结束，返回该分区当前可提交的最高消息
// 只有从队头起连续成功的前缀会出队；队头失败或尚未完成时返回 false
func (t *offsetTracker) complete(msg kafka.Message, ok bool) (kafka.Message, bool) {
	key := topicPartition{topic: msg.Topic, partition: msg.Partition}

	t.mu.Lock()
	defer t.mu.Unlock()

	queue := t.pending[key]
	for _, p := range queue {
		if p.msg.Offset == msg.Offset {
			p.done = true
			p.ok = ok
			break
		}
	}

	var (
		last  kafka.Message
		found bool
		idx   int
	)
	for _, p := range queue {
		if !p.done || !p.ok {
			break
		}
		last = p.msg
		found = true
		idx++
	}
	if idx > 0 {
		t.pending[key] = queue[idx:]
	}

	return last, found
}

// newConsumerGroup 创建消费者组
func newConsumerGroup(c *Client, topics []string, handler Handler, opts ...ConsumerOption) *ConsumerGroup {
	cfg := c.config.Consumer

	cg := &ConsumerGroup{
		client:      c,
		id:          uuid.New().String(),
		topics:      topics,
		handler:     handler,
		stopCh:      make(chan struct{}),
		concurrency: cfg.Concurrency,
		tracker:     newOffsetTracker(),
		committed:   make(map[topicPartition]int64),
	}

	for _, opt := range opts {
		opt(cg)
	}

	if cg.concurrency < 1 {
		cg.concurrency = 1
	}

	readerCfg := kafka.ReaderConfig{
		Brokers:           c.config.Brokers,
		GroupID:           cfg.GroupID,
		GroupTopics:       topics,
		MinBytes:          cfg.MinBytes,
		MaxBytes:          cfg.MaxBytes,
		MaxWait:           cfg.MaxWait,
		StartOffset:       cfg.StartOffset,
		HeartbeatInterval: cfg.HeartbeatInterval,
		SessionTimeout:    cfg.SessionTimeout,
		RebalanceTimeout:  cfg.RebalanceTimeout,
	}

	// CommitInterval > 0 时 CommitMessages 在 reader 内部异步批量刷盘
	if cfg.CommitInterval > 0 {
		readerCfg.CommitInterval = cfg.CommitInterval
	}

	cg.reader = kafka.NewReader(readerCfg)

	return cg
}

// ID 返回消费者组实例 ID
func (cg *ConsumerGroup) ID() string {
	return cg.id
}

// Start 启动消费
func (cg *ConsumerGroup) Start(ctx context.Context) error {
	if !cg.state.CompareAndSwap(int32(ConsumerStateIdle), int32(ConsumerStateRunning)) {
		return ErrConsumerAlreadyRunning
	}

	cg.pool = conc.NewPool[struct{}](cg.concurrency)

	cg.client.logger.Info("consumer group starting",
		"id", cg.id,
		"topics", cg.topics,
		"concurrency", cg.concurrency,
	)

	cg.fetchWg.Add(1)
	conc.Go(func() (struct{}, error) {
		defer cg.fetchWg.Done()
		cg.fetchLoop(ctx)
		return struct{}{}, nil
	})

	return nil
}

// fetchLoop 单协程拉取并登记，再交给工作池处理
// 池满时 Submit 阻塞，拉取速度被处理能力限制，形成背压
func (cg *ConsumerGroup) fetchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-cg.stopCh:
			return
		default:
		}

		// 带超时拉取，以便定期检查 stopCh
		fetchCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		kafkaMsg, err := cg.reader.FetchMessage(fetchCtx)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			select {
			case <-cg.stopCh:
				return
			default:
			}
			if errors.Is(err, context.DeadlineExceeded) {
				continue
			}

			cg.client.logger.Error("failed to fetch message",
				"id", cg.id,
				"error", err,
			)
			continue
		}

		atomic.AddInt64(&cg.stats.MessagesConsumed, 1)
		cg.tracker.track(kafkaMsg)

		msg := kafkaMsg
		cg.inflight.Add(1)
		cg.pool.Submit(func() (struct{}, error) {
			defer cg.inflight.Done()
			cg.handleMessage(ctx, msg)
			return struct{}{}, nil
		})
	}
}

// handleMessage 调用业务处理器并推进分区提交水位
func (cg *ConsumerGroup) handleMessage(ctx context.Context, kafkaMsg kafka.Message) {
	msg := &Message{
		Topic:     kafkaMsg.Topic,
		Key:       kafkaMsg.Key,
		Value:     kafkaMsg.Value,
		Partition: kafkaMsg.Partition,
		Offset:    kafkaMsg.Offset,
		Timestamp: kafkaMsg.Time,
		Headers:   make(map[string]string),
	}
	for _, h := range kafkaMsg.Headers {
		msg.Headers[h.Key] = string(h.Value)
	}

	err := cg.handler(ctx, msg)
	if err != nil {
		atomic.AddInt64(&cg.stats.MessagesFailed, 1)
		cg.client.logger.Error("failed to handle message",
			"id", cg.id,
			"topic", msg.Topic,
			"partition", msg.Partition,
			"offset", msg.Offset,
			"error", err,
		)
		// 水位被钉在此消息之前，重平衡后从这里重新消费
	} else {
		atomic.AddInt64(&cg.stats.MessagesSucceeded, 1)
		cg.stats.LastMessageTime = time.Now()
	}

	commitMsg, ready := cg.tracker.complete(kafkaMsg, err == nil)
	if !ready {
		return
	}
	cg.commitUpTo(ctx, commitMsg)
}

// commitUpTo 提交到指定消息，忽略落后于已提交水位的提交
func (cg *ConsumerGroup) commitUpTo(ctx context.Context, msg kafka.Message) {
	key := topicPartition{topic: msg.Topic, partition: msg.Partition}

	cg.commitMu.Lock()
	defer cg.commitMu.Unlock()

	if last, ok := cg.committed[key]; ok && msg.Offset <= last {
		return
	}

	if err := cg.reader.CommitMessages(ctx, msg); err != nil {
		cg.client.logger.Error("failed to commit message",
			"id", cg.id,
			"topic", msg.Topic,
			"offset", msg.Offset,
			"error", err,
		)
		return
	}

	cg.committed[key] = msg.Offset
}

// Stop 停止消费
func (cg *ConsumerGroup) Stop() error {
	if !cg.state.CompareAndSwap(int32(ConsumerStateRunning), int32(ConsumerStateStopping)) {
		state := ConsumerState(cg.state.Load())
		if state == ConsumerStateStopped || state == ConsumerStateStopping {
			return nil
		}
		return ErrConsumerNotRunning
	}

	close(cg.stopCh)
	cg.fetchWg.Wait()
	cg.inflight.Wait()
	cg.pool.Release()

	cg.state.Store(int32(ConsumerStateStopped))

	cg.client.logger.Info("consumer group stopped", "id", cg.id)

	return nil
}

// Close 关闭消费者
func (cg *ConsumerGroup) Close() error {
	_ = cg.Stop()
	return cg.reader.Close()
}

// State 返回消费者状态
func (cg *ConsumerGroup) State() ConsumerState {
	return ConsumerState(cg.state.Load())
}

// Stats 返回统计信息
func (cg *ConsumerGroup) Stats() ConsumerStats {
	return ConsumerStats{
		MessagesConsumed:  atomic.LoadInt64(&cg.stats.MessagesConsumed),
		MessagesSucceeded: atomic.LoadInt64(&cg.stats.MessagesSucceeded),
		MessagesFailed:    atomic.LoadInt64(&cg.stats.MessagesFailed),
		LastMessageTime:   cg.stats.LastMessageTime,
	}
}

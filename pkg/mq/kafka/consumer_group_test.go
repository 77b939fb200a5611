package kafka

import (
	"testing"

	"github.com/segmentio/kafka-go"
)

func trackedMessage(topic string, partition int, offset int64) kafka.Message {
	return kafka.Message{Topic: topic, Partition: partition, Offset: offset}
}

// TestOffsetTrackerInOrder 测试顺序完成时逐条推进水位
func TestOffsetTrackerInOrder(t *testing.T) {
	tr := newOffsetTracker()
	for i := int64(0); i < 3; i++ {
		tr.track(trackedMessage("events", 0, i))
	}

	for i := int64(0); i < 3; i++ {
		msg, ready := tr.complete(trackedMessage("events", 0, i), true)
		if !ready {
			t.Fatalf("complete(offset=%d) ready = false, want true", i)
		}
		if msg.Offset != i {
			t.Errorf("complete(offset=%d) commit offset = %d, want %d", i, msg.Offset, i)
		}
	}
}

// TestOffsetTrackerOutOfOrder 测试乱序完成时只提交连续成功前缀
func TestOffsetTrackerOutOfOrder(t *testing.T) {
	tr := newOffsetTracker()
	for i := int64(0); i < 3; i++ {
		tr.track(trackedMessage("events", 0, i))
	}

	// offset 2 先完成，队头 0 未完成，不可提交
	if _, ready := tr.complete(trackedMessage("events", 0, 2), true); ready {
		t.Error("complete(offset=2) ready = true, want false while offset 0 pending")
	}
	if _, ready := tr.complete(trackedMessage("events", 0, 1), true); ready {
		t.Error("complete(offset=1) ready = true, want false while offset 0 pending")
	}

	// 队头完成后整个前缀一次性放行
	msg, ready := tr.complete(trackedMessage("events", 0, 0), true)
	if !ready {
		t.Fatal("complete(offset=0) ready = false, want true")
	}
	if msg.Offset != 2 {
		t.Errorf("commit offset = %d, want 2", msg.Offset)
	}
}

// TestOffsetTrackerFailedHeadPinsWatermark 测试失败的队头挡住其后的提交
func TestOffsetTrackerFailedHeadPinsWatermark(t *testing.T) {
	tr := newOffsetTracker()
	for i := int64(0); i < 3; i++ {
		tr.track(trackedMessage("events", 0, i))
	}

	if _, ready := tr.complete(trackedMessage("events", 0, 0), false); ready {
		t.Error("complete(offset=0, failed) ready = true, want false")
	}

	// 后续成功不得越过失败的队头
	if _, ready := tr.complete(trackedMessage("events", 0, 1), true); ready {
		t.Error("complete(offset=1) ready = true, want false behind failed offset 0")
	}
	if _, ready := tr.complete(trackedMessage("events", 0, 2), true); ready {
		t.Error("complete(offset=2) ready = true, want false behind failed offset 0")
	}
}

// TestOffsetTrackerPartitionsIndependent 测试分区水位互不影响
func TestOffsetTrackerPartitionsIndependent(t *testing.T) {
	tr := newOffsetTracker()
	tr.track(trackedMessage("events", 0, 10))
	tr.track(trackedMessage("events", 1, 20))

	if _, ready := tr.complete(trackedMessage("events", 0, 10), false); ready {
		t.Error("partition 0 failed head ready = true, want false")
	}

	msg, ready := tr.complete(trackedMessage("events", 1, 20), true)
	if !ready {
		t.Fatal("partition 1 ready = false, want true")
	}
	if msg.Partition != 1 || msg.Offset != 20 {
		t.Errorf("commit = partition %d offset %d, want partition 1 offset 20", msg.Partition, msg.Offset)
	}
}

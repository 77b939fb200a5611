package dlq

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/megatechtrackers/megatechtrackers-sub006/app/dispatch/internal/metrics"
	"github.com/megatechtrackers/megatechtrackers-sub006/app/dispatch/internal/model"
	"github.com/megatechtrackers/megatechtrackers-sub006/pkg/logger"
	"github.com/megatechtrackers/megatechtrackers-sub006/pkg/notify"
)

// fakeStore 内存死信存储
type fakeStore struct {
	entries map[int64]*model.DeadLetterEntry
	depth   int64

	deleted []int64
	updated map[int64]updateCall
}

type updateCall struct {
	attempts int32
	next     time.Time
	reason   string
}

func newFakeStore(entries ...*model.DeadLetterEntry) *fakeStore {
	s := &fakeStore{
		entries: make(map[int64]*model.DeadLetterEntry),
		updated: make(map[int64]updateCall),
	}
	for _, e := range entries {
		s.entries[e.ID] = e
	}
	s.depth = int64(len(entries))
	return s
}

func (s *fakeStore) FetchDue(ctx context.Context, now time.Time, limit int) ([]*model.DeadLetterEntry, error) {
	var due []*model.DeadLetterEntry
	for _, e := range s.entries {
		if !e.NextRetryAt.After(now) && len(due) < limit {
			due = append(due, e)
		}
	}
	return due, nil
}

func (s *fakeStore) Delete(ctx context.Context, id int64) error {
	delete(s.entries, id)
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *fakeStore) UpdateRetry(ctx context.Context, id int64, attemptCount int32, nextRetryAt time.Time, reason string) error {
	s.updated[id] = updateCall{attempts: attemptCount, next: nextRetryAt, reason: reason}
	return nil
}

func (s *fakeStore) Count(ctx context.Context) (int64, error) {
	return s.depth, nil
}

// fakeReplayer 可编程重放器
type fakeReplayer struct {
	err   error
	calls int
}

func (f *fakeReplayer) Replay(ctx context.Context, channelName string, event *model.AlarmEvent) error {
	f.calls++
	return f.err
}

// fakeNotifier 记录告警
type fakeNotifier struct {
	alerts []*notify.Alert
}

func (f *fakeNotifier) Send(ctx context.Context, alert *notify.Alert) error {
	f.alerts = append(f.alerts, alert)
	return nil
}

func (f *fakeNotifier) Name() string { return "fake" }

func testEntry(id int64, attempts int32) *model.DeadLetterEntry {
	raw, _ := json.Marshal(&model.AlarmEvent{
		IMEI:        "860000000000001",
		EventType:   "overspeed",
		PhoneNumber: "+254700000001",
		OccurredAt:  time.Now(),
	})
	return &model.DeadLetterEntry{
		ID:           id,
		Event:        raw,
		Channel:      "sms",
		AttemptCount: attempts,
		NextRetryAt:  time.Now().Add(-time.Minute),
	}
}

func newTestReprocessor(t *testing.T, cfg *Config, store Store, replayer Replayer, notifier notify.Notifier) *Reprocessor {
	t.Helper()

	m, err := metrics.New(nil)
	if err != nil {
		t.Fatalf("metrics.New() error = %v", err)
	}

	r, err := NewReprocessor(cfg, store, replayer, notifier, logger.NewNoop(), m)
	if err != nil {
		t.Fatalf("NewReprocessor() error = %v", err)
	}
	return r
}

// TestReplaySuccessDeletesEntry 测试重放成功后删除条目
func TestReplaySuccessDeletesEntry(t *testing.T) {
	store := newFakeStore(testEntry(1, 0))
	replayer := &fakeReplayer{}
	r := newTestReprocessor(t, nil, store, replayer, nil)

	r.RunOnce(context.Background())

	if replayer.calls != 1 {
		t.Errorf("replay calls = %d, want 1", replayer.calls)
	}
	if len(store.deleted) != 1 || store.deleted[0] != 1 {
		t.Errorf("deleted = %v, want [1]", store.deleted)
	}
}

// TestReplayFailureBackoff 测试失败后按 min(base*2^n, max) 推迟
func TestReplayFailureBackoff(t *testing.T) {
	store := newFakeStore(testEntry(1, 2))
	replayer := &fakeReplayer{err: errors.New("gateway down")}
	cfg := DefaultConfig()
	cfg.BaseBackoff = time.Second
	cfg.MaxBackoff = 300 * time.Second
	r := newTestReprocessor(t, cfg, store, replayer, nil)

	before := time.Now()
	r.RunOnce(context.Background())

	call, ok := store.updated[1]
	if !ok {
		t.Fatal("UpdateRetry was not called")
	}
	if call.attempts != 3 {
		t.Errorf("attempts = %d, want 3", call.attempts)
	}

	// attemptCount=3 → 1000ms * 2^3 = 8000ms
	wantDelay := 8 * time.Second
	gotDelay := call.next.Sub(before)
	if gotDelay < wantDelay || gotDelay > wantDelay+time.Second {
		t.Errorf("retry delay = %v, want ~%v", gotDelay, wantDelay)
	}
	if len(store.deleted) != 0 {
		t.Errorf("deleted = %v, want none", store.deleted)
	}
}

// TestBackoffCappedAtMax 测试高次失败退避封顶
func TestBackoffCappedAtMax(t *testing.T) {
	store := newFakeStore(testEntry(1, 29))
	replayer := &fakeReplayer{err: errors.New("gateway down")}
	cfg := DefaultConfig()
	cfg.BaseBackoff = time.Second
	cfg.MaxBackoff = 300 * time.Second
	r := newTestReprocessor(t, cfg, store, replayer, nil)

	before := time.Now()
	r.RunOnce(context.Background())

	call := store.updated[1]
	gotDelay := call.next.Sub(before)
	if gotDelay < 300*time.Second || gotDelay > 301*time.Second {
		t.Errorf("retry delay = %v, want capped at 300s", gotDelay)
	}
}

// TestAlertOverThreshold 测试深度超阈值时告警且重放不受影响
func TestAlertOverThreshold(t *testing.T) {
	store := newFakeStore(testEntry(1, 0))
	store.depth = 500
	replayer := &fakeReplayer{}
	notifier := &fakeNotifier{}
	cfg := DefaultConfig()
	cfg.AlertThreshold = 100
	r := newTestReprocessor(t, cfg, store, replayer, notifier)

	r.RunOnce(context.Background())

	if len(notifier.alerts) != 1 {
		t.Fatalf("alerts = %d, want 1", len(notifier.alerts))
	}
	if notifier.alerts[0].Level != notify.AlertLevelWarning {
		t.Errorf("alert level = %v, want warning", notifier.alerts[0].Level)
	}
	// 告警不阻断重放
	if replayer.calls != 1 {
		t.Errorf("replay calls = %d, want 1", replayer.calls)
	}
}

// TestNoAlertBelowThreshold 测试深度未超阈值时不告警
func TestNoAlertBelowThreshold(t *testing.T) {
	store := newFakeStore(testEntry(1, 0))
	store.depth = 10
	notifier := &fakeNotifier{}
	cfg := DefaultConfig()
	cfg.AlertThreshold = 100
	r := newTestReprocessor(t, cfg, store, &fakeReplayer{}, notifier)

	r.RunOnce(context.Background())

	if len(notifier.alerts) != 0 {
		t.Errorf("alerts = %d, want 0", len(notifier.alerts))
	}
}

package registry

import (
	"context"
	"testing"
	"time"

	"github.com/megatechtrackers/megatechtrackers-sub006/app/dispatch/internal/model"
	"github.com/megatechtrackers/megatechtrackers-sub006/pkg/logger"
)

// fakeWorkerStore 内存注册表存储
type fakeWorkerStore struct {
	records  map[string]*model.WorkerRecord
	removed  []string
	statuses map[string]model.WorkerStatus
}

func newFakeWorkerStore(records ...*model.WorkerRecord) *fakeWorkerStore {
	s := &fakeWorkerStore{
		records:  make(map[string]*model.WorkerRecord),
		statuses: make(map[string]model.WorkerStatus),
	}
	for _, r := range records {
		s.records[r.WorkerID] = r
	}
	return s
}

func (s *fakeWorkerStore) UpsertHeartbeat(ctx context.Context, record *model.WorkerRecord) error {
	s.records[record.WorkerID] = record
	return nil
}

func (s *fakeWorkerStore) List(ctx context.Context) ([]*model.WorkerRecord, error) {
	var out []*model.WorkerRecord
	for _, r := range s.records {
		out = append(out, r)
	}
	return out, nil
}

func (s *fakeWorkerStore) UpdateStatus(ctx context.Context, workerID string, status model.WorkerStatus) error {
	s.statuses[workerID] = status
	return nil
}

func (s *fakeWorkerStore) Remove(ctx context.Context, workerID string) error {
	delete(s.records, workerID)
	s.removed = append(s.removed, workerID)
	return nil
}

// TestHeartbeatUpsert 测试心跳写入本进程记录
func TestHeartbeatUpsert(t *testing.T) {
	store := newFakeWorkerStore()
	r, err := New(nil, store, logger.NewNoop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := r.Heartbeat(context.Background()); err != nil {
		t.Fatalf("Heartbeat() error = %v", err)
	}

	record, ok := store.records[r.WorkerID()]
	if !ok {
		t.Fatal("heartbeat record not written")
	}
	if record.Status != model.WorkerStatusActive {
		t.Errorf("status = %v, want active", record.Status)
	}
	if time.Since(record.LastHeartbeatAt) > time.Second {
		t.Errorf("last_heartbeat_at too old: %v", record.LastHeartbeatAt)
	}
}

// TestSweepClassification 测试巡检分级：stale 改状态，dead 清除
func TestSweepClassification(t *testing.T) {
	now := time.Now()
	store := newFakeWorkerStore(
		&model.WorkerRecord{WorkerID: "w-active", Status: model.WorkerStatusActive, LastHeartbeatAt: now.Add(-10 * time.Second)},
		&model.WorkerRecord{WorkerID: "w-stale", Status: model.WorkerStatusActive, LastHeartbeatAt: now.Add(-3 * time.Minute)},
		&model.WorkerRecord{WorkerID: "w-dead", Status: model.WorkerStatusStale, LastHeartbeatAt: now.Add(-20 * time.Minute)},
	)

	r, err := New(nil, store, logger.NewNoop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	r.Sweep(context.Background())

	if got := store.statuses["w-stale"]; got != model.WorkerStatusStale {
		t.Errorf("w-stale status = %v, want stale", got)
	}
	if _, ok := store.statuses["w-active"]; ok {
		t.Error("w-active status should not change")
	}
	if len(store.removed) != 1 || store.removed[0] != "w-dead" {
		t.Errorf("removed = %v, want [w-dead]", store.removed)
	}
}

// TestConfigValidate 测试阈值关系校验
func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config Validate() error = %v", err)
	}

	bad := DefaultConfig()
	bad.StaleThreshold = bad.HeartbeatInterval
	if err := bad.Validate(); err == nil {
		t.Error("Validate() error = nil, want stale_threshold error")
	}

	bad2 := DefaultConfig()
	bad2.DeadThreshold = bad2.StaleThreshold
	if err := bad2.Validate(); err == nil {
		t.Error("Validate() error = nil, want dead_threshold error")
	}
}

package usage

import (
	"testing"
	"time"

	"github.com/like-mike/tenant-ai-gateway/shared/models"
)

// queueOnlyTracker builds a tracker with no running workers so queue
// behavior can be observed directly.
func queueOnlyTracker(queueSize int) *Tracker {
	return NewTracker(nil, &WorkerConfig{
		WorkerCount: 0,
		QueueSize:   queueSize,
		MaxRetries:  1,
		RetryDelay:  time.Millisecond,
	})
}

func TestRecordFillsDefaults(t *testing.T) {
	tracker := queueOnlyTracker(4)
	defer tracker.Stop()

	tracker.Record(models.UsageEvent{TenantID: "t1", UserID: "u1", Outcome: models.OutcomeSuccess})

	select {
	case j := <-tracker.jobQueue:
		if j.event.ID == "" {
			t.Error("event ID should be generated")
		}
		if j.event.CreatedAt.IsZero() {
			t.Error("CreatedAt should be set")
		}
	default:
		t.Fatal("event was not queued")
	}
}

func TestRecordKeepsCallerFields(t *testing.T) {
	tracker := queueOnlyTracker(4)
	defer tracker.Stop()

	stamp := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tracker.Record(models.UsageEvent{ID: "fixed-id", TenantID: "t1", CreatedAt: stamp})

	j := <-tracker.jobQueue
	if j.event.ID != "fixed-id" {
		t.Errorf("ID = %s, caller value should survive", j.event.ID)
	}
	if !j.event.CreatedAt.Equal(stamp) {
		t.Errorf("CreatedAt = %s, caller value should survive", j.event.CreatedAt)
	}
}

func TestFullQueueDropsInsteadOfBlocking(t *testing.T) {
	tracker := queueOnlyTracker(1)
	defer tracker.Stop()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			tracker.Record(models.UsageEvent{TenantID: "t1"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Record blocked on a full queue")
	}

	if tracker.QueueSize() != 1 {
		t.Errorf("queue size = %d, want 1", tracker.QueueSize())
	}
}

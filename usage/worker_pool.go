package usage

import (
	"context"
	"database/sql"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/like-mike/tenant-ai-gateway/metrics"
	"github.com/like-mike/tenant-ai-gateway/shared/db"
	"github.com/like-mike/tenant-ai-gateway/shared/models"
)

// WorkerConfig configures the ledger writer pool.
type WorkerConfig struct {
	WorkerCount int           `json:"worker_count"`
	QueueSize   int           `json:"queue_size"`
	MaxRetries  int           `json:"max_retries"`
	RetryDelay  time.Duration `json:"retry_delay"`
}

// DefaultWorkerConfig returns a sensible default configuration.
func DefaultWorkerConfig() *WorkerConfig {
	return &WorkerConfig{
		WorkerCount: 4,
		QueueSize:   1000,
		MaxRetries:  3,
		RetryDelay:  2 * time.Second,
	}
}

type job struct {
	event      models.UsageEvent
	retryCount int
}

// Tracker writes usage events to the ledger off the request path. Events
// are queued to a bounded channel and inserted by background workers;
// inserts that keep failing are dropped and counted, never blocking a
// completion.
type Tracker struct {
	db       *sql.DB
	jobQueue chan *job
	config   *WorkerConfig
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewTracker creates and starts the ledger writer.
func NewTracker(database *sql.DB, config *WorkerConfig) *Tracker {
	if config == nil {
		config = DefaultWorkerConfig()
	}

	ctx, cancel := context.WithCancel(context.Background())
	t := &Tracker{
		db:       database,
		jobQueue: make(chan *job, config.QueueSize),
		config:   config,
		ctx:      ctx,
		cancel:   cancel,
	}

	log.Printf("Starting usage tracker with %d workers", config.WorkerCount)
	for i := 0; i < config.WorkerCount; i++ {
		t.wg.Add(1)
		go t.worker(i)
	}
	return t
}

// Record queues one ledger event. Satisfies gateway.UsageRecorder.
func (t *Tracker) Record(ev models.UsageEvent) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}

	t.submit(&job{event: ev})
}

func (t *Tracker) submit(j *job) {
	select {
	case t.jobQueue <- j:
	default:
		log.Printf("Usage tracker queue is full, dropping event for tenant %s", j.event.TenantID)
		metrics.LedgerWriteFailuresTotal.Inc()
	}
}

func (t *Tracker) worker(workerID int) {
	defer t.wg.Done()

	for {
		select {
		case <-t.ctx.Done():
			// Drain whatever is already queued before exiting.
			for {
				select {
				case j := <-t.jobQueue:
					t.process(workerID, j)
				default:
					return
				}
			}
		case j, ok := <-t.jobQueue:
			if !ok {
				return
			}
			t.process(workerID, j)
		}
	}
}

func (t *Tracker) process(workerID int, j *job) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.InsertUsageEvent(ctx, t.db, j.event); err != nil {
		log.Printf("Worker %d: failed to insert usage event: %v", workerID, err)

		if j.retryCount < t.config.MaxRetries {
			j.retryCount++
			go func() {
				time.Sleep(t.config.RetryDelay * time.Duration(j.retryCount))
				t.submit(j)
			}()
			return
		}

		log.Printf("Worker %d: max retries exceeded, dropping usage event for tenant %s",
			workerID, j.event.TenantID)
		metrics.LedgerWriteFailuresTotal.Inc()
	}
}

// QueueSize returns the number of pending events, for stats endpoints.
func (t *Tracker) QueueSize() int {
	return len(t.jobQueue)
}

// Stop shuts the tracker down after draining queued events.
func (t *Tracker) Stop() {
	log.Println("Stopping usage tracker...")
	t.cancel()
	t.wg.Wait()
	log.Println("Usage tracker stopped")
}

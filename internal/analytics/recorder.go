package analytics

import (
	"SnapLink-Backend/internal/domain"
	"SnapLink-Backend/internal/repository"
	"SnapLink-Backend/pkg/useragent"
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ClickData carries everything captured from a redirect request.
type ClickData struct {
	URLID     int64
	IP        string
	UserAgent string
	Referer   string
	ClickedAt time.Time

	// Recording progress across retry attempts. The event insert and the
	// counter increment are independent store calls; a retry must not redo
	// the half that already landed.
	saved       bool
	incremented bool
}

// RecorderConfig holds configuration for the click recorder.
type RecorderConfig struct {
	WorkerCount     int           // Number of worker goroutines
	BufferSize      int           // Size of the job queue buffer
	RetryAttempts   int           // Number of retry attempts for failed jobs
	RetryDelay      time.Duration // Base delay between retries
	ShutdownTimeout time.Duration // Time to wait for graceful shutdown
}

// DefaultRecorderConfig returns sensible defaults.
func DefaultRecorderConfig() RecorderConfig {
	return RecorderConfig{
		WorkerCount:     3,
		BufferSize:      1000,
		RetryAttempts:   3,
		RetryDelay:      time.Second,
		ShutdownTimeout: 30 * time.Second,
	}
}

// Recorder persists click events asynchronously. Submission never blocks the
// redirect path: a full queue drops the event, a store failure is retried in
// the background and eventually logged and forgotten. No recording outcome is
// ever surfaced to the visitor.
type Recorder struct {
	config   RecorderConfig
	storage  repository.Storage
	log      *zap.Logger
	jobQueue chan *ClickData
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
	started  bool
	mu       sync.RWMutex
}

// NewRecorder creates a new click recorder.
func NewRecorder(storage repository.Storage, log *zap.Logger, config RecorderConfig) *Recorder {
	ctx, cancel := context.WithCancel(context.Background())

	return &Recorder{
		config:   config,
		storage:  storage,
		log:      log,
		jobQueue: make(chan *ClickData, config.BufferSize),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start launches the worker goroutines.
func (r *Recorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return fmt.Errorf("recorder already started")
	}

	r.log.Info("starting click recorder",
		zap.Int("workers", r.config.WorkerCount),
		zap.Int("buffer_size", r.config.BufferSize))

	for i := 0; i < r.config.WorkerCount; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}

	r.started = true
	return nil
}

// Stop gracefully shuts down the recorder, draining what it can within the
// shutdown timeout.
func (r *Recorder) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.started {
		return fmt.Errorf("recorder not started")
	}

	r.log.Info("stopping click recorder")

	r.cancel()
	close(r.jobQueue)

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.log.Info("click recorder stopped")
	case <-time.After(r.config.ShutdownTimeout):
		r.log.Warn("click recorder shutdown timeout reached")
		return fmt.Errorf("shutdown timeout reached")
	}

	r.started = false
	return nil
}

// Submit enqueues a click for background recording. It never blocks: if the
// queue is full the event is dropped and the drop is logged.
func (r *Recorder) Submit(click *ClickData) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.started {
		return fmt.Errorf("recorder not started")
	}

	select {
	case r.jobQueue <- click:
		return nil
	case <-r.ctx.Done():
		return fmt.Errorf("recorder is shutting down")
	default:
		r.log.Error("click queue is full, dropping event",
			zap.Int64("url_id", click.URLID),
			zap.Int("queue_size", len(r.jobQueue)))
		return fmt.Errorf("click queue is full")
	}
}

func (r *Recorder) worker(workerID int) {
	defer r.wg.Done()

	log := r.log.With(zap.Int("worker_id", workerID))
	log.Debug("click worker started")

	for click := range r.jobQueue {
		if click == nil {
			continue
		}
		r.recordWithRetry(log, click)
	}

	log.Debug("click worker stopped")
}

func (r *Recorder) recordWithRetry(log *zap.Logger, click *ClickData) {
	var lastErr error

	for attempt := 1; attempt <= r.config.RetryAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := r.record(ctx, click)
		cancel()

		if err == nil {
			return
		}

		lastErr = err
		log.Warn("click recording failed",
			zap.Int64("url_id", click.URLID),
			zap.Int("attempt", attempt),
			zap.Error(err))

		if attempt == r.config.RetryAttempts {
			break
		}

		delay := r.config.RetryDelay * time.Duration(1<<(attempt-1))
		select {
		case <-time.After(delay):
		case <-r.ctx.Done():
			// Shutdown during backoff; the event is lost.
			return
		}
	}

	log.Error("click recording abandoned",
		zap.Int64("url_id", click.URLID),
		zap.Int("attempts", r.config.RetryAttempts),
		zap.Error(lastErr))
}

// record performs the two independent store operations: the event insert and
// the atomic counter increment. No transaction spans them; a crash in between
// leaves the counter and the event log slightly out of step.
func (r *Recorder) record(ctx context.Context, click *ClickData) error {
	if !click.saved {
		info := useragent.Classify(click.UserAgent)

		event := &domain.Click{
			URLID:     click.URLID,
			IP:        click.IP,
			Country:   "Unknown",
			Device:    info.Device,
			Browser:   info.Browser,
			OS:        info.OS,
			ClickedAt: click.ClickedAt,
		}
		if click.UserAgent != "" {
			event.UserAgent = &click.UserAgent
		}
		if click.Referer != "" {
			event.Referer = &click.Referer
		}

		if err := r.storage.SaveClick(ctx, event); err != nil {
			return fmt.Errorf("failed to save click: %w", err)
		}
		click.saved = true
	}

	if !click.incremented {
		if err := r.storage.IncrementClicks(ctx, click.URLID, click.ClickedAt); err != nil {
			return fmt.Errorf("failed to increment clicks: %w", err)
		}
		click.incremented = true
	}

	return nil
}

// Stats returns recorder statistics for the health endpoint.
func (r *Recorder) Stats() map[string]interface{} {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return map[string]interface{}{
		"started":        r.started,
		"queue_length":   len(r.jobQueue),
		"queue_capacity": cap(r.jobQueue),
		"worker_count":   r.config.WorkerCount,
	}
}

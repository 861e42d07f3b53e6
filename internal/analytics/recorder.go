package analytics

import (
	"Synctra-Backend/internal/domain"
	"Synctra-Backend/internal/repository"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RecorderConfig holds configuration for the click recorder
type RecorderConfig struct {
	WorkerCount     int           // Number of worker goroutines
	BufferSize      int           // Size of the job queue buffer
	RetryAttempts   int           // Number of retry attempts for failed writes
	RetryDelay      time.Duration // Base delay between retries
	ShutdownTimeout time.Duration // Time to wait for graceful shutdown
	WriteTimeout    time.Duration // Timeout for a single storage write
}

// DefaultConfig returns sensible default configuration
func DefaultConfig() RecorderConfig {
	return RecorderConfig{
		WorkerCount:     3,
		BufferSize:      1000,
		RetryAttempts:   3,
		RetryDelay:      time.Second,
		ShutdownTimeout: 30 * time.Second,
		WriteTimeout:    30 * time.Second,
	}
}

// Recorder persists click events asynchronously. Recording is fire-and-forget
// relative to the redirect response: a failed or dropped write is logged and
// swallowed, never surfaced to the user-facing request.
type Recorder struct {
	config   RecorderConfig
	storage  repository.Storage
	log      *zap.Logger
	jobQueue chan *domain.ClickEvent
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
	started  bool
	mu       sync.RWMutex
}

// NewRecorder creates a new click recorder
func NewRecorder(storage repository.Storage, log *zap.Logger, config RecorderConfig) *Recorder {
	ctx, cancel := context.WithCancel(context.Background())

	return &Recorder{
		config:   config,
		storage:  storage,
		log:      log,
		jobQueue: make(chan *domain.ClickEvent, config.BufferSize),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start begins processing click events
func (r *Recorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return fmt.Errorf("recorder already started")
	}

	r.log.Info("starting click recorder",
		zap.Int("workers", r.config.WorkerCount),
		zap.Int("buffer_size", r.config.BufferSize),
		zap.Int("retry_attempts", r.config.RetryAttempts),
	)

	for i := 0; i < r.config.WorkerCount; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}

	r.started = true
	return nil
}

// Stop gracefully shuts down the recorder
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
		r.log.Info("click recorder stopped gracefully")
	case <-time.After(r.config.ShutdownTimeout):
		r.log.Warn("click recorder shutdown timeout reached")
		return fmt.Errorf("shutdown timeout reached")
	}

	r.started = false
	return nil
}

// Record enqueues a click event for asynchronous persistence. The event id is
// assigned here (if absent) so callers can reference the click before the
// write lands. Errors indicate attribution loss only; callers must proceed
// with the redirect regardless.
func (r *Recorder) Record(click *domain.ClickEvent) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if click.ID == uuid.Nil {
		click.ID = uuid.New()
	}
	if click.ClickedAt.IsZero() {
		click.ClickedAt = time.Now().UTC()
	}

	if !r.started {
		return fmt.Errorf("recorder not started")
	}

	select {
	case r.jobQueue <- click:
		r.log.Debug("click submitted for recording", zap.String("click_id", click.ID.String()))
		return nil
	case <-r.ctx.Done():
		return fmt.Errorf("recorder is shutting down")
	default:
		r.log.Error("click queue is full, dropping click event",
			zap.String("click_id", click.ID.String()),
			zap.Int("queue_size", len(r.jobQueue)),
		)
		return fmt.Errorf("click queue is full")
	}
}

// MarkConverted idempotently flips the converted flag on a click event.
// The second and later calls for the same click are no-ops.
func (r *Recorder) MarkConverted(ctx context.Context, clickID uuid.UUID, value *float64) error {
	flipped, err := r.storage.MarkClickConverted(ctx, clickID, value)
	if err != nil {
		return err
	}
	if !flipped {
		r.log.Debug("click already converted, no-op", zap.String("click_id", clickID.String()))
	}
	return nil
}

// worker persists click events with retry logic
func (r *Recorder) worker(workerID int) {
	defer r.wg.Done()

	log := r.log.With(zap.Int("worker_id", workerID))
	log.Info("click recorder worker started")

	for {
		select {
		case click := <-r.jobQueue:
			if click == nil {
				// Channel closed, worker should exit
				log.Info("click recorder worker stopped")
				return
			}

			r.saveWithRetry(log, click)

		case <-r.ctx.Done():
			log.Info("click recorder worker received shutdown signal")
			return
		}
	}
}

// saveWithRetry persists a single click with exponential backoff
func (r *Recorder) saveWithRetry(log *zap.Logger, click *domain.ClickEvent) {
	var lastErr error

	for attempt := 1; attempt <= r.config.RetryAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(r.ctx, r.config.WriteTimeout)
		err := r.storage.SaveClick(ctx, click)
		cancel()

		if err == nil {
			if attempt > 1 {
				log.Info("click write succeeded after retry",
					zap.String("click_id", click.ID.String()),
					zap.Int("attempt", attempt),
				)
			}
			return
		}

		lastErr = err
		log.Warn("click write failed",
			zap.String("click_id", click.ID.String()),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", r.config.RetryAttempts),
			zap.Error(err),
		)

		if attempt == r.config.RetryAttempts {
			break
		}

		delay := r.config.RetryDelay * time.Duration(1<<(attempt-1))

		select {
		case <-time.After(delay):
		case <-r.ctx.Done():
			log.Info("worker shutdown during retry delay")
			return
		}
	}

	// Потеря атрибуции допустима; ломать навигацию — нет
	log.Error("click write failed after all retries",
		zap.String("click_id", click.ID.String()),
		zap.Int("attempts", r.config.RetryAttempts),
		zap.Error(lastErr),
	)
}

// GetStats returns recorder statistics
func (r *Recorder) GetStats() map[string]interface{} {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return map[string]interface{}{
		"started":        r.started,
		"queue_length":   len(r.jobQueue),
		"queue_capacity": cap(r.jobQueue),
		"worker_count":   r.config.WorkerCount,
		"retry_attempts": r.config.RetryAttempts,
	}
}

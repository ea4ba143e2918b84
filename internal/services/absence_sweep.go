package services

import (
	"context"
	"log"
	"sync"
	"time"

	"retail-backend/internal/cache"
	"retail-backend/internal/metrics"
	"retail-backend/internal/timeutil"
)

const (
	DefaultSweepInterval  = 2 * time.Minute
	DefaultSweepBatchSize = 500
)

// AbsenceSweep periodically marks lapsed, untouched schedule entries absent.
// It is the only writer of the absent attendance status.
type AbsenceSweep struct {
	ScheduleRepo ScheduleStore
	Clock        timeutil.Clock
	Interval     time.Duration
	BatchSize    int

	mu       sync.Mutex // one cycle at a time (timer and manual trigger)
	cancel   context.CancelFunc
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewAbsenceSweep(scheduleRepo ScheduleStore, clock timeutil.Clock, interval time.Duration, batchSize int) *AbsenceSweep {
	if clock == nil {
		clock = timeutil.SystemClock{}
	}
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if batchSize <= 0 {
		batchSize = DefaultSweepBatchSize
	}
	return &AbsenceSweep{
		ScheduleRepo: scheduleRepo,
		Clock:        clock,
		Interval:     interval,
		BatchSize:    batchSize,
		stopChan:     make(chan struct{}),
	}
}

// Start runs one cycle immediately and then one per interval until Stop.
func (w *AbsenceSweep) Start() {
	log.Printf("[AbsenceSweep] Starting (interval %s, batch %d)", w.Interval, w.BatchSize)

	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		ticker := time.NewTicker(w.Interval)
		defer ticker.Stop()

		w.tick(ctx)
		for {
			select {
			case <-ticker.C:
				w.tick(ctx)
			case <-w.stopChan:
				log.Println("[AbsenceSweep] Stopping...")
				return
			}
		}
	}()
}

// Stop cancels an in-flight cycle and waits for the loop to exit. The batch
// being written when cancelled rolls back as a whole.
func (w *AbsenceSweep) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopChan)
		if w.cancel != nil {
			w.cancel()
		}
	})
	w.wg.Wait()
}

func (w *AbsenceSweep) tick(ctx context.Context) {
	if _, err := w.RunOnce(ctx); err != nil && ctx.Err() == nil {
		log.Printf("[AbsenceSweep] Cycle failed, retrying next tick: %v", err)
	}
}

// RunOnce marks every lapsed not_checked_in entry absent, batch by batch,
// and returns how many rows changed. Rows already in a terminal state are
// never touched, so repeated runs are harmless.
func (w *AbsenceSweep) RunOnce(ctx context.Context) (int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	cutoff := timeutil.Wall(w.Clock.Now())
	var total int64

	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		n, err := w.ScheduleRepo.MarkAbsent(ctx, cutoff, w.BatchSize)
		if err != nil {
			metrics.AbsenceSweepErrorsTotal.Inc()
			return total, ErrTransient("absence sweep: " + err.Error())
		}
		total += n
		if n < int64(w.BatchSize) {
			break
		}
	}

	metrics.AbsenceSweepLastRun.SetToCurrentTime()
	if total > 0 {
		metrics.AbsenceSweepMarkedTotal.Add(float64(total))
		log.Printf("[AbsenceSweep] Marked %d schedule(s) absent", total)
		cache.InvalidateAllSchedules(ctx)
	}
	return total, nil
}

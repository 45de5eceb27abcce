package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-core/internal/config"
	"github.com/spec-kit/helpdesk-core/internal/domain"
)

const (
	scanLockKey    = "misuse_scan:lock"
	scanLockTTL    = 10 * time.Minute
	lastRunKey     = "misuse_scan:last_run"
	scanRunTimeout = 30 * time.Minute
)

// ScanRunner executes a single misuse scan pass.
type ScanRunner interface {
	Run(ctx context.Context, window time.Duration) (*domain.ScanStats, error)
}

// AdvisoryLocker guards scan runs across instances. A locker failure
// downgrades to a warning; scans still run on this instance.
type AdvisoryLocker interface {
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key string) error
	SetMarker(ctx context.Context, key string, at time.Time) error
}

// SchedulerStatus is a point-in-time view of the worker.
type SchedulerStatus struct {
	Enabled bool       `json:"enabled"`
	Cadence string     `json:"cadence"`
	Running bool       `json:"running"`
	LastRun *time.Time `json:"last_run,omitempty"`
	NextRun *time.Time `json:"next_run,omitempty"`
}

// MisuseWorker runs the scanner on a fixed cadence and accepts manual
// triggers. Manual runs do not shift the schedule.
type MisuseWorker struct {
	runner ScanRunner
	locker AdvisoryLocker
	cfg    config.ScanConfig
	logger *zap.Logger

	mu      sync.Mutex
	running bool
	lastRun *time.Time
	nextRun *time.Time

	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}
}

// NewMisuseWorker constructs the worker.
func NewMisuseWorker(runner ScanRunner, locker AdvisoryLocker, cfg config.ScanConfig, logger *zap.Logger) *MisuseWorker {
	return &MisuseWorker{
		runner: runner,
		locker: locker,
		cfg:    cfg,
		logger: logger,
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Start launches the scheduling loop. It is a no-op when scanning is
// disabled by configuration.
func (w *MisuseWorker) Start() {
	if !w.cfg.Enabled {
		w.logger.Info("misuse scan scheduler disabled")
		close(w.done)
		return
	}

	cadence := w.cfg.Cadence()
	if cadence <= 0 {
		cadence = 24 * time.Hour
	}
	next := time.Now().UTC().Add(cadence)
	w.mu.Lock()
	w.nextRun = &next
	w.mu.Unlock()

	go w.loop(cadence)
	w.logger.Info("misuse scan scheduler started", zap.Duration("cadence", cadence))
}

// Stop terminates the scheduling loop and waits for it to exit.
func (w *MisuseWorker) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	<-w.done
}

func (w *MisuseWorker) loop(cadence time.Duration) {
	defer close(w.done)

	ticker := time.NewTicker(cadence)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			next := time.Now().UTC().Add(cadence)
			w.mu.Lock()
			w.nextRun = &next
			w.mu.Unlock()

			ctx, cancel := context.WithTimeout(context.Background(), scanRunTimeout)
			if _, err := w.execute(ctx, w.cfg.Lookback()); err != nil {
				w.logger.Error("scheduled misuse scan failed", zap.Error(err))
			}
			cancel()
		}
	}
}

// TriggerManual runs a scan immediately with the given lookback window,
// independent of the schedule. A zero window falls back to the configured
// lookback.
func (w *MisuseWorker) TriggerManual(ctx context.Context, window time.Duration) (*domain.ScanStats, error) {
	if window <= 0 {
		window = w.cfg.Lookback()
	}
	return w.execute(ctx, window)
}

func (w *MisuseWorker) execute(ctx context.Context, window time.Duration) (*domain.ScanStats, error) {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		w.logger.Info("misuse scan already in progress, skipping")
		return nil, nil
	}
	w.running = true
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
	}()

	acquired, err := w.locker.AcquireLock(ctx, scanLockKey, scanLockTTL)
	if err != nil {
		// Lock store unavailable: run anyway rather than silently skip.
		w.logger.Warn("scan lock unavailable, proceeding without it", zap.Error(err))
	} else if !acquired {
		w.logger.Info("misuse scan held by another instance, skipping")
		return nil, nil
	} else {
		defer func() {
			if err := w.locker.ReleaseLock(context.WithoutCancel(ctx), scanLockKey); err != nil {
				w.logger.Warn("failed to release scan lock", zap.Error(err))
			}
		}()
	}

	stats, err := w.runner.Run(ctx, window)

	now := time.Now().UTC()
	w.mu.Lock()
	w.lastRun = &now
	w.mu.Unlock()
	if markerErr := w.locker.SetMarker(context.WithoutCancel(ctx), lastRunKey, now); markerErr != nil {
		w.logger.Warn("failed to record last scan run", zap.Error(markerErr))
	}

	return stats, err
}

// Status reports the scheduler's current state.
func (w *MisuseWorker) Status() SchedulerStatus {
	w.mu.Lock()
	defer w.mu.Unlock()

	status := SchedulerStatus{
		Enabled: w.cfg.Enabled,
		Cadence: w.cfg.Cadence().String(),
		Running: w.running,
	}
	if w.lastRun != nil {
		t := *w.lastRun
		status.LastRun = &t
	}
	if w.cfg.Enabled && w.nextRun != nil {
		t := *w.nextRun
		status.NextRun = &t
	}
	return status
}

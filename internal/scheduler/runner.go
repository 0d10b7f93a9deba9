package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"ecomission/internal/cache"
	"ecomission/internal/config"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Runner triggers the lifecycle jobs on their cron schedules.
// A run lock in the shared cache keeps replicas from running a job concurrently.
// The lock is released when the run ends; its TTL only bounds a crashed holder.
type Runner struct {
	cron      *cron.Cron
	lifecycle *Lifecycle
	locks     cache.Cache
	lockTTL   time.Duration
	logger    *zap.Logger

	mu      sync.RWMutex
	reports map[string]*JobReport
}

// cronLogger adapts zap to the cron.Logger interface
type cronLogger struct {
	sugar *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.sugar.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, append(keysAndValues, "error", err)...)
}

// NewRunner registers the three jobs with their configured specs
func NewRunner(lifecycle *Lifecycle, locks cache.Cache, cfg config.SchedulerConfig, logger *zap.Logger) (*Runner, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	clog := cronLogger{sugar: logger.Named("cron").Sugar()}

	r := &Runner{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLocation(cfg.Location()),
			cron.WithLogger(clog),
			cron.WithChain(cron.Recover(clog), cron.SkipIfStillRunning(clog)),
		),
		lifecycle: lifecycle,
		locks:     locks,
		lockTTL:   cfg.LockTTL,
		logger:    logger,
		reports:   make(map[string]*JobReport),
	}

	specs := []struct {
		job  string
		spec string
	}{
		{JobMaterialize, cfg.MaterializeSpec},
		{JobClose, cfg.CloseSpec},
		{JobOpen, cfg.OpenSpec},
	}
	for _, s := range specs {
		job := s.job
		if _, err := r.cron.AddFunc(s.spec, func() { r.tick(job) }); err != nil {
			return nil, fmt.Errorf("invalid cron spec %q for %s job: %w", s.spec, job, err)
		}
	}

	return r, nil
}

// Start begins firing jobs in the background
func (r *Runner) Start() {
	r.cron.Start()
	r.logger.Info("Scheduler started", zap.Int("jobs", len(r.cron.Entries())))
}

// Stop waits for running jobs to finish or ctx to expire
func (r *Runner) Stop(ctx context.Context) error {
	done := r.cron.Stop().Done()
	select {
	case <-done:
		r.logger.Info("Scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// LastReport returns the report of the most recent run of job
func (r *Runner) LastReport(job string) (*JobReport, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	report, ok := r.reports[job]
	return report, ok
}

// RunNow runs job immediately unless another run holds its lock.
// ran is false when the lock was already taken.
func (r *Runner) RunNow(ctx context.Context, job string) (report *JobReport, ran bool, err error) {
	acquired, err := r.acquire(ctx, job, time.Now())
	if err != nil {
		return nil, false, err
	}
	if !acquired {
		r.logger.Info("Scheduler job already running elsewhere", zap.String("job", job))
		return nil, false, nil
	}
	defer r.release(job)

	report, err = r.lifecycle.Run(ctx, job)
	if err != nil {
		return nil, true, err
	}

	r.mu.Lock()
	r.reports[job] = report
	r.mu.Unlock()
	return report, true, nil
}

func (r *Runner) tick(job string) {
	ctx := context.Background()
	if r.lockTTL > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.lockTTL)
		defer cancel()
	}

	if _, _, err := r.RunNow(ctx, job); err != nil {
		r.logger.Error("Scheduler job failed", zap.String("job", job), zap.Error(err))
	}
}

// acquire takes the run lock of job, stamping it with the start time
func (r *Runner) acquire(ctx context.Context, job string, at time.Time) (bool, error) {
	if r.locks == nil {
		return true, nil
	}
	ttl := r.lockTTL
	if ttl <= 0 {
		ttl = time.Minute
	}
	key := lockKey(job)
	ok, err := r.locks.SetNX(ctx, key, []byte(strconv.FormatInt(at.Unix(), 10)), ttl)
	if err != nil {
		return false, fmt.Errorf("failed to take scheduler lock %s: %w", key, err)
	}
	return ok, nil
}

// release drops the run lock even when the run's context is already done
func (r *Runner) release(job string) {
	if r.locks == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.locks.Delete(ctx, lockKey(job)); err != nil {
		r.logger.Warn("Failed to release scheduler lock", zap.String("job", job), zap.Error(err))
	}
}

func lockKey(job string) string {
	return "lock:scheduler:" + job
}

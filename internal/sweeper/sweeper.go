// Package sweeper implements the retention sweeper (C2): a cron-driven
// background task that periodically purges aged test_result rows (and
// the Execution rows that no longer have any referencing result) from
// the embedded store.
package sweeper

import (
	"context"
	"database/sql"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/3leaps/testharbor/internal/observability"
	"github.com/3leaps/testharbor/internal/store"
)

// Clock is injected for deterministic tests; time.Now in production.
type Clock func() time.Time

// Sweeper runs a single retention job on a cron schedule. Runs never
// overlap: if a previous tick is still executing when the next trigger
// fires, the new trigger is skipped (standard cron semantics plus an
// explicit non-overlap guard, since robfig/cron itself does not
// serialize a job against itself by default).
type Sweeper struct {
	db           *sql.DB
	periodInDays int
	clock        Clock
	logger       *zap.Logger
	metrics      *observability.Metrics

	running atomic.Bool
	cron    *cron.Cron
	entryID cron.EntryID
}

// New builds a Sweeper that purges rows older than periodInDays days.
// metrics may be nil, in which case sweep runs are not recorded to
// Prometheus.
func New(db *sql.DB, periodInDays int, logger *zap.Logger, metrics *observability.Metrics) *Sweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sweeper{
		db:           db,
		periodInDays: periodInDays,
		clock:        time.Now,
		logger:       logger,
		metrics:      metrics,
		cron:         cron.New(cron.WithSeconds()),
	}
}

// Start schedules the sweeper's tick function against expr, a
// seconds-precision cron expression (e.g. "0 0 3 * * Sun"), and starts
// the cron scheduler. It returns an error if expr does not parse.
func (s *Sweeper) Start(expr string) error {
	id, err := s.cron.AddFunc(expr, s.tick)
	if err != nil {
		return err
	}
	s.entryID = id
	s.cron.Start()
	return nil
}

// Stop stops the cron scheduler and waits for any in-flight tick to
// finish.
func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// RunOnce executes a single sweep synchronously, bypassing the cron
// schedule — used by tests and by an operator-triggered manual sweep.
func (s *Sweeper) RunOnce(ctx context.Context) (testResults int64, executions int64, err error) {
	cutoff := s.clock().AddDate(0, 0, -s.periodInDays).Unix()

	testResults, err = store.PurgeAgedTestResults(ctx, s.db, cutoff)
	if err != nil {
		return 0, 0, err
	}
	executions, err = store.PurgeAgedExecutionsWithoutResults(ctx, s.db, cutoff)
	if err != nil {
		return testResults, 0, err
	}
	return testResults, executions, nil
}

func (s *Sweeper) tick() {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Warn("sweeper: previous run still in progress, skipping tick")
		return
	}
	defer s.running.Store(false)

	start := s.clock()
	testResults, executions, err := s.RunOnce(context.Background())
	elapsed := s.clock().Sub(start)

	if err != nil {
		s.logger.Error("sweeper: run failed", zap.Error(err), zap.Duration("elapsed", elapsed))
		return
	}
	s.logger.Info("sweeper: run complete",
		zap.Int64("test_results_purged", testResults),
		zap.Int64("executions_purged", executions),
		zap.Duration("elapsed", elapsed))

	if s.metrics != nil {
		s.metrics.SweepRunsTotal.Inc()
		s.metrics.SweepDurationSec.Observe(elapsed.Seconds())
		s.metrics.SweepRowsPurged.WithLabelValues("test_result").Add(float64(testResults))
		s.metrics.SweepRowsPurged.WithLabelValues("execution").Add(float64(executions))
	}
}

package maintenance

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/robfig/cron/v3"

	"github.com/jonesrussell/north-cloud/suggester/internal/logger"
)

// Runner is the work a Scheduler triggers.
type Runner interface {
	Run(ctx context.Context, opts Options) (*Stats, error)
}

// Scheduler runs a Runner on a cron schedule. A tick that fires while the
// previous run is still going is skipped.
type Scheduler struct {
	cron     *cron.Cron
	runner   Runner
	opts     Options
	schedule string
	log      logger.Logger

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewScheduler validates schedule (standard five-field cron) and creates a
// scheduler.
func NewScheduler(runner Runner, schedule string, opts Options, log logger.Logger) (*Scheduler, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(schedule); err != nil {
		return nil, fmt.Errorf("parse maintenance schedule %q: %w", schedule, err)
	}

	s := &Scheduler{
		cron:     cron.New(cron.WithParser(parser), cron.WithChain(cron.Recover(cron.DefaultLogger))),
		runner:   runner,
		opts:     opts,
		schedule: schedule,
		log:      log,
	}

	if _, err := s.cron.AddFunc(schedule, s.tick); err != nil {
		return nil, fmt.Errorf("add maintenance job: %w", err)
	}
	return s, nil
}

// Start begins firing on schedule. Runs use a context derived from ctx.
func (s *Scheduler) Start(ctx context.Context) {
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.cron.Start()

	entries := s.cron.Entries()
	if len(entries) > 0 {
		s.log.Info("Maintenance scheduler started",
			logger.String("schedule", s.schedule),
			logger.Time("next_run", entries[0].Next),
		)
	}
}

// Stop halts the schedule, cancels an in-flight run and waits for it.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	s.log.Info("Maintenance scheduler stopped")
}

// Trigger runs immediately unless a run is already in progress. It reports
// whether a run was started.
func (s *Scheduler) Trigger() bool {
	return s.start()
}

func (s *Scheduler) tick() {
	if !s.start() {
		s.log.Warn("Skipping maintenance run, previous run still in progress")
	}
}

func (s *Scheduler) start() bool {
	if s.ctx == nil || !s.running.CompareAndSwap(false, true) {
		return false
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.running.Store(false)

		if _, err := s.runner.Run(s.ctx, s.opts); err != nil {
			s.log.Error("Maintenance run failed", logger.Error(err))
		}
	}()
	return true
}

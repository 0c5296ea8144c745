package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"gsc_coverage/aggregate"
	"gsc_coverage/config"
	"gsc_coverage/models"
)

// Triggerable allows workers to be triggered manually
type Triggerable interface {
	Trigger()
}

// Runner is the part of the orchestrator the daemon drives.
type Runner interface {
	RunAll(ctx context.Context) (*aggregate.Run, error)
	HandleCommand(ctx context.Context, cmd *models.Command) error
}

// CommandStore is the local command queue.
type CommandStore interface {
	GetPendingCommands() ([]models.Command, error)
	MarkCommandProcessed(id int64) error
	GetLastRunTime() (time.Time, error)
}

type Scheduler struct {
	cfg          *config.Config
	runner       Runner
	store        CommandStore
	cron         *cron.Cron
	ticker       *time.Ticker
	stopCh       chan struct{}
	stopOnce     sync.Once
	pollInterval time.Duration
	fatalCh      chan error
	failed       atomic.Bool

	exportWorker Triggerable
}

func New(cfg *config.Config, runner Runner, store CommandStore) *Scheduler {
	return &Scheduler{
		cfg:          cfg,
		runner:       runner,
		store:        store,
		cron:         cron.New(),
		stopCh:       make(chan struct{}),
		pollInterval: 2 * time.Second,
		fatalCh:      make(chan error, 1),
	}
}

// Fatal delivers the error that stopped the scheduler, such as a rejected
// login. The daemon must exit when it fires.
func (s *Scheduler) Fatal() <-chan error {
	return s.fatalCh
}

// SetExportWorker registers the upload worker for manual triggering.
func (s *Scheduler) SetExportWorker(w Triggerable) {
	s.exportWorker = w
}

func (s *Scheduler) Start(ctx context.Context) error {
	go s.pollCommands(ctx)

	if s.cfg.Scheduler.Cron != "" {
		log.Printf("Starting scheduler with cron: %s", s.cfg.Scheduler.Cron)
		_, err := s.cron.AddFunc(s.cfg.Scheduler.Cron, func() { s.runScheduled(ctx) })
		if err != nil {
			return fmt.Errorf("invalid cron expression: %w", err)
		}
		s.cron.Start()
	} else if s.cfg.Scheduler.Interval > 0 {
		log.Printf("Starting scheduler with interval: %s", s.cfg.Scheduler.Interval)
		s.ticker = time.NewTicker(s.cfg.Scheduler.Interval)
		go func() {
			if s.Due(time.Now()) {
				log.Println("Last run is older than the interval, catching up")
				s.runScheduled(ctx)
			}
			for {
				select {
				case <-s.ticker.C:
					s.runScheduled(ctx)
				case <-s.stopCh:
					return
				case <-ctx.Done():
					return
				}
			}
		}()
	} else {
		log.Println("No schedule configured, daemon will only respond to commands")
	}

	return nil
}

func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		if s.cron != nil {
			s.cron.Stop()
		}
		if s.ticker != nil {
			s.ticker.Stop()
		}
		close(s.stopCh)
	})
}

// Due reports whether an interval schedule has missed a run, e.g. because
// the daemon was down.
func (s *Scheduler) Due(now time.Time) bool {
	interval := s.cfg.Scheduler.Interval
	if interval <= 0 {
		return false
	}
	last, err := s.store.GetLastRunTime()
	if err != nil {
		log.Printf("Error getting last run time: %v", err)
		return false
	}
	return last.IsZero() || now.Sub(last) >= interval
}

func (s *Scheduler) runScheduled(ctx context.Context) {
	if s.failed.Load() {
		return
	}
	if _, err := s.runner.RunAll(ctx); err != nil {
		log.Printf("Scheduled run error: %v", err)
		s.checkFatal(err)
	}
}

// checkFatal stops the scheduler on errors that must end the process.
func (s *Scheduler) checkFatal(err error) {
	if !models.IsFatal(err) || !s.failed.CompareAndSwap(false, true) {
		return
	}
	log.Printf("Fatal error, stopping scheduler: %v", err)
	s.fatalCh <- err
	s.Stop()
}

func (s *Scheduler) pollCommands(ctx context.Context) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.ProcessCommands(ctx)
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// ProcessCommands drains the command queue once.
func (s *Scheduler) ProcessCommands(ctx context.Context) {
	cmds, err := s.store.GetPendingCommands()
	if err != nil {
		log.Printf("Error getting commands: %v", err)
		return
	}

	for i := range cmds {
		if s.failed.Load() {
			return
		}
		cmd := &cmds[i]
		log.Printf("Processing command: %s", cmd.Command)
		if err := s.handleCommand(ctx, cmd); err != nil {
			log.Printf("Command error: %v", err)
			s.checkFatal(err)
		}
		if err := s.store.MarkCommandProcessed(cmd.ID); err != nil {
			log.Printf("Error marking command processed: %v", err)
		}
	}
}

func (s *Scheduler) handleCommand(ctx context.Context, cmd *models.Command) error {
	switch cmd.Command {
	case models.CmdUploadExports:
		if s.exportWorker != nil {
			s.exportWorker.Trigger()
			log.Println("Export worker triggered via command")
		}
		return nil
	default:
		return s.runner.HandleCommand(ctx, cmd)
	}
}

func (s *Scheduler) TriggerNow(ctx context.Context) error {
	_, err := s.runner.RunAll(ctx)
	return err
}

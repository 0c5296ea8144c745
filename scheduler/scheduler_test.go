package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"gsc_coverage/aggregate"
	"gsc_coverage/config"
	"gsc_coverage/models"
)

type fakeRunner struct {
	runs      int
	handled   []models.CommandType
	runErr    error
	handleErr error
}

func (r *fakeRunner) RunAll(ctx context.Context) (*aggregate.Run, error) {
	r.runs++
	return &aggregate.Run{}, r.runErr
}

func (r *fakeRunner) HandleCommand(ctx context.Context, cmd *models.Command) error {
	r.handled = append(r.handled, cmd.Command)
	return r.handleErr
}

type fakeStore struct {
	cmds      []models.Command
	processed []int64
	lastRun   time.Time
	err       error
}

func (s *fakeStore) GetPendingCommands() ([]models.Command, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := s.cmds
	s.cmds = nil
	return out, nil
}

func (s *fakeStore) MarkCommandProcessed(id int64) error {
	s.processed = append(s.processed, id)
	return nil
}

func (s *fakeStore) GetLastRunTime() (time.Time, error) {
	return s.lastRun, s.err
}

type countingWorker struct{ n int }

func (w *countingWorker) Trigger() { w.n++ }

func TestProcessCommands(t *testing.T) {
	runner := &fakeRunner{handleErr: errors.New("login failed")}
	store := &fakeStore{cmds: []models.Command{
		{ID: 1, Command: models.CmdScrapeNow},
		{ID: 2, Command: models.CmdUploadExports},
		{ID: 3, Command: models.CmdPause},
	}}
	worker := &countingWorker{}

	s := New(&config.Config{}, runner, store)
	s.SetExportWorker(worker)
	s.ProcessCommands(context.Background())

	if diff := cmp.Diff([]models.CommandType{models.CmdScrapeNow, models.CmdPause}, runner.handled); diff != "" {
		t.Fatalf("handled mismatch (-want +got):\n%s", diff)
	}
	if worker.n != 1 {
		t.Errorf("export worker triggered %d times", worker.n)
	}
	// Failed commands are still marked so they do not loop forever.
	if diff := cmp.Diff([]int64{1, 2, 3}, store.processed); diff != "" {
		t.Errorf("processed mismatch (-want +got):\n%s", diff)
	}
}

func TestProcessCommandsStoreError(t *testing.T) {
	runner := &fakeRunner{}
	s := New(&config.Config{}, runner, &fakeStore{err: errors.New("locked")})
	s.ProcessCommands(context.Background())
	if len(runner.handled) != 0 {
		t.Fatalf("nothing should be handled")
	}
}

func TestDue(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name     string
		interval time.Duration
		lastRun  time.Time
		want     bool
	}{
		{"no interval", 0, time.Time{}, false},
		{"never ran", time.Hour, time.Time{}, true},
		{"recent", time.Hour, now.Add(-10 * time.Minute), false},
		{"overdue", time.Hour, now.Add(-2 * time.Hour), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{}
			cfg.Scheduler.Interval = tt.interval
			s := New(cfg, &fakeRunner{}, &fakeStore{lastRun: tt.lastRun})
			if got := s.Due(now); got != tt.want {
				t.Errorf("Due = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStartRejectsBadCron(t *testing.T) {
	cfg := &config.Config{}
	cfg.Scheduler.Cron = "not a cron"
	s := New(cfg, &fakeRunner{}, &fakeStore{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := s.Start(ctx); err == nil {
		t.Fatal("expected cron parse error")
	}
	s.Stop()
	s.Stop()
}

func TestTriggerNow(t *testing.T) {
	runner := &fakeRunner{}
	s := New(&config.Config{}, runner, &fakeStore{})
	if err := s.TriggerNow(context.Background()); err != nil {
		t.Fatalf("trigger: %v", err)
	}
	if runner.runs != 1 {
		t.Fatalf("runs = %d", runner.runs)
	}
}

func TestScheduledRunStopsOnFatalError(t *testing.T) {
	runner := &fakeRunner{runErr: &models.AuthenticationError{Reason: "wrong password"}}
	s := New(&config.Config{}, runner, &fakeStore{})

	s.runScheduled(context.Background())
	s.runScheduled(context.Background())

	if runner.runs != 1 {
		t.Fatalf("runs after fatal error = %d, want 1", runner.runs)
	}
	select {
	case err := <-s.Fatal():
		if !models.IsFatal(err) {
			t.Errorf("delivered error is not fatal: %v", err)
		}
	default:
		t.Fatal("fatal error was not delivered")
	}
	select {
	case <-s.stopCh:
	default:
		t.Error("scheduler should be stopped")
	}
}

func TestScheduledRunKeepsGoingOnOrdinaryError(t *testing.T) {
	runner := &fakeRunner{runErr: errors.New("selector timed out")}
	s := New(&config.Config{}, runner, &fakeStore{})

	s.runScheduled(context.Background())
	s.runScheduled(context.Background())

	if runner.runs != 2 {
		t.Fatalf("runs = %d, want 2", runner.runs)
	}
	select {
	case err := <-s.Fatal():
		t.Fatalf("unexpected fatal error: %v", err)
	default:
	}
}

func TestProcessCommandsStopsOnFatalError(t *testing.T) {
	runner := &fakeRunner{handleErr: &models.AuthenticationError{Reason: "2FA required"}}
	store := &fakeStore{cmds: []models.Command{
		{ID: 1, Command: models.CmdScrapeNow},
		{ID: 2, Command: models.CmdScrapeNow},
	}}
	s := New(&config.Config{}, runner, store)
	s.ProcessCommands(context.Background())

	if diff := cmp.Diff([]models.CommandType{models.CmdScrapeNow}, runner.handled); diff != "" {
		t.Fatalf("handled mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int64{1}, store.processed); diff != "" {
		t.Errorf("processed mismatch (-want +got):\n%s", diff)
	}
	select {
	case <-s.Fatal():
	default:
		t.Fatal("fatal error was not delivered")
	}
}

package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"SurgeScreener/internal/notifier"
	"SurgeScreener/internal/pipeline"
	"SurgeScreener/internal/recorder"
)

const helpText = "可用命令:\n• /screen 立即筛选\n• /latest 最近一次结果"

// Scheduler manages the cron-driven screening runs and Telegram commands.
type Scheduler struct {
	Cron     *cron.Cron
	Runner   *pipeline.Runner
	Notifier *notifier.TelegramNotifier
	Ctx      context.Context
}

// NewScheduler creates a new Scheduler. tn may be nil when Telegram is not
// configured.
func NewScheduler(ctx context.Context, runner *pipeline.Runner, tn *notifier.TelegramNotifier) *Scheduler {
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds()),
		Runner:   runner,
		Notifier: tn,
		Ctx:      ctx,
	}
}

// RegisterAll registers the screening task.
func (s *Scheduler) RegisterAll(screenCron string) error {
	if _, err := s.Cron.AddFunc(screenCron, s.screenTask); err != nil {
		return fmt.Errorf("register screen task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Info().Int("jobs", len(s.Cron.Entries())).Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Info().Msg("scheduler stopped")
}

// RunNow executes the screening task immediately (for RUN_ON_START).
func (s *Scheduler) RunNow() {
	s.screenTask()
}

func (s *Scheduler) screenTask() {
	log.Info().Msg("running scheduled screen")
	s.trySend(s.screen(s.Ctx))
}

// screen runs the pipeline and formats the outcome as a message.
func (s *Scheduler) screen(ctx context.Context) string {
	snap, err := s.Runner.Run(ctx)
	if errors.Is(err, pipeline.ErrRunInProgress) {
		return "⏳ 筛选进行中, 请稍后查看 /latest"
	}
	if err != nil {
		log.Error().Err(err).Msg("screening run failed")
		return notifier.FormatError(err)
	}
	return notifier.FormatScreenReport(snap)
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return helpText
	}
	// Group chats address commands as /screen@botname.
	cmd, _, _ := strings.Cut(fields[0], "@")
	switch cmd {
	case "/screen", "筛选":
		return s.screen(ctx)
	case "/latest", "最新":
		snap, err := s.Runner.Recorder().LatestRun()
		if errors.Is(err, recorder.ErrNoRuns) {
			return "暂无筛选记录"
		}
		if err != nil {
			return notifier.FormatError(err)
		}
		return notifier.FormatScreenReport(snap)
	default:
		return helpText
	}
}

func (s *Scheduler) trySend(text string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		log.Error().Err(err).Msg("send notification")
	}
}

// Package job runs background work on Asynq: welcome emails, dues
// reminders and the scheduled scan that finds members to remind.
package job

import (
	"context"
	"time"

	"github.com/deppfellow/memberships/internal/config"
	"github.com/deppfellow/memberships/internal/dues"
	"github.com/deppfellow/memberships/internal/lib/email"
	"github.com/deppfellow/memberships/internal/model"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
)

// Mailer sends the emails produced by job handlers.
type Mailer interface {
	SendWelcomeEmail(ctx context.Context, to string, data email.WelcomeData) error
	SendDuesReminderEmail(ctx context.Context, to string, data email.DuesReminderData) error
}

// ReminderSource finds members whose last payment fell on a calendar day.
type ReminderSource interface {
	ListLastPaidOn(ctx context.Context, day time.Time) ([]model.Member, error)
}

type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// JobService holds the Asynq client, worker server and scheduler.
type JobService struct {
	Client    *asynq.Client
	queue     enqueuer
	server    *asynq.Server
	scheduler *asynq.Scheduler
	logger    *zerolog.Logger

	cfg       *config.Config
	policy    dues.Policy
	mailer    Mailer
	reminders ReminderSource
	now       func() time.Time
}

// NewJobService creates a JobService on the configured Redis.
func NewJobService(logger *zerolog.Logger, cfg *config.Config) *JobService {
	redisOpt := asynq.RedisClientOpt{Addr: cfg.Redis.Address}
	loc := cfg.Membership.Location()

	client := asynq.NewClient(redisOpt)

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
		},
	)

	scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{Location: loc})

	return &JobService{
		Client:    client,
		queue:     client,
		server:    server,
		scheduler: scheduler,
		logger:    logger,
		cfg:       cfg,
		policy:    dues.NewPolicy(cfg.Membership.DuesValidityDays, loc),
		now:       time.Now,
	}
}

// Start registers task handlers, starts the workers and the reminder
// schedule. It does not block; call Stop on shutdown.
func (j *JobService) Start() error {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskWelcome, j.handleWelcomeEmailTask)
	mux.HandleFunc(TaskDuesReminder, j.handleDuesReminderTask)
	mux.HandleFunc(TaskDuesScan, j.handleDuesScanTask)

	j.logger.Info().Msg("starting background job server")

	if err := j.server.Start(mux); err != nil {
		return err
	}

	entryID, err := j.scheduler.Register(j.cfg.Membership.ReminderCron, NewDuesScanTask())
	if err != nil {
		return err
	}

	if err := j.scheduler.Start(); err != nil {
		return err
	}

	j.logger.Info().
		Str("entry_id", entryID).
		Str("cron", j.cfg.Membership.ReminderCron).
		Msg("dues reminder scan scheduled")

	return nil
}

// Stop shuts down the scheduler and workers and closes the client.
func (j *JobService) Stop() {
	j.logger.Info().Msg("stopping background job server")
	j.scheduler.Shutdown()
	j.server.Shutdown()
	j.Client.Close()
}

// EnqueueWelcomeEmail queues the welcome email for a new user.
func (j *JobService) EnqueueWelcomeEmail(ctx context.Context, to, firstName string) error {
	task, err := NewWelcomeEmailTask(to, firstName)
	if err != nil {
		return err
	}
	_, err = j.queue.EnqueueContext(ctx, task)
	return err
}

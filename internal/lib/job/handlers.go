package job

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/deppfellow/memberships/internal/lib/email"
	"github.com/hibiken/asynq"
	"github.com/pkg/errors"
)

// InitHandlers sets the dependencies task handlers need. It must run
// before Start.
func (j *JobService) InitHandlers(mailer Mailer, reminders ReminderSource) {
	j.mailer = mailer
	j.reminders = reminders
}

func (j *JobService) handleWelcomeEmailTask(ctx context.Context, t *asynq.Task) error {
	var p WelcomeEmailPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("failed to unmarshal welcome email payload: %w: %w", err, asynq.SkipRetry)
	}

	logger := j.logger.With().Str("type", "welcome").Str("to", p.To).Logger()
	logger.Info().Msg("processing welcome email task")

	err := j.mailer.SendWelcomeEmail(ctx, p.To, email.WelcomeData{
		FirstName: p.FirstName,
		FormURL:   j.cfg.Integration.PublicURL + "/members/form",
	})
	if err != nil {
		logger.Error().Err(err).Msg("failed to send welcome email")
		return err
	}

	logger.Info().Msg("successfully sent welcome email")
	return nil
}

func (j *JobService) handleDuesReminderTask(ctx context.Context, t *asynq.Task) error {
	var p DuesReminderPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("failed to unmarshal dues reminder payload: %w: %w", err, asynq.SkipRetry)
	}

	logger := j.logger.With().
		Str("type", "dues_reminder").
		Int64("member_id", p.MemberID).
		Int("days_left", p.DaysLeft).
		Logger()

	data := email.NewDuesReminderData(p.FirstName, p.DaysLeft, p.DueDate.In(j.policy.Location),
		j.cfg.Integration.PublicURL+"/members/dashboard")

	if err := j.mailer.SendDuesReminderEmail(ctx, p.To, data); err != nil {
		logger.Error().Err(err).Msg("failed to send dues reminder")
		return err
	}

	logger.Info().Msg("sent dues reminder")
	return nil
}

// handleDuesScanTask enqueues one reminder for every member whose dues
// expire in one of the configured number of days.
func (j *JobService) handleDuesScanTask(ctx context.Context, _ *asynq.Task) error {
	now := j.now()
	enqueued := 0

	for _, daysLeft := range j.cfg.Membership.ReminderDaysBefore {
		paidOn := j.policy.PaidOnForDueIn(now, daysLeft)

		members, err := j.reminders.ListLastPaidOn(ctx, paidOn)
		if err != nil {
			return errors.Wrapf(err, "failed to list members paid on %s", paidOn.Format("2006-01-02"))
		}

		for _, m := range members {
			if m.LastPaymentAt == nil {
				continue
			}

			task, err := NewDuesReminderTask(DuesReminderPayload{
				MemberID:  m.ID,
				To:        m.User.Email,
				FirstName: m.User.FirstName,
				DaysLeft:  daysLeft,
				DueDate:   j.policy.DueDate(*m.LastPaymentAt),
			})
			if err != nil {
				return err
			}

			if _, err := j.queue.EnqueueContext(ctx, task); err != nil {
				if errors.Is(err, asynq.ErrTaskIDConflict) {
					continue
				}
				return errors.Wrapf(err, "failed to enqueue reminder for member %d", m.ID)
			}
			enqueued++
		}
	}

	j.logger.Info().
		Int("enqueued", enqueued).
		Ints("days_before", j.cfg.Membership.ReminderDaysBefore).
		Msg("dues reminder scan finished")

	return nil
}

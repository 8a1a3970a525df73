package job

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// Task type names routed by the Asynq mux.
const (
	TaskWelcome      = "email:welcome"
	TaskDuesReminder = "email:dues_reminder"
	TaskDuesScan     = "dues:scan"
)

// WelcomeEmailPayload is the welcome email task body.
type WelcomeEmailPayload struct {
	To        string `json:"to"`
	FirstName string `json:"first_name"`
}

// DuesReminderPayload is the dues reminder task body.
type DuesReminderPayload struct {
	MemberID  int64     `json:"member_id"`
	To        string    `json:"to"`
	FirstName string    `json:"first_name"`
	DaysLeft  int       `json:"days_left"`
	DueDate   time.Time `json:"due_date"`
}

// NewWelcomeEmailTask builds a welcome email task.
func NewWelcomeEmailTask(to, firstName string) (*asynq.Task, error) {
	payload, err := json.Marshal(WelcomeEmailPayload{
		To:        to,
		FirstName: firstName,
	})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskWelcome,
		payload,
		asynq.MaxRetry(3),
		asynq.Queue("default"),
		asynq.Timeout(30*time.Second),
	), nil
}

// NewDuesReminderTask builds a reminder task. The task id is derived from
// the member and due date so a rerun scan cannot send the same reminder twice.
func NewDuesReminderTask(p DuesReminderPayload) (*asynq.Task, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskDuesReminder,
		payload,
		asynq.MaxRetry(5),
		asynq.Queue("default"),
		asynq.Timeout(30*time.Second),
		asynq.TaskID(reminderTaskID(p)),
		asynq.Retention(48*time.Hour),
	), nil
}

func reminderTaskID(p DuesReminderPayload) string {
	return fmt.Sprintf("dues-reminder:%d:%s:%d", p.MemberID, p.DueDate.Format(time.DateOnly), p.DaysLeft)
}

// NewDuesScanTask builds the periodic scan task.
func NewDuesScanTask() *asynq.Task {
	return asynq.NewTask(
		TaskDuesScan,
		nil,
		asynq.MaxRetry(1),
		asynq.Queue("low"),
		asynq.Timeout(5*time.Minute),
	)
}

package email

import (
	"context"
	"time"
)

// WelcomeData fills the welcome template.
type WelcomeData struct {
	FirstName string
	FormURL   string
}

// DuesReminderData fills the dues reminder template.
type DuesReminderData struct {
	FirstName    string
	DaysLeft     int
	DueDate      string
	DashboardURL string
}

// NewDuesReminderData formats the due date the way members read it.
func NewDuesReminderData(firstName string, daysLeft int, due time.Time, dashboardURL string) DuesReminderData {
	return DuesReminderData{
		FirstName:    firstName,
		DaysLeft:     daysLeft,
		DueDate:      due.Format("02/01/2006"),
		DashboardURL: dashboardURL,
	}
}

// SendWelcomeEmail greets a user who just signed up.
func (c *Client) SendWelcomeEmail(ctx context.Context, to string, data WelcomeData) error {
	return c.SendEmail(ctx, to, "Bem-vindo(a) à associação!", TemplateWelcome, data)
}

// SendDuesReminderEmail warns a member that their dues are about to expire.
func (c *Client) SendDuesReminderEmail(ctx context.Context, to string, data DuesReminderData) error {
	return c.SendEmail(ctx, to, "Sua anuidade está perto de vencer", TemplateDuesReminder, data)
}

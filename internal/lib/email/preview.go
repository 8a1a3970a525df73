package email

import "time"

// PreviewData holds sample data for rendering every template locally.
var PreviewData = map[Template]any{
	TemplateWelcome: WelcomeData{
		FirstName: "Maria",
		FormURL:   "http://localhost:8080/members/form",
	},
	TemplateDuesReminder: NewDuesReminderData(
		"Maria", 7,
		time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC),
		"http://localhost:8080/members/dashboard",
	),
}

package email

import (
	"embed"
	"html/template"
)

// Template names an embedded email body under templates/.
type Template string

const (
	TemplateWelcome      Template = "welcome"
	TemplateDuesReminder Template = "dues_reminder"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

func (t Template) file() string {
	return string(t) + ".html"
}

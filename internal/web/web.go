// Package web renders the member-facing HTML pages from embedded
// templates. Every page defines a "content" block wrapped by layout.html.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path"
	"strings"
	"time"

	"github.com/deppfellow/memberships/internal/dues"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

//go:embed templates/*.html
var templateFS embed.FS

const layoutFile = "layout.html"

// Renderer implements echo.Renderer over the embedded pages.
type Renderer struct {
	pages map[string]*template.Template
}

// NewRenderer parses every page together with the layout. Dates are
// shown in loc.
func NewRenderer(loc *time.Location) (*Renderer, error) {
	files, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	pages := make(map[string]*template.Template, len(files))
	for _, file := range files {
		name := path.Base(file)
		if name == layoutFile {
			continue
		}

		tmpl, err := template.New(layoutFile).
			Funcs(funcMap(loc)).
			ParseFS(templateFS, "templates/"+layoutFile, file)
		if err != nil {
			return nil, fmt.Errorf("failed to parse page %s: %w", name, err)
		}
		pages[strings.TrimSuffix(name, ".html")] = tmpl
	}

	return &Renderer{pages: pages}, nil
}

// Render executes the layout for page name.
func (r *Renderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	tmpl, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("unknown page %q", name)
	}
	return tmpl.ExecuteTemplate(w, layoutFile, data)
}

func funcMap(loc *time.Location) template.FuncMap {
	if loc == nil {
		loc = time.UTC
	}
	return template.FuncMap{
		"date":        func(v any) string { return formatDate(v, loc) },
		"money":       formatMoney,
		"statusLabel": statusLabel,
		"isSelected":  isSelected,
		"add":         func(a, b int) int { return a + b },
	}
}

// formatDate prints a time.Time or *time.Time as dd/mm/yyyy in loc.
func formatDate(v any, loc *time.Location) string {
	var t time.Time
	switch x := v.(type) {
	case time.Time:
		t = x
	case *time.Time:
		if x != nil {
			t = *x
		}
	}
	if t.IsZero() {
		return "-"
	}
	return t.In(loc).Format("02/01/2006")
}

func formatMoney(d decimal.Decimal) string {
	return "R$ " + strings.Replace(d.StringFixed(2), ".", ",", 1)
}

func statusLabel(s dues.Status) string {
	switch s {
	case dues.StatusActive:
		return "Ativo"
	case dues.StatusInactive:
		return "Inativo"
	default:
		return "Inválido"
	}
}

func isSelected(selected *int64, id int64) bool {
	return selected != nil && *selected == id
}

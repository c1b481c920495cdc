package mailer

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

const (
	TemplateExpenseDecision = "expense_decision"
	TemplateRoleChanged     = "role_changed"
	TemplateMagicLink       = "magic_link"
)

//go:embed templates/*.html
var templateFS embed.FS

// Templates holds one parsed set per message, each wrapped in the shared layout.
type Templates struct {
	sets map[string]*template.Template
}

func LoadTemplates() (*Templates, error) {
	t := &Templates{sets: make(map[string]*template.Template)}
	for _, name := range []string{TemplateExpenseDecision, TemplateRoleChanged, TemplateMagicLink} {
		set, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse mail template %s: %w", name, err)
		}
		t.sets[name] = set
	}
	return t, nil
}

func (t *Templates) Render(name string, data interface{}) (string, error) {
	set, ok := t.sets[name]
	if !ok {
		return "", fmt.Errorf("unknown mail template %s", name)
	}
	var buf bytes.Buffer
	if err := set.ExecuteTemplate(&buf, "layout", data); err != nil {
		return "", fmt.Errorf("render mail template %s: %w", name, err)
	}
	return buf.String(), nil
}

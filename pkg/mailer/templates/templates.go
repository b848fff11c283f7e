package templates

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	htmpl "html/template"
	"io"
	"reflect"
	"strings"
	texttpl "text/template"
	"time"
)

//go:embed *.tmpl
var FS embed.FS

// EmailData defines standard fields for email templates.
type EmailData struct {
	// Basic info
	Name  string `json:"Name"`
	Email string `json:"Email"`
	Type  string `json:"Type"`

	// Company info
	CompanyName string `json:"CompanyName"`
	AppName     string `json:"AppName"`
	SupportURL  string `json:"SupportURL"`

	// Account state
	Status         string            `json:"Status"`
	PreviousStatus string            `json:"PreviousStatus"`
	Changes        map[string]string `json:"Changes"`

	Time   string    `json:"Time"`
	TimeAt time.Time `json:"TimeAt"`
}

// ToMap converts EmailData to a map[string]any for EmailJob.Data
func ToMap(d EmailData) map[string]any {
	b, _ := json.Marshal(d)
	var m map[string]any
	_ = json.Unmarshal(b, &m)
	return m
}

// defaultFn supports pipe usage: {{ .Value | default "Fallback" }}
func defaultFn(fallback any, value any) any {
	switch x := value.(type) {
	case string:
		if strings.TrimSpace(x) == "" {
			return fallback
		}
		return x
	case nil:
		return fallback
	default:
		rv := reflect.ValueOf(value)
		if !rv.IsValid() {
			return fallback
		}
		zero := reflect.Zero(rv.Type()).Interface()
		if reflect.DeepEqual(value, zero) {
			return fallback
		}
		return value
	}
}

func baseFuncs() map[string]any {
	return map[string]any{
		"now":        func() time.Time { return time.Now().UTC() },
		"formatTime": func(t time.Time, layout string) string { return t.Format(layout) },
		"upper":      strings.ToUpper,
		"title":      titleFn,
		"default":    defaultFn,
	}
}

func titleFn(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// Template names. Each has <name>.subject.tmpl, <name>.text.tmpl and
// <name>.html.tmpl in this directory.
const (
	Welcome        = "welcome"
	AccountStatus  = "account_status"
	ProfileUpdated = "profile_updated"
)

// Parsed once; a broken template fails at startup, not on the first event.
var (
	textSet = texttpl.Must(texttpl.New("").Funcs(texttpl.FuncMap(baseFuncs())).ParseFS(FS, "*.subject.tmpl", "*.text.tmpl"))
	htmlSet = htmpl.Must(htmpl.New("").Funcs(htmpl.FuncMap(baseFuncs())).ParseFS(FS, "*.html.tmpl"))
)

type executor interface {
	Execute(w io.Writer, data any) error
}

func execute(t executor, file string, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("exec %q: %w", file, err)
	}
	return buf.String(), nil
}

// Render produces the subject, plain-text and HTML bodies of template name.
func Render(name string, data any) (subject, text, html string, err error) {
	subj, txt, h := textSet.Lookup(name+".subject.tmpl"), textSet.Lookup(name+".text.tmpl"), htmlSet.Lookup(name+".html.tmpl")
	if subj == nil || txt == nil || h == nil {
		return "", "", "", fmt.Errorf("unknown email template %q", name)
	}
	if subject, err = execute(subj, name+".subject.tmpl", data); err != nil {
		return "", "", "", err
	}
	if text, err = execute(txt, name+".text.tmpl", data); err != nil {
		return "", "", "", err
	}
	if html, err = execute(h, name+".html.tmpl", data); err != nil {
		return "", "", "", err
	}
	return strings.TrimSpace(subject), text, html, nil
}

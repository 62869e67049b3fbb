package feedback

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/template"

	"coursekit/internal/table"
)

// Message is everything a feedback template can reference besides row cells, which
// are read with {{mark "COLUMN"}}.
type Message struct {
	ProjectNo       int
	HeaderText      string
	TotalPoints     string
	ExpectedCommits int
	Feedback        string
	FeedbackGrade   string
	FeedbackManual  string
	SpacingTable    string
	ReportBefore    string
	ReportAfter     string
	Signature       string
}

type Renderer struct {
	settings *Settings
	tmpl     *template.Template
	before   string
	after    string
}

// NewRenderer loads the template and the optional report files named in s. A report
// file that does not exist is treated as empty.
func NewRenderer(s *Settings) (*Renderer, error) {
	text, err := os.ReadFile(s.Template)
	if err != nil {
		return nil, fmt.Errorf("failed to read template: %w", err)
	}
	r, err := NewRendererFromText(s, string(text))
	if err != nil {
		return nil, err
	}
	if r.before, err = readOptional(s.ReportBefore); err != nil {
		return nil, err
	}
	if r.after, err = readOptional(s.ReportAfter); err != nil {
		return nil, err
	}
	return r, nil
}

func NewRendererFromText(s *Settings, text string) (*Renderer, error) {
	tmpl, err := template.New("feedback").
		Option("missingkey=error").
		Funcs(template.FuncMap{
			"mark": func(string) (string, error) { return "", nil },
			"left": left,
		}).
		Parse(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}
	return &Renderer{settings: s, tmpl: tmpl}, nil
}

// Validate executes the template against row and reports every column it needs that
// row lacks, all at once.
func (r *Renderer) Validate(row table.Row) error {
	msg, missing := r.message(row)
	seen := make(map[string]bool)
	for _, m := range missing {
		seen[m] = true
	}
	mark := func(col string) (string, error) {
		if !row.Has(col) {
			seen[col] = true
		}
		return "", nil
	}
	if err := r.execute(io.Discard, mark, msg); err != nil {
		return err
	}
	if len(seen) == 0 {
		return nil
	}
	cols := make([]string, 0, len(seen))
	for c := range seen {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return fmt.Errorf("%w: %s", ErrMissingField, strings.Join(cols, ", "))
}

// Render fills the template. A missing column is an error.
func (r *Renderer) Render(row table.Row) (string, error) {
	msg, missing := r.message(row)
	if len(missing) > 0 {
		return "", fmt.Errorf("%w: %s", ErrMissingField, strings.Join(missing, ", "))
	}
	mark := func(col string) (string, error) {
		if !row.Has(col) {
			return "", fmt.Errorf("%w: %s", ErrMissingField, col)
		}
		return FormatValue(row[col]), nil
	}
	var buf bytes.Buffer
	if err := r.execute(&buf, mark, msg); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (r *Renderer) execute(w io.Writer, mark func(string) (string, error), msg Message) error {
	t, err := r.tmpl.Clone()
	if err != nil {
		return err
	}
	if err := t.Funcs(template.FuncMap{"mark": mark}).Execute(w, msg); err != nil {
		return fmt.Errorf("failed to render template: %w", err)
	}
	return nil
}

func (r *Renderer) message(row table.Row) (Message, []string) {
	s := r.settings
	feedback, missing := Collate(row, s.NoteFields)
	manual, missingManual := Collate(row, s.ManualFields)
	missing = append(missing, missingManual...)

	grade := ""
	if s.Columns.Feedback != "" {
		if row.Has(s.Columns.Feedback) {
			grade = FormatValue(row[s.Columns.Feedback])
		} else {
			missing = append(missing, s.Columns.Feedback)
		}
	}

	return Message{
		ProjectNo:       s.ProjectNo,
		HeaderText:      s.HeaderText,
		TotalPoints:     FormatValue(s.TotalPoints),
		ExpectedCommits: s.ExpectedCommits,
		Feedback:        feedback,
		FeedbackGrade:   grade,
		FeedbackManual:  manual,
		SpacingTable:    strings.Repeat("    ", 22),
		ReportBefore:    r.before,
		ReportAfter:     r.after,
		Signature:       s.Signature,
	}, missing
}

func left(s string) string {
	return `<div align="left">` + s + "</div>"
}

func readOptional(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}

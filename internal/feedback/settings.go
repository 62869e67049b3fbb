// Package feedback turns marking-spreadsheet rows into feedback messages: it decides
// whether a row is published at all, and renders the ones that are through a
// text/template document.
package feedback

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	DefaultNotePrefix   = "NOTE-"
	DefaultManualPrefix = "MANUAL-"

	// Disabled as the name of an optional column (feedback, repo) turns it off.
	Disabled = "-"
)

// Columns names the control columns of the marking sheet.
type Columns struct {
	ID            string `yaml:"id"`
	Batch         string `yaml:"batch"`
	Skip          string `yaml:"skip"`
	Dropped       string `yaml:"dropped"`
	Commit        string `yaml:"commit"`
	Certification string `yaml:"certification"`
	Feedback      string `yaml:"feedback"`
	Repo          string `yaml:"repo"`
}

// Settings is the per-project configuration of a feedback run.
type Settings struct {
	ProjectNo              int     `yaml:"project_no"`
	TotalPoints            float64 `yaml:"total_points"`
	ExpectedCommits        int     `yaml:"expected_commits"`
	HeaderText             string  `yaml:"header_text"`
	FinalMarking           bool    `yaml:"final_marking"`
	ResubmitLink           string  `yaml:"resubmit_link"`
	FixedSubmissionMessage string  `yaml:"fixed_submission_message"`
	Signature              string  `yaml:"signature"`

	Template     string `yaml:"template"`
	ReportBefore string `yaml:"report_before"`
	ReportAfter  string `yaml:"report_after"`

	NoteFields   []string `yaml:"note_fields"`
	ManualFields []string `yaml:"manual_fields"`
	NotePrefix   string   `yaml:"note_prefix"`
	ManualPrefix string   `yaml:"manual_prefix"`

	Columns Columns `yaml:"columns"`
}

// DefaultSettings returns settings with the sheet's usual column names.
func DefaultSettings() Settings {
	return Settings{
		NotePrefix:   DefaultNotePrefix,
		ManualPrefix: DefaultManualPrefix,
		Columns: Columns{
			ID:            "REPO_ID_SUFFIX",
			Batch:         "BATCH",
			Skip:          "SKIP",
			Dropped:       "DROPPED",
			Commit:        "COMMIT",
			Certification: "CERTIFICATION",
			Feedback:      "FEEDBACK",
			Repo:          "URL-REPO",
		},
	}
}

// LoadSettings reads a YAML settings file over the defaults. Relative file references
// are resolved against the settings file's directory.
func LoadSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}

	s := DefaultSettings()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse settings %s: %w", path, err)
	}
	s.fillDefaults()

	dir := filepath.Dir(path)
	for _, p := range []*string{&s.Template, &s.ReportBefore, &s.ReportAfter} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(dir, *p)
		}
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Settings) Validate() error {
	if s.Template == "" {
		return errors.New("settings: template is required")
	}
	if s.Columns.ID == "" {
		return errors.New("settings: columns.id is required")
	}
	return nil
}

// a YAML file that names only some columns keeps the defaults for the rest
func (s *Settings) fillDefaults() {
	def := DefaultSettings()
	if s.NotePrefix == "" {
		s.NotePrefix = def.NotePrefix
	}
	if s.ManualPrefix == "" {
		s.ManualPrefix = def.ManualPrefix
	}
	c, d := &s.Columns, def.Columns
	for _, pair := range [][2]*string{
		{&c.ID, &d.ID}, {&c.Batch, &d.Batch}, {&c.Skip, &d.Skip}, {&c.Dropped, &d.Dropped},
		{&c.Commit, &d.Commit}, {&c.Certification, &d.Certification},
		{&c.Feedback, &d.Feedback}, {&c.Repo, &d.Repo},
	} {
		if *pair[0] == "" {
			*pair[0] = *pair[1]
		}
	}
	for _, col := range []*string{&c.Feedback, &c.Repo} {
		if *col == Disabled {
			*col = ""
		}
	}
}

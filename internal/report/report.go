// Package report renders per-student answer reports from form-submission exports.
package report

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"coursekit/internal/table"
)

const (
	DefaultIDColumn  = "Student number"
	DefaultPerfectID = 9999999

	noAnswer     = "*No answer provided*"
	notAvailable = "N/A"
)

var (
	ErrInvalidStudentID = errors.New("invalid student number")
	ErrStudentNotFound  = errors.New("student not found")
	ErrNoQuestions      = errors.New("no question columns found")
)

// ParseStudentID accepts decimal student numbers only.
func ParseStudentID(s string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || id < 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidStudentID, s)
	}
	return id, nil
}

// FileName is the report file name for a student, e.g. report_3001234.md.
func FileName(id int, ext string) string {
	return fmt.Sprintf("report_%d.%s", id, strings.TrimPrefix(ext, "."))
}

type Options struct {
	Convention Convention
	IDColumn   string
	// Points holds per-question points keyed by the same id column; optional.
	Points    *table.Table
	PerfectID int
	// Extra is Markdown appended to every report after a rule.
	Extra string
}

// Generator renders reports for the students of one export.
type Generator struct {
	opts      Options
	exercises []Exercise
	answers   map[int]table.Row
	points    map[int]table.Row
}

func NewGenerator(answers *table.Table, opts Options) (*Generator, error) {
	if opts.Convention.Letter == 0 {
		opts.Convention = DefaultConvention()
	}
	if opts.IDColumn == "" {
		opts.IDColumn = DefaultIDColumn
	}
	if opts.PerfectID == 0 {
		opts.PerfectID = DefaultPerfectID
	}

	exercises := opts.Convention.GroupExercises(answers.Header)
	if len(exercises) == 0 {
		return nil, ErrNoQuestions
	}
	g := &Generator{
		opts:      opts,
		exercises: exercises,
		answers:   indexByID(answers, opts.IDColumn),
	}
	if opts.Points != nil {
		g.points = indexByID(opts.Points, opts.IDColumn)
	}
	return g, nil
}

// Exercises returns the question grouping used for every report.
func (g *Generator) Exercises() []Exercise {
	return g.exercises
}

// Render builds the Markdown report of one student.
func (g *Generator) Render(id int) (string, error) {
	row, ok := g.answers[id]
	if !ok {
		return "", fmt.Errorf("%w: %d", ErrStudentNotFound, id)
	}
	points := g.points[id]
	perfect := g.points[g.opts.PerfectID]

	var b strings.Builder
	name := strings.TrimSpace(row.String("First name") + " " + row.String("Last name"))
	fmt.Fprintf(&b, "# Student Answers - %s - Student no: %d\n\n", name, id)
	fmt.Fprintf(&b, "**Submitted:** %s\n\n", orNA(row, "Timestamp"))
	fmt.Fprintf(&b, "**Score:** %s\n\n", orNA(row, "Score"))

	for _, ex := range g.exercises {
		fmt.Fprintf(&b, "## Exercise %s (%s)\n\n", ex.Number, ex.Key)
		if points != nil {
			b.WriteString("| Question | Answer | Points |\n")
			b.WriteString("|----------|--------|--------|\n")
		} else {
			b.WriteString("| Question | Answer |\n")
			b.WriteString("|----------|--------|\n")
		}
		for _, q := range ex.Questions {
			answer := strings.TrimSpace(row.String(q.Header))
			if answer == "" {
				answer = noAnswer
			}
			answer = escapeCell(answer)

			if points == nil {
				fmt.Fprintf(&b, "| %s | %s |\n", q.Name, answer)
				continue
			}
			pts := orNA(points, q.Header)
			if perfect != nil {
				pts += " / " + orNA(perfect, q.Header)
			}
			fmt.Fprintf(&b, "| %s | %s | %s |\n", q.Name, answer, pts)
		}
		b.WriteString("\n")
	}

	if extra := strings.TrimSpace(g.opts.Extra); extra != "" {
		b.WriteString("---\n\n")
		b.WriteString(extra)
		b.WriteString("\n")
	}
	return b.String(), nil
}

var cellEscaper = strings.NewReplacer("|", `\|`, "\r\n", "<br>", "\n", "<br>", "\r", "<br>")

// escapeCell keeps an answer on one table row.
func escapeCell(s string) string {
	return cellEscaper.Replace(s)
}

func orNA(row table.Row, col string) string {
	if !row.Has(col) {
		return notAvailable
	}
	return row.String(col)
}

// rows whose id does not parse are not addressable and are left out
func indexByID(t *table.Table, col string) map[int]table.Row {
	idx := make(map[int]table.Row, len(t.Rows))
	for key, row := range t.Index(col) {
		if id, err := ParseStudentID(key); err == nil {
			idx[id] = row
		}
	}
	return idx
}

package feedback

import (
	"strings"

	"coursekit/internal/logging"
	"coursekit/internal/table"
)

// Outcome is the result for one row of the marking sheet.
type Outcome struct {
	ID       string
	Row      table.Row
	Decision Decision
	// Body is the rendered feedback; empty when the row is skipped or failed.
	Body string
	Err  error
}

type RunOptions struct {
	Check CheckOptions
	// Only restricts the run to these ids when non-empty.
	Only []string
}

// Summary counts outcomes per reason. Marked rows count under ReasonNone, failed rows
// under "error".
type Summary map[Reason]int

// Run decides and renders every row. A malformed row is logged and reported in its
// Outcome; it never stops the batch.
func (r *Renderer) Run(rows []table.Row, opts RunOptions, log *logging.Logger) ([]Outcome, Summary) {
	only := make(map[string]bool, len(opts.Only))
	for _, id := range opts.Only {
		only[id] = true
	}

	var outcomes []Outcome
	summary := make(Summary)
	for _, row := range rows {
		id := strings.TrimSpace(table.Format(row[r.settings.Columns.ID]))
		if id == "" || (len(only) > 0 && !only[id]) {
			continue
		}
		log.Info().Msgf("Processing %s", id)
		out := Outcome{ID: id, Row: row}

		d, err := r.settings.Check(id, row, opts.Check)
		if err != nil {
			log.At(1).Error().Err(err).Msgf("Repo %s is malformed, skipping", id)
			out.Err = err
			summary["error"]++
			outcomes = append(outcomes, out)
			continue
		}
		out.Decision = d
		if d.Skip {
			log.At(1).Warn().Msgf("Repo %s skipped: %s", id, d.Reason)
			summary[d.Reason]++
			outcomes = append(outcomes, out)
			continue
		}

		if err := r.Validate(row); err != nil {
			log.At(1).Error().Err(err).Msgf("Repo %s cannot be rendered, skipping", id)
			out.Err = err
			summary["error"]++
			outcomes = append(outcomes, out)
			continue
		}
		body, err := r.Render(row)
		if err != nil {
			log.At(1).Error().Err(err).Msgf("Repo %s cannot be rendered, skipping", id)
			out.Err = err
			summary["error"]++
			outcomes = append(outcomes, out)
			continue
		}
		out.Body = body
		summary[ReasonNone]++
		outcomes = append(outcomes, out)
	}
	return outcomes, summary
}

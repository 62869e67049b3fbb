package feedback

import (
	"errors"
	"fmt"
	"strings"

	"coursekit/internal/table"
)

// ErrMissingField marks a row without a column the decision or the template needs.
var ErrMissingField = errors.New("missing field")

// Reason codes why a row is not marked.
type Reason string

const (
	ReasonNone            Reason = ""
	ReasonNotBatch        Reason = "not batch"
	ReasonSkipFlag        Reason = "skip flag"
	ReasonDropped         Reason = "dropped"
	ReasonNoCommitOrCert  Reason = "no_commit_or_cert"
	ReasonNoCommitAndCert Reason = "no_commit_and_cert"
	ReasonNoCommit        Reason = "no_commit"
	ReasonNoCert          Reason = "no_cert"
)

const affirmative = "YES"

type Decision struct {
	Skip   bool
	Reason Reason
	// Message is the notice posted instead of feedback, if any.
	Message string
}

type CheckOptions struct {
	Batch string // empty means every batch
	Final bool
}

// Check decides whether row gets a feedback message. Rules are tried in order and the
// first one that applies wins: batch filter, skip flag, dropped flag, then the
// submission checks (final or non-final).
func (s *Settings) Check(id string, row table.Row, opts CheckOptions) (Decision, error) {
	cols := s.Columns
	need := []string{cols.Skip, cols.Dropped, cols.Commit, cols.Certification}
	if opts.Batch != "" {
		need = append(need, cols.Batch)
	}
	var missing []string
	for _, c := range need {
		if !row.Has(c) {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return Decision{}, fmt.Errorf("%w: %s", ErrMissingField, strings.Join(missing, ", "))
	}

	if opts.Batch != "" && strings.TrimSpace(FormatValue(row[cols.Batch])) != opts.Batch {
		return Decision{Skip: true, Reason: ReasonNotBatch}, nil
	}
	if truthy(row[cols.Skip]) {
		return Decision{Skip: true, Reason: ReasonSkipFlag}, nil
	}
	if truthy(row[cols.Dropped]) {
		return Decision{Skip: true, Reason: ReasonDropped, Message: s.droppedNotice(id)}, nil
	}

	hasCommit := truthy(row[cols.Commit])
	certified := strings.EqualFold(table.Format(row[cols.Certification]), affirmative)

	if opts.Final {
		if hasCommit && certified {
			return Decision{}, nil
		}
		return Decision{Skip: true, Reason: ReasonNoCommitOrCert, Message: s.finalRejection(id)}, nil
	}

	switch {
	case !hasCommit && !certified:
		return Decision{Skip: true, Reason: ReasonNoCommitAndCert, Message: s.noCommitAndCert(id)}, nil
	case !hasCommit:
		return Decision{Skip: true, Reason: ReasonNoCommit, Message: s.noCommit(id)}, nil
	case !certified:
		return Decision{Skip: true, Reason: ReasonNoCert, Message: s.noCert(id)}, nil
	}
	return Decision{}, nil
}

func (s *Settings) droppedNotice(id string) string {
	return fmt.Sprintf("Dear @%s: you seem to not be enrolled in the course anymore, so no marking is performed. "+
		"If this is an error, please let us know here. Otherwise, all the best!", id)
}

func (s *Settings) finalRejection(id string) string {
	return fmt.Sprintf("Dear @%s: incorrect or missing submission. No submission tag and/or no certification done; "+
		"no marking as per the assignment rules. :cry: Please use this as a useful feedback and learning opportunity and submit "+
		"correctly for next projects. You are responsible of submitting correctly as specified.", id)
}

func (s *Settings) noCommitAndCert(id string) string {
	return s.withResubmit(fmt.Sprintf("Dear @%s: no submission tag and no certification found, so nothing to mark. :cry:", id))
}

func (s *Settings) noCommit(id string) string {
	return s.withResubmit(fmt.Sprintf("Dear @%s: no submission tag found, so nothing to mark. :cry:", id))
}

func (s *Settings) noCert(id string) string {
	msg := fmt.Sprintf("Dear @%s: no certification found; no marking as per the assignment rules. :cry: "+
		"If you still want to submit (albeit with a discount), please fill certification ASAP.", id)
	if s.FixedSubmissionMessage != "" {
		msg += " " + s.FixedSubmissionMessage
	}
	return msg
}

func (s *Settings) withResubmit(msg string) string {
	if s.ResubmitLink != "" {
		msg += fmt.Sprintf(" If you still want to submit (albeit with a discount), [check this](%s).", s.ResubmitLink)
	}
	if s.FixedSubmissionMessage != "" {
		msg += " " + s.FixedSubmissionMessage
	}
	return msg
}

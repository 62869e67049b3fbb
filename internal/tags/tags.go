// Package tags finds, for a list of repositories, the commit a named tag points to
// when that commit falls inside a time window.
package tags

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"coursekit/internal/github"
	"coursekit/internal/logging"
	"coursekit/internal/structures"

	"github.com/gocarina/gocsv"
)

const (
	ShortHashLen = 7

	DefaultEvery = 10
	DefaultPause = 5 * time.Second
)

// API is what a lookup needs from GitHub.
type API interface {
	FindTag(ctx context.Context, repo, name string) (*github.Tag, error)
	GetCommit(ctx context.Context, repo, sha string) (*github.Commit, error)
	CheckWorkflowStatusForTag(ctx context.Context, repo, tag string) (*github.WorkflowStatus, error)
}

// Throttle pauses for Pause before every Every-th repository.
type Throttle struct {
	Every int
	Pause time.Duration
	Sleep func(ctx context.Context, d time.Duration) error
}

func DefaultThrottle() Throttle {
	return Throttle{Every: DefaultEvery, Pause: DefaultPause, Sleep: sleep}
}

func (t Throttle) wait(ctx context.Context, k int) (bool, error) {
	if t.Every <= 0 || k%t.Every != 0 {
		return false, nil
	}
	s := t.Sleep
	if s == nil {
		s = sleep
	}
	return true, s(ctx, t.Pause)
}

type Lookup struct {
	API      API
	Location *time.Location
	Throttle Throttle
	// Workflow also logs the status of the workflow run triggered by each found tag.
	Workflow bool
	Log      *logging.Logger
}

// Run looks up tag in every repository, in order. Repositories without the tag or
// with a tag outside w are logged and left out, as are records naming no repository.
// Any other API failure, including a repository that cannot be read, aborts the run.
func (l *Lookup) Run(ctx context.Context, repos []structures.RepoRecord, tag string, w Window) ([]structures.TagRecord, error) {
	log := l.Log
	if log == nil {
		log = logging.Nop()
	}
	loc := l.Location
	if loc == nil {
		loc = time.Local
	}

	var records []structures.TagRecord
	for k, r := range repos {
		k++
		if paused, err := l.Throttle.wait(ctx, k); err != nil {
			return nil, err
		} else if paused {
			log.Info().Msgf("Slept for %s", l.Throttle.Pause)
		}

		repo, err := repoName(r)
		if err != nil {
			log.At(1).Error().Err(err).Msgf("Skipping repo %d/%d", k, len(repos))
			continue
		}
		log.Info().Msgf("Processing repo %d/%d: %s:%s (https://github.com/%s)...", k, len(repos), r.No, r.ID, repo)
		sub := log.At(1)

		found, err := l.API.FindTag(ctx, repo, tag)
		if errors.Is(err, github.ErrNotFound) {
			sub.Warn().Msgf("Tag '%s' not found.", tag)
			continue
		}
		if err != nil {
			return nil, err
		}
		commit, err := l.API.GetCommit(ctx, repo, found.SHA)
		if err != nil {
			return nil, err
		}

		date := commit.AuthorDate.In(loc)
		if !w.Contains(date) {
			sub.Warn().Msgf("Tag '%s' found but outside date range (%s).", tag, date.Format(time.RFC3339))
			continue
		}
		short := found.SHA
		if len(short) > ShortHashLen {
			short = short[:ShortHashLen]
		}
		sub.Info().Str("author", commit.AuthorName).
			Msgf("Found tag '%s' on commit %s with commit date %s", found.Name, short, date.Format(time.RFC3339))

		if l.Workflow {
			l.logWorkflow(ctx, sub, repo, tag)
		}

		records = append(records, structures.TagRecord{
			RepoID: r.ID,
			Tag:    found.Name,
			Commit: short,
			Date:   date.Format(time.RFC3339),
		})
	}
	return records, nil
}

func (l *Lookup) logWorkflow(ctx context.Context, log *logging.Logger, repo, tag string) {
	st, err := l.API.CheckWorkflowStatusForTag(ctx, repo, tag)
	if err != nil {
		log.Warn().Err(err).Msg("No workflow status")
		return
	}
	ev := log.Info()
	if st.Status == "completed" && st.Conclusion != "success" {
		ev = log.Warn()
	}
	ev.Int64("run", st.RunID).Str("url", st.HTMLURL).
		Msgf("Workflow %s %s", st.Status, st.Conclusion)
}

// ReadRepos loads a repository list. A non-empty only keeps the listed REPO_ID_SUFFIX
// values, in file order.
func ReadRepos(path string, only []string) ([]structures.RepoRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open repo list: %w", err)
	}
	defer f.Close()

	var all []structures.RepoRecord
	if err := gocsv.UnmarshalFile(f, &all); err != nil {
		return nil, fmt.Errorf("failed to parse repo list %s: %w", path, err)
	}
	if len(only) == 0 {
		return all, nil
	}
	keep := make(map[string]bool, len(only))
	for _, id := range only {
		keep[id] = true
	}
	var repos []structures.RepoRecord
	for _, r := range all {
		if keep[strings.TrimSpace(r.ID)] {
			repos = append(repos, r)
		}
	}
	return repos, nil
}

// WriteRecords writes the output table in one go.
func WriteRecords(path string, records []structures.TagRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if records == nil {
		records = []structures.TagRecord{}
	}
	if err := gocsv.MarshalFile(&records, f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

// repoName prefers REPO_ID and falls back to the name in REPO_URL.
func repoName(r structures.RepoRecord) (string, error) {
	if name := strings.TrimSpace(r.Name); name != "" {
		return github.ParseRepoName(name)
	}
	if r.URL != "" {
		return github.ParseRepoName(r.URL)
	}
	return "", fmt.Errorf("repo %s has neither REPO_ID nor REPO_URL", r.ID)
}

// OutputName is the default output file for a run started at now.
func OutputName(now time.Time) string {
	return fmt.Sprintf("tags-repos-%s.csv", now.Format("20060102-150405"))
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

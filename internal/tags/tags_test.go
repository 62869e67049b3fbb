package tags

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"coursekit/internal/github"
	"coursekit/internal/structures"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var melbourne = mustLocation("Australia/Melbourne")

func mustLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

// fakeGitHub serves one "submission" tag per repo, committed at the given UTC time.
func fakeGitHub(t *testing.T, commits map[string]string) *github.Client {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/", func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/repos/"), "/")
		repo := parts[0] + "/" + parts[1]
		date, ok := commits[repo]
		sha := fmt.Sprintf("%040x", len(repo))
		switch {
		case parts[2] == "tags" && ok:
			fmt.Fprintf(w, `[{"name":"v0","commit":{"sha":"x"}},{"name":"submission","commit":{"sha":"%s"}}]`, sha)
		case parts[2] == "tags":
			fmt.Fprint(w, `[]`)
		case parts[2] == "commits":
			fmt.Fprintf(w, `{"sha":"%s","commit":{"author":{"name":"Student","date":"%s"}}}`, sha, date)
		case parts[2] == "actions":
			fmt.Fprint(w, `{"workflow_runs":[{"id":7,"status":"completed","conclusion":"success","head_branch":"submission"}]}`)
		default:
			http.NotFound(w, r)
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return github.NewClient(context.Background(), "", github.WithBaseURL(srv.URL))
}

func TestRunKeepsTagsInsideWindow(t *testing.T) {
	client := fakeGitHub(t, map[string]string{
		"org/p2-in":   "2025-10-07T04:00:00Z", // 15:00 in Melbourne
		"org/p2-late": "2025-10-07T05:00:00Z", // 16:00
	})
	w, err := NewWindow("2025-10-01T00:00", "2025-10-07T15:30", melbourne, time.Now())
	require.NoError(t, err)

	l := &Lookup{API: client, Location: melbourne}
	got, err := l.Run(context.Background(), []structures.RepoRecord{
		{No: "1", ID: "in", Name: "org/p2-in"},
		{No: "2", ID: "late", Name: "org/p2-late"},
		{No: "3", ID: "none", Name: "org/p2-none"},
	}, "submission", w)
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, structures.TagRecord{
		RepoID: "in",
		Tag:    "submission",
		Commit: fmt.Sprintf("%040x", len("org/p2-in"))[:7],
		Date:   "2025-10-07T15:00:00+11:00",
	}, got[0])
	assert.Len(t, got[0].Commit, ShortHashLen)
}

func TestRunAbortsOnAPIFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad credentials", http.StatusUnauthorized)
	}))
	defer srv.Close()

	l := &Lookup{API: github.NewClient(context.Background(), "", github.WithBaseURL(srv.URL))}
	got, err := l.Run(context.Background(), []structures.RepoRecord{{ID: "a", Name: "org/a"}}, "submission", Window{})
	assert.Error(t, err)
	assert.Nil(t, got)
}

func TestRunAbortsOnUnreadableRepo(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	l := &Lookup{API: github.NewClient(context.Background(), "", github.WithBaseURL(srv.URL))}
	got, err := l.Run(context.Background(), []structures.RepoRecord{
		{ID: "a", Name: "org/a"},
		{ID: "b", Name: "org/b"},
	}, "submission", Window{})
	assert.True(t, errors.Is(err, github.ErrRepoNotFound))
	assert.Nil(t, got)
}

func TestRunSkipsRecordWithoutRepo(t *testing.T) {
	client := fakeGitHub(t, map[string]string{"org/ok": "2025-10-07T04:00:00Z"})
	w, err := NewWindow("2025-10-01T00:00", "2025-10-08T00:00", melbourne, time.Now())
	require.NoError(t, err)

	l := &Lookup{API: client, Location: melbourne}
	got, err := l.Run(context.Background(), []structures.RepoRecord{
		{No: "1", ID: "broken"},
		{No: "2", ID: "ok", Name: "org/ok"},
	}, "submission", w)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "ok", got[0].RepoID)
}

func TestThrottlePausesEveryNthRepo(t *testing.T) {
	commits := make(map[string]string)
	var repos []structures.RepoRecord
	for i := 0; i < 25; i++ {
		name := fmt.Sprintf("org/r%d", i)
		commits[name] = "2025-10-07T04:00:00Z"
		repos = append(repos, structures.RepoRecord{ID: fmt.Sprint(i), Name: name})
	}
	var pauses []time.Duration
	l := &Lookup{
		API:      fakeGitHub(t, commits),
		Location: melbourne,
		Throttle: Throttle{Every: 10, Pause: 5 * time.Second, Sleep: func(_ context.Context, d time.Duration) error {
			pauses = append(pauses, d)
			return nil
		}},
		Workflow: true,
	}

	got, err := l.Run(context.Background(), repos, "submission", Window{Until: time.Now()})
	require.NoError(t, err)
	assert.Len(t, got, 25)
	assert.Equal(t, []time.Duration{5 * time.Second, 5 * time.Second}, pauses)
}

func TestThrottleHonoursCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	paused, err := DefaultThrottle().wait(ctx, 10)
	assert.True(t, paused)
	assert.ErrorIs(t, err, context.Canceled)

	paused, err = DefaultThrottle().wait(ctx, 3)
	assert.False(t, paused)
	assert.NoError(t, err)
}

func TestNewWindow(t *testing.T) {
	now := time.Date(2025, 10, 8, 0, 0, 0, 0, time.UTC)

	w, err := NewWindow("", "", melbourne, now)
	require.NoError(t, err)
	assert.True(t, w.Since.Equal(time.Date(2000, 1, 1, 0, 0, 0, 0, melbourne)))
	assert.True(t, w.Until.Equal(now))

	w, err = NewWindow("2025-10-07T15:30", "2025-10-09T00:00:00Z", melbourne, now)
	require.NoError(t, err)
	assert.True(t, w.Since.Equal(time.Date(2025, 10, 7, 4, 30, 0, 0, time.UTC)), "naive time is Melbourne wall time")
	assert.True(t, w.Until.Equal(time.Date(2025, 10, 9, 0, 0, 0, 0, time.UTC)), "offset is kept")

	assert.True(t, w.Contains(w.Since))
	assert.True(t, w.Contains(w.Until))
	assert.False(t, w.Contains(w.Until.Add(time.Second)))

	_, err = NewWindow("yesterday", "", melbourne, now)
	assert.Error(t, err)
	_, err = NewWindow("2025-10-09", "2025-10-08", melbourne, now)
	assert.Error(t, err)
}

func TestReadReposAndWriteRecords(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "repos.csv")
	require.NoError(t, os.WriteFile(in, []byte(
		"NO,REPO_ID_SUFFIX,REPO_ID,REPO_URL\n"+
			"1,alice,org/p2-alice,https://github.com/org/p2-alice\n"+
			"2,bob,,https://github.com/org/p2-bob\n"+
			"3,carol,org/p2-carol,\n"), 0o644))

	repos, err := ReadRepos(in, nil)
	require.NoError(t, err)
	require.Len(t, repos, 3)
	name, err := repoName(repos[1])
	require.NoError(t, err)
	assert.Equal(t, "org/p2-bob", name)

	repos, err = ReadRepos(in, []string{"carol", "alice"})
	require.NoError(t, err)
	require.Len(t, repos, 2)
	assert.Equal(t, "alice", repos[0].ID)

	out := filepath.Join(dir, "out.csv")
	require.NoError(t, WriteRecords(out, []structures.TagRecord{
		{RepoID: "alice", Tag: "submission", Commit: "abc1234", Date: "2025-10-07T15:00:00+11:00"},
	}))
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "REPO_ID_SUFFIX,TAG,COMMIT,DATE\nalice,submission,abc1234,2025-10-07T15:00:00+11:00\n", string(data))
}

func TestOutputName(t *testing.T) {
	assert.Equal(t, "tags-repos-20251007-153000.csv", OutputName(time.Date(2025, 10, 7, 15, 30, 0, 0, time.UTC)))
}

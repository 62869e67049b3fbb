package cmd

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"coursekit/internal/feedback"
	"coursekit/internal/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points the user config dir at a temp dir so tests never read the real config.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("HOME", dir)
	return dir
}

func run(t *testing.T, args ...string) error {
	t.Helper()
	rootCmd.SetArgs(append(args, "--log-format", "bare", "--no-color"))
	return rootCmd.Execute()
}

func TestReportCommand(t *testing.T) {
	dir := isolate(t)
	src := filepath.Join(dir, "answers.csv")
	require.NoError(t, os.WriteFile(src, []byte(
		"Timestamp,First name,Last name,Student number,Score,E1. Explain\n"+
			"2025-09-01,Alice,Smith,3001234,7,because a | b\n"), 0o644))
	out := filepath.Join(dir, "reports")

	err := run(t, "report", src, out, "3001234", "s42", "3009999")
	require.Error(t, err, "an invalid id makes the run fail after the batch")
	assert.Contains(t, err.Error(), "1 invalid student number")

	data, err := os.ReadFile(filepath.Join(out, "report_3001234.md"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `| E1 | because a \| b |`)
	_, err = os.Stat(filepath.Join(out, "report_3009999.md"))
	assert.True(t, os.IsNotExist(err))
}

func TestReportCommandMissingSource(t *testing.T) {
	dir := isolate(t)
	err := run(t, "report", filepath.Join(dir, "nope.csv"), dir, "3001234")
	assert.Error(t, err)
}

func TestFeedbackCommand(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "marking.tmpl"),
		[]byte(`Points for {{mark "REPO_ID_SUFFIX"}}: {{mark "POINTS"}} {{left .Feedback}}`), 0o644))
	settings := filepath.Join(dir, "feedback.yaml")
	require.NoError(t, os.WriteFile(settings, []byte("template: marking.tmpl\nnote_fields: [NOTE-Q1]\n"), 0o644))
	src := filepath.Join(dir, "marking.csv")
	require.NoError(t, os.WriteFile(src, []byte(
		"REPO_ID_SUFFIX,BATCH,SKIP,DROPPED,COMMIT,CERTIFICATION,FEEDBACK,POINTS,NOTE-Q1,NOTE-EXTRA\n"+
			"alice,1,FALSE,FALSE,abc1234,YES,Good,12.50,fine,x\n"+
			"bob,1,FALSE,TRUE,abc1234,YES,,3,,\n"+
			"carol,1,TRUE,FALSE,,,,,,\n"), 0o644))
	out := filepath.Join(dir, "out")

	require.NoError(t, run(t, "feedback", src, out, "--settings", settings))

	data, err := os.ReadFile(filepath.Join(out, "alice.md"))
	require.NoError(t, err)
	assert.Equal(t, `Points for alice: 12.5 <div align="left">fine</div>`, string(data))

	notice, err := os.ReadFile(filepath.Join(out, "bob-notice.md"))
	require.NoError(t, err)
	assert.Contains(t, string(notice), "Dear @bob")

	_, err = os.Stat(filepath.Join(out, "carol-notice.md"))
	assert.True(t, os.IsNotExist(err), "skip flag has no notice")
}

func TestGithubTokenResolution(t *testing.T) {
	dir := isolate(t)
	cfg.GitHubTokenFile = ""

	_, err := githubToken("")
	assert.Error(t, err)

	_, err = githubToken(filepath.Join(dir, "missing"))
	assert.Error(t, err, "an explicit path must exist")

	path := filepath.Join(dir, "token")
	require.NoError(t, os.WriteFile(path, []byte("ghp_x\n"), 0o600))
	cfg.GitHubTokenFile = path
	token, err := githubToken("")
	require.NoError(t, err)
	assert.Equal(t, "ghp_x", token)
}

func TestLogSummary(t *testing.T) {
	l, err := logging.Setup(logging.Options{Layout: logging.LayoutBare, Out: &testWriter{t: t}, Location: time.UTC})
	require.NoError(t, err)
	logSummary(l.Logger("feedback"), feedback.Summary{"": 2, feedback.ReasonDropped: 1})
}

func TestPollRejectsBadFlags(t *testing.T) {
	dir := isolate(t)
	t.Cleanup(func() {
		pollInterval, pollTimeout, tokenFile = 30*time.Second, 30*time.Minute, ""
	})

	tests := []struct {
		name string
		args []string
	}{
		{"zero interval", []string{"--interval", "0s"}},
		{"negative timeout", []string{"--interval", "1s", "--timeout", "-1m"}},
		{"missing token file", []string{"--interval", "1s", "--timeout", "1m", "-t", filepath.Join(dir, "missing")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := run(t, append([]string{"poll", "org/r", "submission"}, tt.args...)...)
			assert.Error(t, err)
		})
	}
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "45s", formatDuration(45*time.Second))
	assert.Equal(t, "2m5s", formatDuration(125*time.Second))
	assert.Equal(t, "1h0m1s", formatDuration(time.Hour+time.Second))
}

type testWriter struct{ t *testing.T }

func (w *testWriter) Write(p []byte) (int, error) {
	assert.Equal(w.t, "INFO | Finished: marked=2 dropped=1\n", string(p))
	return len(p), nil
}

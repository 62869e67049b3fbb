package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"coursekit/internal/feedback"
	"coursekit/internal/github"
	"coursekit/internal/logging"

	"github.com/spf13/cobra"
)

var (
	settingsPath    string
	feedbackBatch   string
	feedbackFinal   bool
	feedbackRepos   []string
	feedbackPost    bool
	feedbackPR      int
	tokenFile       string
	feedbackPreview bool
)

var feedbackCmd = &cobra.Command{
	Use:   "feedback SOURCE OUTDIR",
	Short: "Render feedback messages from the marking sheet",
	Long: `Render one feedback message per marked repository. SOURCE is a CSV or XLSX export
of the marking sheet, or sheet:TAB to read the configured Google Sheet directly.

Marked rows produce OUTDIR/<id>.md; rows that are not marked but deserve an explanation
(dropped, missing tag, missing certification) produce OUTDIR/<id>-notice.md.`,
	Args: cobra.ExactArgs(2),
	RunE: runFeedback,
}

func runFeedback(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	log := logs.Logger("feedback")
	source, outDir := args[0], args[1]

	settings, err := feedback.LoadSettings(settingsPath)
	if err != nil {
		return err
	}
	renderer, err := feedback.NewRenderer(settings)
	if err != nil {
		return err
	}

	tbl, err := loadTable(ctx, source)
	if err != nil {
		return err
	}
	if !isSheet(source) {
		feedback.NormalizeTable(tbl)
	}
	log.Info().Msgf("Loaded %d rows from %s", len(tbl.Rows), source)
	unknown := feedback.UnknownFields(tbl.Header,
		[]string{settings.NotePrefix, settings.ManualPrefix},
		settings.NoteFields, settings.ManualFields)
	for _, col := range unknown {
		log.At(1).Warn().Msgf("Column %s looks like a note but is not listed in the settings; ignored", col)
	}

	var client *github.Client
	if feedbackPost {
		if feedbackPR <= 0 {
			return errors.New("--post needs --pr")
		}
		token, err := githubToken(tokenFile)
		if err != nil {
			return err
		}
		client = github.NewClient(ctx, token)
	}

	opts := feedback.RunOptions{
		Check: feedback.CheckOptions{Batch: feedbackBatch, Final: feedbackFinal || settings.FinalMarking},
		Only:  feedbackRepos,
	}
	outcomes, summary := renderer.Run(tbl.Rows, opts, log)

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	for _, out := range outcomes {
		text, name := out.Body, out.ID+".md"
		if out.Body == "" {
			text, name = out.Decision.Message, out.ID+"-notice.md"
		}
		if text == "" {
			continue
		}
		path := filepath.Join(outDir, name)
		if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		log.At(1).Debug().Msgf("Wrote %s", path)

		if feedbackPreview {
			if err := preview(text); err != nil {
				return err
			}
		}
		if client != nil {
			if err := postFeedback(cmd, client, log, settings, out, text); err != nil {
				return err
			}
		}
	}

	logSummary(log, summary)
	return nil
}

func postFeedback(cmd *cobra.Command, client *github.Client, log *logging.Logger, s *feedback.Settings, out feedback.Outcome, text string) error {
	repo, err := github.ParseRepoName(out.Row.String(s.Columns.Repo))
	if err != nil {
		log.At(1).Error().Err(err).Msgf("Repo %s has no usable %s, not posted", out.ID, s.Columns.Repo)
		return nil
	}
	u, err := client.CreateIssueComment(cmd.Context(), repo, feedbackPR, text)
	if err != nil {
		return err
	}
	log.At(1).Info().Msgf("Posted to %s", u)
	return nil
}

func logSummary(log *logging.Logger, summary feedback.Summary) {
	reasons := make([]string, 0, len(summary))
	for r := range summary {
		reasons = append(reasons, string(r))
	}
	sort.Strings(reasons)
	parts := make([]string, 0, len(reasons))
	for _, r := range reasons {
		label := r
		if r == "" {
			label = "marked"
		}
		parts = append(parts, fmt.Sprintf("%s=%d", label, summary[feedback.Reason(r)]))
	}
	log.Info().Msgf("Finished: %s", strings.Join(parts, " "))
}

func init() {
	f := feedbackCmd.Flags()
	f.StringVarP(&settingsPath, "settings", "s", "feedback.yaml", "Project settings (YAML)")
	f.StringVar(&feedbackBatch, "batch", "", "Only publish rows of this batch")
	f.BoolVar(&feedbackFinal, "final", false, "Final marking: no more resubmissions")
	f.StringSliceVar(&feedbackRepos, "repos", nil, "Only these REPO_ID_SUFFIX values")
	f.BoolVar(&feedbackPost, "post", false, "Post the messages as comments on the feedback pull request")
	f.IntVar(&feedbackPR, "pr", 1, "Feedback pull request number")
	f.StringVarP(&tokenFile, "token-file", "t", "", "File containing the GitHub token")
	f.BoolVar(&feedbackPreview, "preview", false, "Print each message rendered for the terminal")
	rootCmd.AddCommand(feedbackCmd)
}

package cmd

import (
	"errors"
	"fmt"
	"time"

	"coursekit/internal/github"
	"coursekit/internal/notification"

	"github.com/spf13/cobra"
)

var (
	pollInterval time.Duration
	pollTimeout  time.Duration
	noNotify     bool
)

var pollCmd = &cobra.Command{
	Use:   "poll REPO TAG",
	Short: "Watch the automarking workflow run of a submission tag",
	Long: `Monitor the GitHub Actions run triggered by TAG in REPO (owner/name or URL) and get
notified when it completes. Useful after re-tagging a late or fixed submission.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		log := logs.Logger("poll")
		tag := args[1]

		if pollInterval <= 0 || pollTimeout <= 0 {
			return fmt.Errorf("--interval and --timeout must be positive, got %s and %s", pollInterval, pollTimeout)
		}
		repo, err := github.ParseRepoName(args[0])
		if err != nil {
			return err
		}
		token, err := githubToken(tokenFile)
		if err != nil {
			if tokenFile != "" {
				return err
			}
			log.Warn().Msg("No GitHub token configured. API rate limits will be very restrictive.")
		}
		client := github.NewClient(ctx, token)

		log.Info().Msgf("Polling workflow for tag %s of %s (interval %s, timeout %s)", tag, repo, pollInterval, pollTimeout)

		startTime := time.Now()
		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()

		for {
			status, err := client.CheckWorkflowStatusForTag(ctx, repo, tag)
			switch {
			case errors.Is(err, github.ErrNotFound):
				// the workflow might not have started yet
				log.At(1).Info().Msgf("Waiting for workflow to start... (%s elapsed)", formatDuration(time.Since(startTime)))
			case err != nil:
				return err
			case status.Status == "completed":
				report := log.Info()
				if status.Conclusion != "success" {
					report = log.Warn()
				}
				report.Str("url", status.HTMLURL).Msgf("Workflow completed: %s", status.Conclusion)
				if !noNotify {
					_ = notification.Send(log, "Workflow "+status.Conclusion, fmt.Sprintf("Tag %s of %s: %s", tag, repo, status.Conclusion))
				}
				return nil
			default:
				log.At(1).Info().Msgf("Status: %s (running for %s)", status.Status, formatDuration(time.Since(status.CreatedAt)))
			}

			if time.Since(startTime) > pollTimeout {
				return fmt.Errorf("timeout reached after %s", formatDuration(pollTimeout))
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
		}
	},
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%dm%ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm%ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}

func init() {
	pollCmd.Flags().DurationVarP(&pollInterval, "interval", "i", 30*time.Second, "Polling interval")
	pollCmd.Flags().DurationVar(&pollTimeout, "timeout", 30*time.Minute, "Give up after this long")
	pollCmd.Flags().BoolVar(&noNotify, "no-notify", false, "Disable desktop notifications")
	pollCmd.Flags().StringVarP(&tokenFile, "token-file", "t", "", "File containing the GitHub token")
	rootCmd.AddCommand(pollCmd)
}

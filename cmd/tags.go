package cmd

import (
	"errors"
	"fmt"
	"time"

	"coursekit/internal/github"
	"coursekit/internal/notification"
	"coursekit/internal/tags"

	"github.com/spf13/cobra"
)

var (
	tagRepos    []string
	tagSince    string
	tagUntil    string
	tagWorkflow bool
	tagSheet    string
	tagSheetCol string
	tagNotify   bool
	tagEvery    int
	tagPause    time.Duration
)

var tagsCmd = &cobra.Command{
	Use:   "tags REPO_CSV TAG [OUT_CSV]",
	Short: "Find the repositories tagged inside a time window",
	Long: `For each repository in REPO_CSV (columns NO, REPO_ID_SUFFIX, REPO_ID, REPO_URL) look up TAG
and keep it when its commit date falls between --since and --until (both inclusive).
Timestamps without an offset are read in the configured time zone.

The result (REPO_ID_SUFFIX, TAG, COMMIT, DATE) is written once at the end to OUT_CSV,
by default tags-repos-<timestamp>.csv.`,
	Example: `  coursekit tags repos.csv submission -t ~/.ssh/keys/gh-token.txt --since 2025-10-07T15:30`,
	Args:    cobra.RangeArgs(2, 3),
	RunE:    runTags,
}

func runTags(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	log := logs.Logger("tags")
	now := time.Now().In(loc)
	log.Info().Msgf("Starting tag lookup on %s: %s", loc, now.Format(time.RFC3339))

	out := tags.OutputName(now)
	if len(args) == 3 {
		out = args[2]
	}
	window, err := tags.NewWindow(tagSince, tagUntil, loc, now)
	if err != nil {
		return err
	}

	repos, err := tags.ReadRepos(args[0], tagRepos)
	if err != nil {
		return err
	}
	if len(repos) == 0 {
		log.Error().Msgf("No repos found in the mapping file %q. Stopping.", args[0])
		return nil
	}

	token, err := githubToken(tokenFile)
	if err != nil {
		return err
	}
	lookup := &tags.Lookup{
		API:      github.NewClient(ctx, token),
		Location: loc,
		Throttle: tags.DefaultThrottle(),
		Workflow: tagWorkflow,
		Log:      log,
	}
	lookup.Throttle.Every, lookup.Throttle.Pause = tagEvery, tagPause

	log.Info().Msgf("Getting tags from %s until %s", window.Since.Format(time.RFC3339), window.Until.Format(time.RFC3339))
	records, err := lookup.Run(ctx, repos, args[1], window)
	if err != nil {
		var apiErr *github.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == 401 {
			return fmt.Errorf("GitHub authentication failed, check the token: %w", err)
		}
		return err
	}

	if err := tags.WriteRecords(out, records); err != nil {
		return err
	}
	log.Info().Msgf("Finished! No of repos processed: %d - Found: %d - Output written to %s", len(repos), len(records), out)

	if tagSheet != "" {
		svc, err := sheetService(ctx)
		if err != nil {
			return err
		}
		commits := make(map[string]string, len(records))
		for _, r := range records {
			commits[r.RepoID] = r.Commit
		}
		n, err := svc.UpdateColumn(ctx, cfg.SheetID, tagSheet, "REPO_ID_SUFFIX", tagSheetCol, commits)
		if err != nil {
			return err
		}
		log.Info().Msgf("Updated %d %s cells in sheet %s", n, tagSheetCol, tagSheet)
	}

	if tagNotify {
		_ = notification.Send(log, "Tags done", fmt.Sprintf("%d of %d repos tagged %s", len(records), len(repos), args[1]))
	}
	return nil
}

func init() {
	f := tagsCmd.Flags()
	f.StringSliceVar(&tagRepos, "repos", nil, "Only these REPO_ID_SUFFIX values")
	f.StringVarP(&tokenFile, "token-file", "t", "", "File containing the GitHub token")
	f.StringVar(&tagSince, "since", tags.DefaultSince, "Keep tags committed at or after this ISO time, e.g. 2025-04-09T15:30")
	f.StringVar(&tagUntil, "until", "", "Keep tags committed at or before this ISO time (default now)")
	f.BoolVar(&tagWorkflow, "workflow", false, "Also report the automarking workflow status of each tag")
	f.StringVar(&tagSheet, "sheet", "", "Write the short hashes back into this tab of the marking sheet")
	f.StringVar(&tagSheetCol, "sheet-column", "COMMIT", "Column to write with --sheet")
	f.BoolVar(&tagNotify, "notify", false, "Desktop notification when done")
	f.IntVar(&tagEvery, "sleep-every", tags.DefaultEvery, "Pause after this many repositories")
	f.DurationVar(&tagPause, "sleep", tags.DefaultPause, "Length of each pause")
	rootCmd.AddCommand(tagsCmd)
}

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"coursekit/internal/config"
	"coursekit/internal/github"
	"coursekit/internal/sheets"
	"coursekit/internal/table"

	"github.com/charmbracelet/glamour"
)

const sheetPrefix = "sheet:"

// isSheet reports whether source names a tab of the configured Google Sheet.
func isSheet(source string) bool {
	return strings.HasPrefix(source, sheetPrefix)
}

func sheetService(ctx context.Context) (*sheets.Service, error) {
	if cfg.SheetID == "" || cfg.CredentialsPath == "" {
		return nil, errors.New("no Google Sheet configured, run 'coursekit init' first")
	}
	svc, err := sheets.NewService(ctx, cfg.CredentialsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	return svc, nil
}

// loadTable reads a CSV or XLSX file, or "sheet:TAB" from the configured sheet.
func loadTable(ctx context.Context, source string) (*table.Table, error) {
	if !isSheet(source) {
		return table.Open(source)
	}
	svc, err := sheetService(ctx)
	if err != nil {
		return nil, err
	}
	return svc.ReadTable(ctx, cfg.SheetID, strings.TrimPrefix(source, sheetPrefix))
}

// githubToken resolves the token from the flag, the config, then the file saved by init.
func githubToken(flagPath string) (string, error) {
	paths := []string{flagPath, cfg.GitHubTokenFile}
	if p, err := config.TokenPath(); err == nil {
		paths = append(paths, p)
	}
	for _, p := range paths {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) && p != flagPath {
			continue
		}
		return github.ReadToken(p)
	}
	return "", fmt.Errorf("%w: pass --token-file or run 'coursekit init'", github.ErrNoToken)
}

// preview renders Markdown for the terminal.
func preview(md string) error {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return err
	}
	out, err := r.Render(md)
	if err != nil {
		return err
	}
	fmt.Print(out)
	return nil
}

package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"coursekit/internal/notification"
	"coursekit/internal/pdf"
	"coursekit/internal/report"

	"github.com/spf13/cobra"
)

var (
	pointsSource  string
	perfectID     int
	reportPDF     bool
	extraFile     string
	idColumn      string
	reportPreview bool
	reportNotify  bool
)

var reportCmd = &cobra.Command{
	Use:   "report SOURCE OUTDIR STUDENT...",
	Short: "Generate per-student answer reports",
	Long: `Generate a Markdown report (and optionally a PDF) with a student's answers to a form,
grouped by exercise. SOURCE and --points are CSV or XLSX exports, or sheet:TAB.

Reports are written as OUTDIR/report_<student>.md and OUTDIR/report_<student>.pdf.`,
	Args: cobra.MinimumNArgs(3),
	RunE: runReport,
}

func runReport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	log := logs.Logger("report")
	source, outDir, students := args[0], args[1], args[2:]

	if reportPDF && !pdf.Available() {
		return pdf.ErrUnavailable
	}

	answers, err := loadTable(ctx, source)
	if err != nil {
		return err
	}
	opts := report.Options{IDColumn: idColumn, PerfectID: perfectID}
	if pointsSource != "" {
		if opts.Points, err = loadTable(ctx, pointsSource); err != nil {
			return err
		}
	}
	if extraFile != "" {
		data, err := os.ReadFile(extraFile)
		if err != nil {
			return fmt.Errorf("failed to read extra markdown: %w", err)
		}
		opts.Extra = string(data)
	}
	gen, err := report.NewGenerator(answers, opts)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}

	var conv *pdf.Converter
	if reportPDF {
		if conv, err = pdf.NewConverter(ctx); err != nil {
			return err
		}
		defer conv.Close()
	}

	invalid, written := 0, 0
	for i, arg := range students {
		log.Info().Msgf("Processing student number %d/%d: %s", i+1, len(students), arg)
		sub := log.At(1)

		id, err := report.ParseStudentID(arg)
		if err != nil {
			sub.Error().Msgf("Invalid student number '%s'. Skipping.", arg)
			invalid++
			continue
		}
		md, err := gen.Render(id)
		if errors.Is(err, report.ErrStudentNotFound) {
			sub.Warn().Msgf("Student number %d not found in %s. Skipping...", id, source)
			continue
		}
		if err != nil {
			return err
		}

		mdPath := filepath.Join(outDir, report.FileName(id, "md"))
		if err := os.WriteFile(mdPath, []byte(md), 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", mdPath, err)
		}
		sub.Info().Msgf("Markdown saved to %s", mdPath)

		if conv != nil {
			pdfPath := filepath.Join(outDir, report.FileName(id, "pdf"))
			if err := conv.Convert(md, pdfPath); err != nil {
				return err
			}
			sub.Info().Msgf("PDF saved to %s", pdfPath)
		}
		if reportPreview {
			if err := preview(md); err != nil {
				return err
			}
		}
		written++
	}

	log.Info().Msgf("Finished: %d reports written", written)
	if reportNotify {
		_ = notification.Send(log, "Reports done", fmt.Sprintf("%d reports written to %s", written, outDir))
	}
	if invalid > 0 {
		return fmt.Errorf("%d invalid student number(s)", invalid)
	}
	return nil
}

func init() {
	f := reportCmd.Flags()
	f.StringVarP(&pointsSource, "points", "p", "", "Per-question points, keyed by student number")
	f.IntVar(&perfectID, "perfect", report.DefaultPerfectID, "Student number of the row holding the maximum points")
	f.BoolVar(&reportPDF, "pdf", false, "Also print each report to PDF (needs Chrome or Chromium)")
	f.StringVar(&extraFile, "extra", "", "Markdown file appended to every report")
	f.StringVar(&idColumn, "id-column", report.DefaultIDColumn, "Column holding the student number")
	f.BoolVar(&reportPreview, "preview", false, "Print each report rendered for the terminal")
	f.BoolVar(&reportNotify, "notify", false, "Desktop notification when done")
	rootCmd.AddCommand(reportCmd)
}

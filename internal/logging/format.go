package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"
)

var shortLevels = map[string]string{
	zerolog.LevelTraceValue: "TRAC",
	zerolog.LevelDebugValue: "DEBG",
	zerolog.LevelInfoValue:  "INFO",
	zerolog.LevelWarnValue:  "WARN",
	zerolog.LevelErrorValue: "ERR",
	zerolog.LevelFatalValue: "CRIT",
	zerolog.LevelPanicValue: "CRIT",
}

type palette map[string]lipgloss.Style

func newPalette(w io.Writer, noColor bool) palette {
	if noColor {
		return nil
	}
	r := lipgloss.NewRenderer(w)
	return palette{
		zerolog.LevelTraceValue: r.NewStyle().Foreground(lipgloss.Color("6")),
		zerolog.LevelDebugValue: r.NewStyle().Foreground(lipgloss.Color("6")),
		zerolog.LevelInfoValue:  r.NewStyle().Foreground(lipgloss.Color("2")),
		zerolog.LevelWarnValue:  r.NewStyle().Foreground(lipgloss.Color("3")),
		zerolog.LevelErrorValue: r.NewStyle().Foreground(lipgloss.Color("1")),
		zerolog.LevelFatalValue: r.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		zerolog.LevelPanicValue: r.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
	}
}

func (p palette) paint(level, s string) string {
	style, ok := p[level]
	if !ok || s == "" {
		return s
	}
	return style.Render(s)
}

func (l *Logging) console(w io.Writer, noColor bool) zerolog.ConsoleWriter {
	colors := newPalette(w, noColor)
	opts := l.opts

	parts := []string{zerolog.TimestampFieldName, nameField, zerolog.LevelFieldName, zerolog.MessageFieldName}
	switch opts.Layout {
	case LayoutSimple:
		parts = parts[1:]
	case LayoutBare:
		parts = parts[2:]
	}

	return zerolog.ConsoleWriter{
		Out:           w,
		NoColor:       noColor,
		PartsOrder:    parts,
		FieldsExclude: []string{nameField, depthField},
		FormatPrepare: func(evt map[string]interface{}) error {
			level, _ := evt[zerolog.LevelFieldName].(string)
			name, _ := evt[nameField].(string)
			if name == "" {
				name = rootName
			}
			evt[nameField] = colors.paint(level, "["+name+"]")

			msg, _ := evt[zerolog.MessageFieldName].(string)
			indent := strings.Repeat(" ", opts.Indent*depthOf(evt[depthField]))
			evt[zerolog.MessageFieldName] = indent + colors.paint(level, msg)
			return nil
		},
		FormatTimestamp: func(i interface{}) string {
			s, ok := i.(string)
			if !ok {
				return ""
			}
			t, err := time.Parse(time.RFC3339Nano, s)
			if err != nil {
				return s
			}
			return t.In(opts.Location).Format(opts.TimeFormat)
		},
		FormatLevel: func(i interface{}) string {
			level, _ := i.(string)
			short, ok := shortLevels[level]
			if !ok {
				short = strings.ToUpper(level)
			}
			return colors.paint(level, fmt.Sprintf("%-4s", short)) + " |"
		},
		FormatMessage: func(i interface{}) string {
			if i == nil {
				return ""
			}
			return fmt.Sprintf("%s", i)
		},
	}
}

func depthOf(v interface{}) int {
	switch d := v.(type) {
	case json.Number:
		n, err := strconv.Atoi(d.String())
		if err == nil && n > 0 {
			return n
		}
	case float64:
		if d > 0 {
			return int(d)
		}
	case int:
		if d > 0 {
			return d
		}
	}
	return 0
}

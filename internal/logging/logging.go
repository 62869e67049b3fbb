// Package logging builds the console (and optional rotating file) sink shared by all
// coursekit commands. Messages carry a component name, a severity color and an
// indentation depth, and timestamps are shown in a fixed time zone instead of the host's.
//
// Record creation is gated by the component logger's level. Once a record exists it is
// offered to every output, and only the output's own level can drop it. The sink level
// (RootLevel) applies to records coming through Bridge, i.e. third-party emitters.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/rs/zerolog"
	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	DefaultTimezone   = "Australia/Melbourne"
	DefaultTimeFormat = "2006-01-02T15:04:05-0700"
	DefaultIndent     = 2

	nameField  = "logger"
	depthField = "depth"
	rootName   = "root"
)

// Layout selects which parts precede the message.
type Layout string

const (
	LayoutFull   Layout = "full"   // time [name] LVL | msg
	LayoutSimple Layout = "simple" // [name] LVL | msg
	LayoutBare   Layout = "bare"   // LVL | msg
)

type Options struct {
	Level     zerolog.Level // component loggers
	RootLevel zerolog.Level // records arriving through Bridge

	ConsoleLevel zerolog.Level
	FileLevel    zerolog.Level

	Indent     int
	Location   *time.Location
	TimeFormat string
	Layout     Layout
	NoColor    bool

	Out  io.Writer // console output, stderr when nil
	File string    // rotating log file, disabled when empty

	Clock func() time.Time
}

func DefaultOptions() Options {
	return Options{
		Level:        zerolog.InfoLevel,
		RootLevel:    zerolog.WarnLevel,
		ConsoleLevel: zerolog.DebugLevel,
		FileLevel:    zerolog.DebugLevel,
		Indent:       DefaultIndent,
		TimeFormat:   DefaultTimeFormat,
		Layout:       LayoutFull,
	}
}

// Logging is the handle returned by Setup. It owns the outputs.
type Logging struct {
	opts    Options
	writer  zerolog.LevelWriter
	root    zerolog.Logger
	closers []io.Closer
}

// Setup builds the sink. Call it exactly once per process: every call opens its own
// outputs, so two handles pointed at the same console or file print every line twice.
func Setup(opts Options) (*Logging, error) {
	if opts.Out == nil {
		opts.Out = os.Stderr
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.TimeFormat == "" {
		opts.TimeFormat = DefaultTimeFormat
	}
	if opts.Layout == "" {
		opts.Layout = LayoutFull
	}
	if opts.Indent < 0 {
		return nil, fmt.Errorf("indent must not be negative: %d", opts.Indent)
	}
	if opts.Location == nil {
		loc, err := time.LoadLocation(DefaultTimezone)
		if err != nil {
			return nil, fmt.Errorf("load time zone %s: %w", DefaultTimezone, err)
		}
		opts.Location = loc
	}

	l := &Logging{opts: opts}

	outputs := []io.Writer{
		levelFilter{w: l.console(opts.Out, opts.NoColor || !isTerminal(opts.Out)), min: opts.ConsoleLevel},
	}
	if opts.File != "" {
		file := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    3, // megabytes
			MaxBackups: 3,
		}
		l.closers = append(l.closers, file)
		outputs = append(outputs, levelFilter{w: l.console(file, true), min: opts.FileLevel})
	}
	l.writer = zerolog.MultiLevelWriter(outputs...)
	l.root = l.newLogger(rootName, opts.RootLevel)
	return l, nil
}

// Logger returns a component logger at the configured level.
func (l *Logging) Logger(name string) *Logger {
	return l.LoggerAt(name, l.opts.Level)
}

// LoggerAt returns a component logger with its own level.
func (l *Logging) LoggerAt(name string, level zerolog.Level) *Logger {
	return &Logger{Logger: l.newLogger(name, level), name: name}
}

// Bridge returns a writer for libraries that only know io.Writer (stdlib log, for
// instance). Each line becomes a record at the given level, subject to RootLevel.
func (l *Logging) Bridge(level zerolog.Level) io.Writer {
	return bridge{log: l.root, level: level}
}

func (l *Logging) Close() error {
	var firstErr error
	for _, c := range l.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (l *Logging) newLogger(name string, level zerolog.Level) zerolog.Logger {
	clock := l.opts.Clock
	return zerolog.New(l.writer).
		Level(level).
		With().Str(nameField, name).Logger().
		Hook(zerolog.HookFunc(func(e *zerolog.Event, _ zerolog.Level, _ string) {
			e.Time(zerolog.TimestampFieldName, clock())
		}))
}

// Logger is a named component logger.
type Logger struct {
	zerolog.Logger
	name string
}

// At returns a logger whose messages are indented by depth steps.
func (l *Logger) At(depth int) *Logger {
	return &Logger{Logger: l.With().Int(depthField, depth).Logger(), name: l.name}
}

// Named returns a child component, e.g. "tags" -> "tags.github".
func (l *Logger) Named(sub string) *Logger {
	name := l.name + "." + sub
	return &Logger{Logger: l.With().Str(nameField, name).Logger(), name: name}
}

func (l *Logger) Name() string { return l.name }

// Nop discards everything; handy for tests and library defaults.
func Nop() *Logger {
	return &Logger{Logger: zerolog.Nop(), name: "nop"}
}

// ParseLevel accepts zerolog names plus "warning" and "critical".
func ParseLevel(s string) (zerolog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "warning":
		return zerolog.WarnLevel, nil
	case "critical", "crit":
		return zerolog.FatalLevel, nil
	case "":
		return zerolog.InfoLevel, nil
	}
	return zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
}

type levelFilter struct {
	w   io.Writer
	min zerolog.Level
}

func (f levelFilter) Write(p []byte) (int, error) {
	return f.w.Write(p)
}

func (f levelFilter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	if level < f.min {
		return len(p), nil
	}
	return f.w.Write(p)
}

type bridge struct {
	log   zerolog.Logger
	level zerolog.Level
}

func (b bridge) Write(p []byte) (int, error) {
	msg := strings.TrimRight(string(p), "\r\n")
	b.log.WithLevel(b.level).Msg(msg)
	return len(p), nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

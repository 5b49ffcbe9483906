package ulogger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/term"
)

const (
	colorRed    = 31
	colorGreen  = 32
	colorYellow = 33
	colorBlue   = 34
	colorWhite  = 37
	colorBold   = 1

	callerWidth = 32
)

type level struct {
	zerolog zerolog.Level
	level   int
	color   int
}

var levels = map[string]level{
	"DEBUG": {zerolog.DebugLevel, LevelDebug, colorBlue},
	"INFO":  {zerolog.InfoLevel, LevelInfo, colorGreen},
	"WARN":  {zerolog.WarnLevel, LevelWarn, colorYellow},
	"ERROR": {zerolog.ErrorLevel, LevelError, colorRed},
	"FATAL": {zerolog.FatalLevel, LevelFatal, colorRed},
	"PANIC": {zerolog.PanicLevel, LevelFatal, colorRed},
}

// ZLoggerWrapper is the zerolog backed Logger.
type ZLoggerWrapper struct {
	zerolog.Logger
	service string
	opts    Options
}

func NewZeroLogger(service string, options ...Option) *ZLoggerWrapper {
	if service == "" {
		service = "verdict"
	}

	opts := DefaultOptions()
	for _, o := range options {
		o(opts)
	}

	ctx := zerolog.New(opts.writer).With()
	if opts.pretty {
		ctx = zerolog.New(consoleWriter(opts.writer, service)).With()
	} else {
		ctx = ctx.Str("service", service)
	}

	z := &ZLoggerWrapper{
		Logger: ctx.
			CallerWithSkipFrameCount(zerolog.CallerSkipFrameCount + 1 + opts.skip).
			Timestamp().
			Logger(),
		service: service,
		opts:    *opts,
	}

	z.SetLogLevel(opts.logLevel)

	return z
}

// consoleWriter renders "| time | LEVEL | service | message" lines, coloured only
// when writing to a terminal.
func consoleWriter(writer io.Writer, service string) zerolog.ConsoleWriter {
	noColor := os.Getenv("NO_COLOR") != ""
	if f, ok := writer.(*os.File); !ok || !term.IsTerminal(int(f.Fd())) {
		noColor = true
	}

	return zerolog.ConsoleWriter{
		Out:        writer,
		NoColor:    noColor,
		TimeFormat: "15:04:05",
		FormatLevel: func(i interface{}) string {
			name := strings.ToUpper(fmt.Sprint(i))

			color := colorWhite
			if l, ok := levels[name]; ok {
				color = l.color
			}

			return "| " + colorize(fmt.Sprintf("%-6s", name), color, noColor) + "|"
		},
		FormatMessage: func(i interface{}) string {
			return fmt.Sprintf("| %-6s| %s", service, i)
		},
		FormatFieldName: func(i interface{}) string {
			return fmt.Sprintf("%s:", i)
		},
		FormatCaller: func(i interface{}) string {
			caller, _ := i.(string)
			if caller == "" {
				return ""
			}

			return colorize(fmt.Sprintf("%-*s", callerWidth, shortCaller(caller)), colorBold, noColor)
		},
	}
}

// shortCaller keeps as many trailing path elements of file:line as fit in
// callerWidth characters.
func shortCaller(caller string) string {
	if cwd, err := os.Getwd(); err == nil {
		if rel, err := filepath.Rel(cwd, caller); err == nil {
			caller = rel
		}
	}

	parts := strings.Split(caller, "/")
	short := parts[len(parts)-1]

	for i := len(parts) - 2; i >= 0; i-- {
		if len(short)+len(parts[i])+1 > callerWidth {
			break
		}

		short = parts[i] + "/" + short
	}

	return short
}

func colorize(s string, color int, disabled bool) string {
	if disabled {
		return s
	}

	return fmt.Sprintf("\x1b[%dm%s\x1b[0m", color, s)
}

// New returns a logger for another service that inherits this logger's writer,
// format and level unless options override them.
func (z *ZLoggerWrapper) New(service string, options ...Option) Logger {
	opts := z.opts
	opts.logLevel = strings.ToUpper(z.Logger.GetLevel().String())

	for _, o := range options {
		o(&opts)
	}

	return NewZeroLogger(service,
		WithWriter(opts.writer),
		WithLevel(opts.logLevel),
		WithPretty(opts.pretty),
		WithSkipFrame(opts.skip),
	)
}

func (z *ZLoggerWrapper) Duplicate(options ...Option) Logger {
	return z.New(z.service, options...)
}

// SetLogLevel falls back to INFO for unknown level names.
func (z *ZLoggerWrapper) SetLogLevel(logLevel string) {
	l, ok := levels[strings.ToUpper(logLevel)]
	if !ok {
		l = levels["INFO"]
	}

	z.Logger = z.Logger.Level(l.zerolog)
}

func (z *ZLoggerWrapper) LogLevel() int {
	if l, ok := levels[strings.ToUpper(z.Logger.GetLevel().String())]; ok {
		return l.level
	}

	if z.Logger.GetLevel() == zerolog.TraceLevel {
		return LevelDebug
	}

	return LevelInfo
}

func (z *ZLoggerWrapper) Debugf(format string, args ...interface{}) {
	z.Logger.Debug().Msgf(format, args...)
}

func (z *ZLoggerWrapper) Infof(format string, args ...interface{}) {
	z.Logger.Info().Msgf(format, args...)
}

func (z *ZLoggerWrapper) Warnf(format string, args ...interface{}) {
	z.Logger.Warn().Msgf(format, args...)
}

func (z *ZLoggerWrapper) Errorf(format string, args ...interface{}) {
	z.Logger.Error().Msgf(format, args...)
}

func (z *ZLoggerWrapper) Fatalf(format string, args ...interface{}) {
	z.Logger.Fatal().Msgf(format, args...)
}

package ulogger

import (
	"io"
	"os"
)

type Options struct {
	writer   io.Writer
	logLevel string
	pretty   bool
	skip     int
}

// Option is a function that sets some option on the Options struct
type Option func(*Options)

func DefaultOptions() *Options {
	return &Options{
		writer:   os.Stdout,
		logLevel: "INFO",
		pretty:   true,
	}
}

func WithWriter(w io.Writer) Option {
	return func(o *Options) {
		o.writer = w
	}
}

func WithLevel(level string) Option {
	return func(o *Options) {
		o.logLevel = level
	}
}

// WithPretty switches between the console writer and plain json lines.
func WithPretty(pretty bool) Option {
	return func(o *Options) {
		o.pretty = pretty
	}
}

func WithSkipFrame(skip int) Option {
	return func(o *Options) {
		o.skip = skip
	}
}

package validator

// Options tune a TxValidator for one validation pass.
type Options struct {
	MedianTimePast int64
	SkipScripts    bool
}

type Option func(*Options)

func NewDefaultOptions() *Options {
	return &Options{}
}

func ProcessOptions(opts ...Option) *Options {
	options := NewDefaultOptions()
	for _, o := range opts {
		o(options)
	}

	return options
}

// WithMedianTimePast sets the time that lock times are compared against.
func WithMedianTimePast(medianTimePast int64) Option {
	return func(o *Options) {
		o.MedianTimePast = medianTimePast
	}
}

// WithSkipScripts disables script evaluation regardless of the trusted height.
func WithSkipScripts(skip bool) Option {
	return func(o *Options) {
		o.SkipScripts = skip
	}
}

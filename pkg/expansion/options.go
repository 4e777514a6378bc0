package expansion

import (
	"github.com/arthur-debert/metaini/pkg/command"
	"github.com/arthur-debert/metaini/pkg/parser"
	"github.com/arthur-debert/metaini/pkg/uniquenames"
)

// Defaults for the engine options.
const (
	DefaultMaxResolutionPasses = 100
	LocalPrefix                = "__local"
	NameKey                    = "__name"
	ExecSuffixKey              = "__exec_suffix"
)

// Options configure an expansion.
type Options struct {
	Assignment   string
	CommentChars string
	// WhiteFilter keeps only keys starting with one of the prefixes.
	WhiteFilter []string
	// BlackFilter drops keys starting with one of the prefixes. The
	// __local prefix is always dropped.
	BlackFilter []string
	// AddNameKey gives every configuration a unique __name. When unset,
	// __name is stripped instead.
	AddNameKey bool
	Registry   *command.Registry
	// MaxConfigurations bounds the number of configurations; 0 means no
	// limit.
	MaxConfigurations   int
	MaxResolutionPasses int
}

// Option mutates Options.
type Option func(*Options)

// NewOptions applies opts to the defaults. A missing registry becomes
// DefaultRegistry().
func NewOptions(opts ...Option) Options {
	o := Options{
		Assignment:          "=",
		CommentChars:        "#",
		AddNameKey:          true,
		MaxResolutionPasses: DefaultMaxResolutionPasses,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.Registry == nil {
		o.Registry = DefaultRegistry()
	}
	return o
}

// ParserOptions returns the parser settings of o.
func (o Options) ParserOptions() parser.Options {
	return parser.Options{
		Assignment:   o.Assignment,
		CommentChars: o.CommentChars,
		Registry:     o.Registry,
	}
}

// WithAssignment sets the plain assignment operator.
func WithAssignment(op string) Option {
	return func(o *Options) { o.Assignment = op }
}

// WithCommentChars sets the comment characters.
func WithCommentChars(chars string) Option {
	return func(o *Options) { o.CommentChars = chars }
}

// WithWhiteFilter keeps only keys with one of the given prefixes.
func WithWhiteFilter(prefixes ...string) Option {
	return func(o *Options) { o.WhiteFilter = append(o.WhiteFilter, prefixes...) }
}

// WithBlackFilter drops keys with one of the given prefixes.
func WithBlackFilter(prefixes ...string) Option {
	return func(o *Options) { o.BlackFilter = append(o.BlackFilter, prefixes...) }
}

// WithNameKey controls whether a unique __name is added.
func WithNameKey(add bool) Option {
	return func(o *Options) { o.AddNameKey = add }
}

// WithRegistry sets the command registry.
func WithRegistry(reg *command.Registry) Option {
	return func(o *Options) { o.Registry = reg }
}

// WithMaxConfigurations bounds the number of generated configurations.
func WithMaxConfigurations(n int) Option {
	return func(o *Options) { o.MaxConfigurations = n }
}

// WithMaxResolutionPasses bounds the interpolation passes per
// configuration.
func WithMaxResolutionPasses(n int) Option {
	return func(o *Options) { o.MaxResolutionPasses = n }
}

// DefaultRegistry returns a registry holding the commands the engine
// itself depends on: expand and unique.
func DefaultRegistry() *command.Registry {
	reg := command.NewRegistry()
	reg.MustRegister(ExpandCommand(), uniquenames.Command())
	return reg
}

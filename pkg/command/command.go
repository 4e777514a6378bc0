// Package command implements the pipeline commands of the meta ini syntax.
//
// A value may carry a pipeline suffix, `value | name arg1 arg2 | other`.
// Every stage names a registered Command, and every Command declares the
// Phase of the expansion in which it runs. The parser records each stage as
// an Invocation in a Queue; the expansion engine drains the queue phase by
// phase through Apply.
package command

import (
	"sort"

	"github.com/arthur-debert/metaini/pkg/dotdict"
	"github.com/arthur-debert/metaini/pkg/errors"
	"github.com/arthur-debert/metaini/pkg/registry"
)

// Context carries everything a command may need. Commands ignore the
// fields they do not use.
type Context struct {
	// Key is the dotted key the command was attached to.
	Key string
	// Value is the current value at Key. Empty for commands returning
	// configurations.
	Value string
	// Args are the bound positional arguments, padded to the declared
	// count with defaults ("" where no default exists).
	Args []string
	// Config is the configuration being processed. Nil for commands
	// returning configurations.
	Config *dotdict.Tree
	// Configs is the full list of configurations.
	Configs []*dotdict.Tree
	// Queue is the queue of pending invocations, so commands can schedule
	// or redirect later work.
	Queue *Queue
}

// Arg returns the i-th bound argument, or "" when out of range.
func (c *Context) Arg(i int) string {
	if i < 0 || i >= len(c.Args) {
		return ""
	}
	return c.Args[i]
}

// Result is what a command hands back. Only the field matching the
// command's declared return mode is read.
type Result struct {
	Value   string
	Configs []*dotdict.Tree
}

// Func is the implementation of a command.
type Func func(ctx *Context) (Result, error)

// Command is a registered pipeline command.
//
// A command either returns a replacement value for its key
// (ReturnsValue), returns a replacement configuration list
// (ReturnsConfigs), or neither, in which case it is run for its side
// effects on each configuration.
type Command struct {
	Name  string
	Phase Phase
	// ArgCount is the maximum number of positional arguments.
	ArgCount int
	// ArgDefaults holds one default per declared argument; "" means no
	// default. It may be empty.
	ArgDefaults    []string
	ReturnsValue   bool
	ReturnsConfigs bool
	Description    string
	Run            Func
}

// Mode names the return mode of the command.
func (c *Command) Mode() string {
	switch {
	case c.ReturnsConfigs:
		return "configs"
	case c.ReturnsValue:
		return "value"
	default:
		return "mutate"
	}
}

// bindArgs binds the invocation arguments positionally and fills missing
// trailing ones from the declared defaults.
func (c *Command) bindArgs(args []string) ([]string, error) {
	if len(args) > c.ArgCount {
		return nil, errors.Newf(errors.ErrCommandArity,
			"command %q takes at most %d argument(s), got %d", c.Name, c.ArgCount, len(args)).
			WithDetail("command", c.Name)
	}
	bound := make([]string, c.ArgCount)
	copy(bound, args)
	for i := len(args); i < c.ArgCount && i < len(c.ArgDefaults); i++ {
		bound[i] = c.ArgDefaults[i]
	}
	return bound, nil
}

func (c *Command) validate() error {
	if c.Name == "" {
		return errors.New(errors.ErrCommandRegistration, "a command needs a name")
	}
	if c.ReturnsValue && c.ReturnsConfigs {
		return errors.Newf(errors.ErrCommandRegistration,
			"command %q cannot return both a value and configurations", c.Name).WithDetail("command", c.Name)
	}
	if c.Run == nil {
		return errors.Newf(errors.ErrCommandRegistration, "command %q has no implementation", c.Name).
			WithDetail("command", c.Name)
	}
	if c.ArgCount < 0 {
		return errors.Newf(errors.ErrCommandRegistration, "command %q has a negative argument count", c.Name).
			WithDetail("command", c.Name)
	}
	if len(c.ArgDefaults) != 0 && len(c.ArgDefaults) != c.ArgCount {
		return errors.Newf(errors.ErrCommandRegistration,
			"command %q declares %d defaults for %d arguments", c.Name, len(c.ArgDefaults), c.ArgCount).
			WithDetail("command", c.Name)
	}
	if !c.Phase.Valid() {
		return errors.Newf(errors.ErrCommandRegistration, "command %q has an invalid phase", c.Name).
			WithDetail("command", c.Name)
	}
	return nil
}

// Registry holds the commands known to a parser and expansion engine. It is
// filled once at start-up and only read afterwards.
type Registry struct {
	commands registry.Registry[*Command]
}

// NewRegistry returns an empty command registry.
func NewRegistry() *Registry {
	return &Registry{commands: registry.New[*Command]()}
}

// Register validates and adds cmd. A zero Phase defaults to
// PostResolution. Registering a name twice is an error.
func (r *Registry) Register(cmd *Command) error {
	if cmd == nil {
		return errors.New(errors.ErrCommandRegistration, "cannot register a nil command")
	}
	if cmd.Phase == 0 {
		cmd.Phase = PostResolution
	}
	if err := cmd.validate(); err != nil {
		return err
	}
	if err := r.commands.Register(cmd.Name, cmd); err != nil {
		return errors.Wrapf(err, errors.ErrCommandRegistration, "command %q is already registered", cmd.Name).
			WithDetail("command", cmd.Name)
	}
	return nil
}

// MustRegister registers every command and panics on the first failure.
func (r *Registry) MustRegister(cmds ...*Command) {
	for _, cmd := range cmds {
		if err := r.Register(cmd); err != nil {
			panic(err)
		}
	}
}

// Get returns the command registered under name.
func (r *Registry) Get(name string) (*Command, error) {
	cmd, err := r.commands.Get(name)
	if err != nil {
		return nil, errors.Newf(errors.ErrCommandNotFound, "unknown command %q", name).
			WithDetail("command", name)
	}
	return cmd, nil
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	return r.commands.Has(name)
}

// Commands returns the registered commands sorted by phase, then name.
func (r *Registry) Commands() []*Command {
	var cmds []*Command
	for _, name := range r.commands.List() {
		cmd, _ := r.commands.Get(name)
		cmds = append(cmds, cmd)
	}
	sort.SliceStable(cmds, func(i, j int) bool {
		return cmds[i].Phase < cmds[j].Phase
	})
	return cmds
}

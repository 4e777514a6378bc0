// Package conditionals implements the commands that act on conditional
// lines, the bare values of a meta ini file:
//
//	if {grid} == ug and {dim} == 1 | exclude
//	if {resolution} >= 5 | label NIGHTLY
//	1, HAVE_UG | expand grid | cmake_guard
//
// The condition is evaluated after resolution with the rules of package
// expr. A leading "if" is optional.
package conditionals

import (
	"strings"

	"github.com/arthur-debert/metaini/pkg/command"
	"github.com/arthur-debert/metaini/pkg/dotdict"
	"github.com/arthur-debert/metaini/pkg/errors"
	"github.com/arthur-debert/metaini/pkg/expr"
	"github.com/arthur-debert/metaini/pkg/logging"
	"github.com/arthur-debert/metaini/pkg/parser"
)

// Keys written by the commands.
const (
	LabelsPrefix    = "__LABELS"
	GuardsPrefix    = "__cmake_guards"
	DefaultCategory = "PRIORITY"
)

// Condition returns value without its optional leading "if".
func Condition(value string) string {
	value = strings.TrimSpace(value)
	if rest, ok := strings.CutPrefix(value, "if "); ok {
		return strings.TrimSpace(rest)
	}
	return value
}

// Eval evaluates the condition held by value.
func Eval(value string) (bool, error) {
	return expr.Bool(Condition(value))
}

// Exclude returns the exclude command: configurations whose condition
// holds are dropped.
func Exclude() *command.Command {
	return &command.Command{
		Name:           "exclude",
		Phase:          command.PostResolution,
		ReturnsConfigs: true,
		Description:    "Drop the configurations for which the condition holds",
		Run: func(ctx *command.Context) (command.Result, error) {
			logger := logging.GetLogger("conditionals")

			var kept []*dotdict.Tree
			for _, c := range ctx.Configs {
				value, err := c.Get(ctx.Key)
				if err != nil {
					kept = append(kept, c)
					continue
				}
				drop, err := Eval(value)
				if err != nil {
					return command.Result{}, errors.Wrapf(err, errors.ErrParameter,
						"cannot evaluate exclusion %q", value).WithDetail("key", ctx.Key)
				}
				if !drop {
					kept = append(kept, c)
				}
			}

			logger.Debug().
				Str("key", ctx.Key).
				Int("before", len(ctx.Configs)).
				Int("after", len(kept)).
				Msg("Applied exclusion")
			return command.Result{Configs: kept}, nil
		},
	}
}

// Label returns the label command: `label LABEL [CATEGORY]` sets
// __LABELS.<CATEGORY> to LABEL where the condition holds.
func Label() *command.Command {
	return &command.Command{
		Name:        "label",
		Phase:       command.PostResolution,
		ArgCount:    2,
		ArgDefaults: []string{"", DefaultCategory},
		Description: "Attach a label to the configurations for which the condition holds",
		Run: func(ctx *command.Context) (command.Result, error) {
			label, category := ctx.Arg(0), ctx.Arg(1)
			if label == "" {
				return command.Result{}, errors.New(errors.ErrCommandArity, "label needs a label argument").
					WithDetail("key", ctx.Key)
			}
			ok, err := Eval(ctx.Value)
			if err != nil {
				return command.Result{}, errors.Wrapf(err, errors.ErrParameter,
					"cannot evaluate label condition %q", ctx.Value).WithDetail("key", ctx.Key)
			}
			if !ok {
				return command.Result{}, nil
			}
			return command.Result{}, ctx.Config.Set(LabelsPrefix+dotdict.Separator+category, label)
		},
	}
}

// CMakeGuard returns the cmake_guard command: the conditional is copied to
// __cmake_guards, where the build system evaluates it.
func CMakeGuard() *command.Command {
	return &command.Command{
		Name:        "cmake_guard",
		Phase:       command.PostResolution,
		Description: "Hand the condition to the build system, which drops the test when it is false",
		Run: func(ctx *command.Context) (command.Result, error) {
			name, ok := strings.CutPrefix(ctx.Key, parser.ConditionalsPrefix+dotdict.Separator)
			if !ok {
				name = ctx.Key
			}
			return command.Result{}, ctx.Config.Set(GuardsPrefix+dotdict.Separator+name, Condition(ctx.Value))
		},
	}
}

// Commands returns every conditional command.
func Commands() []*command.Command {
	return []*command.Command{Exclude(), Label(), CMakeGuard()}
}

// Package builtins assembles the command registry shipped with metaini.
package builtins

import (
	"strings"

	"github.com/arthur-debert/metaini/pkg/command"
	"github.com/arthur-debert/metaini/pkg/conditionals"
	"github.com/arthur-debert/metaini/pkg/convergence"
	"github.com/arthur-debert/metaini/pkg/errors"
	"github.com/arthur-debert/metaini/pkg/expansion"
	"github.com/arthur-debert/metaini/pkg/expr"
	"github.com/arthur-debert/metaini/pkg/uniquenames"
)

// NewRegistry returns a registry holding every built-in command.
func NewRegistry() *command.Registry {
	reg := command.NewRegistry()
	reg.MustRegister(Commands()...)
	return reg
}

// Commands returns fresh instances of every built-in command.
func Commands() []*command.Command {
	cmds := []*command.Command{
		expansion.ExpandCommand(),
		uniquenames.Command(),
		ToLower(),
		ToUpper(),
		Eval(),
	}
	cmds = append(cmds, conditionals.Commands()...)
	return append(cmds, convergence.Commands()...)
}

func valueCommand(name, description string, phase command.Phase, fn func(string) (string, error)) *command.Command {
	return &command.Command{
		Name:         name,
		Phase:        phase,
		ReturnsValue: true,
		Description:  description,
		Run: func(ctx *command.Context) (command.Result, error) {
			v, err := fn(ctx.Value)
			return command.Result{Value: v}, err
		},
	}
}

// ToLower lower-cases the value once references are resolved.
func ToLower() *command.Command {
	return valueCommand("tolower", "Convert the value to lower case", command.PostResolution,
		func(s string) (string, error) { return strings.ToLower(s), nil })
}

// ToUpper upper-cases the value once references are resolved.
func ToUpper() *command.Command {
	return valueCommand("toupper", "Convert the value to upper case", command.PostResolution,
		func(s string) (string, error) { return strings.ToUpper(s), nil })
}

// Eval replaces an arithmetic expression by its value. It runs last, so
// the expression may use any resolved key and the unique name.
func Eval() *command.Command {
	return valueCommand("eval", "Evaluate the value as an arithmetic expression", command.PostFiltering,
		func(s string) (string, error) {
			v, err := expr.Number(s)
			if err != nil {
				return "", errors.Wrapf(err, errors.ErrParameter, "cannot evaluate %q", s)
			}
			return v, nil
		})
}

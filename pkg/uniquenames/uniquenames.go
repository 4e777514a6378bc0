// Package uniquenames makes the value of a key unique across a list of
// configurations. It backs the naming of generated files and of static
// variants.
package uniquenames

import (
	"fmt"

	"github.com/arthur-debert/metaini/pkg/command"
	"github.com/arthur-debert/metaini/pkg/dotdict"
)

// CommandName is the pipeline name of the uniqueness command.
const CommandName = "unique"

// MakeUnique rewrites the value at key so that no two configurations share
// it. A missing key counts as, and is set to, the empty string. Values
// already unique are left alone. Repeated values get "_NNNN" appended,
// numbered from zero in configuration order; an empty value becomes just
// "NNNN". A suffix clashing with a value already present is skipped.
func MakeUnique(configs []*dotdict.Tree, key string) error {
	values := make([]string, len(configs))
	counts := make(map[string]int)
	for i, c := range configs {
		v, ok := c.Lookup(key)
		if !ok {
			if err := c.Set(key, ""); err != nil {
				return err
			}
		}
		values[i] = v
		counts[v]++
	}

	taken := make(map[string]bool, len(counts))
	for v, n := range counts {
		if n == 1 {
			taken[v] = true
		}
	}

	next := make(map[string]int)
	for i, c := range configs {
		v := values[i]
		if counts[v] == 1 {
			continue
		}
		var candidate string
		for {
			candidate = suffixed(v, next[v])
			next[v]++
			if !taken[candidate] {
				break
			}
		}
		taken[candidate] = true
		if err := c.Set(key, candidate); err != nil {
			return err
		}
	}
	return nil
}

func suffixed(value string, n int) string {
	if value == "" {
		return fmt.Sprintf("%04d", n)
	}
	return fmt.Sprintf("%s_%04d", value, n)
}

// Command returns the "unique" pipeline command. It runs after filtering,
// when the final set of configurations is known.
func Command() *command.Command {
	return &command.Command{
		Name:           CommandName,
		Phase:          command.PostFiltering,
		ReturnsConfigs: true,
		Description:    "Make the value unique across all configurations",
		Run: func(ctx *command.Context) (command.Result, error) {
			if err := MakeUnique(ctx.Configs, ctx.Key); err != nil {
				return command.Result{}, err
			}
			return command.Result{Configs: ctx.Configs}, nil
		},
	}
}

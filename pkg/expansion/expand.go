package expansion

import (
	"github.com/arthur-debert/metaini/pkg/command"
	"github.com/arthur-debert/metaini/pkg/dotdict"
	"github.com/arthur-debert/metaini/pkg/errors"
	"github.com/arthur-debert/metaini/pkg/escapes"
)

// ExpandCommand returns the expand command. Used through a pipeline it
// expands a single key; the engine groups expand invocations sharing an
// identifier and zips them instead.
func ExpandCommand() *command.Command {
	return &command.Command{
		Name:           command.ExpandCommand,
		Phase:          command.AtExpansion,
		ArgCount:       1,
		ReturnsConfigs: true,
		Description:    "Split a comma separated list into one configuration per item",
		Run: func(ctx *command.Context) (command.Result, error) {
			configs, err := expandKeys(ctx.Configs, []string{ctx.Key}, 0)
			return command.Result{Configs: configs}, err
		},
	}
}

// factor is a set of keys expanded together.
type factor struct {
	ident string
	keys  []string
}

// groupFactors orders the expand invocations into factors: every key
// without identifier is its own factor, in order of appearance, followed
// by one zipped factor per identifier in order of first appearance.
func groupFactors(invs []command.Invocation) []factor {
	var single []factor
	var grouped []factor
	index := make(map[string]int)

	for _, inv := range invs {
		if len(inv.Args) == 0 || inv.Args[0] == "" {
			single = append(single, factor{keys: []string{inv.Key}})
			continue
		}
		ident := inv.Args[0]
		i, ok := index[ident]
		if !ok {
			index[ident] = len(grouped)
			grouped = append(grouped, factor{ident: ident, keys: []string{inv.Key}})
			continue
		}
		grouped[i].keys = append(grouped[i].keys, inv.Key)
	}
	return append(single, grouped...)
}

// expandKeys replaces every configuration by one copy per list item of the
// given keys. All keys must hold lists of the same length; item i of every
// key goes to copy i.
func expandKeys(configs []*dotdict.Tree, keys []string, max int) ([]*dotdict.Tree, error) {
	var out []*dotdict.Tree
	for _, c := range configs {
		lists := make([][]string, len(keys))
		for i, key := range keys {
			value, err := c.Get(key)
			if err != nil {
				return nil, err
			}
			lists[i] = escapes.SplitUnescaped(value, ",", -1)
			if len(lists[i]) != len(lists[0]) {
				return nil, errors.Newf(errors.ErrCommandArity,
					"cannot zip %s (%d values) with %s (%d values)",
					keys[0], len(lists[0]), key, len(lists[i])).
					WithDetail("key", key).
					WithDetail("keys", keys)
			}
		}

		if max > 0 && len(out)+len(lists[0]) > max {
			return nil, errors.Newf(errors.ErrTooManyConfigurations,
				"expanding %v exceeds the limit of %d configurations", keys, max).
				WithDetail("key", keys[0]).
				WithDetail("limit", max)
		}

		for j := range lists[0] {
			clone := c.Clone()
			for i, key := range keys {
				if err := clone.Set(key, lists[i][j]); err != nil {
					return nil, err
				}
			}
			out = append(out, clone)
		}
	}
	return out, nil
}

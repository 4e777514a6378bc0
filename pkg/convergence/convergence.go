// Package convergence groups the configurations of a meta ini file into
// convergence tests: runs that differ only in the value of one pivot key,
// named by __CONVERGENCE_TEST.TestKey, and in the keys derived from it.
package convergence

import (
	"strconv"
	"strings"

	"github.com/arthur-debert/metaini/pkg/cmakeoutput"
	"github.com/arthur-debert/metaini/pkg/command"
	"github.com/arthur-debert/metaini/pkg/dotdict"
	"github.com/arthur-debert/metaini/pkg/errors"
	"github.com/arthur-debert/metaini/pkg/expansion"
	"github.com/arthur-debert/metaini/pkg/logging"
	"github.com/arthur-debert/metaini/pkg/parser"
)

// Reserved keys.
const (
	Section      = "__CONVERGENCE_TEST"
	TestKey      = Section + ".TestKey"
	ValueKey     = "__local.wrapper.convergencetest.value"
	TestsEntry   = "tests"
	TestCommand  = "convergencetest"
	RetrieveName = "convergencetest_retrieve"
)

// Test is one convergence test: the runs sharing every value but the
// pivot and its dependents.
type Test struct {
	ID      int
	Configs []*dotdict.Tree
}

// Result is the grouping of a meta ini file.
type Result struct {
	// Pivot is the key the test converges in.
	Pivot string
	// Dependent are the pivot and the keys whose raw value mentions it.
	Dependent []string
	// Pipelines are the keys restored by convergencetest, written as
	// `<list> | expand`.
	Pipelines []string
	Tests     []Test
}

// Extract expands the meta ini file at path and groups its
// configurations into convergence tests.
func Extract(path string, opts ...expansion.Option) (*Result, error) {
	logger := logging.GetLogger("convergence")

	pivot, err := pivotKey(path, opts)
	if err != nil {
		return nil, err
	}

	configs, err := expansion.Expand(path, opts...)
	if err != nil {
		return nil, err
	}

	raw, err := parser.ParseFile(path, expansion.NewOptions(opts...).ParserOptions())
	if err != nil {
		return nil, err
	}
	dependent := []string{pivot}
	var pipelines []string
	_ = raw.Tree.Walk(func(key, value string) error {
		if key != pivot && key != TestKey && strings.Contains(value, pivot) {
			dependent = append(dependent, key)
		}
		if raw.Queue.Has(TestCommand, key) {
			pipelines = append(pipelines, key)
		}
		return nil
	})

	res := &Result{Pivot: pivot, Dependent: dependent, Pipelines: pipelines}
	visited := make([]bool, len(configs))
	for i, c := range configs {
		if visited[i] {
			continue
		}
		visited[i] = true
		test := Test{ID: len(res.Tests), Configs: []*dotdict.Tree{c}}
		for j := i + 1; j < len(configs); j++ {
			if !visited[j] && equalExcept(c, configs[j], dependent) {
				visited[j] = true
				test.Configs = append(test.Configs, configs[j])
			}
		}
		res.Tests = append(res.Tests, test)
	}

	logger.Info().
		Str("file", path).
		Str("pivot", pivot).
		Strs("dependent", dependent).
		Int("tests", len(res.Tests)).
		Msg("Grouped convergence tests")
	return res, nil
}

// pivotKey reads __CONVERGENCE_TEST.TestKey and checks that it is a single
// value naming a key of the file.
func pivotKey(path string, opts []expansion.Option) (string, error) {
	withFilter := func(filter string) ([]*dotdict.Tree, error) {
		o := append(append([]expansion.Option{}, opts...),
			expansion.WithWhiteFilter(filter), expansion.WithNameKey(false))
		return expansion.Expand(path, o...)
	}

	configs, err := withFilter(TestKey)
	if err != nil {
		return "", err
	}
	if len(configs) == 0 || !configs[0].HasValue(TestKey) {
		return "", errors.Newf(errors.ErrParameter, "%s section has no key TestKey", Section).
			WithDetail("file", path).WithDetail("key", TestKey)
	}
	if len(configs) > 1 {
		return "", errors.Newf(errors.ErrParameter, "%s has to be a single key", TestKey).
			WithDetail("file", path).WithDetail("key", TestKey)
	}
	pivot, _ := configs[0].Get(TestKey)

	configs, err = withFilter(pivot)
	if err != nil {
		return "", err
	}
	if len(configs) == 0 || !configs[0].Has(pivot) {
		return "", errors.Newf(errors.ErrParameter, "TestKey %s does not match any key", pivot).
			WithDetail("file", path).WithDetail("key", pivot)
	}
	return pivot, nil
}

// equalExcept compares a and b on every key but __name and the excluded
// ones.
func equalExcept(a, b *dotdict.Tree, except []string) bool {
	skip := map[string]bool{expansion.NameKey: true}
	for _, k := range except {
		skip[k] = true
	}
	fa, fb := a.Flatten(), b.Flatten()
	for k, v := range fa {
		if skip[k] {
			continue
		}
		if w, ok := fb[k]; !ok || w != v {
			return false
		}
	}
	for k := range fb {
		if _, ok := fa[k]; !ok && !skip[k] {
			return false
		}
	}
	return true
}

// Write writes every configuration of res and returns the data for the
// build system: the test ids under "tests" and, per file, the entries
// WriteConfiguration records with the test id as prefix.
func Write(res *Result, static expansion.SuffixResolver, opts expansion.WriteOptions) (*cmakeoutput.Data, error) {
	data := cmakeoutput.NewData()
	data.SetList(TestsEntry, nil)
	for _, test := range res.Tests {
		id := strconv.Itoa(test.ID)
		data.Append(TestsEntry, id)

		o := opts
		o.Prefix = id + "_"
		o.Verbatim = append(append([]string{}, opts.Verbatim...), res.Pipelines...)
		for _, c := range test.Configs {
			if !opts.CMake {
				c.Delete(Section)
			}
			if _, err := expansion.WriteConfiguration(c, data, static, o); err != nil {
				return nil, err
			}
		}
	}
	return data, nil
}

// Commands returns the convergencetest and convergencetest_retrieve
// commands.
//
// `key = a, b, c | convergencetest` keeps the list unexpanded: before
// expansion the value moves to a private key, together with its queued
// commands, and after resolution it comes back as `a, b, c | expand`, so
// every written file is itself a meta ini file for one convergence test.
func Commands() []*command.Command {
	return []*command.Command{
		{
			Name:         TestCommand,
			Phase:        command.PreExpansion,
			ReturnsValue: true,
			Description:  "Keep the list of a key for a convergence test run",
			Run: func(ctx *command.Context) (command.Result, error) {
				if err := ctx.Config.Set(ValueKey, ctx.Value); err != nil {
					return command.Result{}, err
				}
				ctx.Queue.ReplaceKey(ctx.Key, ValueKey)
				if !ctx.Queue.Has(RetrieveName, ctx.Key) {
					ctx.Queue.Add(command.PostResolution, command.Invocation{Name: RetrieveName, Key: ctx.Key})
				}
				return command.Result{Value: `\{` + ctx.Key + `\}`}, nil
			},
		},
		{
			Name:         RetrieveName,
			Phase:        command.PostResolution,
			ReturnsValue: true,
			Description:  "Restore the list kept by convergencetest",
			Run: func(ctx *command.Context) (command.Result, error) {
				value, err := ctx.Config.Get(ValueKey)
				if err != nil {
					return command.Result{}, err
				}
				return command.Result{Value: value + " | " + command.ExpandCommand}, nil
			},
		},
	}
}

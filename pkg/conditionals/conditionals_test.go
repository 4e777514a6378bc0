package conditionals_test

import (
	"testing"

	"github.com/arthur-debert/metaini/pkg/command"
	"github.com/arthur-debert/metaini/pkg/conditionals"
	"github.com/arthur-debert/metaini/pkg/dotdict"
	"github.com/arthur-debert/metaini/pkg/errors"
	"github.com/arthur-debert/metaini/pkg/expansion"
	"github.com/arthur-debert/metaini/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func registry() *command.Registry {
	reg := expansion.DefaultRegistry()
	reg.MustRegister(conditionals.Commands()...)
	return reg
}

func expand(t *testing.T, content string) []*dotdict.Tree {
	t.Helper()
	configs, err := expansion.Expand(testutil.WriteMini(t, content), expansion.WithRegistry(registry()), expansion.WithNameKey(false))
	require.NoError(t, err)
	return configs
}

func TestCondition(t *testing.T) {
	assert.Equal(t, "{a} == 1", conditionals.Condition("if {a} == 1"))
	assert.Equal(t, "{a} == 1", conditionals.Condition("  {a} == 1 "))
	assert.Equal(t, "iffy", conditionals.Condition("iffy"))

	ok, err := conditionals.Eval("if ug == ug and 3 > 2")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestExclude(t *testing.T) {
	configs := expand(t, `
a == 1, 2, 3
b == x, y
{a} == 2 and {b} == y | exclude
`)

	require.Len(t, configs, 5)
	for _, c := range configs {
		a, _ := c.Get("a")
		b, _ := c.Get("b")
		assert.False(t, a == "2" && b == "y", "excluded combination survived")
		assert.False(t, c.Has("__local"))
	}
}

func TestExcludeNegated(t *testing.T) {
	configs := expand(t, `
grid == yasp, ug
not {grid} == ug | exclude
`)

	require.Len(t, configs, 1)
	grid, _ := configs[0].Get("grid")
	assert.Equal(t, "ug", grid)
}

func TestLabel(t *testing.T) {
	configs := expand(t, `
resolution == 3, 5, 7
if {resolution} >= 5 | label NIGHTLY
{resolution} == 7 | label big SIZE
`)

	require.Len(t, configs, 3)
	want := map[string]map[string]string{
		"3": {"resolution": "3"},
		"5": {"resolution": "5", "__LABELS.PRIORITY": "NIGHTLY"},
		"7": {"resolution": "7", "__LABELS.PRIORITY": "NIGHTLY", "__LABELS.SIZE": "big"},
	}
	for _, c := range configs {
		r, _ := c.Get("resolution")
		assert.Equal(t, want[r], c.Flatten())
	}
}

func TestLabelNeedsArgument(t *testing.T) {
	_, err := expansion.Expand(testutil.WriteMini(t, "if 1 == 1 | label\n"), expansion.WithRegistry(registry()))
	assert.True(t, errors.IsErrorCode(err, errors.ErrCommandArity))
}

func TestCMakeGuard(t *testing.T) {
	configs := expand(t, `
grid =g= yasp, ug
1, HAVE_UG | expand g | cmake_guard
`)

	require.Len(t, configs, 2)
	assert.Equal(t, map[string]string{"grid": "yasp", "__cmake_guards.0": "1"}, configs[0].Flatten())
	assert.Equal(t, map[string]string{"grid": "ug", "__cmake_guards.0": "HAVE_UG"}, configs[1].Flatten())
}

func TestExcludeBadCondition(t *testing.T) {
	c := dotdict.New()
	require.NoError(t, c.Set("__local.conditionals.0", "a.b == 1"))

	_, err := command.Apply([]*dotdict.Tree{c},
		[]command.Invocation{{Name: "exclude", Key: "__local.conditionals.0"}}, registry(), command.NewQueue())
	assert.True(t, errors.IsErrorCode(err, errors.ErrParameter))
	assert.Equal(t, "__local.conditionals.0", errors.GetErrorDetails(err)["key"])
}

package builtins_test

import (
	"testing"

	"github.com/arthur-debert/metaini/pkg/builtins"
	"github.com/arthur-debert/metaini/pkg/command"
	"github.com/arthur-debert/metaini/pkg/errors"
	"github.com/arthur-debert/metaini/pkg/expansion"
	"github.com/arthur-debert/metaini/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func expandContent(t *testing.T, content string) ([]map[string]string, error) {
	t.Helper()
	configs, err := expansion.Expand(testutil.WriteMini(t, content), expansion.WithRegistry(builtins.NewRegistry()))
	if err != nil {
		return nil, err
	}
	var out []map[string]string
	for _, c := range configs {
		out = append(out, c.Flatten())
	}
	return out, nil
}

func TestRegistryContents(t *testing.T) {
	reg := builtins.NewRegistry()
	for _, name := range []string{
		"expand", "unique", "tolower", "toupper", "eval",
		"exclude", "label", "cmake_guard",
		"convergencetest", "convergencetest_retrieve",
	} {
		assert.True(t, reg.Has(name), name)
	}

	cmds := reg.Commands()
	for i := 1; i < len(cmds); i++ {
		assert.LessOrEqual(t, cmds[i-1].Phase, cmds[i].Phase)
	}
	assert.Equal(t, command.PreExpansion, cmds[0].Phase)
}

func TestCaseCommands(t *testing.T) {
	configs, err := expandContent(t, "grid = UGGrid | tolower\nname = {grid} | toupper\n__name = run\n")
	require.NoError(t, err)
	assert.Equal(t, []map[string]string{{"grid": "uggrid", "name": "UGGRID", "__name": "run"}}, configs)
}

func TestCaseLookups(t *testing.T) {
	configs, err := expandContent(t, "grid = UGGrid\nlow = {__lower.grid}\nup = {__upper.grid}\n")
	require.NoError(t, err)
	require.Len(t, configs, 1)
	assert.Equal(t, "uggrid", configs[0]["low"])
	assert.Equal(t, "UGGRID", configs[0]["up"])
}

func TestEval(t *testing.T) {
	configs, err := expandContent(t, "level == 1, 2\ncells = 2 ^ {level} * 10 | eval\nhalf = 1 / 2 | eval\n")
	require.NoError(t, err)
	require.Len(t, configs, 2)
	assert.Equal(t, "20", configs[0]["cells"])
	assert.Equal(t, "40", configs[1]["cells"])
	assert.Equal(t, "0.5", configs[0]["half"])

	_, err = expandContent(t, "x = 1 + | eval\n")
	assert.True(t, errors.IsErrorCode(err, errors.ErrParameter))
}

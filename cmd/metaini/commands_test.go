package metaini

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/arthur-debert/metaini/pkg/errors"
	"github.com/arthur-debert/metaini/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the root command from an empty working directory. The
// command sets up logging, so its log file goes to a temporary state dir.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	chdir(t, t.TempDir())
	t.Setenv("XDG_STATE_HOME", t.TempDir())

	var out bytes.Buffer
	rootCmd := NewRootCmd()
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestExpandWritesFiles(t *testing.T) {
	ini := testutil.WriteMini(t, "a == 1, 2\n__name = run_{a}\n")
	dir := t.TempDir()

	out, err := execute(t, "expand", "-i", ini, "-d", dir)
	require.NoError(t, err)

	assert.Equal(t, "a = 1\n", testutil.ReadFile(t, filepath.Join(dir, "run_1.ini")))
	assert.Equal(t, "a = 2\n", testutil.ReadFile(t, filepath.Join(dir, "run_2.ini")))
	assert.Contains(t, out, "wrote "+filepath.Join(dir, "run_1.ini"))
	assert.Contains(t, out, "wrote "+filepath.Join(dir, "run_2.ini"))
}

func TestExpandCMake(t *testing.T) {
	ini := testutil.WriteMini(t, "a == 1, 2\n__name = run_{a}\n")
	dir := t.TempDir()

	out, err := execute(t, "expand", "--ini", ini, "--dir", dir, "--cmake")
	require.NoError(t, err)

	assert.Equal(t,
		"__SINGLE;run_1.ini_suffix;run_2.ini_suffix;"+
			"__MULTI;names;"+
			"__DATA;names;run_1.ini;run_2.ini;run_1.ini_suffix;;run_2.ini_suffix;;"+
			"__SEMICOLON;&",
		out)
	assert.Contains(t, testutil.ReadFile(t, filepath.Join(dir, "run_1.ini")), "__name = "+filepath.Join(dir, "run_1"))
}

func TestExpandFormat(t *testing.T) {
	ini := testutil.WriteMini(t, "a == 1, 2\n__name = run_{a}\n")
	dir := t.TempDir()

	_, err := execute(t, "expand", "-i", ini, "-d", dir, "-f", "toml")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "run_1.toml"))

	_, err = execute(t, "expand", "-i", ini, "-d", dir, "-f", "xml")
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrConfigLoad))
}

func TestExpandConfigFile(t *testing.T) {
	ini := testutil.WriteMini(t, "a == 1, 2\n__name = run_{a}\n")
	dir := t.TempDir()
	cfg := testutil.CreateFile(t, t.TempDir(), "metaini.toml", "[output]\nformat = \"yaml\"\ndir = \""+dir+"\"\n")

	_, err := execute(t, "--config", cfg, "expand", "-i", ini)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "run_2.yaml"))
}

func TestExpandErrors(t *testing.T) {
	t.Run("every configuration excluded", func(t *testing.T) {
		ini := testutil.WriteMini(t, "a == 1, 2\n{a} > 0 | exclude\n")
		_, err := execute(t, "expand", "-i", ini, "-d", t.TempDir())
		require.Error(t, err)
		assert.True(t, errors.IsErrorCode(err, errors.ErrSkip))
		assert.Equal(t, ExitSkip, ExitCode(err))
	})

	t.Run("too many configurations", func(t *testing.T) {
		ini := testutil.WriteMini(t, "a == 1, 2\n")
		_, err := execute(t, "expand", "-i", ini, "-d", t.TempDir(), "--max-configurations", "1")
		require.Error(t, err)
		assert.True(t, errors.IsErrorCode(err, errors.ErrTooManyConfigurations))
		assert.Equal(t, ini, errors.GetErrorDetails(err)["file"])
		assert.Equal(t, 1, ExitCode(err))
	})

	t.Run("missing ini flag", func(t *testing.T) {
		_, err := execute(t, "expand")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ini")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := execute(t, "expand", "-i", filepath.Join(t.TempDir(), "nope.mini"))
		require.Error(t, err)
		assert.True(t, errors.IsErrorCode(err, errors.ErrFileNotFound))
	})
}

func TestStaticCmd(t *testing.T) {
	ini := testutil.WriteMini(t, `
__exec_suffix = {__static.GRID}
level == 1, 2
[__static]
GRID == yasp, ug
`)

	out, err := execute(t, "static", "-i", ini)
	require.NoError(t, err)
	assert.Equal(t,
		"__SINGLE;yasp.GRID;ug.GRID;"+
			"__MULTI;__CONFIGS;"+
			"__DATA;__CONFIGS;yasp;ug;yasp.GRID;yasp;ug.GRID;ug;"+
			"__SEMICOLON;&",
		out)
}

func TestStaticCheck(t *testing.T) {
	ini := testutil.WriteMini(t, "level == 1, 2\n[__static]\nGRID == yasp, ug\n")
	out, err := execute(t, "static", "-i", ini, "--check")
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrStaticVariations))
	assert.Equal(t, 1, ExitCode(err))
	assert.Empty(t, out)

	ini = testutil.WriteMini(t, "level == 1, 2\n[__static]\nGRID = yasp\n")
	out, err = execute(t, "static", "-i", ini, "--check")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestExpandStaticSuffixes(t *testing.T) {
	ini := testutil.WriteMini(t, `
__name = run_{level}_{__static.GRID}
__exec_suffix = {__static.GRID}
level == 1, 2
[__static]
GRID == yasp, ug
`)
	dir := t.TempDir()

	out, err := execute(t, "expand", "-i", ini, "-d", dir, "-c")
	require.NoError(t, err)
	assert.Contains(t, out, "run_1_yasp.ini_suffix;yasp;")
	assert.Contains(t, out, "run_2_ug.ini_suffix;ug;")
}

func TestConvergenceCmd(t *testing.T) {
	ini := testutil.WriteMini(t, `
[__CONVERGENCE_TEST]
TestKey = grid.refinement
[grid]
refinement == 1, 2, 3
[model]
kind == heat, wave
`)
	dir := t.TempDir()

	out, err := execute(t, "convergence", "-i", ini, "-d", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "2 convergence test(s)")
	assert.Equal(t, 6, strings.Count(out, "wrote "))

	out, err = execute(t, "convergence", "-i", ini, "-d", dir, "-c")
	require.NoError(t, err)
	assert.Contains(t, out, "__MULTI;tests;names;")
	assert.Contains(t, out, "__DATA;tests;0;1;")
}

func TestCommandsCmd(t *testing.T) {
	out, err := execute(t, "commands")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Equal(t, "Name\tPhase\tMode\tArgs\tDescription", lines[0])
	assert.Contains(t, out, "expand\tat_expansion\tconfigs\t1\t")
	assert.Contains(t, out, "label\tpost_resolution\tmutate\t2 (,PRIORITY)\t")
	for _, name := range []string{"unique", "tolower", "toupper", "eval", "exclude", "cmake_guard", "convergencetest"} {
		assert.Contains(t, out, name+"\t")
	}
}

func TestSyntaxCmd(t *testing.T) {
	out, err := execute(t, "syntax")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "# Meta ini syntax"))
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "metaini "))
}

func TestCompletionCmd(t *testing.T) {
	out, err := execute(t, "completion", "bash")
	require.NoError(t, err)
	assert.Contains(t, out, "metaini")

	_, err = execute(t, "completion", "tcsh")
	assert.Error(t, err)
}

func TestRootWithoutCommand(t *testing.T) {
	_, err := execute(t)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrInvalidInput))
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, ExitSkip, ExitCode(errors.New(errors.ErrSkip, "skip")))
	assert.Equal(t, ExitSkip, ExitCode(errors.Wrap(errors.New(errors.ErrSkip, "skip"), errors.ErrInternal, "outer")))
	assert.Equal(t, 1, ExitCode(errors.New(errors.ErrParse, "bad")))
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent to testing.T.Chdir, added in Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(wd); err != nil {
			t.Fatal(err)
		}
	})
}

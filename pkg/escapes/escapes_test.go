package escapes_test

import (
	"strings"
	"testing"

	"github.com/arthur-debert/metaini/pkg/errors"
	"github.com/arthur-debert/metaini/pkg/escapes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapLookup map[string]string

func (m mapLookup) Get(key string) (string, error) {
	v, ok := m[key]
	if !ok {
		return "", errors.Newf(errors.ErrKeyNotFound, "key %s not found", key)
	}
	return v, nil
}

func TestExistsUnescaped(t *testing.T) {
	tests := []struct {
		name string
		s    string
		d    string
		want bool
	}{
		{"empty string", "", ",", false},
		{"plain occurrence", "a,b", ",", true},
		{"leading occurrence", ",a", ",", true},
		{"escaped only", `a\,b`, ",", false},
		{"escaped and plain", `a\,b,c`, ",", true},
		{"trailing backslash", `abc\`, ",", false},
		{"absent", "abc", "|", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, escapes.ExistsUnescaped(tt.s, tt.d))
		})
	}
}

func TestCountUnescaped(t *testing.T) {
	assert.Equal(t, 0, escapes.CountUnescaped("", "="))
	assert.Equal(t, 1, escapes.CountUnescaped("key = value", "="))
	assert.Equal(t, 2, escapes.CountUnescaped("key =grid= 1, 2", "="))
	assert.Equal(t, 1, escapes.CountUnescaped(`key = a\=b`, "="))
	assert.Equal(t, 2, escapes.CountUnescaped("a == b", "="))
}

func TestSplitUnescaped(t *testing.T) {
	tests := []struct {
		name     string
		s        string
		maxsplit int
		want     []string
	}{
		{"simple list", "1, 2, 3", -1, []string{"1", "2", "3"}},
		{"escaped delimiter", `a\,b, c`, -1, []string{"a,b", "c"}},
		{"maxsplit", "a, b, c", 1, []string{"a", "b, c"}},
		{"no delimiter", "abc", -1, []string{"abc"}},
		{"empty pieces kept", "a,,b", -1, []string{"a", "", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, escapes.SplitUnescaped(tt.s, ",", tt.maxsplit))
		})
	}
}

func TestSplitRawKeepsEscapes(t *testing.T) {
	assert.Equal(t, []string{`a\|b`, "tolower", "expand x"}, escapes.SplitRaw(`a\|b | tolower | expand x`, "|", -1))
	assert.Equal(t, []string{"a", "b | c"}, escapes.SplitRaw("a | b | c", "|", 1))
}

func TestSplitJoinIsInverseUpToEscapes(t *testing.T) {
	inputs := []string{
		`a\,b,c`,
		"x,y,z",
		`\,,\,`,
		"single",
		`tail\`,
	}

	for _, s := range inputs {
		t.Run(s, func(t *testing.T) {
			joined := strings.Join(escapes.SplitUnescaped(s, ",", -1), ",")
			assert.Equal(t, escapes.StripEscapes(s, ","), escapes.StripEscapes(joined, ","))
		})
	}
}

func TestStripAndEscape(t *testing.T) {
	assert.Equal(t, "a{b}", escapes.StripEscapes(`a\{b}`, "{"))
	assert.Equal(t, "[a]=b", escapes.StripAll(`\[a\]\=b`, "[]="))
	assert.Equal(t, `a\#b\=c`, escapes.EscapeAll("a#b=c", "#="))
	assert.Equal(t, `a\#b`, escapes.EscapeAll(`a\#b`, "#"), "already escaped stays single-escaped")
}

func TestFields(t *testing.T) {
	assert.Equal(t, []string{"expand", "grid"}, escapes.Fields("  expand   grid "))
	assert.Equal(t, []string{"label", "a b"}, escapes.Fields(`label a\ b`))
	assert.Nil(t, escapes.Fields("   "))
}

func TestExtractDelimited(t *testing.T) {
	inner, err := escapes.ExtractDelimited("x{a{b}c}", "{", "}")
	require.NoError(t, err)
	assert.Equal(t, "b", inner)

	inner, err = escapes.ExtractDelimited(`\{no}{yes}`, "{", "}")
	require.NoError(t, err)
	assert.Equal(t, "yes", inner)

	_, err = escapes.ExtractDelimited("nothing here", "{", "}")
	assert.True(t, errors.IsErrorCode(err, errors.ErrDelimiterNotFound))

	_, err = escapes.ExtractDelimited("only } closing", "{", "}")
	assert.True(t, errors.IsErrorCode(err, errors.ErrDelimiterNotFound))
}

func TestReplaceDelimited(t *testing.T) {
	m := mapLookup{"grid.level": "3", "name": "level{grid.level}"}

	out, err := escapes.ReplaceDelimited("run_{grid.level}", m, nil)
	require.NoError(t, err)
	assert.Equal(t, "run_3", out)

	out, err = escapes.ReplaceDelimited("{ grid.level }-{name}", m, nil)
	require.NoError(t, err)
	assert.Equal(t, "3-{name}", out, "only the first innermost span is replaced")

	upper := func(m escapes.Lookup, key string) (string, error) {
		v, err := m.Get(key)
		return strings.ToUpper(v), err
	}
	out, err = escapes.ReplaceDelimited("{name}", m, upper)
	require.NoError(t, err)
	assert.Equal(t, "LEVEL{GRID.LEVEL}", out)

	_, err = escapes.ReplaceDelimited("{missing}", m, nil)
	assert.True(t, errors.IsErrorCode(err, errors.ErrKeyNotFound))
}

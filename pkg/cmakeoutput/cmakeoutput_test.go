package cmakeoutput_test

import (
	"bytes"
	"testing"

	"github.com/arthur-debert/metaini/pkg/cmakeoutput"
	"github.com/arthur-debert/metaini/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	d := cmakeoutput.NewData()
	d.Append("names", "a.ini", "b.ini")
	d.Set("a.ini_suffix", "")
	d.Set("label", "x;y")

	out, err := cmakeoutput.Encode(d)
	require.NoError(t, err)
	assert.Equal(t,
		"__SINGLE;a.ini_suffix;label;__MULTI;names;__DATA;names;a.ini;b.ini;a.ini_suffix;;label;x&y;__SEMICOLON;&",
		out)
}

func TestEncodeSkipsUsedReplacements(t *testing.T) {
	d := cmakeoutput.NewData()
	d.Set("a&b", "c#d")

	out, err := cmakeoutput.Encode(d)
	require.NoError(t, err)
	assert.Equal(t, "__SINGLE;a&b;__MULTI;__DATA;a&b;c#d;__SEMICOLON;!", out)
}

func TestEncodeNoReplacementLeft(t *testing.T) {
	d := cmakeoutput.NewData()
	d.Set("k", "&#!?/")

	_, err := cmakeoutput.Encode(d)
	assert.True(t, errors.IsErrorCode(err, errors.ErrInvalidInput))
}

func TestDataKeepsInsertionOrder(t *testing.T) {
	d := cmakeoutput.NewData()
	d.Set("z", "1")
	d.Set("a", "2")
	d.SetList("z", []string{"x"})
	d.Append("m")

	assert.Equal(t, []string{"z", "a", "m"}, d.Keys())
	assert.Equal(t, 3, d.Len())

	_, ok := d.Get("z")
	assert.False(t, ok, "a list replaces the single value")
	list, ok := d.List("z")
	assert.True(t, ok)
	assert.Equal(t, []string{"x"}, list)

	m, ok := d.List("m")
	assert.True(t, ok)
	assert.Empty(t, m)
}

func TestWrite(t *testing.T) {
	d := cmakeoutput.NewData()
	d.Set("k", "v")

	var buf bytes.Buffer
	require.NoError(t, cmakeoutput.Write(&buf, d))
	assert.Equal(t, "__SINGLE;k;__MULTI;__DATA;k;v;__SEMICOLON;&", buf.String())
}

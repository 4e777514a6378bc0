// Package cmakeoutput encodes key/value data for the build system, which
// reads it with its argument-parsing macros.
//
// The encoding is a single ';'-separated list:
//
//	__SINGLE;k1;k2;__MULTI;m1;__DATA;k1;v1;k2;v2;m1;a;b;__SEMICOLON;&
//
// Semicolons inside keys and values are replaced by the first of & # ! ? /
// that does not occur in the data; that character is given last.
package cmakeoutput

import (
	"io"
	"strings"

	"github.com/arthur-debert/metaini/pkg/errors"
)

const delimiter = ";"

// replacementCandidates stand in for semicolons in the data.
const replacementCandidates = "&#!?/"

// Data is an insertion-ordered map of keys to single values or lists.
type Data struct {
	keys   []string
	single map[string]string
	multi  map[string][]string
}

// NewData returns empty data.
func NewData() *Data {
	return &Data{single: make(map[string]string), multi: make(map[string][]string)}
}

func (d *Data) touch(key string) {
	if _, ok := d.single[key]; ok {
		return
	}
	if _, ok := d.multi[key]; ok {
		return
	}
	d.keys = append(d.keys, key)
}

// Set stores a single value, replacing any list under key.
func (d *Data) Set(key, value string) {
	d.touch(key)
	delete(d.multi, key)
	d.single[key] = value
}

// SetList stores a list, replacing any single value under key.
func (d *Data) SetList(key string, values []string) {
	d.touch(key)
	delete(d.single, key)
	d.multi[key] = append([]string{}, values...)
}

// Append adds values to the list under key, creating it when needed.
func (d *Data) Append(key string, values ...string) {
	if _, ok := d.multi[key]; !ok {
		d.SetList(key, nil)
	}
	d.multi[key] = append(d.multi[key], values...)
}

// Get returns the single value under key.
func (d *Data) Get(key string) (string, bool) {
	v, ok := d.single[key]
	return v, ok
}

// List returns the list under key.
func (d *Data) List(key string) ([]string, bool) {
	v, ok := d.multi[key]
	return v, ok
}

// Keys returns the keys in insertion order.
func (d *Data) Keys() []string {
	return append([]string{}, d.keys...)
}

// Len is the number of keys.
func (d *Data) Len() int {
	return len(d.keys)
}

func (d *Data) contains(c string) bool {
	for _, key := range d.keys {
		if strings.Contains(key, c) {
			return true
		}
		if v, ok := d.single[key]; ok && strings.Contains(v, c) {
			return true
		}
		for _, item := range d.multi[key] {
			if strings.Contains(item, c) {
				return true
			}
		}
	}
	return false
}

// Encode renders d in the build system encoding.
func Encode(d *Data) (string, error) {
	replacement := ""
	for _, c := range replacementCandidates {
		if !d.contains(string(c)) {
			replacement = string(c)
			break
		}
	}
	if replacement == "" {
		return "", errors.Newf(errors.ErrInvalidInput,
			"no replacement for semicolons: the data uses all of %q", replacementCandidates)
	}
	prepare := func(s string) string {
		return strings.ReplaceAll(s, delimiter, replacement) + delimiter
	}

	var singles, multis, data strings.Builder
	singles.WriteString("__SINGLE" + delimiter)
	multis.WriteString("__MULTI" + delimiter)
	data.WriteString("__DATA" + delimiter)

	for _, key := range d.keys {
		if list, ok := d.multi[key]; ok {
			multis.WriteString(prepare(key))
			data.WriteString(prepare(key))
			for _, item := range list {
				data.WriteString(prepare(item))
			}
			continue
		}
		singles.WriteString(prepare(key))
		data.WriteString(prepare(key))
		data.WriteString(prepare(d.single[key]))
	}

	out := singles.String() + multis.String() + data.String() +
		"__SEMICOLON" + delimiter + replacement
	return out, nil
}

// Write encodes d to w.
func Write(w io.Writer, d *Data) error {
	out, err := Encode(d)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, out)
	return err
}

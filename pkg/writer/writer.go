// Package writer serializes configuration trees to disk as ini, toml or
// yaml files.
package writer

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/arthur-debert/metaini/pkg/dotdict"
	"github.com/arthur-debert/metaini/pkg/errors"
	"github.com/arthur-debert/metaini/pkg/escapes"
	"github.com/arthur-debert/metaini/pkg/logging"
)

// Format is an output file format.
type Format string

const (
	FormatINI  Format = "ini"
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

// Formats lists the supported formats.
func Formats() []Format {
	return []Format{FormatINI, FormatTOML, FormatYAML}
}

// ParseFormat returns the format named s.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatINI, FormatTOML, FormatYAML:
		return f, nil
	case "yml":
		return FormatYAML, nil
	case "":
		return FormatINI, nil
	}
	return "", errors.Newf(errors.ErrInvalidInput, "unknown output format %q", s).
		WithDetail("format", s)
}

// specialChars are escaped in ini values so the parser reads them back
// literally.
const specialChars = `#|[]"`

// WriteINI writes t in meta ini syntax: the scalars of a group sorted by
// key, then every sub-group sorted by key under a [dotted.path] header.
// The values of the verbatim keys are written unescaped, so a pipeline
// they carry stays a pipeline.
func WriteINI(w io.Writer, t *dotdict.Tree, assignment string, verbatim ...string) error {
	if assignment == "" {
		assignment = "="
	}
	raw := make(map[string]bool, len(verbatim))
	for _, key := range verbatim {
		raw[key] = true
	}
	bw := bufio.NewWriter(w)
	if err := writeGroup(bw, t, nil, assignment, raw); err != nil {
		return err
	}
	return bw.Flush()
}

func writeGroup(w *bufio.Writer, t *dotdict.Tree, path []string, assignment string, raw map[string]bool) error {
	escape := specialChars + "=" + assignment

	for _, name := range sortedCopy(t.ValueNames()) {
		value, _ := t.Get(name)
		key := strings.Join(append(append([]string{}, path...), name), dotdict.Separator)
		if !raw[key] {
			value = escapes.EscapeAll(value, escape)
		}
		if _, err := fmt.Fprintf(w, "%s %s %s\n", name, assignment, value); err != nil {
			return err
		}
	}

	for _, name := range sortedCopy(t.GroupNames()) {
		sub, _ := t.Group(name)
		subPath := append(append([]string{}, path...), name)
		if _, err := fmt.Fprintf(w, "\n[%s]\n", strings.Join(subPath, dotdict.Separator)); err != nil {
			return err
		}
		if err := writeGroup(w, sub, subPath, assignment, raw); err != nil {
			return err
		}
	}
	return nil
}

func sortedCopy(names []string) []string {
	out := append([]string{}, names...)
	sort.Strings(out)
	return out
}

// Encode renders t in the given format. Verbatim keys only matter for
// ini output; see WriteINI.
func Encode(t *dotdict.Tree, format Format, verbatim ...string) ([]byte, error) {
	switch format {
	case FormatINI, "":
		var buf bytes.Buffer
		if err := WriteINI(&buf, t, "=", verbatim...); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case FormatTOML:
		data, err := toml.Marshal(t.Nested())
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrFileWrite, "cannot encode configuration as toml")
		}
		return data, nil
	case FormatYAML:
		data, err := yaml.Marshal(t.Nested())
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrFileWrite, "cannot encode configuration as yaml")
		}
		return data, nil
	}
	return nil, errors.Newf(errors.ErrInvalidInput, "unknown output format %q", format).
		WithDetail("format", string(format))
}

// WriteFile writes t to path in the given format, creating the parent
// directory when needed.
func WriteFile(path string, t *dotdict.Tree, format Format, verbatim ...string) error {
	logger := logging.GetLogger("writer")

	data, err := Encode(t, format, verbatim...)
	if err != nil {
		return errors.WithFile(err, path)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.Wrapf(err, errors.ErrDirCreate, "cannot create directory %s", dir).
				WithDetail("dir", dir)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrapf(err, errors.ErrFileWrite, "cannot write %s", path).
			WithDetail("file", path)
	}

	logger.Debug().
		Str("file", path).
		Str("format", string(format)).
		Int("keys", t.Len()).
		Msg("Wrote configuration")
	return nil
}

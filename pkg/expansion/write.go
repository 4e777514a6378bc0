package expansion

import (
	"path/filepath"
	"strings"

	"github.com/arthur-debert/metaini/pkg/cmakeoutput"
	"github.com/arthur-debert/metaini/pkg/dotdict"
	"github.com/arthur-debert/metaini/pkg/errors"
	"github.com/arthur-debert/metaini/pkg/writer"
)

// Reserved keys read when writing configurations.
const (
	ExtensionKey = "__inifile_extension"
	StaticKey    = "__static"
	LabelsKey    = "__LABELS"
	NamesEntry   = "names"
)

// SuffixResolver finds the executable suffix of the static variant a
// configuration belongs to.
type SuffixResolver interface {
	SuffixFor(static *dotdict.Tree) (string, bool)
}

// WriteOptions control WriteConfiguration.
type WriteOptions struct {
	// Dir replaces the directory part of the configuration name.
	Dir string
	// CMake keeps the reserved keys in the written file.
	CMake  bool
	Format writer.Format
	// Prefix is prepended to the suffix entries of the collected data.
	Prefix string
	// Verbatim keys are written without escaping.
	Verbatim []string
}

// WriteConfiguration writes c to the file named by its __name key and
// records the file in data: its name under "names", the suffix of its
// static variant under "<prefix><file>_suffix" and its labels under
// "<file>_labels". It returns the path written.
func WriteConfiguration(c *dotdict.Tree, data *cmakeoutput.Data, static SuffixResolver, opts WriteOptions) (string, error) {
	name, err := c.Get(NameKey)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrKeyNotFound, "configuration has no name").
			WithDetail("key", NameKey)
	}

	format := opts.Format
	if format == "" {
		format = writer.FormatINI
	}
	extension := string(format)
	if ext, ok := c.Lookup(ExtensionKey); ok {
		extension = strings.Trim(ext, ".")
		c.Delete(ExtensionKey)
	}
	file := name + "." + extension

	if data != nil {
		data.Append(NamesEntry, file)

		if group, err := c.Group(StaticKey); err == nil {
			if static != nil {
				if suffix, ok := static.SuffixFor(group); ok {
					data.Set(opts.Prefix+file+"_suffix", suffix)
				}
			}
		} else {
			data.Set(opts.Prefix+file+"_suffix", "")
		}

		if labels, err := c.Group(LabelsKey); err == nil {
			var values []string
			for _, k := range labels.ValueNames() {
				v, _ := labels.Get(k)
				values = append(values, v)
			}
			data.SetList(file+"_labels", values)
		}
	}

	if opts.Dir != "" {
		name = filepath.Join(opts.Dir, filepath.Base(name))
		if err := c.Set(NameKey, name); err != nil {
			return "", err
		}
	}

	if !opts.CMake {
		for _, key := range []string{NameKey, ExecSuffixKey, StaticKey, LabelsKey} {
			c.Delete(key)
		}
	}

	path := name + "." + extension
	if err := writer.WriteFile(path, c, format, opts.Verbatim...); err != nil {
		return "", err
	}
	return path, nil
}

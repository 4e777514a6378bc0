// Package static extracts the static variations of a meta ini file: the
// configurations of the __static section, which the build system turns
// into separate executables, each identified by its __exec_suffix.
package static

import (
	"github.com/arthur-debert/metaini/pkg/cmakeoutput"
	"github.com/arthur-debert/metaini/pkg/dotdict"
	"github.com/arthur-debert/metaini/pkg/expansion"
	"github.com/arthur-debert/metaini/pkg/logging"
	"github.com/arthur-debert/metaini/pkg/uniquenames"
)

// Keys of the extracted data.
const (
	ConfigsEntry = "__CONFIGS"
	GuardsKey    = "__cmake_guards"
	GuardsEntry  = "__GUARDS"
)

// Info holds the static variations of a meta ini file.
type Info struct {
	// Configs are the executable suffixes, one per static variation.
	Configs []string
	// Groups are the sub-groups of the static section, in order of first
	// appearance.
	Groups []string

	groupKeys map[string][]string
	data      map[string]*dotdict.Tree
	guards    map[string][]string
}

// Extract expands the static section of the meta ini file at path.
func Extract(path string, opts ...expansion.Option) (*Info, error) {
	logger := logging.GetLogger("static")

	opts = append(opts,
		expansion.WithWhiteFilter(expansion.StaticKey, expansion.ExecSuffixKey, GuardsKey),
		expansion.WithNameKey(false),
	)
	configs, err := expansion.Expand(path, opts...)
	if err != nil {
		return nil, err
	}
	if err := uniquenames.MakeUnique(configs, expansion.ExecSuffixKey); err != nil {
		return nil, err
	}

	info := &Info{
		groupKeys: make(map[string][]string),
		data:      make(map[string]*dotdict.Tree),
		guards:    make(map[string][]string),
	}
	for _, c := range configs {
		suffix, _ := c.Get(expansion.ExecSuffixKey)
		info.Configs = append(info.Configs, suffix)

		static, err := c.Group(expansion.StaticKey)
		if err != nil {
			static = dotdict.New()
		}
		info.data[suffix] = static

		for _, group := range static.GroupNames() {
			if _, ok := info.groupKeys[group]; !ok {
				info.Groups = append(info.Groups, group)
				info.groupKeys[group] = nil
			}
			sub, _ := static.Group(group)
			for _, key := range sub.Keys() {
				info.groupKeys[group] = appendNew(info.groupKeys[group], key)
			}
		}

		if guards, err := c.Group(GuardsKey); err == nil {
			for _, key := range guards.Keys() {
				v, _ := guards.Get(key)
				info.guards[suffix] = append(info.guards[suffix], v)
			}
		}
	}

	logger.Debug().
		Str("file", path).
		Strs("configs", info.Configs).
		Strs("groups", info.Groups).
		Msg("Extracted static information")
	return info, nil
}

// HasVariations reports whether the __static section of the meta ini file
// at path expands to more than one configuration, in which case the build
// system needs one executable per variation.
func HasVariations(path string, opts ...expansion.Option) (bool, error) {
	opts = append(opts,
		expansion.WithWhiteFilter(expansion.StaticKey),
		expansion.WithNameKey(false),
	)
	configs, err := expansion.Expand(path, opts...)
	if err != nil {
		return false, err
	}
	return len(configs) > 1, nil
}

func appendNew(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}

// GroupKeys returns the keys found in a static sub-group across all
// variations.
func (i *Info) GroupKeys(group string) []string {
	return append([]string{}, i.groupKeys[group]...)
}

// Static returns the static section of the variation with the given
// suffix.
func (i *Info) Static(suffix string) (*dotdict.Tree, bool) {
	t, ok := i.data[suffix]
	return t, ok
}

// Guards returns the build guards of the variation with the given suffix.
func (i *Info) Guards(suffix string) []string {
	return append([]string{}, i.guards[suffix]...)
}

// SuffixFor returns the suffix of the variation whose static section
// equals static.
func (i *Info) SuffixFor(static *dotdict.Tree) (string, bool) {
	for _, suffix := range i.Configs {
		if i.data[suffix].Equal(static) {
			return suffix, true
		}
	}
	return "", false
}

// Data renders the information for the build system: the suffixes under
// __CONFIGS, the keys of every sub-group under __<group>, and the static
// values of each variation as <suffix>.<key>.
func (i *Info) Data() *cmakeoutput.Data {
	d := cmakeoutput.NewData()
	d.SetList(ConfigsEntry, i.Configs)
	for _, group := range i.Groups {
		d.SetList("__"+group, i.groupKeys[group])
	}
	for _, suffix := range i.Configs {
		prefix := ""
		if suffix != "" {
			prefix = suffix + dotdict.Separator
		}
		_ = i.data[suffix].Walk(func(key, value string) error {
			d.Set(prefix+key, value)
			return nil
		})
		if guards := i.guards[suffix]; len(guards) > 0 {
			d.SetList(prefix+GuardsEntry, guards)
		}
	}
	return d
}

// Package expansion turns a meta ini file into the list of concrete
// configurations it describes.
//
// The engine parses the file, then drains the command queue phase by phase:
//
//	PreExpansion, AtExpansion (cartesian product of the expanded lists),
//	PostExpansion, PreResolution, resolution of {key} references,
//	PostResolution, PreFiltering, filtering and deduplication, naming,
//	PostFiltering
//
// and finally strips the escapes left in the values.
package expansion

import (
	"strings"

	"github.com/arthur-debert/metaini/pkg/command"
	"github.com/arthur-debert/metaini/pkg/dotdict"
	"github.com/arthur-debert/metaini/pkg/errors"
	"github.com/arthur-debert/metaini/pkg/escapes"
	"github.com/arthur-debert/metaini/pkg/logging"
	"github.com/arthur-debert/metaini/pkg/parser"
	"github.com/arthur-debert/metaini/pkg/uniquenames"
	"github.com/rs/zerolog"
)

// leftoverEscapes are unescaped in every value once expansion is done.
const leftoverEscapes = "[]{}=,|"

// UniqueKeys are always made unique and cannot be interpolated.
var UniqueKeys = []string{NameKey, ExecSuffixKey}

// Expand expands the meta ini file at path.
func Expand(path string, opts ...Option) ([]*dotdict.Tree, error) {
	e := &engine{opts: NewOptions(opts...), file: path, logger: logging.GetLogger("expansion")}
	configs, err := e.run()
	if err != nil {
		return nil, errors.WithFile(err, path)
	}
	return configs, nil
}

type engine struct {
	opts   Options
	file   string
	queue  *command.Queue
	logger zerolog.Logger
}

func (e *engine) run() ([]*dotdict.Tree, error) {
	done := logging.LogOperationStart(e.logger, "expand "+e.file)
	defer done()

	res, err := parser.ParseFile(e.file, e.opts.ParserOptions())
	if err != nil {
		return nil, err
	}
	e.queue = res.Queue

	configs := []*dotdict.Tree{res.Tree}

	if configs, err = e.apply(configs, command.PreExpansion); err != nil {
		return nil, err
	}
	if configs, err = e.expand(configs); err != nil {
		return nil, err
	}
	for _, phase := range []command.Phase{command.PostExpansion, command.PreResolution} {
		if configs, err = e.apply(configs, phase); err != nil {
			return nil, err
		}
	}
	if err := e.resolve(configs); err != nil {
		return nil, err
	}
	for _, phase := range []command.Phase{command.PostResolution, command.PreFiltering} {
		if configs, err = e.apply(configs, phase); err != nil {
			return nil, err
		}
	}

	configs = Deduplicate(e.filter(configs))
	if len(configs) == 0 {
		return configs, nil
	}
	if err := e.name(configs); err != nil {
		return nil, err
	}
	if configs, err = e.apply(configs, command.PostFiltering); err != nil {
		return nil, err
	}

	for _, c := range configs {
		if err := stripLeftoverEscapes(c); err != nil {
			return nil, err
		}
	}

	e.logger.Info().
		Str("file", e.file).
		Int("configurations", len(configs)).
		Msg("Expanded meta ini file")
	return configs, nil
}

func (e *engine) apply(configs []*dotdict.Tree, phase command.Phase) ([]*dotdict.Tree, error) {
	invs := e.queue.Phase(phase)
	if len(invs) == 0 {
		return configs, nil
	}
	e.logger.Debug().
		Str("phase", phase.String()).
		Int("commands", len(invs)).
		Int("configurations", len(configs)).
		Msg("Applying phase")
	return command.Apply(configs, invs, e.opts.Registry, e.queue)
}

// expand runs the AtExpansion phase: every expand factor multiplies the
// configurations, then any other command of the phase is applied.
func (e *engine) expand(configs []*dotdict.Tree) ([]*dotdict.Tree, error) {
	var expands, others []command.Invocation
	for _, inv := range e.queue.Phase(command.AtExpansion) {
		if inv.Name == command.ExpandCommand {
			expands = append(expands, inv)
		} else {
			others = append(others, inv)
		}
	}

	for _, f := range groupFactors(expands) {
		var err error
		configs, err = expandKeys(configs, f.keys, e.opts.MaxConfigurations)
		if err != nil {
			return nil, err
		}
		e.logger.Debug().
			Strs("keys", f.keys).
			Str("identifier", f.ident).
			Int("configurations", len(configs)).
			Msg("Expanded keys")
	}

	if len(others) == 0 {
		return configs, nil
	}
	return command.Apply(configs, others, e.opts.Registry, e.queue)
}

func (e *engine) isUnique(key string) bool {
	for _, k := range UniqueKeys {
		if k == key {
			return true
		}
	}
	return e.queue.Has(uniquenames.CommandName, key)
}

func (e *engine) resolve(configs []*dotdict.Tree) error {
	for _, c := range configs {
		r := &resolver{config: c, unique: e.isUnique, maxPasses: e.opts.MaxResolutionPasses}
		if r.maxPasses <= 0 {
			r.maxPasses = DefaultMaxResolutionPasses
		}
		if err := r.resolve(); err != nil {
			return err
		}
	}
	return nil
}

// filter drops the keys matching the black filter, always including
// __local, then keeps only the keys matching the white filter.
func (e *engine) filter(configs []*dotdict.Tree) []*dotdict.Tree {
	black := append([]string{LocalPrefix}, e.opts.BlackFilter...)
	white := e.opts.WhiteFilter

	out := make([]*dotdict.Tree, len(configs))
	for i, c := range configs {
		c = c.Filter(func(key string) bool { return !hasAnyPrefix(key, black) })
		if len(white) > 0 {
			c = c.Filter(func(key string) bool { return hasAnyPrefix(key, white) })
		}
		out[i] = c
	}
	return out
}

func hasAnyPrefix(key string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(key, p) {
			return true
		}
	}
	return false
}

// name gives every configuration a __name and schedules making it unique,
// or strips __name when no name key is wanted.
func (e *engine) name(configs []*dotdict.Tree) error {
	if !e.opts.AddNameKey {
		for _, c := range configs {
			c.Delete(NameKey)
		}
		return nil
	}
	for _, c := range configs {
		if !c.HasValue(NameKey) {
			if err := c.Set(NameKey, ""); err != nil {
				return err
			}
		}
	}
	if !e.queue.Has(uniquenames.CommandName, NameKey) {
		e.queue.Add(command.PostFiltering, command.Invocation{Name: uniquenames.CommandName, Key: NameKey})
	}
	return nil
}

// Deduplicate drops configurations equal to an earlier one, keeping the
// first occurrence.
func Deduplicate(configs []*dotdict.Tree) []*dotdict.Tree {
	seen := make(map[string]bool, len(configs))
	out := make([]*dotdict.Tree, 0, len(configs))
	for _, c := range configs {
		s := c.String()
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, c)
	}
	return out
}

func stripLeftoverEscapes(c *dotdict.Tree) error {
	for _, key := range c.Keys() {
		value, err := c.Get(key)
		if err != nil {
			return err
		}
		stripped := value
		for _, ch := range leftoverEscapes {
			stripped = escapes.StripEscapes(stripped, string(ch))
		}
		if stripped != value {
			if err := c.Set(key, stripped); err != nil {
				return err
			}
		}
	}
	return nil
}

package expansion

import (
	"strings"

	"github.com/arthur-debert/metaini/pkg/dotdict"
	"github.com/arthur-debert/metaini/pkg/errors"
	"github.com/arthur-debert/metaini/pkg/escapes"
)

// Lookup prefixes changing the case of the interpolated value.
const (
	LowerPrefix = "__lower."
	UpperPrefix = "__upper."
)

// needsResolution reports whether value holds a {key} reference.
func needsResolution(value string) bool {
	_, err := escapes.ExtractDelimited(value, "{", "}")
	return err == nil
}

// resolver substitutes {key} references inside one configuration.
type resolver struct {
	config    *dotdict.Tree
	unique    func(key string) bool
	maxPasses int
}

// lookup returns the value a reference stands for. ready is false when
// that value still holds references itself.
func (r *resolver) lookup(ref string) (value string, ready bool, err error) {
	key := strings.TrimSpace(ref)
	transform := func(s string) string { return s }
	switch {
	case strings.HasPrefix(key, LowerPrefix):
		key, transform = strings.TrimPrefix(key, LowerPrefix), strings.ToLower
	case strings.HasPrefix(key, UpperPrefix):
		key, transform = strings.TrimPrefix(key, UpperPrefix), strings.ToUpper
	}

	if r.unique(key) {
		return "", false, errors.Newf(errors.ErrUnresolved,
			"cannot interpolate %s: keys made unique are only known after expansion", key).
			WithDetail("key", key)
	}

	value, err = r.config.Get(key)
	if err != nil {
		return "", false, err
	}
	if needsResolution(value) {
		return "", false, nil
	}
	return transform(value), true, nil
}

// resolveKey substitutes the references of key whose targets are already
// resolved. It reports whether the value changed.
func (r *resolver) resolveKey(key string) (bool, error) {
	value, err := r.config.Get(key)
	if err != nil {
		return false, err
	}

	changed := false
	for needsResolution(value) {
		ref, _ := escapes.ExtractDelimited(value, "{", "}")
		replacement, ready, err := r.lookup(ref)
		if err != nil {
			return false, errors.Wrapf(err, errors.GetErrorCode(err),
				"cannot resolve {%s} in %s", strings.TrimSpace(ref), key).
				WithDetail("key", key).
				WithDetail("reference", strings.TrimSpace(ref))
		}
		if !ready {
			break
		}
		value, err = escapes.ReplaceDelimited(value, nil, func(escapes.Lookup, string) (string, error) {
			return replacement, nil
		})
		if err != nil {
			return false, err
		}
		changed = true
	}

	if changed {
		return true, r.config.Set(key, value)
	}
	return false, nil
}

// resolve runs passes over the configuration until no value holds a
// reference. A pass without progress means the references are circular.
func (r *resolver) resolve() error {
	for pass := 0; pass < r.maxPasses; pass++ {
		pending := false
		progress := false
		for _, key := range r.config.Keys() {
			changed, err := r.resolveKey(key)
			if err != nil {
				return err
			}
			progress = progress || changed

			value, _ := r.config.Get(key)
			if needsResolution(value) {
				pending = true
			}
		}
		if !pending {
			return nil
		}
		if !progress {
			return r.unresolved("circular interpolation")
		}
	}
	return r.unresolved("interpolation did not settle")
}

func (r *resolver) unresolved(reason string) error {
	var keys []string
	for _, key := range r.config.Keys() {
		if value, _ := r.config.Get(key); needsResolution(value) {
			keys = append(keys, key)
		}
	}
	err := errors.Newf(errors.ErrUnresolved, "%s in %v", reason, keys).
		WithDetail("keys", keys)
	if len(keys) > 0 {
		err = err.WithDetail("key", keys[0])
	}
	return err
}

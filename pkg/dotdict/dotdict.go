// Package dotdict provides Tree, a nested string mapping addressed with
// dotted keys: t.Get("a.b") reads the leaf b of the group a.
//
// Groups are owned by exactly one parent. Dots are always group separators
// and cannot be escaped.
package dotdict

import (
	"sort"
	"strings"

	"github.com/arthur-debert/metaini/pkg/errors"
)

// Separator joins nesting levels in a dotted key.
const Separator = "."

// Tree is an insertion-ordered mapping of names to either string leaves or
// nested groups.
type Tree struct {
	order  []string
	values map[string]string
	groups map[string]*Tree
}

// New returns an empty tree.
func New() *Tree {
	return &Tree{
		values: make(map[string]string),
		groups: make(map[string]*Tree),
	}
}

// FromMap builds a tree from flat dotted keys, inserted in sorted key order.
func FromMap(m map[string]string) (*Tree, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	t := New()
	for _, k := range keys {
		if err := t.Set(k, m[k]); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func split(key string) []string {
	return strings.Split(key, Separator)
}

// descend walks every segment but the last, returning the group holding
// the final segment. Missing groups are created when create is set.
func (t *Tree) descend(key string, create bool) (*Tree, string, error) {
	parts := split(key)
	for _, p := range parts {
		if p == "" {
			return nil, "", errors.Newf(errors.ErrInvalidInput, "invalid key %q: empty segment", key).
				WithDetail("key", key)
		}
	}

	current := t
	for i, p := range parts[:len(parts)-1] {
		next, ok := current.groups[p]
		if ok {
			current = next
			continue
		}
		if _, isValue := current.values[p]; isValue {
			return nil, "", errors.Newf(errors.ErrTypeConflict,
				"cannot descend into %q: it holds a value", strings.Join(parts[:i+1], Separator)).
				WithDetail("key", key)
		}
		if !create {
			return nil, "", errors.Newf(errors.ErrKeyNotFound, "key %q not found", key).
				WithDetail("key", key)
		}
		next = New()
		current.groups[p] = next
		current.order = append(current.order, p)
		current = next
	}
	return current, parts[len(parts)-1], nil
}

// Get returns the leaf stored at the dotted key.
func (t *Tree) Get(key string) (string, error) {
	parent, name, err := t.descend(key, false)
	if err != nil {
		if errors.IsErrorCode(err, errors.ErrTypeConflict) {
			return "", errors.Newf(errors.ErrKeyNotFound, "key %q not found", key).WithDetail("key", key)
		}
		return "", err
	}
	v, ok := parent.values[name]
	if !ok {
		return "", errors.Newf(errors.ErrKeyNotFound, "key %q not found", key).WithDetail("key", key)
	}
	return v, nil
}

// Lookup is Get without the error detail.
func (t *Tree) Lookup(key string) (string, bool) {
	v, err := t.Get(key)
	return v, err == nil
}

// Group returns the sub-tree stored at the dotted key. The returned tree is
// owned by t; mutations are visible through t.
func (t *Tree) Group(key string) (*Tree, error) {
	parent, name, err := t.descend(key, false)
	if err != nil {
		return nil, errors.Newf(errors.ErrKeyNotFound, "group %q not found", key).WithDetail("key", key)
	}
	g, ok := parent.groups[name]
	if !ok {
		return nil, errors.Newf(errors.ErrKeyNotFound, "group %q not found", key).WithDetail("key", key)
	}
	return g, nil
}

// EnsureGroup returns the group at the dotted key, creating it and any
// missing parents.
func (t *Tree) EnsureGroup(key string) (*Tree, error) {
	parent, name, err := t.descend(key, true)
	if err != nil {
		return nil, err
	}
	if g, ok := parent.groups[name]; ok {
		return g, nil
	}
	if _, ok := parent.values[name]; ok {
		return nil, errors.Newf(errors.ErrTypeConflict, "cannot create group %q: it holds a value", key).
			WithDetail("key", key)
	}
	g := New()
	parent.groups[name] = g
	parent.order = append(parent.order, name)
	return g, nil
}

// Set stores value at the dotted key, creating intermediate groups. Writing
// through or over a group boundary of the other kind is a TypeConflict.
func (t *Tree) Set(key, value string) error {
	parent, name, err := t.descend(key, true)
	if err != nil {
		return err
	}
	if _, ok := parent.groups[name]; ok {
		return errors.Newf(errors.ErrTypeConflict, "cannot assign %q: it is a group", key).
			WithDetail("key", key)
	}
	if _, ok := parent.values[name]; !ok {
		parent.order = append(parent.order, name)
	}
	parent.values[name] = value
	return nil
}

// Has reports whether the dotted key names a leaf or a group.
func (t *Tree) Has(key string) bool {
	parent, name, err := t.descend(key, false)
	if err != nil {
		return false
	}
	_, isValue := parent.values[name]
	_, isGroup := parent.groups[name]
	return isValue || isGroup
}

// HasValue reports whether the dotted key names a leaf.
func (t *Tree) HasValue(key string) bool {
	_, ok := t.Lookup(key)
	return ok
}

// Delete removes the leaf or group at the dotted key and prunes parent
// groups left empty. It reports whether anything was removed.
func (t *Tree) Delete(key string) bool {
	parts := split(key)
	return t.delete(parts)
}

func (t *Tree) delete(parts []string) bool {
	name := parts[0]
	if len(parts) == 1 {
		_, isValue := t.values[name]
		_, isGroup := t.groups[name]
		if !isValue && !isGroup {
			return false
		}
		delete(t.values, name)
		delete(t.groups, name)
		t.removeOrder(name)
		return true
	}

	g, ok := t.groups[name]
	if !ok {
		return false
	}
	removed := g.delete(parts[1:])
	if removed && g.empty() {
		delete(t.groups, name)
		t.removeOrder(name)
	}
	return removed
}

func (t *Tree) removeOrder(name string) {
	for i, n := range t.order {
		if n == name {
			t.order = append(t.order[:i], t.order[i+1:]...)
			return
		}
	}
}

func (t *Tree) empty() bool {
	return len(t.values) == 0 && len(t.groups) == 0
}

// Empty reports whether the tree has neither leaves nor groups.
func (t *Tree) Empty() bool {
	return t.empty()
}

// ValueNames returns the names of the leaves at this level in insertion order.
func (t *Tree) ValueNames() []string {
	var names []string
	for _, n := range t.order {
		if _, ok := t.values[n]; ok {
			names = append(names, n)
		}
	}
	return names
}

// GroupNames returns the names of the sub-groups at this level in
// insertion order.
func (t *Tree) GroupNames() []string {
	var names []string
	for _, n := range t.order {
		if _, ok := t.groups[n]; ok {
			names = append(names, n)
		}
	}
	return names
}

// Walk visits every leaf as a fully qualified dotted key: the leaves of a
// level in insertion order first, then each sub-group recursively. Walking
// stops at the first error fn returns.
func (t *Tree) Walk(fn func(key, value string) error) error {
	return t.walk("", fn)
}

func (t *Tree) walk(prefix string, fn func(key, value string) error) error {
	for _, n := range t.ValueNames() {
		if err := fn(prefix+n, t.values[n]); err != nil {
			return err
		}
	}
	for _, n := range t.GroupNames() {
		if err := t.groups[n].walk(prefix+n+Separator, fn); err != nil {
			return err
		}
	}
	return nil
}

// Keys returns every leaf key in Walk order.
func (t *Tree) Keys() []string {
	var keys []string
	_ = t.Walk(func(key, _ string) error {
		keys = append(keys, key)
		return nil
	})
	return keys
}

// Len returns the number of leaves.
func (t *Tree) Len() int {
	return len(t.Keys())
}

// Flatten returns the leaves as a flat dotted-key map.
func (t *Tree) Flatten() map[string]string {
	flat := make(map[string]string)
	_ = t.Walk(func(key, value string) error {
		flat[key] = value
		return nil
	})
	return flat
}

// Nested returns the tree as nested maps, suitable for generic encoders.
func (t *Tree) Nested() map[string]interface{} {
	out := make(map[string]interface{}, len(t.order))
	for n, v := range t.values {
		out[n] = v
	}
	for n, g := range t.groups {
		out[n] = g.Nested()
	}
	return out
}

// Clone returns a deep copy of the tree.
func (t *Tree) Clone() *Tree {
	c := &Tree{
		order:  append([]string(nil), t.order...),
		values: make(map[string]string, len(t.values)),
		groups: make(map[string]*Tree, len(t.groups)),
	}
	for n, v := range t.values {
		c.values[n] = v
	}
	for n, g := range t.groups {
		c.groups[n] = g.Clone()
	}
	return c
}

// Equal reports whether both trees hold the same set of leaf keys and
// values, irrespective of insertion order.
func (t *Tree) Equal(o *Tree) bool {
	if o == nil {
		return false
	}
	a, b := t.Flatten(), o.Flatten()
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if w, ok := b[k]; !ok || w != v {
			return false
		}
	}
	return true
}

// Filter returns a copy of the tree holding only the leaves keep accepts.
// Insertion order is preserved.
func (t *Tree) Filter(keep func(key string) bool) *Tree {
	out := New()
	_ = t.Walk(func(key, value string) error {
		if keep(key) {
			// keys from a valid tree cannot conflict
			_ = out.Set(key, value)
		}
		return nil
	})
	return out
}

// String renders the tree canonically as sorted key=value lines. Two trees
// are Equal exactly when their strings are equal.
func (t *Tree) String() string {
	flat := t.Flatten()
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(flat[k])
		b.WriteString("\n")
	}
	return b.String()
}

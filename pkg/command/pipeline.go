package command

import (
	"strings"

	"github.com/arthur-debert/metaini/pkg/errors"
	"github.com/arthur-debert/metaini/pkg/escapes"
)

// Invocation is one pipeline stage bound to the key it was attached to.
type Invocation struct {
	Name string
	Args []string
	Key  string
}

func (i Invocation) String() string {
	if len(i.Args) == 0 {
		return i.Name + " @ " + i.Key
	}
	return i.Name + " " + strings.Join(i.Args, " ") + " @ " + i.Key
}

// ParsePipeline splits value on unescaped pipes into the base value and
// its ordered stages. Escaped pipes in the base value become literal pipes;
// its other escapes are kept. Stage arguments
// are whitespace separated; an escaped space keeps two words together.
// The returned invocations have no key.
func ParsePipeline(value string) (string, []Invocation, error) {
	parts := escapes.SplitRaw(value, "|", -1)
	base := escapes.StripEscapes(parts[0], "|")

	var stages []Invocation
	for _, part := range parts[1:] {
		fields := escapes.Fields(escapes.StripEscapes(part, "|"))
		if len(fields) == 0 {
			return "", nil, errors.Newf(errors.ErrParse, "empty pipeline stage in %q", value)
		}
		stages = append(stages, Invocation{Name: fields[0], Args: fields[1:]})
	}
	return base, stages, nil
}

// Queue holds the pending invocations of every phase in insertion order.
type Queue struct {
	phases map[Phase][]Invocation
}

// NewQueue returns an empty queue.
func NewQueue() *Queue {
	return &Queue{phases: make(map[Phase][]Invocation)}
}

// Add appends inv to the invocations of phase p.
func (q *Queue) Add(p Phase, inv Invocation) {
	q.phases[p] = append(q.phases[p], inv)
}

// Phase returns a copy of the invocations queued for p.
func (q *Queue) Phase(p Phase) []Invocation {
	return append([]Invocation(nil), q.phases[p]...)
}

// SetPhase replaces the invocations queued for p.
func (q *Queue) SetPhase(p Phase, invs []Invocation) {
	q.phases[p] = append([]Invocation(nil), invs...)
}

// ReplaceKey moves every invocation attached to key over to newKey.
func (q *Queue) ReplaceKey(key, newKey string) {
	for p, invs := range q.phases {
		for i := range invs {
			if invs[i].Key == key {
				q.phases[p][i].Key = newKey
			}
		}
	}
}

// RemoveKey drops every invocation attached to key.
func (q *Queue) RemoveKey(key string) {
	for p, invs := range q.phases {
		kept := invs[:0]
		for _, inv := range invs {
			if inv.Key != key {
				kept = append(kept, inv)
			}
		}
		q.phases[p] = kept
	}
}

// Has reports whether an invocation of name is queued for key in any
// phase.
func (q *Queue) Has(name, key string) bool {
	for _, invs := range q.phases {
		for _, inv := range invs {
			if inv.Name == name && inv.Key == key {
				return true
			}
		}
	}
	return false
}

// HasKey reports whether any invocation is queued for key.
func (q *Queue) HasKey(key string) bool {
	for _, invs := range q.phases {
		for _, inv := range invs {
			if inv.Key == key {
				return true
			}
		}
	}
	return false
}

// Len returns the number of queued invocations over all phases.
func (q *Queue) Len() int {
	n := 0
	for _, invs := range q.phases {
		n += len(invs)
	}
	return n
}

// Merge appends the invocations of o to q, phase by phase, skipping those
// attached to a key skip reports as taken.
func (q *Queue) Merge(o *Queue, skip func(key string) bool) {
	for _, p := range Phases() {
		for _, inv := range o.phases[p] {
			if skip != nil && skip(inv.Key) {
				continue
			}
			q.Add(p, inv)
		}
	}
}

// Package registry assembles the process-wide ordered catalog of pass
// descriptors and produces phase-ordered iteration over it.
package registry

import (
	"context"
	"fmt"
	"sort"

	"github.com/rgov/creduce/internal/logging"
	"github.com/rgov/creduce/internal/pass"
)

// Phase selects which priority key of a Descriptor the iterator reads.
type Phase int

const (
	PhaseFirst Phase = iota
	PhaseMain
	PhaseCleanup
)

// Registry holds the ordered descriptor catalog plus the concrete Pass
// implementation for each distinct family name.
type Registry struct {
	descriptors []pass.Descriptor
	impls       map[string]pass.Pass
}

// Build assembles a Registry from the fixed built-in catalog, the
// option-gated sanitize/slow/sllooww groups, and any user-added
// descriptors. impls maps family name to its Pass implementation; every
// descriptor's Name must have an entry, checked at CheckPrereqs time
// rather than here so construction never fails.
func Build(opts Options, impls map[string]pass.Pass, userAdded []pass.Descriptor) *Registry {
	var descs []pass.Descriptor
	if !opts.NoDefaults {
		descs = append(descs, builtinCatalog()...)
		if opts.Sanitize {
			descs = append(descs, sanitizeCatalog()...)
		}
		if opts.Slow {
			descs = append(descs, slowCatalog()...)
		}
		if opts.VerySlow {
			descs = append(descs, verySlowCatalog()...)
		}
	}
	descs = append(descs, userAdded...)

	for i := range descs {
		descs[i] = descs[i].WithSeq(i)
	}

	logging.RegistryDebug("registry built with %d descriptors (no_defaults=%v sanitize=%v slow=%v sllooww=%v, +%d user)",
		len(descs), opts.NoDefaults, opts.Sanitize, opts.Slow, opts.VerySlow, len(userAdded))

	return &Registry{descriptors: descs, impls: impls}
}

// CheckPrereqs invokes CheckPrereqs once per distinct pass family present
// in the registry, in registration order. The first failure aborts with a
// message naming the family.
func (r *Registry) CheckPrereqs(ctx context.Context) error {
	seen := make(map[string]bool)
	for _, d := range r.descriptors {
		if seen[d.Name] {
			continue
		}
		seen[d.Name] = true

		impl, ok := r.impls[d.Name]
		if !ok {
			return fmt.Errorf("registry: no implementation registered for pass family %q", d.Name)
		}
		if err := impl.CheckPrereqs(ctx); err != nil {
			return fmt.Errorf("prerequisite check failed for pass family %q: %w", d.Name, err)
		}
	}
	return nil
}

// Lookup returns the Pass implementation for a family name.
func (r *Registry) Lookup(name string) (pass.Pass, bool) {
	impl, ok := r.impls[name]
	return impl, ok
}

// Descriptors returns the full registered catalog, in registration order.
// Tests use this to assert on registry composition.
func (r *Registry) Descriptors() []pass.Descriptor {
	out := make([]pass.Descriptor, len(r.descriptors))
	copy(out, r.descriptors)
	return out
}

func priFor(d pass.Descriptor, phase Phase) *int {
	switch phase {
	case PhaseFirst:
		return d.FirstPassPri
	case PhaseMain:
		return d.Pri
	case PhaseCleanup:
		return d.LastPassPri
	}
	return nil
}

// Iterator yields descriptors for one phase in ascending priority order,
// ties broken by registration order. It is single-pass: once Next returns
// false, it is exhausted. Call Iterate again to restart.
type Iterator struct {
	items []pass.Descriptor
	idx   int
}

// Next returns the next descriptor for this phase, or false when exhausted.
func (it *Iterator) Next() (pass.Descriptor, bool) {
	if it.idx >= len(it.items) {
		return pass.Descriptor{}, false
	}
	d := it.items[it.idx]
	it.idx++
	return d, true
}

// Iterate produces the passes relevant to phase in ascending priority
// order.
func (r *Registry) Iterate(phase Phase) *Iterator {
	var items []pass.Descriptor
	for _, d := range r.descriptors {
		if priFor(d, phase) != nil {
			items = append(items, d)
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		pi, pj := *priFor(items[i], phase), *priFor(items[j], phase)
		if pi != pj {
			return pi < pj
		}
		return items[i].Seq() < items[j].Seq()
	})
	return &Iterator{items: items}
}

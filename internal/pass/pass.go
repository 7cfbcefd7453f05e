// Package pass defines the contract every transformation pass family must
// implement. The driver never inspects pass state; it only threads the
// opaque value returned by one call into the next.
package pass

import "context"

// State is the opaque token a Pass threads through Transform/Advance. The
// driver treats it as an immutable value: it may be copied, stored, and
// handed back later, but it is never inspected or mutated directly.
type State any

// Outcome is returned by Transform.
type Outcome int

const (
	// OK means a new candidate has been written to the given path.
	OK Outcome = iota
	// Stop means this pass has exhausted its search space from the
	// current state; the driver must not call Transform again for this
	// pass invocation.
	Stop
)

func (o Outcome) String() string {
	if o == Stop {
		return "STOP"
	}
	return "OK"
}

// Pass is the capability set every pass family implements.
// Implementations are selected by (name, arg); arg is an opaque sub-pass
// selector passed verbatim by the registry.
type Pass interface {
	// CheckPrereqs is invoked once at driver startup per distinct pass
	// family. Returning an error aborts the driver, naming the family.
	CheckPrereqs(ctx context.Context) error

	// New is invoked at the start of each pass invocation with the
	// current best file (already copied to a scratch location) and the
	// sub-pass argument. It returns the initial opaque state.
	New(ctx context.Context, path, arg string) (State, error)

	// Transform either overwrites path in place with the next candidate
	// and returns (OK, updated state), or returns (Stop, state) meaning
	// no further transformation is possible from this state. Transform
	// must be deterministic in (arg, state) modulo file contents.
	Transform(ctx context.Context, path, arg string, state State) (Outcome, State, error)

	// Advance is called exactly once per successful Transform, before the
	// oracle is consulted. It produces the state the driver should use if
	// this candidate is rejected.
	Advance(ctx context.Context, path, arg string, state State) (State, error)
}

// Descriptor is an immutable record describing one registered pass. Three
// optional priority keys select which of the three phases (initial, main,
// cleanup) this descriptor participates in; presence of a key means
// "include in that phase at that priority", absence means "skip it".
// Lower numeric priority runs first; ties break by registration order.
type Descriptor struct {
	// Name is the pass family identifier, used to look up the Pass
	// implementation in the registry.
	Name string
	// Arg is the sub-pass selector, passed verbatim to the Pass.
	Arg string

	FirstPassPri *int
	Pri          *int
	LastPassPri  *int

	// seq is assigned by the registry at registration time and used only
	// to break priority ties in insertion order.
	seq int
}

// Seq reports this descriptor's registration order, used for stable
// tie-breaking by the iterator.
func (d Descriptor) Seq() int { return d.seq }

// WithSeq returns a copy of d with seq set. Only the registry should call
// this.
func (d Descriptor) WithSeq(seq int) Descriptor {
	d.seq = seq
	return d
}

// Pri helpers construct a *int inline, since Go has no integer literal
// address-of operator; descriptors are built with these for readability.
func PriOf(v int) *int { return &v }

package passes

import (
	"context"
	"fmt"
	"strings"

	"github.com/rgov/creduce/internal/pass"
)

// blankState tracks whether this invocation has already made its one
// attempt; pass_blank is a one-shot pass, not an iterating one.
type blankState struct{ tried bool }

// Blank implements the pass_blank family: it strips every blank or
// whitespace-only line in a single transform, cheap enough to run both
// before the main fixpoint and again during cleanup.
type Blank struct{}

func (Blank) CheckPrereqs(ctx context.Context) error { return nil }

func (Blank) New(ctx context.Context, path, arg string) (pass.State, error) {
	return blankState{}, nil
}

func (Blank) Transform(ctx context.Context, path, arg string, state pass.State) (pass.Outcome, pass.State, error) {
	st, ok := state.(blankState)
	if !ok {
		return pass.Stop, state, fmt.Errorf("pass_blank: unexpected state type %T", state)
	}
	if st.tried {
		return pass.Stop, st, nil
	}

	lines, err := readLines(path)
	if err != nil {
		return pass.Stop, st, err
	}
	out := lines[:0:0]
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			out = append(out, l)
		}
	}
	if len(out) == len(lines) {
		return pass.Stop, st, nil
	}
	if err := writeLines(path, out); err != nil {
		return pass.Stop, st, err
	}
	return pass.OK, st, nil
}

func (Blank) Advance(ctx context.Context, path, arg string, state pass.State) (pass.State, error) {
	st, ok := state.(blankState)
	if !ok {
		return state, fmt.Errorf("pass_blank: unexpected state type %T", state)
	}
	st.tried = true
	return st, nil
}

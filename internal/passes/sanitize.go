package passes

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"regexp"

	"github.com/rgov/creduce/internal/pass"
)

var runOfSpace = regexp.MustCompile(`[ \t]+`)

// sanitizeState tracks whether this one-shot transform has already run.
type sanitizeState struct{ tried bool }

// Sanitize implements the "sanitize" family, gated behind --sanitize: it
// collapses runs of horizontal whitespace to a single space, a single
// normalization pass rather than a search over many candidates.
type Sanitize struct{}

func (Sanitize) CheckPrereqs(ctx context.Context) error { return nil }

func (Sanitize) New(ctx context.Context, path, arg string) (pass.State, error) {
	return sanitizeState{}, nil
}

func (Sanitize) Transform(ctx context.Context, path, arg string, state pass.State) (pass.Outcome, pass.State, error) {
	st, ok := state.(sanitizeState)
	if !ok {
		return pass.Stop, state, fmt.Errorf("pass_sanitize: unexpected state type %T", state)
	}
	if st.tried {
		return pass.Stop, st, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return pass.Stop, st, fmt.Errorf("pass_sanitize: read %s: %w", path, err)
	}
	out := runOfSpace.ReplaceAll(data, []byte(" "))
	if bytes.Equal(out, data) {
		return pass.Stop, st, nil
	}
	if err := os.WriteFile(path, out, 0644); err != nil {
		return pass.Stop, st, fmt.Errorf("pass_sanitize: write %s: %w", path, err)
	}
	return pass.OK, st, nil
}

func (Sanitize) Advance(ctx context.Context, path, arg string, state pass.State) (pass.State, error) {
	st, ok := state.(sanitizeState)
	if !ok {
		return state, fmt.Errorf("pass_sanitize: unexpected state type %T", state)
	}
	st.tried = true
	return st, nil
}

package passes

import (
	"context"
	"fmt"
	"os"
	"regexp"

	"github.com/rgov/creduce/internal/pass"
)

// token matches a maximal run of identifier-ish characters: creduce's
// clex pass operates on lexical tokens rather than raw bytes, so this is
// deliberately punctuation/whitespace-delimited rather than C-grammar-aware.
var token = regexp.MustCompile(`[A-Za-z0-9_]+`)

// clexState is the index, among tokens found in the file, of the next one
// to try deleting.
type clexState struct{ idx int }

// Clex implements the pass_clex family named in the driver's "slow" and
// "sllooww" option groups: whole-token removal (arg "rm-token") and, at
// finer granularity, pattern-based token removal (arg "rm-token-pattern",
// which additionally also strips one trailing punctuation byte if the
// removed token was immediately followed by one, collapsing a trailing
// comma left behind by the removal).
type Clex struct{}

func (Clex) CheckPrereqs(ctx context.Context) error { return nil }

func (Clex) New(ctx context.Context, path, arg string) (pass.State, error) {
	return clexState{idx: 0}, nil
}

func (Clex) Transform(ctx context.Context, path, arg string, state pass.State) (pass.Outcome, pass.State, error) {
	st, ok := state.(clexState)
	if !ok {
		return pass.Stop, state, fmt.Errorf("pass_clex: unexpected state type %T", state)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return pass.Stop, st, fmt.Errorf("pass_clex: read %s: %w", path, err)
	}

	matches := token.FindAllIndex(data, -1)
	if st.idx >= len(matches) {
		return pass.Stop, st, nil
	}
	m := matches[st.idx]
	end := m[1]
	if arg == "rm-token-pattern" && end < len(data) && isTrailingPunct(data[end]) {
		end++
	}

	out := make([]byte, 0, len(data)-(end-m[0]))
	out = append(out, data[:m[0]]...)
	out = append(out, data[end:]...)
	if err := os.WriteFile(path, out, 0644); err != nil {
		return pass.Stop, st, fmt.Errorf("pass_clex: write %s: %w", path, err)
	}
	return pass.OK, st, nil
}

func (Clex) Advance(ctx context.Context, path, arg string, state pass.State) (pass.State, error) {
	st, ok := state.(clexState)
	if !ok {
		return state, fmt.Errorf("pass_clex: unexpected state type %T", state)
	}
	st.idx++
	return st, nil
}

func isTrailingPunct(b byte) bool {
	switch b {
	case ',', ';', '.':
		return true
	default:
		return false
	}
}

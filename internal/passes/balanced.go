package passes

import (
	"context"
	"fmt"
	"os"

	"github.com/rgov/creduce/internal/pass"
)

// bracketPairs maps a pass_balanced arg to the open/close byte it spans.
var bracketPairs = map[string][2]byte{
	"curly":  {'{', '}'},
	"paren":  {'(', ')'},
	"square": {'[', ']'},
}

// balancedState is the byte offset to resume scanning for an open bracket
// from on the next attempt.
type balancedState struct{ from int }

// Balanced implements pass_balanced: it finds the next balanced span for
// the bracket kind selected by arg and deletes the whole span, open and
// close bracket included. Collapsing whole bracketed blocks tends to
// unlock bigger line-level reductions, so this runs ahead of pass_lines.
type Balanced struct{}

func (Balanced) CheckPrereqs(ctx context.Context) error { return nil }

func (Balanced) New(ctx context.Context, path, arg string) (pass.State, error) {
	return balancedState{from: 0}, nil
}

func (Balanced) Transform(ctx context.Context, path, arg string, state pass.State) (pass.Outcome, pass.State, error) {
	st, ok := state.(balancedState)
	if !ok {
		return pass.Stop, state, fmt.Errorf("pass_balanced: unexpected state type %T", state)
	}
	pair, ok := bracketPairs[arg]
	if !ok {
		return pass.Stop, st, fmt.Errorf("pass_balanced: unknown bracket arg %q", arg)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return pass.Stop, st, fmt.Errorf("pass_balanced: read %s: %w", path, err)
	}

	start, end, found := findBalancedSpan(data, pair[0], pair[1], st.from)
	if !found {
		return pass.Stop, st, nil
	}

	out := make([]byte, 0, len(data)-(end-start+1))
	out = append(out, data[:start]...)
	out = append(out, data[end+1:]...)
	if err := os.WriteFile(path, out, 0644); err != nil {
		return pass.Stop, st, fmt.Errorf("pass_balanced: write %s: %w", path, err)
	}
	return pass.OK, st, nil
}

func (Balanced) Advance(ctx context.Context, path, arg string, state pass.State) (pass.State, error) {
	st, ok := state.(balancedState)
	if !ok {
		return state, fmt.Errorf("pass_balanced: unexpected state type %T", state)
	}
	st.from++
	return st, nil
}

// findBalancedSpan returns the [start, end] byte offsets of the first
// balanced open/close span at or after from, end inclusive.
func findBalancedSpan(data []byte, open, close byte, from int) (int, int, bool) {
	for i := from; i < len(data); i++ {
		if data[i] != open {
			continue
		}
		depth := 1
		for j := i + 1; j < len(data); j++ {
			switch data[j] {
			case open:
				depth++
			case close:
				depth--
				if depth == 0 {
					return i, j, true
				}
			}
		}
		// unmatched open at i, keep scanning for a later, balanced one
	}
	return 0, 0, false
}

package passes

import (
	"context"
	"fmt"
	"os"

	"github.com/rgov/creduce/internal/pass"
)

// charState is the byte offset pass_chars will next try deleting.
type charState struct{ idx int }

// Chars implements pass_chars: single-byte deletion, the last-resort
// cleanup pass once every coarser transform has stopped reducing.
type Chars struct{}

func (Chars) CheckPrereqs(ctx context.Context) error { return nil }

func (Chars) New(ctx context.Context, path, arg string) (pass.State, error) {
	return charState{idx: 0}, nil
}

func (Chars) Transform(ctx context.Context, path, arg string, state pass.State) (pass.Outcome, pass.State, error) {
	st, ok := state.(charState)
	if !ok {
		return pass.Stop, state, fmt.Errorf("pass_chars: unexpected state type %T", state)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return pass.Stop, st, fmt.Errorf("pass_chars: read %s: %w", path, err)
	}
	if st.idx >= len(data) {
		return pass.Stop, st, nil
	}

	out := make([]byte, 0, len(data)-1)
	out = append(out, data[:st.idx]...)
	out = append(out, data[st.idx+1:]...)
	if err := os.WriteFile(path, out, 0644); err != nil {
		return pass.Stop, st, fmt.Errorf("pass_chars: write %s: %w", path, err)
	}
	return pass.OK, st, nil
}

func (Chars) Advance(ctx context.Context, path, arg string, state pass.State) (pass.State, error) {
	st, ok := state.(charState)
	if !ok {
		return state, fmt.Errorf("pass_chars: unexpected state type %T", state)
	}
	st.idx++
	return st, nil
}

// Package passes provides the generic, C/C++-agnostic pass families the
// engine ships with out of the box: line deletion at several granularities,
// balanced-bracket-span deletion, single-byte deletion, and whitespace
// token removal. Real AST-aware transforms remain out of scope; these are
// creduce's own first four pass families, enough to exercise the delta
// loop end to end.
package passes

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rgov/creduce/internal/pass"
)

// lineState is the opaque cursor pass_lines threads between calls: the
// index of the next line group to attempt removing.
type lineState struct{ idx int }

// Lines implements the pass_lines family: it deletes a contiguous run of
// lines, starting at the cursor, and takes the run's length from the arg.
// arg "0" means single-line deletion; a larger value n removes n lines at
// a time.
type Lines struct{}

func (Lines) CheckPrereqs(ctx context.Context) error { return nil }

func (Lines) New(ctx context.Context, path, arg string) (pass.State, error) {
	return lineState{idx: 0}, nil
}

func (Lines) Transform(ctx context.Context, path, arg string, state pass.State) (pass.Outcome, pass.State, error) {
	st, ok := state.(lineState)
	if !ok {
		return pass.Stop, state, fmt.Errorf("pass_lines: unexpected state type %T", state)
	}

	lines, err := readLines(path)
	if err != nil {
		return pass.Stop, st, err
	}
	n := lineGroupSize(arg)

	if st.idx >= len(lines) {
		return pass.Stop, st, nil
	}

	end := st.idx + n
	if end > len(lines) {
		end = len(lines)
	}
	out := append(append([]string{}, lines[:st.idx]...), lines[end:]...)
	if err := writeLines(path, out); err != nil {
		return pass.Stop, st, err
	}
	return pass.OK, st, nil
}

func (Lines) Advance(ctx context.Context, path, arg string, state pass.State) (pass.State, error) {
	st, ok := state.(lineState)
	if !ok {
		return state, fmt.Errorf("pass_lines: unexpected state type %T", state)
	}
	st.idx += lineGroupSize(arg)
	return st, nil
}

// lineGroupSize maps the pass_lines arg to a chunk width. "0" (and any
// unparsable value) is single-line deletion.
func lineGroupSize(arg string) int {
	n, err := strconv.Atoi(arg)
	if err != nil || n <= 0 {
		return 1
	}
	return n
}

func readLines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("pass_lines: read %s: %w", path, err)
	}
	text := string(data)
	if text == "" {
		return nil, nil
	}
	return strings.Split(strings.TrimSuffix(text, "\n"), "\n"), nil
}

func writeLines(path string, lines []string) error {
	out := strings.Join(lines, "\n")
	if len(lines) > 0 {
		out += "\n"
	}
	if err := os.WriteFile(path, []byte(out), 0644); err != nil {
		return fmt.Errorf("pass_lines: write %s: %w", path, err)
	}
	return nil
}

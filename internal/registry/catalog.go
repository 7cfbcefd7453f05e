package registry

import "github.com/rgov/creduce/internal/pass"

// Built-in pass families and their sub-pass arguments: generic,
// language-agnostic reducers covering line deletion at increasing
// granularity, balanced-bracket-span deletion, and blank-line cleanup.
// Concrete AST-aware passes are not part of this catalog; a caller may
// register additional implementations and descriptors alongside it.
const (
	FamilyLines    = "lines"
	FamilyBalanced = "balanced"
	FamilyBlank    = "blank"
	FamilySanitize = "sanitize"
	FamilyClex     = "clex"
	FamilyChars    = "chars"
)

func builtinCatalog() []pass.Descriptor {
	return []pass.Descriptor{
		// pass_lines, increasing chunk width (0 and 1 = single lines,
		// 2/10 = two- and ten-line contiguous chunks). arg "0" also runs once in
		// the initial phase to strip obvious dead weight (e.g. blank
		// includes) before the main fixpoint.
		{Name: FamilyLines, Arg: "0", FirstPassPri: pass.PriOf(10), Pri: pass.PriOf(410)},
		{Name: FamilyLines, Arg: "1", Pri: pass.PriOf(411)},
		{Name: FamilyLines, Arg: "2", Pri: pass.PriOf(412)},
		{Name: FamilyLines, Arg: "10", Pri: pass.PriOf(413)},

		// pass_balanced: delete a balanced bracket span for each bracket
		// kind. Runs earlier than line passes since collapsing whole
		// blocks tends to unlock bigger line-level reductions.
		{Name: FamilyBalanced, Arg: "curly", Pri: pass.PriOf(110)},
		{Name: FamilyBalanced, Arg: "paren", Pri: pass.PriOf(111)},
		{Name: FamilyBalanced, Arg: "square", Pri: pass.PriOf(112)},

		// pass_blank: drop blank/whitespace-only lines. Cheap, so it runs
		// both at the very start and as part of cleanup.
		{Name: FamilyBlank, Arg: "", FirstPassPri: pass.PriOf(5), LastPassPri: pass.PriOf(100)},

		// pass_chars: single-byte deletion, the last-resort cleanup pass.
		{Name: FamilyChars, Arg: "", LastPassPri: pass.PriOf(900)},
	}
}

// sanitizeCatalog is appended when Options.Sanitize is set.
func sanitizeCatalog() []pass.Descriptor {
	return []pass.Descriptor{
		{Name: FamilySanitize, Arg: "whitespace", Pri: pass.PriOf(500)},
	}
}

// slowCatalog is appended when Options.Slow is set: token-level removal,
// more expensive per-candidate than line/block passes.
func slowCatalog() []pass.Descriptor {
	return []pass.Descriptor{
		{Name: FamilyClex, Arg: "rm-token", Pri: pass.PriOf(700)},
	}
}

// verySlowCatalog is appended when Options.VerySlow is set, whether or not
// Options.Slow is: finer-grained token removal than slowCatalog.
func verySlowCatalog() []pass.Descriptor {
	return []pass.Descriptor{
		{Name: FamilyClex, Arg: "rm-token-pattern", Pri: pass.PriOf(900)},
	}
}

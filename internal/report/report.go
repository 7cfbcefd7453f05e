// Package report renders the human-facing progress and final-statistics
// output the engine calls out to through engine.Reporter. Styling uses
// lipgloss, the charmbracelet stack reserved for anything meant to be
// read by a person at a terminal rather than parsed.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/go-cmp/cmp"

	"github.com/rgov/creduce/internal/delta"
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	pctStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
)

// Console is the default Reporter: it writes styled lines to an
// io.Writer-like Printf hook, kept small enough to be test-substitutable.
type Console struct {
	Print func(string)
}

func (c *Console) print(format string, args ...any) {
	if c.Print == nil {
		return
	}
	c.Print(fmt.Sprintf(format, args...))
}

// PassStart announces the next pass about to run.
func (c *Console) PassStart(phase, name, arg string) {
	label := name
	if arg != "" {
		label = name + "/" + arg
	}
	c.print("%s %s", dimStyle.Render("pass"), label)
}

// Progress reports an accepted candidate, alongside the running good/bad
// trial counts for the current pass.
func (c *Console) Progress(name, arg string, cnt delta.Counters, bestSize int64) {
	c.print("%s %s  %s  %s",
		headingStyle.Render("accepted"),
		name+"/"+arg,
		dimStyle.Render(fmt.Sprintf("good=%d bad=%d", cnt.GoodCnt, cnt.BadCnt)),
		pctStyle.Render(fmt.Sprintf("%d bytes", bestSize)),
	)
}

// Diff renders a line-oriented diff of an accepted candidate against the
// best file it replaced.
func (c *Console) Diff(before, after []byte) {
	d := cmp.Diff(strings.Split(string(before), "\n"), strings.Split(string(after), "\n"))
	if d == "" {
		return
	}
	c.print("%s", dimStyle.Render(strings.TrimRight(d, "\n")))
}

// Final renders the closing statistics summary.
func (c *Console) Final(cnt delta.Counters, elapsed time.Duration, origSize, finalSize int64) {
	pct := 0.0
	if origSize > 0 {
		pct = (1 - float64(finalSize)/float64(origSize)) * 100
	}
	c.print("%s", headingStyle.Render("reduction complete"))
	c.print("  %s %s", dimStyle.Render("size:"), pctStyle.Render(fmt.Sprintf("%d -> %d bytes (%.1f%% smaller)", origSize, finalSize, pct)))
	c.print("  %s %d %s %d", dimStyle.Render("trials:"), cnt.GoodCnt, dimStyle.Render("good /"), cnt.BadCnt)
	c.print("  %s %s", dimStyle.Render("elapsed:"), elapsed.Round(time.Millisecond))
	for name, args := range cnt.MethodWorked {
		for arg, n := range args {
			c.print("  %s %s/%s: %d", dimStyle.Render("worked"), name, arg, n)
		}
	}
}

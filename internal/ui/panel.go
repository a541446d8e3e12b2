package ui

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/idilsaglam/tada/internal/model"
)

var ansiRegexp = regexp.MustCompile(`\x1b\[[0-9;]*m`)

func stripANSI(s string) string { return ansiRegexp.ReplaceAllString(s, "") }

func visibleWidth(s string) int { return utf8.RuneCountInString(stripANSI(s)) }

const maxTitleWidth = 80

// ProgressBar renders a Unicode progress bar with percentage.
func ProgressBar(done, total, width int) string {
	if total <= 0 {
		total = 1
	}
	if width < 5 {
		width = 5
	}
	filled := int(float64(done) / float64(total) * float64(width))
	if filled > width {
		filled = width
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	pct := int(float64(done) / float64(total) * 100)
	return fmt.Sprintf("%s %3d%%", bar, pct)
}

// Panel draws a framed box using the current theme.
func Panel(lines []string) {
	t := Current()
	maxw := 0
	for _, ln := range lines {
		if w := visibleWidth(ln); w > maxw {
			maxw = w
		}
	}
	pad := func(s string) string {
		if vis := visibleWidth(s); vis < maxw {
			s = s + strings.Repeat(" ", maxw-vis)
		}
		return s
	}
	fmt.Fprintln(Stdout, t.CornerTL+strings.Repeat(t.H, maxw+2)+t.CornerTR)
	for _, ln := range lines {
		fmt.Fprintln(Stdout, t.V+" "+pad(ln)+" "+t.V)
	}
	fmt.Fprintln(Stdout, t.CornerBL+strings.Repeat(t.H, maxw+2)+t.CornerBR)
}

// Header is the title line with done/pending/total counts.
func Header(done, pending int) string {
	t := Current()
	return fmt.Sprintf("%s  %s %d  %s %d  %s %d",
		C(t.Title, "Todos"),
		C(t.Success, t.SymDone), done,
		C(t.Pending, t.SymUnchecked), pending,
		C(t.Accent, "Total"), done+pending,
	)
}

// TaskLines renders tasks in the order given, numbered from 1. Pass the
// display order (newest first) so the numbers match what `done` and `rm` take.
func TaskLines(tasks []model.Task) []string {
	return NumberedLines(tasks, nil)
}

// NumberedLines renders tasks labelled with nums[i] instead of their position,
// so a filtered listing keeps each task's number from the full listing.
// nil nums numbers from 1.
func NumberedLines(tasks []model.Task, nums []int) []string {
	if len(tasks) == 0 {
		return []string{C(Current().Muted, "No ToDos Found")}
	}
	t := Current()
	out := make([]string, 0, len(tasks))
	for i, task := range tasks {
		n := i + 1
		if nums != nil {
			n = nums[i]
		}
		idx := fmt.Sprintf("%2d.", n)
		box, color := t.BoxUnchecked, t.Muted
		if task.IsDone {
			box, color = t.BoxChecked, t.Success
		}
		out = append(out, fmt.Sprintf("%s %s %s", C(dim, idx), C(color, box), Truncate(task.Title, maxTitleWidth)))
	}
	return out
}

// GroupLines splits tasks into Pending and Done sections, keeping each
// task's number from the flat listing. nums works as in NumberedLines.
func GroupLines(tasks []model.Task, nums []int) []string {
	t := Current()
	numbered := NumberedLines(tasks, nums)
	var pend, done []string
	for i, task := range tasks {
		if task.IsDone {
			done = append(done, numbered[i])
		} else {
			pend = append(pend, numbered[i])
		}
	}
	section := func(name string, lines []string) []string {
		out := []string{C(t.Accent, name)}
		if len(lines) == 0 {
			return append(out, C(t.Muted, "(none)"))
		}
		return append(out, lines...)
	}
	lines := section("Pending", pend)
	lines = append(lines, "")
	return append(lines, section("Done", done)...)
}

// Truncate shortens s to at most width runes, ending in "..." when cut.
func Truncate(s string, width int) string {
	if utf8.RuneCountInString(s) <= width {
		return s
	}
	r := []rune(s)
	if width <= 3 {
		return string(r[:width])
	}
	return string(r[:width-3]) + "..."
}

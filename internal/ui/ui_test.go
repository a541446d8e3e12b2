package ui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idilsaglam/tada/internal/model"
)

// capture redirects Stdout/Stderr and uses the mono theme so output is plain.
func capture(t *testing.T) (out, errOut *bytes.Buffer) {
	t.Helper()
	out, errOut = &bytes.Buffer{}, &bytes.Buffer{}
	prevOut, prevErr := Stdout, Stderr
	Stdout, Stderr = out, errOut
	SetTheme("mono")
	t.Cleanup(func() {
		Stdout, Stderr = prevOut, prevErr
		SetTheme("classic")
	})
	return out, errOut
}

func TestProgressBar(t *testing.T) {
	assert.Equal(t, "░░░░░░░░░░   0%", ProgressBar(0, 0, 10))
	assert.Equal(t, "█████░░░░░  50%", ProgressBar(1, 2, 10))
	assert.Equal(t, "██████████ 100%", ProgressBar(3, 3, 10))
	assert.Equal(t, "█████ 100%", ProgressBar(9, 9, 1), "width is clamped to 5")
}

func TestPanel(t *testing.T) {
	out, _ := capture(t)
	Panel([]string{"ab", "☑ four"})
	assert.Equal(t, strings.Join([]string{
		"+--------+",
		"| ab     |",
		"| ☑ four |",
		"+--------+",
		"",
	}, "\n"), out.String())
}

func TestTaskLines(t *testing.T) {
	capture(t)
	lines := TaskLines([]model.Task{
		{ID: 2, Title: "Walk dog"},
		{ID: 1, Title: "Buy milk", IsDone: true},
	})
	assert.Equal(t, []string{" 1. [ ] Walk dog", " 2. [x] Buy milk"}, lines)

	assert.Equal(t, []string{"No ToDos Found"}, TaskLines(nil))
}

func TestNumberedLines(t *testing.T) {
	capture(t)
	lines := NumberedLines([]model.Task{
		{ID: 5, Title: "Buy milk"},
		{ID: 1, Title: "Buy bread", IsDone: true},
	}, []int{2, 7})
	assert.Equal(t, []string{" 2. [ ] Buy milk", " 7. [x] Buy bread"}, lines)
}

func TestGroupLinesKeepNumbers(t *testing.T) {
	capture(t)
	lines := GroupLines([]model.Task{
		{ID: 3, Title: "c", IsDone: true},
		{ID: 2, Title: "b"},
		{ID: 1, Title: "a", IsDone: true},
	}, nil)
	assert.Equal(t, []string{
		"Pending",
		" 2. [ ] b",
		"",
		"Done",
		" 1. [x] c",
		" 3. [x] a",
	}, lines)

	lines = GroupLines([]model.Task{{ID: 1, Title: "a"}}, []int{4})
	assert.Equal(t, " 4. [ ] a", lines[1])
	assert.Equal(t, "(none)", lines[len(lines)-1])
}

func TestHeader(t *testing.T) {
	capture(t)
	assert.Equal(t, "Todos  x 1  - 2  Total 3", Header(1, 2))
}

func TestOKAndFail(t *testing.T) {
	out, errOut := capture(t)
	OK("added")
	Fail("save: disk full")
	Hint("run `todo ls`")
	assert.Equal(t, "✔ added\n", out.String())
	assert.Equal(t, "✖ save: disk full\nHint: run `todo ls`\n", errOut.String())
}

func TestColorOnlyWhenForced(t *testing.T) {
	capture(t)
	SetTheme("classic")
	t.Cleanup(func() { SetColorForcing(false, false) })

	SetColorForcing(false, false)
	assert.Equal(t, "x", C(fgRed, "x"), "buffers are not terminals")

	SetColorForcing(true, false)
	assert.Equal(t, fgRed+"x"+reset, C(fgRed, "x"))

	SetColorForcing(true, true)
	assert.Equal(t, "x", C(fgRed, "x"))
}

func TestThemes(t *testing.T) {
	t.Cleanup(func() { SetTheme("classic") })
	for _, name := range []string{"classic", "neon", "mono"} {
		SetTheme(name)
		assert.Equal(t, name, Current().Name)
	}
	SetTheme("unknown")
	assert.Equal(t, "classic", Current().Name)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "abcdefg...", Truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "ééé...", Truncate("éééééééé", 6))
	assert.Equal(t, "ab", Truncate("abcdef", 2))
	require.Len(t, []rune(Truncate(strings.Repeat("x", 200), maxTitleWidth)), maxTitleWidth)
}

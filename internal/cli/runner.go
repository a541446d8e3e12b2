package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/idilsaglam/tada/internal/model"
	"github.com/idilsaglam/tada/internal/store/jsonstore"
	"github.com/idilsaglam/tada/internal/tasks"
	"github.com/idilsaglam/tada/internal/tui"
	"github.com/idilsaglam/tada/internal/ui"
)

// Options tune output behavior from root flags.
type Options struct {
	Group bool // list grouped by pending/done
	UI    []tui.Option
}

// Run dispatches subcommands and returns an exit code (0 ok, 1 error, 2 usage).
func Run(ctx context.Context, args []string, opt Options, store *tasks.Store) int {
	if len(args) == 0 {
		PrintHelp()
		return 2
	}
	cmd, a := args[0], args[1:]

	switch cmd {
	case "help", "-h", "--help":
		PrintHelp()
		return 0

	case "ui":
		if err := tui.Run(ctx, store, opt.UI...); err != nil {
			ui.Fail("ui: " + err.Error())
			return 1
		}
		return 0

	case "ls":
		return doList(ctx, store, strings.Join(a, " "), opt)

	case "search":
		if len(a) == 0 {
			ui.Fail("usage: todo search <query...>")
			return 2
		}
		return doList(ctx, store, strings.Join(a, " "), opt)

	case "add":
		if len(a) == 0 {
			ui.Fail("usage: todo add <title...>")
			return 2
		}
		return doAdd(ctx, store, strings.Join(a, " "))

	case "done", "rm":
		if len(a) != 1 {
			ui.Fail("usage: todo " + cmd + " <index>")
			return 2
		}
		n, err := strconv.Atoi(a[0])
		if err != nil {
			ui.Fail(cmd + ": not a number: " + a[0])
			return 2
		}
		if cmd == "done" {
			return doToggle(ctx, store, n)
		}
		return doRemove(ctx, store, n)

	case "export":
		format := "json"
		if len(a) > 1 {
			ui.Fail("usage: todo export [json|yaml]")
			return 2
		}
		if len(a) == 1 {
			format = a[0]
		}
		return doExport(ctx, store, format)
	}

	ui.Fail("unknown subcommand: " + cmd)
	fmt.Fprintln(ui.Stderr)
	PrintHelp()
	return 2
}

func PrintHelp() {
	fmt.Fprint(ui.Stdout, `todo - a tiny to-do list

Usage:
  todo [flags] <subcommand> [args]

Subcommands:
  add <title...>       Add a new task (title can be multiple words)
  ls [query...]        List tasks, newest first, optionally filtered
  search <query...>    List tasks whose title contains the query
  done <index>         Toggle done for the task at 1-based index
  rm <index>           Remove the task at 1-based index
  export [json|yaml]   Print every task (default json)
  ui                   Open the interactive screen
  help                 Show this help

Flags:
  -group               Group ls output by pending/done
  -backend NAME        Storage backend: file, memory or mysql
  -data-dir DIR        Directory for the file backend (default ~/.tada)
  -key NAME            Key the task list is stored under (default my-todo)
  -dsn DSN             MySQL DSN for the mysql backend
  -theme NAME          classic, neon or mono
  -log-level LEVEL     debug, info, warn or error
  -log-format FORMAT   text, json or logfmt
  -log-file PATH       Append logs to PATH instead of stderr
  -config PATH         Read settings from PATH

Examples:
  todo add "Buy milk"
  todo ls
  todo search milk
  todo done 2
  todo rm 3
  todo export yaml
`)
}

// -------------- subcommand impls ----------------

// load reads the stored tasks. Corrupt data is reported but not fatal: the
// store starts empty and the unreadable copy has already been backed up.
func load(ctx context.Context, store *tasks.Store) bool {
	err := store.Load(ctx)
	switch {
	case err == nil:
		return true
	case errors.Is(err, jsonstore.ErrCorrupt):
		ui.Fail("stored tasks were unreadable, starting empty")
		ui.Hint("the old value was kept under a backup key")
		return true
	}
	ui.Fail("load: " + err.Error())
	return false
}

func doList(ctx context.Context, store *tasks.Store, query string, opt Options) int {
	if !load(ctx, store) {
		return 1
	}
	if query != "" {
		store.Search(query)
	}
	shown := store.Display()

	d, p := store.Stats()
	lines := []string{
		ui.Header(d, p),
		ui.C(ui.Current().Muted, ui.ProgressBar(d, d+p, 28)),
		"",
	}
	if q := store.Query(); strings.TrimSpace(q) != "" {
		lines = append(lines, ui.C(ui.Current().Accent, fmt.Sprintf("Search: %q (%d of %d)", q, len(shown), d+p)), "")
	}
	nums := listNumbers(store, shown)
	if opt.Group && len(shown) > 0 {
		lines = append(lines, ui.GroupLines(shown, nums)...)
	} else {
		lines = append(lines, ui.NumberedLines(shown, nums)...)
	}
	lines = append(lines, "")
	lines = append(lines, ui.C(ui.Current().Muted, "Tip: add with `todo add \"Buy milk\"`"))
	ui.Panel(lines)
	return 0
}

func doAdd(ctx context.Context, store *tasks.Store, title string) int {
	if !load(ctx, store) {
		return 1
	}
	task, err := store.Add(ctx, title)
	if errors.Is(err, tasks.ErrEmptyTitle) {
		ui.Fail("add: empty title")
		return 2
	}
	if err != nil {
		return saveFailed(err)
	}
	ui.OK("added: " + ui.Truncate(task.Title, 60))
	return 0
}

func doToggle(ctx context.Context, store *tasks.Store, userIndex int) int {
	if !load(ctx, store) {
		return 1
	}
	task, ok := pick(store, userIndex)
	if !ok {
		return 2
	}
	if err := store.ToggleDone(ctx, task.ID); err != nil {
		return saveFailed(err)
	}
	if task.IsDone {
		ui.OK("marked pending: " + ui.Truncate(task.Title, 60))
	} else {
		ui.OK("marked done: " + ui.Truncate(task.Title, 60))
	}
	return 0
}

func doRemove(ctx context.Context, store *tasks.Store, userIndex int) int {
	if !load(ctx, store) {
		return 1
	}
	task, ok := pick(store, userIndex)
	if !ok {
		return 2
	}
	if err := store.Delete(ctx, task.ID); err != nil {
		return saveFailed(err)
	}
	ui.OK("removed: " + ui.Truncate(task.Title, 60))
	return 0
}

func doExport(ctx context.Context, store *tasks.Store, format string) int {
	if !load(ctx, store) {
		return 1
	}
	all := store.All()
	switch strings.ToLower(format) {
	case "json":
		blob, err := jsonstore.Encode(all)
		if err != nil {
			ui.Fail("export: " + err.Error())
			return 1
		}
		fmt.Fprintln(ui.Stdout, jsonstore.Pretty(blob))
	case "yaml", "yml":
		out, err := yaml.Marshal(all)
		if err != nil {
			ui.Fail("export: " + err.Error())
			return 1
		}
		fmt.Fprint(ui.Stdout, string(out))
	default:
		ui.Fail("export: unknown format: " + format)
		ui.Hint("use json or yaml")
		return 2
	}
	return 0
}

// -------------- helpers --------------

// listNumbers gives each shown task its 1-based position in the unfiltered
// newest-first listing, the index `done` and `rm` resolve.
func listNumbers(store *tasks.Store, shown []model.Task) []int {
	pos := make(map[int64]int)
	for i, t := range model.Reversed(store.All()) {
		pos[t.ID] = i + 1
	}
	nums := make([]int, len(shown))
	for i, t := range shown {
		nums[i] = pos[t.ID]
	}
	return nums
}

// pick resolves a 1-based index into the unfiltered newest-first listing.
func pick(store *tasks.Store, userIndex int) (model.Task, bool) {
	shown := model.Reversed(store.All())
	if userIndex < 1 || userIndex > len(shown) {
		ui.Fail(fmt.Sprintf("index out of range: have %d, got %d", len(shown), userIndex))
		ui.Hint("run `todo ls` to see valid indexes")
		return model.Task{}, false
	}
	return shown[userIndex-1], true
}

func saveFailed(err error) int {
	ui.Fail("save: " + err.Error())
	if errors.Is(err, jsonstore.ErrConflict) {
		ui.Hint("tasks were changed by another process, run the command again")
	}
	return 1
}

package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/idilsaglam/tada/internal/model"
	"github.com/idilsaglam/tada/internal/store/jsonstore"
	"github.com/idilsaglam/tada/internal/store/kv"
	"github.com/idilsaglam/tada/internal/tasks"
	"github.com/idilsaglam/tada/internal/ui"
)

type result struct {
	code     int
	out, err string
}

// run executes one invocation against mem with a fresh store, the way each
// process starts from the persisted state.
func run(t *testing.T, mem kv.Store, opt Options, args ...string) result {
	t.Helper()
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	prevOut, prevErr := ui.Stdout, ui.Stderr
	ui.Stdout, ui.Stderr = out, errOut
	ui.SetTheme("mono")
	t.Cleanup(func() {
		ui.Stdout, ui.Stderr = prevOut, prevErr
		ui.SetTheme("classic")
	})

	store := tasks.New(jsonstore.New(mem, ""))
	code := Run(context.Background(), args, opt, store)
	return result{code: code, out: out.String(), err: errOut.String()}
}

func persisted(t *testing.T, mem kv.Store) []model.Task {
	t.Helper()
	snap, err := jsonstore.New(mem, "").Load(context.Background())
	require.NoError(t, err)
	return snap.Tasks
}

func TestAddListToggleRemove(t *testing.T) {
	mem := kv.NewMemory()

	r := run(t, mem, Options{}, "add", "Buy", "milk")
	require.Equal(t, 0, r.code, r.err)
	assert.Equal(t, "✔ added: Buy milk\n", r.out)

	require.Equal(t, 0, run(t, mem, Options{}, "add", "Walk dog").code)

	r = run(t, mem, Options{}, "ls")
	require.Equal(t, 0, r.code)
	assert.Contains(t, r.out, "Todos  x 0  - 2  Total 2")
	assert.Contains(t, r.out, " 1. [ ] Walk dog")
	assert.Contains(t, r.out, " 2. [ ] Buy milk")

	// index 2 is the older task
	r = run(t, mem, Options{}, "done", "2")
	require.Equal(t, 0, r.code, r.err)
	assert.Equal(t, "✔ marked done: Buy milk\n", r.out)

	got := persisted(t, mem)
	require.Len(t, got, 2)
	assert.True(t, got[0].IsDone)
	assert.False(t, got[1].IsDone)

	r = run(t, mem, Options{}, "done", "2")
	assert.Equal(t, "✔ marked pending: Buy milk\n", r.out)

	r = run(t, mem, Options{}, "rm", "1")
	require.Equal(t, 0, r.code, r.err)
	assert.Equal(t, "✔ removed: Walk dog\n", r.out)

	got = persisted(t, mem)
	require.Len(t, got, 1)
	assert.Equal(t, "Buy milk", got[0].Title)
}

func TestListFiltersByQuery(t *testing.T) {
	mem := kv.NewMemory()
	run(t, mem, Options{}, "add", "Buy milk")
	run(t, mem, Options{}, "add", "Walk dog")

	for _, args := range [][]string{{"ls", "MILK"}, {"search", "milk"}} {
		r := run(t, mem, Options{}, args...)
		require.Equal(t, 0, r.code)
		assert.Contains(t, r.out, "(1 of 2)")
		assert.Contains(t, r.out, " 2. [ ] Buy milk", "numbered as in the full listing")
		assert.NotContains(t, r.out, "Walk dog")
	}

	r := run(t, mem, Options{}, "search", "bread")
	assert.Contains(t, r.out, "No ToDos Found")
}

func TestSearchNumbersMatchDoneAndRm(t *testing.T) {
	mem := kv.NewMemory()
	run(t, mem, Options{}, "add", "Buy milk")
	run(t, mem, Options{}, "add", "Walk dog")
	run(t, mem, Options{}, "add", "Buy bread")

	r := run(t, mem, Options{}, "search", "buy")
	require.Equal(t, 0, r.code)
	assert.Contains(t, r.out, " 1. [ ] Buy bread")
	assert.Contains(t, r.out, " 3. [ ] Buy milk")

	r = run(t, mem, Options{}, "done", "3")
	require.Equal(t, 0, r.code, r.err)
	assert.Equal(t, "✔ marked done: Buy milk\n", r.out)

	r = run(t, mem, Options{Group: true}, "search", "buy")
	assert.Regexp(t, `(?s)Pending.* 1\. \[ \] Buy bread.*Done.* 3\. \[x\] Buy milk`, r.out)

	r = run(t, mem, Options{}, "rm", "1")
	require.Equal(t, 0, r.code, r.err)
	assert.Equal(t, "✔ removed: Buy bread\n", r.out)

	got := persisted(t, mem)
	require.Len(t, got, 2)
	assert.Equal(t, model.Task{ID: got[0].ID, Title: "Buy milk", IsDone: true}, got[0])
	assert.Equal(t, "Walk dog", got[1].Title)
	assert.False(t, got[1].IsDone)
}

func TestListGrouped(t *testing.T) {
	mem := kv.NewMemory()
	run(t, mem, Options{}, "add", "a")
	run(t, mem, Options{}, "add", "b")
	run(t, mem, Options{}, "done", "1")

	r := run(t, mem, Options{Group: true}, "ls")
	require.Equal(t, 0, r.code)
	assert.Regexp(t, `(?s)Pending.* 2\. \[ \] a.*Done.* 1\. \[x\] b`, r.out)
}

func TestUsageErrors(t *testing.T) {
	cases := []struct {
		name string
		args []string
		msg  string
	}{
		{"no args", nil, ""},
		{"unknown", []string{"frobnicate"}, "unknown subcommand: frobnicate"},
		{"add without title", []string{"add"}, "usage: todo add"},
		{"blank title", []string{"add", "   "}, "add: empty title"},
		{"search without query", []string{"search"}, "usage: todo search"},
		{"done without index", []string{"done"}, "usage: todo done <index>"},
		{"rm not a number", []string{"rm", "two"}, "rm: not a number: two"},
		{"out of range", []string{"done", "1"}, "index out of range: have 0, got 1"},
		{"zero index", []string{"rm", "0"}, "index out of range"},
		{"export format", []string{"export", "csv"}, "unknown format: csv"},
		{"export args", []string{"export", "json", "yaml"}, "usage: todo export"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mem := kv.NewMemory()
			r := run(t, mem, Options{}, tc.args...)
			assert.Equal(t, 2, r.code)
			assert.Contains(t, r.err, tc.msg)
			assert.Empty(t, persisted(t, mem))
		})
	}
}

func TestHelp(t *testing.T) {
	r := run(t, kv.NewMemory(), Options{}, "help")
	assert.Equal(t, 0, r.code)
	assert.Contains(t, r.out, "export [json|yaml]")
}

func TestExport(t *testing.T) {
	mem := kv.NewMemory()
	run(t, mem, Options{}, "add", "Buy milk")

	r := run(t, mem, Options{}, "export")
	require.Equal(t, 0, r.code)
	assert.Contains(t, r.out, "\"title\": \"Buy milk\"")
	assert.Contains(t, r.out, "\"isDone\": false")

	r = run(t, mem, Options{}, "export", "yaml")
	require.Equal(t, 0, r.code)
	var got []model.Task
	require.NoError(t, yaml.Unmarshal([]byte(r.out), &got))
	assert.Equal(t, persisted(t, mem), got)
}

func TestCorruptDataStartsEmpty(t *testing.T) {
	mem := kv.NewMemory()
	require.NoError(t, mem.Set(context.Background(), jsonstore.DefaultKey, "{not json"))

	r := run(t, mem, Options{}, "add", "fresh start")
	require.Equal(t, 0, r.code)
	assert.Contains(t, r.err, "stored tasks were unreadable")

	got := persisted(t, mem)
	require.Len(t, got, 1)
	assert.Equal(t, "fresh start", got[0].Title)
}

type downKV struct{ kv.Store }

func (downKV) Get(context.Context, string) (string, bool, error) {
	return "", false, assert.AnError
}

func TestLoadFailure(t *testing.T) {
	r := run(t, downKV{kv.NewMemory()}, Options{}, "ls")
	assert.Equal(t, 1, r.code)
	assert.Contains(t, r.err, "load: ")
}

type lostRaceKV struct{ kv.Store }

func (lostRaceKV) CompareAndSwap(context.Context, string, string, string) (bool, error) {
	return false, nil
}

func TestSaveConflict(t *testing.T) {
	r := run(t, lostRaceKV{kv.NewMemory()}, Options{}, "add", "Buy milk")
	assert.Equal(t, 1, r.code)
	assert.Contains(t, r.err, "save: ")
	assert.Contains(t, r.err, "changed by another process")
}

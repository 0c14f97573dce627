package cli

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

type stubExec struct {
	calls []string
	fail  map[string]error
}

func (s *stubExec) record(name string) error {
	s.calls = append(s.calls, name)
	return s.fail[name]
}

func (s *stubExec) List(ctx context.Context) error     { return s.record("list") }
func (s *stubExec) Add(ctx context.Context) error      { return s.record("add") }
func (s *stubExec) Show(ctx context.Context) error     { return s.record("show") }
func (s *stubExec) Edit(ctx context.Context) error     { return s.record("edit") }
func (s *stubExec) Delete(ctx context.Context) error   { return s.record("delete") }
func (s *stubExec) Find(ctx context.Context) error     { return s.record("find") }
func (s *stubExec) Generate(ctx context.Context) error { return s.record("generate") }
func (s *stubExec) Sync(ctx context.Context) error     { return s.record("sync") }
func (s *stubExec) History(ctx context.Context) error  { return s.record("history") }
func (s *stubExec) Save(ctx context.Context) error     { return s.record("save") }

func feed(commands ...string) func() (string, bool) {
	i := 0
	return func() (string, bool) {
		if i >= len(commands) {
			return "", false
		}
		c := commands[i]
		i++
		return c, true
	}
}

func muteOutput(t *testing.T) *[]string {
	t.Helper()
	var lines []string
	old := printlnFn
	printlnFn = func(a ...any) (int, error) {
		for _, v := range a {
			lines = append(lines, v.(string))
		}
		return 0, nil
	}
	t.Cleanup(func() { printlnFn = old })
	return &lines
}

func TestRunMenu_DispatchesCommands(t *testing.T) {
	muteOutput(t)
	e := &stubExec{}

	runMenu(context.Background(), e, feed("l", "A", "y", "h", "w", "q"))

	assert.Equal(t, []string{"list", "add", "sync", "history", "save"}, e.calls)
}

func TestRunMenu_QuitStopsLoop(t *testing.T) {
	muteOutput(t)
	e := &stubExec{}

	runMenu(context.Background(), e, feed("q", "l"))
	assert.Empty(t, e.calls)
}

func TestRunMenu_UnknownCommand(t *testing.T) {
	lines := muteOutput(t)
	e := &stubExec{}

	runMenu(context.Background(), e, feed("zz"))

	found := false
	for _, l := range *lines {
		if l == "Unknown command. Type ? for help." {
			found = true
		}
	}
	assert.True(t, found)
	assert.Empty(t, e.calls)
}

func TestRunMenu_HandlerErrorKeepsLooping(t *testing.T) {
	muteOutput(t)
	e := &stubExec{fail: map[string]error{"list": assert.AnError}}

	runMenu(context.Background(), e, feed("l", "f", "q"))

	assert.Equal(t, []string{"list", "find"}, e.calls)
}

func TestRunMenu_EmptyLineIgnored(t *testing.T) {
	muteOutput(t)
	e := &stubExec{}

	runMenu(context.Background(), e, feed("", "l"))
	assert.Equal(t, []string{"list"}, e.calls)
}

package cli

import (
	"errors"
	"os"
	"testing"

	"pyshape/internal/core/ports"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func update(t *testing.T, m model, msg tea.Msg) model {
	t.Helper()
	next, _ := m.Update(msg)
	state, ok := next.(model)
	require.True(t, ok, "expected model type, got %T", next)
	return state
}

func TestModelCountsFiles(t *testing.T) {
	m := initialModel("pyshape", "/repo", nil)
	m = update(t, m, startMsg{total: 3})
	assert.True(t, m.running)

	m = update(t, m, fileMsg{ports.FileReport{Path: "/repo/a.py", Outcome: ports.OutcomeChanged}})
	m = update(t, m, fileMsg{ports.FileReport{Path: "/repo/b.py", Outcome: ports.OutcomeClean}})
	m = update(t, m, fileMsg{ports.FileReport{Path: "/repo/c.py", Outcome: ports.OutcomeFailed, Err: errors.New("x")}})
	m = update(t, m, doneMsg{})

	assert.False(t, m.running)
	assert.Equal(t, 3, m.seen)
	assert.Equal(t, 1, m.changed)
	assert.Equal(t, 1, m.failed)
	require.Len(t, m.recent, 2)

	view := m.View()
	assert.Contains(t, view, "3/3 files | 1 changed | 1 failed")
	assert.Contains(t, view, "a.py")
	assert.NotContains(t, view, "b.py")

	m = update(t, m, startMsg{total: 1})
	assert.Zero(t, m.seen, "a new run resets the counters")
}

func TestModelKeepsRecentLinesBounded(t *testing.T) {
	m := initialModel("pyshape", "", nil)
	m = update(t, m, startMsg{total: 20})
	for i := 0; i < 20; i++ {
		m = update(t, m, fileMsg{ports.FileReport{Path: "f.py", Outcome: ports.OutcomeChanged}})
	}
	assert.Len(t, m.recent, recentLines)
}

func TestModelQuitInterrupts(t *testing.T) {
	interrupted := false
	m := initialModel("pyshape", "", func() { interrupted = true })
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.True(t, interrupted)
}

func TestUseTUI(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "out")
	require.NoError(t, err)
	defer f.Close()

	on, err := UseTUI("on", f)
	require.NoError(t, err)
	assert.True(t, on)

	auto, err := UseTUI("auto", f)
	require.NoError(t, err)
	assert.False(t, auto, "a regular file is not a terminal")

	_, err = UseTUI("sometimes", f)
	assert.Error(t, err)
}

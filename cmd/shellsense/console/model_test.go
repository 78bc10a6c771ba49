package console

import (
	"context"
	"testing"

	"shellsense/internal/advice"
	"shellsense/internal/config"
	"shellsense/internal/items"
	"shellsense/internal/llm"
	"shellsense/internal/session"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubClient struct {
	reply string
	err   error
}

func (c stubClient) CompleteWithSystem(context.Context, string, string) (string, error) {
	return c.reply, c.err
}

func newTestModel(opts ...session.Option) Model {
	cfg := config.DefaultConfig()
	cfg.UI.Theme = "light"
	return New(session.New(opts...), cfg)
}

func run(t *testing.T, m Model, line string) (Model, tea.Cmd) {
	t.Helper()
	m.input.SetValue(line)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return next.(Model), cmd
}

func lastEntry(m Model) entry {
	return m.log[len(m.log)-1]
}

func TestUpdate_WindowSize(t *testing.T) {
	m := newTestModel()
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	result := next.(Model)

	assert.Equal(t, 120, result.width)
	assert.Equal(t, 40, result.height)
	assert.Equal(t, 120-sideWidth-4, result.viewport.Width)
	assert.Equal(t, 35, result.viewport.Height)
}

func TestUpdate_WindowSize_Degenerate(t *testing.T) {
	m := newTestModel()
	for _, size := range []tea.WindowSizeMsg{{Width: 0, Height: 0}, {Width: -1, Height: -1}, {Width: 10000, Height: 5000}} {
		assert.NotPanics(t, func() {
			next, _ := m.Update(size)
			_ = next.(Model).View()
		})
	}
}

func TestSubmit_RunsCommands(t *testing.T) {
	m := newTestModel()
	m, _ = run(t, m, "new 2 1")
	m, _ = run(t, m, "fire blank")
	m, _ = run(t, m, "item add player beer")

	assert.Equal(t, 2, m.sess.Tracker().CurrentPosition())
	assert.True(t, m.sess.Ledger().Holds(items.Player, items.Beer))
	assert.Equal(t, entryOutput, lastEntry(m).kind)
	assert.Contains(t, lastEntry(m).text, "player gets Beer")
	assert.Empty(t, m.input.Value(), "input is cleared after submit")

	view := m.View()
	assert.Contains(t, view, "Chamber")
	assert.Contains(t, view, "fired blank")
	assert.Contains(t, view, "100.0%")
	assert.Contains(t, view, "Beer")
}

func TestSubmit_Errors(t *testing.T) {
	m := newTestModel()
	m, _ = run(t, m, "dance")
	assert.Equal(t, entryError, lastEntry(m).kind)
	assert.Contains(t, lastEntry(m).text, "unknown command")

	m, _ = run(t, m, "fire maybe")
	assert.Equal(t, entryError, lastEntry(m).kind)
}

func TestSubmit_EmptyAndClear(t *testing.T) {
	m := newTestModel()
	before := len(m.log)
	m, cmd := run(t, m, "   ")
	assert.Nil(t, cmd)
	assert.Len(t, m.log, before)

	m, _ = run(t, m, "clear")
	assert.Empty(t, m.log)
}

func TestSubmit_Quit(t *testing.T) {
	m := newTestModel()
	_, cmd := run(t, m, "quit")
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
}

func TestSubmit_LocalAdviceIsMarkdown(t *testing.T) {
	m := newTestModel()
	m, _ = run(t, m, "new 3 1")
	m, _ = run(t, m, "advise")
	assert.Equal(t, entryMarkdown, lastEntry(m).kind)
	assert.Contains(t, lastEntry(m).text, "## Recommendation")
	assert.NotEmpty(t, m.renderLog())
}

func TestRemoteAdvice(t *testing.T) {
	a := advice.NewAdvisorWithFactory(func(config.LLMConfig) (llm.Client, error) {
		return stubClient{reply: "Shoot the dealer."}, nil
	})
	m := newTestModel(session.WithAdvisor(a, config.DefaultConfig().LLM))
	m, _ = run(t, m, "new 1 1")

	m, cmd := run(t, m, "advise ai")
	require.NotNil(t, cmd)
	assert.True(t, m.loading)

	// commands are refused while the request is in flight
	m, _ = run(t, m, "fire live")
	assert.Equal(t, 1, m.sess.Tracker().CurrentPosition())
	assert.Equal(t, entryInfo, lastEntry(m).kind)

	msg := m.ask(context.Background(), "advise ai")()
	next, _ := m.Update(msg)
	m = next.(Model)
	assert.False(t, m.loading)
	assert.Equal(t, entry{kind: entryMarkdown, text: "Shoot the dealer."}, lastEntry(m))
}

func TestRemoteAdvice_Errors(t *testing.T) {
	m := newTestModel()
	next, _ := m.Update(m.ask(context.Background(), "advise ai")())
	m = next.(Model)
	assert.Equal(t, entryError, lastEntry(m).kind)
	assert.Contains(t, lastEntry(m).text, "not available")

	a := advice.NewAdvisorWithFactory(func(config.LLMConfig) (llm.Client, error) {
		return stubClient{err: llm.ErrUnauthorized}, nil
	})
	m = newTestModel(session.WithAdvisor(a, config.DefaultConfig().LLM))
	next, _ = m.Update(m.ask(context.Background(), "advise ai")())
	m = next.(Model)
	assert.Equal(t, advice.Explain(llm.ErrUnauthorized), lastEntry(m).text)
}

func TestEscCancelsRemoteAdvice(t *testing.T) {
	m := newTestModel()
	ctx, cancel := context.WithCancel(context.Background())
	m.loading, m.cancel = true, cancel
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.True(t, next.(Model).loading, "the answer still has to land")
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}

func TestConfigReload(t *testing.T) {
	m := newTestModel()
	cfg := config.DefaultConfig()
	cfg.UI.Theme = "dark"
	cfg.LLM.Model = "gpt-4o"

	next, _ := m.Update(ConfigReloadedMsg{Config: cfg})
	m = next.(Model)
	assert.True(t, m.styles.Theme.IsDark)
	assert.Equal(t, "gpt-4o", m.cfg.LLM.Model)
	assert.Contains(t, lastEntry(m).text, "Config reloaded")
}

func TestConfigReload_DeferredWhileLoading(t *testing.T) {
	m := newTestModel()
	m.loading = true
	cfg := config.DefaultConfig()
	cfg.UI.Theme = "dark"

	next, _ := m.Update(ConfigReloadedMsg{Config: cfg})
	m = next.(Model)
	assert.False(t, m.styles.Theme.IsDark)

	next, _ = m.Update(adviceMsg{text: "ok"})
	m = next.(Model)
	assert.True(t, m.styles.Theme.IsDark)
	assert.Nil(t, m.pendingCfg)
}

func TestIsRemote(t *testing.T) {
	assert.True(t, isRemote("advise ai"))
	assert.True(t, isRemote("ADVISE AI"))
	assert.False(t, isRemote("advise"))
	assert.False(t, isRemote("ai advise"))
}

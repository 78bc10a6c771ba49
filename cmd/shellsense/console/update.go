package console

import (
	"context"
	"errors"
	"strings"

	"shellsense/cmd/shellsense/ui"
	"shellsense/internal/advice"
	"shellsense/internal/config"
	"shellsense/internal/logging"
	"shellsense/internal/session"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		case tea.KeyEsc:
			if m.loading && m.cancel != nil {
				m.cancel()
			}
			return m, nil
		case tea.KeyEnter:
			return m.submit()
		case tea.KeyPgUp, tea.KeyPgDown:
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
		if !m.loading {
			m.input, cmd = m.input.Update(msg)
		}
		return m, cmd

	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case spinner.TickMsg:
		if m.loading {
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case adviceMsg:
		m.loading = false
		if m.cancel != nil {
			m.cancel()
			m.cancel = nil
		}
		if msg.err != nil {
			m.push(entryError, describe(msg.err))
		} else {
			m.push(entryMarkdown, msg.text)
		}
		if m.pendingCfg != nil {
			m.applyConfig(m.pendingCfg)
			m.pendingCfg = nil
		}
		return m, nil

	case ConfigReloadedMsg:
		if msg.Config == nil {
			return m, nil
		}
		if m.loading {
			m.pendingCfg = msg.Config
			return m, nil
		}
		m.applyConfig(msg.Config)
		return m, nil
	}

	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	line := strings.TrimSpace(m.input.Value())
	m.input.Reset()
	if line == "" {
		return m, nil
	}
	if m.loading {
		m.push(entryInfo, "Still waiting for the model, press esc to cancel.")
		return m, nil
	}

	switch strings.ToLower(line) {
	case "quit", "exit", "q":
		return m, tea.Quit
	case "clear":
		m.log = nil
		m.refresh()
		return m, nil
	}

	m.push(entryCommand, line)
	if isRemote(line) {
		ctx, cancel := context.WithCancel(context.Background())
		m.cancel = cancel
		m.loading = true
		return m, tea.Batch(m.spinner.Tick, m.ask(ctx, line))
	}

	res, err := m.sess.Execute(context.Background(), line)
	switch {
	case err != nil:
		m.push(entryError, describe(err))
	case res.Markdown:
		m.push(entryMarkdown, res.Output)
	default:
		m.push(entryOutput, res.Output)
	}
	return m, nil
}

// ask runs a remote advice command. Only reads of the session overlap with it,
// since submit refuses commands while loading.
func (m Model) ask(ctx context.Context, line string) tea.Cmd {
	sess := m.sess
	return func() tea.Msg {
		res, err := sess.Execute(ctx, line)
		return adviceMsg{text: res.Output, err: err}
	}
}

func isRemote(line string) bool {
	f := strings.Fields(strings.ToLower(line))
	return len(f) > 1 && f[0] == "advise" && f[1] == "ai"
}

func describe(err error) string {
	switch {
	case errors.Is(err, session.ErrUsage), errors.Is(err, session.ErrUnknownCommand):
		return err.Error()
	case errors.Is(err, session.ErrNoAdvisor):
		return "AI advice is not available in this session."
	}
	return advice.Explain(err)
}

func (m *Model) applyConfig(cfg *config.Config) {
	themeChanged := cfg.UI.Theme != m.cfg.UI.Theme
	m.cfg = cfg
	m.sess.SetAdviceSettings(cfg.LLM)

	if themeChanged {
		m.styles = ui.NewStyles(ui.ThemeByName(cfg.UI.Theme))
		m.input.PromptStyle = m.styles.Prompt
		m.spinner.Style = m.styles.Spinner
		m.renderer = newRenderer(m.styles.Theme, m.wrapWidth())
		m.cache.Clear()
	}
	logging.Get(logging.CategoryUI).Infow("config reloaded", "provider", cfg.LLM.Provider, "theme", cfg.UI.Theme)
	m.push(entryInfo, "Config reloaded.")
}

func (m *Model) push(kind entryKind, text string) {
	m.log = append(m.log, entry{kind: kind, text: text})
	m.refresh()
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderLog())
	m.viewport.GotoBottom()
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height

	logWidth := max(width-sideWidth-4, 20)
	// header, input, footer and the log border
	logHeight := max(height-5, 1)

	m.viewport.Width = logWidth
	m.viewport.Height = logHeight
	m.input.Width = max(width-6, 1)

	m.renderer = newRenderer(m.styles.Theme, m.wrapWidth())
	m.cache.Clear()
	m.refresh()
}

func (m Model) wrapWidth() int {
	return max(m.viewport.Width-4, 10)
}

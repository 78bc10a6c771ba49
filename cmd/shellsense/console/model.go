// Package console is the interactive bubbletea front end: a command line, a
// chamber view with the live probability, both item lists and a scrolling log
// where advice is rendered as markdown.
package console

import (
	"context"

	"shellsense/cmd/shellsense/ui"
	"shellsense/internal/config"
	"shellsense/internal/logging"
	"shellsense/internal/session"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
)

const (
	sideWidth     = 36
	renderEntries = 64
)

type entryKind int

const (
	entryCommand entryKind = iota
	entryOutput
	entryMarkdown
	entryError
	entryInfo
)

type entry struct {
	kind entryKind
	text string
}

// ConfigReloadedMsg carries a config reloaded from disk into the program.
type ConfigReloadedMsg struct {
	Config *config.Config
}

// adviceMsg is the result of a remote advice command run off the update loop.
type adviceMsg struct {
	text string
	err  error
}

// Model is the bubbletea model for one session.
type Model struct {
	sess   *session.Session
	cfg    *config.Config
	styles ui.Styles

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	renderer *glamour.TermRenderer
	cache    *ui.RenderCache

	log []entry

	// remote advice in flight; commands are refused until it returns
	loading bool
	cancel  context.CancelFunc
	// config that arrived while loading, applied when the answer lands
	pendingCfg *config.Config

	width  int
	height int
}

// New builds the model. cfg may be nil, in which case defaults are used.
func New(sess *session.Session, cfg *config.Config) Model {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	styles := ui.NewStyles(ui.ThemeByName(cfg.UI.Theme))

	ti := textinput.New()
	ti.Placeholder = "new 3 2, fire live, advise, help"
	ti.Focus()
	ti.Prompt = "| "
	ti.CharLimit = 256
	ti.Width = 60
	ti.PromptStyle = styles.Prompt

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Spinner

	m := Model{
		sess:     sess,
		cfg:      cfg,
		styles:   styles,
		input:    ti,
		viewport: viewport.New(80, 20),
		spinner:  sp,
		cache:    ui.NewRenderCache(renderEntries),
		log:      []entry{{kind: entryInfo, text: "Type help for the command list, quit to leave."}},
	}
	m.resize(80, 24)
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func newRenderer(theme ui.Theme, width int) *glamour.TermRenderer {
	r, err := glamour.NewTermRenderer(
		glamour.WithStylePath(theme.Name),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		logging.Get(logging.CategoryUI).Warnw("markdown renderer unavailable", "error", err)
		return nil
	}
	return r
}

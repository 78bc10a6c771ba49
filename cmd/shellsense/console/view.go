package console

import (
	"fmt"
	"strconv"
	"strings"

	"shellsense/cmd/shellsense/ui"
	"shellsense/internal/items"
	"shellsense/internal/session"

	"github.com/charmbracelet/lipgloss"
)

// View implements tea.Model.
func (m Model) View() string {
	header := m.styles.Header.Render("shellsense") + " " + m.styles.Muted.Render(m.summary())

	state := m.styles.Panel.Width(sideWidth).Render(m.renderState())
	logPane := m.styles.Panel.Width(m.viewport.Width + 2).Render(m.viewport.View())
	body := lipgloss.JoinHorizontal(lipgloss.Top, state, logPane)

	var prompt string
	if m.loading {
		prompt = m.spinner.View() + " " + m.styles.Muted.Render("asking the model (esc to cancel)")
	} else {
		prompt = m.input.View()
	}
	footer := m.styles.Footer.Render("enter run · pgup/pgdn scroll · ctrl+c quit")

	return lipgloss.JoinVertical(lipgloss.Left, header, body, prompt, footer)
}

func (m Model) summary() string {
	st := m.sess.Tracker().State()
	if st.Total() == 0 {
		return "no round loaded"
	}
	return fmt.Sprintf("round %d live / %d blank · session %s", st.TotalLive, st.TotalBlank, shortID(m.sess.ID()))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func (m Model) renderState() string {
	var sections []string

	slots := m.sess.Chamber()
	if len(slots) == 0 {
		sections = append(sections, m.styles.Muted.Render("No round loaded. Try: new 3 2"))
	} else {
		table := ui.NewTable("Chamber", "#", "Shell")
		for _, slot := range slots {
			table.AddRow(m.slotPosition(slot), m.slotStatus(slot))
		}
		sections = append(sections, table.View(m.styles))
	}

	t := m.sess.Tracker()
	st := t.State()
	if st.Remaining() > 0 {
		sections = append(sections,
			fmt.Sprintf("Remaining: %d live, %d blank", st.RemainingLive, st.RemainingBlank),
			"Live "+ui.ProbabilityBar(t.LiveProbability(), sideWidth-16))
	} else if st.Total() > 0 {
		sections = append(sections, m.styles.Muted.Render("Round over, load the next one."))
	}

	h := m.sess.Health()
	sections = append(sections, fmt.Sprintf("Player %d/%d   Dealer %d/%d", h.Player, h.PlayerMax, h.Dealer, h.DealerMax))
	if m.sess.HandsawActive() {
		sections = append(sections, m.styles.Badge.Render("HANDSAW ×2"))
	}

	sections = append(sections,
		m.renderItems("Player items", m.sess.Ledger().Items(items.Player)),
		m.renderItems("Dealer items", m.sess.Ledger().Items(items.Dealer)))

	return strings.Join(sections, "\n\n")
}

func (m Model) slotPosition(slot session.Slot) string {
	pos := strconv.Itoa(slot.Position)
	if slot.Current {
		return m.styles.Current.Render("▶ " + pos)
	}
	return "  " + pos
}

func (m Model) slotStatus(slot session.Slot) string {
	text := slot.Status()
	switch {
	case slot.Fired:
		return m.styles.Muted.Render(text)
	case slot.Known && slot.Live:
		return m.styles.Live.Render(text)
	case slot.Known:
		return m.styles.Blank.Render(text)
	}
	return m.styles.Unknown.Render(text)
}

func (m Model) renderItems(title string, list []items.Item) string {
	var sb strings.Builder
	sb.WriteString(m.styles.Title.Render(title))
	if len(list) == 0 {
		sb.WriteString("\n" + m.styles.Muted.Render("none"))
		return sb.String()
	}
	for i, it := range list {
		line := fmt.Sprintf("%d. %s", i+1, it.Name())
		if it.Used {
			line = m.styles.Muted.Strikethrough(true).Render(line + " (used)")
		}
		sb.WriteString("\n" + line)
	}
	return sb.String()
}

func (m Model) renderLog() string {
	parts := make([]string, 0, len(m.log))
	for _, e := range m.log {
		switch e.kind {
		case entryCommand:
			parts = append(parts, m.styles.Command.Render("> "+e.text))
		case entryMarkdown:
			parts = append(parts, m.renderMarkdown(e.text))
		case entryError:
			parts = append(parts, m.styles.Error.Render("✗ "+e.text))
		case entryInfo:
			parts = append(parts, m.styles.Muted.Render(e.text))
		default:
			parts = append(parts, m.styles.Body.Render(e.text))
		}
	}
	return strings.Join(parts, "\n")
}

func (m Model) renderMarkdown(text string) string {
	if m.renderer == nil {
		return text
	}
	key := ui.ComputeKey(text, m.wrapWidth(), m.styles.Theme.Name)
	return m.cache.GetOrCompute(key, func() string {
		out, err := m.renderer.Render(text)
		if err != nil {
			return text
		}
		return strings.Trim(out, "\n")
	})
}

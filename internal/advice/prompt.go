package advice

import (
	"fmt"
	"strings"

	"shellsense/internal/items"
)

// SystemPrompt describes the game and its items to the model.
func SystemPrompt() string {
	var sb strings.Builder
	sb.WriteString(`You are an expert analyst of the shotgun game Buckshot Roulette, fluent in probability and game theory.

Rules:
- Each round loads between 2 and 8 shells, a mix of live and blank, in an unknown order.
- The player acts first. On a turn you shoot either the opponent or yourself.
- Shooting the opponent: a live shell costs them health; a blank ends your turn.
- Shooting yourself: a blank keeps your turn; a live shell costs you health and ends your turn.
- The round ends when the chamber is empty or a side reaches zero health. Zero health loses.
- Items are dealt before each round, are kept between rounds, and are capped at 8 per side.
- Items may be used at any time during your own turn.

Items:
`)
	for _, k := range items.AllKinds {
		fmt.Fprintf(&sb, "- %s: %s\n", items.NameOf(k), items.DescriptionOf(k))
	}
	sb.WriteString(`
Give the strategy with the best expected outcome.

Answer in plain text without markdown, JSON or other formatting.
`)
	return sb.String()
}

// UserPrompt describes the current state and asks for a recommendation.
// custom, when non-empty, is appended as an extra question.
func UserPrompt(s GameState, custom string) string {
	var sb strings.Builder
	sb.WriteString("Current game state:\n")
	if s.PlayerTurn {
		sb.WriteString("Player's turn: yes\n")
	} else {
		sb.WriteString("Player's turn: no\n")
	}
	fmt.Fprintf(&sb, "Health: player %d/%d, dealer %d/%d\n",
		s.PlayerHealth, s.PlayerMaxHealth, s.DealerHealth, s.DealerMaxHealth)
	fmt.Fprintf(&sb, "Remaining shells: %d live, %d blank\n", s.RemainingLive, s.RemainingBlank)
	fmt.Fprintf(&sb, "Current position: shell #%d\n", s.CurrentPosition)

	if len(s.Known) > 0 {
		sb.WriteString("\nKnown shells:\n")
		for _, k := range s.Known {
			fmt.Fprintf(&sb, "- #%d: %s\n", k.Position, shellWord(k.Live))
		}
	}

	writeItems := func(title string, list []items.Item) {
		fmt.Fprintf(&sb, "\n%s:\n", title)
		avail := unused(list)
		if len(avail) == 0 {
			sb.WriteString("- none\n")
			return
		}
		for _, it := range avail {
			fmt.Fprintf(&sb, "- %s\n", it.Name())
		}
	}
	writeItems("Player items", s.PlayerItems)
	writeItems("Dealer items", s.DealerItems)

	if s.HandsawActive {
		sb.WriteString("\nSpecial: handsaw active (next live shell deals double damage)\n")
	}

	sb.WriteString("\nRequest:\n")
	sb.WriteString("Using probability and game theory, analyse the state above and give a clear recommended action.\n")

	if custom = strings.TrimSpace(custom); custom != "" {
		sb.WriteString("\nAdditional question:\n")
		sb.WriteString(custom + "\n")
	}
	return sb.String()
}

func shellWord(live bool) string {
	if live {
		return "live"
	}
	return "blank"
}

package advice

import (
	"fmt"
	"strings"

	"shellsense/internal/items"
)

const (
	highLive = 0.7
	lowLive  = 0.3
)

// Compose renders the local advice as markdown with Situation, Recommendation
// and Items sections.
func Compose(s GameState) string {
	var sb strings.Builder
	sb.WriteString("## Situation\n\n")
	sb.WriteString(situation(s))
	sb.WriteString("\n## Recommendation\n\n")
	sb.WriteString(Recommend(s))
	sb.WriteString("\n## Items\n\n")
	sb.WriteString(itemAdvice(s))
	return sb.String()
}

func situation(s GameState) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "- Remaining: %d live, %d blank\n", s.RemainingLive, s.RemainingBlank)

	p := s.probability()
	switch {
	case s.CurrentKnown && s.CurrentLive:
		sb.WriteString("- Current shell: **live** (known)\n")
	case s.CurrentKnown:
		sb.WriteString("- Current shell: **blank** (known)\n")
	default:
		fmt.Fprintf(&sb, "- Current shell: %.1f%% live, %.1f%% blank\n", p*100, (1-p)*100)
	}

	fmt.Fprintf(&sb, "- Health: player %d/%d, dealer %d/%d\n",
		s.PlayerHealth, s.PlayerMaxHealth, s.DealerHealth, s.DealerMaxHealth)
	if s.HandsawActive {
		sb.WriteString("- Handsaw active: the next live shell deals double damage\n")
	}
	return sb.String()
}

// Recommend returns only the recommendation lines.
func Recommend(s GameState) string {
	if s.Remaining() <= 0 {
		return "Round over, waiting for the next load.\n"
	}

	var sb strings.Builder
	if s.CurrentKnown {
		switch {
		case s.CurrentLive && s.HandsawActive:
			sb.WriteString("**Strongly recommended:** shoot the dealer (known live, handsaw doubles the damage)\n")
		case s.CurrentLive:
			sb.WriteString("**Recommended:** shoot the dealer (known live)\n")
		default:
			sb.WriteString("**Recommended:** shoot yourself (known blank, you keep the turn)\n")
		}
		return sb.String()
	}

	p := s.probability()
	dealerEV := ExpectedValue(s, TargetDealer)
	selfEV := ExpectedValue(s, TargetSelf)
	switch {
	case p >= highLive:
		sb.WriteString("**Recommended:** shoot the dealer (high live probability)\n")
		if s.HandsawActive {
			sb.WriteString("Handsaw active, double damage makes this a strong shot.\n")
		}
	case p <= lowLive:
		sb.WriteString("**Recommended:** shoot yourself (low live probability, likely to keep the turn)\n")
	default:
		sb.WriteString("Even odds, weigh the situation and your items:\n\n")
		fmt.Fprintf(&sb, "- Shoot dealer EV: %.2f\n", dealerEV)
		fmt.Fprintf(&sb, "- Shoot self EV: %.2f\n\n", selfEV)
		if dealerEV > selfEV {
			sb.WriteString("Slight lean: shoot the dealer\n")
		} else {
			sb.WriteString("Slight lean: shoot yourself\n")
		}
	}
	return sb.String()
}

func itemAdvice(s GameState) string {
	var sb strings.Builder

	sb.WriteString("**Your items**\n\n")
	mine := unused(s.PlayerItems)
	if len(mine) == 0 {
		sb.WriteString("- No usable items\n")
	}
	for _, it := range mine {
		sb.WriteString("- " + playerHint(s, it) + "\n")
	}

	sb.WriteString("\n**Dealer threats**\n\n")
	theirs := unused(s.DealerItems)
	if len(theirs) == 0 {
		sb.WriteString("- Dealer has no threatening items\n")
	}
	for _, it := range theirs {
		sb.WriteString("- " + dealerHint(it) + "\n")
	}
	return sb.String()
}

func playerHint(s GameState, it items.Item) string {
	switch it.Kind {
	case items.MagnifyingGlass:
		return "Magnifying Glass: use it now to see the current shell"
	case items.Beer:
		if s.RemainingLive > s.RemainingBlank {
			return "Beer: live shells dominate, consider ejecting the current one"
		}
		return "Beer: blanks dominate, hold it for now"
	case items.Handsaw:
		if s.RemainingLive > 0 {
			return "Handsaw: use it once the next shell is known live for double damage"
		}
		return "Handsaw: no live shells left, keep it"
	case items.Handcuffs:
		return "Handcuffs: skip the dealer's turn at a critical moment"
	case items.BurnerPhone:
		if s.Remaining() >= 2 {
			return "Burner Phone: extra information, worth using"
		}
		return "Burner Phone: too few shells left to help"
	case items.Inverter:
		return "Inverter: flip a known shell in your favour"
	case items.Cigarettes:
		if s.PlayerHealth < s.PlayerMaxHealth {
			return "Cigarettes: you are hurt, consider healing"
		}
		return "Cigarettes: health is full, save them"
	}
	return fmt.Sprintf("%s: use as the situation requires", it.Name())
}

func dealerHint(it items.Item) string {
	switch it.Kind {
	case items.MagnifyingGlass:
		return "Dealer has a Magnifying Glass: they may know the current shell"
	case items.Handsaw:
		return "Dealer has a Handsaw: watch for double damage"
	case items.Handcuffs:
		return "Dealer has Handcuffs: your next turn may be skipped"
	case items.Inverter:
		return "Dealer has an Inverter: the current shell may be flipped"
	}
	return "Dealer has " + it.Name()
}

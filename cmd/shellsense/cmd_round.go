package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"shellsense/cmd/shellsense/ui"
	"shellsense/internal/advice"
	"shellsense/internal/items"
	"shellsense/internal/session"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// roundFlags describe a round on the command line.
type roundFlags struct {
	live  int
	blank int
	fired string // e.g. "lbb", one letter per shot
	known string // e.g. "3:live,5:blank"
}

func (f *roundFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.live, "live", 0, "Live shells loaded this round")
	cmd.Flags().IntVar(&f.blank, "blank", 0, "Blank shells loaded this round")
	cmd.Flags().StringVar(&f.fired, "fired", "", "Shells already fired in order, one letter each (l or b)")
	cmd.Flags().StringVar(&f.known, "known", "", "Known shells, e.g. 3:live,5:blank")
}

// apply loads the round into s and replays the fired and known shells.
func (f *roundFlags) apply(s *session.Session) error {
	if f.live < 0 || f.blank < 0 {
		return fmt.Errorf("--live and --blank must not be negative")
	}
	if f.live+f.blank > session.MaxShells {
		return fmt.Errorf("--live and --blank allow at most %d shells", session.MaxShells)
	}
	s.NewRound(f.live, f.blank)

	for _, r := range f.fired {
		if r == ',' || r == ' ' {
			continue
		}
		live, err := session.ParseShell(string(r))
		if err != nil {
			return fmt.Errorf("--fired: %w", err)
		}
		if !s.Fire(live) {
			return fmt.Errorf("--fired: more shots than shells loaded")
		}
	}

	for _, part := range splitList(f.known) {
		pos, shell, ok := strings.Cut(part, ":")
		if !ok {
			return fmt.Errorf("--known: %q is not POSITION:live|blank", part)
		}
		n, err := strconv.Atoi(strings.TrimSpace(pos))
		if err != nil || n < 1 || n > session.MaxShells {
			return fmt.Errorf("--known: bad position %q", pos)
		}
		live, err := session.ParseShell(strings.TrimSpace(shell))
		if err != nil {
			return fmt.Errorf("--known: %w", err)
		}
		if !s.Reveal(n, live) {
			return fmt.Errorf("--known: #%d was already fired", n)
		}
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

var oddsFlags roundFlags

// oddsCmd prints the live probability of the current shell
var oddsCmd = &cobra.Command{
	Use:   "odds",
	Short: "Show the odds that the current shell is live",
	Long: `Replays a round from flags and prints what remains and how likely the
current shell is to be live.

Example:
  shellsense odds --live 3 --blank 2 --fired lb --known 5:live`,
	Args: cobra.NoArgs,
	RunE: runOdds,
}

func init() {
	oddsFlags.register(oddsCmd)
	adviseFlags.round.register(adviseCmd)

	adviseCmd.Flags().IntVar(&adviseFlags.playerHP, "player-hp", -1, "Player health (default from config)")
	adviseCmd.Flags().IntVar(&adviseFlags.dealerHP, "dealer-hp", -1, "Dealer health (default from config)")
	adviseCmd.Flags().StringVar(&adviseFlags.items, "items", "", "Items held, e.g. player:beer,dealer:handsaw")
	adviseCmd.Flags().BoolVar(&adviseFlags.saw, "saw", false, "Handsaw is active on the next shot")
	adviseCmd.Flags().BoolVar(&adviseFlags.ai, "ai", false, "Also ask the configured model")
}

func runOdds(cmd *cobra.Command, args []string) error {
	s := session.New()
	if err := oddsFlags.apply(s); err != nil {
		return err
	}

	t := s.Tracker()
	st := t.State()
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Remaining: %d live, %d blank\n", st.RemainingLive, st.RemainingBlank)
	if st.Remaining() == 0 {
		fmt.Fprintln(out, "Round over.")
		return nil
	}
	fmt.Fprintf(out, "Position: #%d\n", st.CurrentPosition)
	if live, ok := t.KnownAt(st.CurrentPosition); ok {
		fmt.Fprintf(out, "Current shell: %s (known)\n", shellWord(live))
	}
	fmt.Fprintf(out, "Live probability: %s\n", ui.Percent(t.LiveProbability()))
	return nil
}

var adviseFlags struct {
	round    roundFlags
	playerHP int
	dealerHP int
	items    string
	saw      bool
	ai       bool
}

// adviseCmd prints advice for a round described by flags
var adviseCmd = &cobra.Command{
	Use:   "advise",
	Short: "Advise on the next shot",
	Long: `Replays a round from flags and prints local advice. With --ai the configured
model is asked at the same time and its answer is printed after.

Example:
  shellsense advise --live 2 --blank 2 --fired b --items player:beer,dealer:handsaw --ai`,
	Args: cobra.NoArgs,
	RunE: runAdvise,
}

// newAdvisor is swapped in tests.
var newAdvisor = advice.NewAdvisor

func runAdvise(cmd *cobra.Command, args []string) error {
	c := loadedConfig()
	s := session.New(session.WithGame(c.Game))
	if err := adviseFlags.round.apply(s); err != nil {
		return err
	}
	if adviseFlags.playerHP >= 0 {
		s.SetHealth(items.Player, adviseFlags.playerHP, 0)
	}
	if adviseFlags.dealerHP >= 0 {
		s.SetHealth(items.Dealer, adviseFlags.dealerHP, 0)
	}
	for _, part := range splitList(adviseFlags.items) {
		side, kind, ok := strings.Cut(part, ":")
		if !ok {
			return fmt.Errorf("--items: %q is not SIDE:ITEM", part)
		}
		sd, err := items.ParseSide(side)
		if err != nil {
			return fmt.Errorf("--items: %w", err)
		}
		k, err := items.ParseKind(kind)
		if err != nil {
			return fmt.Errorf("--items: %w", err)
		}
		s.AddItem(sd, k)
	}
	s.SetHandsaw(adviseFlags.saw)

	state := s.Snapshot()
	out := cmd.OutOrStdout()
	if !adviseFlags.ai {
		fmt.Fprintln(out, advice.Compose(state))
		return nil
	}

	var local, remote string
	g, ctx := errgroup.WithContext(commandContext(cmd))
	g.Go(func() error {
		local = advice.Compose(state)
		return nil
	})
	g.Go(func() error {
		var err error
		remote, err = newAdvisor().Remote(ctx, state, c.LLM)
		return err
	})
	// The only error is the remote one; local advice is printed regardless.
	remoteErr := g.Wait()

	fmt.Fprintln(out, local)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "## AI advice")
	fmt.Fprintln(out)
	if remoteErr != nil {
		fmt.Fprintln(out, advice.Explain(remoteErr))
		return nil
	}
	fmt.Fprintln(out, remote)
	return nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func shellWord(live bool) string {
	if live {
		return "live"
	}
	return "blank"
}

package main

import (
	"fmt"
	"strconv"

	"shellsense/cmd/shellsense/ui"

	"github.com/spf13/cobra"
)

var historyLimit int

// historyCmd lists recent rounds from the journal
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent rounds from the journal",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

// statsCmd summarizes the journal
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show journal statistics and how well the odds predicted the shots",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Number of rounds to show")
}

func runHistory(cmd *cobra.Command, args []string) error {
	j, err := openJournal(loadedConfig())
	if err != nil {
		return err
	}
	defer j.Close()

	rounds, err := j.RecentRounds(commandContext(cmd), historyLimit)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(rounds) == 0 {
		fmt.Fprintln(out, "No rounds recorded yet.")
		return nil
	}

	table := ui.NewTable("", "Round", "Started", "Session", "Loaded", "Shots", "Live shots", "Advice")
	for _, r := range rounds {
		table.AddRow(
			strconv.FormatInt(r.ID, 10),
			r.StartedAt.Local().Format("2006-01-02 15:04"),
			shortSession(r.SessionID),
			fmt.Sprintf("%dL/%dB", r.Live, r.Blank),
			strconv.Itoa(r.Shots),
			strconv.Itoa(r.LiveShots),
			strconv.Itoa(r.Advice),
		)
	}
	fmt.Fprintln(out, table.View(ui.NewStyles(ui.ThemeByName(loadedConfig().UI.Theme))))
	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	j, err := openJournal(loadedConfig())
	if err != nil {
		return err
	}
	defer j.Close()

	st, err := j.Stats(commandContext(cmd))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Rounds:          %d\n", st.Rounds)
	fmt.Fprintf(out, "Shots:           %d (%d live)\n", st.Shots, st.LiveShots)
	fmt.Fprintf(out, "Reveals:         %d\n", st.Reveals)
	fmt.Fprintf(out, "Advice:          %d local, %d AI\n", st.LocalAdvice, st.RemoteAdvice)
	if st.Shots > 0 {
		fmt.Fprintf(out, "Mean predicted:  %s\n", ui.Percent(st.MeanPredicted))
		fmt.Fprintf(out, "Observed live:   %s\n", ui.Percent(st.ObservedLive))
		fmt.Fprintf(out, "Brier score:     %.3f\n", st.Brier)
	}
	return nil
}

func shortSession(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

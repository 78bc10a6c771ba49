package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"shellsense/cmd/shellsense/console"
	"shellsense/internal/config"
	"shellsense/internal/logging"
	"shellsense/internal/session"
	"shellsense/internal/store"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

var errJournalDisabled = errors.New("the round journal is disabled (store.enabled is false)")

// openJournal opens the configured journal for reading.
func openJournal(c *config.Config) (*store.Journal, error) {
	if !c.Store.Enabled {
		return nil, errJournalDisabled
	}
	return store.Open(c.Store.Path)
}

// newSession builds a session journaling to the configured store. A journal
// that fails to open is logged and the session runs without it.
func newSession(c *config.Config) (*session.Session, func()) {
	opts := []session.Option{
		session.WithGame(c.Game),
		session.WithAdvisor(newAdvisor(), c.LLM),
	}
	closeFn := func() {}
	if c.Store.Enabled {
		j, err := store.Open(c.Store.Path)
		if err != nil {
			logging.Get(logging.CategoryBoot).Warnw("journal unavailable, continuing without it", "path", c.Store.Path, "error", err)
		} else {
			opts = append(opts, session.WithJournal(j))
			closeFn = func() { _ = j.Close() }
		}
	}
	s := session.New(opts...)
	logging.Get(logging.CategoryBoot).Infow("session started", "session", s.ID())
	return s, closeFn
}

// execCmd runs commands without the interactive console
var execCmd = &cobra.Command{
	Use:   "exec [script]",
	Short: "Run console commands non-interactively",
	Long: `Runs commands separated by ";" or newlines, the same language the
interactive console accepts. Use "-" to read the script from stdin.

Example:
  shellsense exec "new 3 2; fire blank; item add player beer; advise"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExec,
}

func runExec(cmd *cobra.Command, args []string) error {
	script := strings.Join(args, "\n")
	if script == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read script: %w", err)
		}
		script = string(data)
	}

	s, closeFn := newSession(loadedConfig())
	defer closeFn()

	results, err := s.ExecuteScript(commandContext(cmd), script)
	out := cmd.OutOrStdout()
	for _, res := range results {
		fmt.Fprintln(out, res.Output)
	}
	return err
}

// initConsoleLogging moves logging off stderr while the console owns the
// screen. An empty logging.file falls back to shellsense.log in DefaultDir.
func initConsoleLogging(c *config.Config) error {
	o := c.Logging.Options()
	if o.File != "" {
		return nil
	}
	o.File = filepath.Join(config.DefaultDir(), "shellsense.log")
	logging.Sync()
	l, err := logging.Init(o, verbose)
	if err != nil {
		return err
	}
	logger = l
	return nil
}

// runInteractive launches the console and reloads config while it runs.
func runInteractive(cmd *cobra.Command, args []string) error {
	c := loadedConfig()
	if err := initConsoleLogging(c); err != nil {
		return err
	}
	s, closeFn := newSession(c)
	defer closeFn()

	p := tea.NewProgram(console.New(s, c), tea.WithAltScreen(), tea.WithContext(commandContext(cmd)))

	w, err := config.NewWatcher(configPath, func(reloaded *config.Config) {
		if timeout > 0 {
			reloaded.LLM.Timeout = timeout.String()
		}
		p.Send(console.ConfigReloadedMsg{Config: reloaded})
	})
	if err != nil {
		logging.Get(logging.CategoryConfig).Warnw("config hot reload disabled", "error", err)
	} else if err := w.Start(commandContext(cmd)); err != nil {
		logging.Get(logging.CategoryConfig).Warnw("config hot reload disabled", "error", err)
		w.Stop()
	} else {
		defer w.Stop()
	}

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("console: %w", err)
	}
	fmt.Fprintln(os.Stdout, "Session", s.ID(), "ended.")
	return nil
}

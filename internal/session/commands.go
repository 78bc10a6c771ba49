package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"shellsense/internal/items"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrUsage          = errors.New("usage")
	ErrNoAdvisor      = errors.New("remote advice is not available")
)

// MaxShells bounds typed shell counts and reveal positions.
const MaxShells = 64

// Result is the outcome of one command.
type Result struct {
	Output string
	// Markdown is set when Output is advice meant for a markdown renderer.
	Markdown bool
	// Applied is false when the command was valid but changed nothing.
	Applied bool
}

// HelpText lists the command language.
const HelpText = `Commands:
  new L B                 start a round with L live and B blank shells (clears items)
  fire live|blank         record the current shell being fired
  eject live|blank        record the current shell being racked out (beer)
  reveal P live|blank     record knowledge of shell #P
  forget P                drop knowledge of shell #P
  item add SIDE KIND      give player|dealer an item
  item use SIDE KIND      use the first unused item of that kind
  item rm SIDE INDEX      remove item number INDEX (1-based)
  hp SIDE HP [MAX]        set health
  saw on|off              arm or disarm the handsaw
  pick                    draw live/blank weighted by the current probability
  advise [ai]             local advice, or ask the configured model
  status                  show the round
  reset                   clear everything
  help                    show this text`

type handler func(s *Session, ctx context.Context, args []string) (Result, error)

var commands = map[string]handler{
	"new":    cmdNew,
	"round":  cmdNew,
	"fire":   cmdFire,
	"shoot":  cmdFire,
	"eject":  cmdEject,
	"reveal": cmdReveal,
	"forget": cmdForget,
	"item":   cmdItem,
	"hp":     cmdHealth,
	"saw":    cmdSaw,
	"pick":   cmdPick,
	"advise": cmdAdvise,
	"status": cmdStatus,
	"reset":  cmdReset,
	"help":   cmdHelp,
}

// Execute runs one command line.
func (s *Session) Execute(ctx context.Context, line string) (Result, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Result{}, fmt.Errorf("%w: empty command", ErrUsage)
	}
	h, ok := commands[strings.ToLower(fields[0])]
	if !ok {
		return Result{}, fmt.Errorf("%w: %q (try help)", ErrUnknownCommand, fields[0])
	}
	return h(s, ctx, fields[1:])
}

// ExecuteScript runs commands separated by ";" or newlines, stopping at the first error.
func (s *Session) ExecuteScript(ctx context.Context, script string) ([]Result, error) {
	var out []Result
	for _, line := range strings.FieldsFunc(script, func(r rune) bool { return r == ';' || r == '\n' }) {
		if strings.TrimSpace(line) == "" || strings.HasPrefix(strings.TrimSpace(line), "#") {
			continue
		}
		res, err := s.Execute(ctx, line)
		if err != nil {
			return out, fmt.Errorf("%s: %w", strings.TrimSpace(line), err)
		}
		out = append(out, res)
	}
	return out, nil
}

func usage(format string) error {
	return fmt.Errorf("%w: %s", ErrUsage, format)
}

// ParseShell accepts live/l/1/true/red and blank/b/0/false/blue.
func ParseShell(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "live", "l", "1", "true", "red":
		return true, nil
	case "blank", "b", "0", "false", "blue":
		return false, nil
	}
	return false, fmt.Errorf("%w: %q is not live or blank", ErrUsage, s)
}

func ignored(what string) Result {
	return Result{Output: what + " ignored"}
}

func cmdNew(s *Session, _ context.Context, args []string) (Result, error) {
	if len(args) != 2 {
		return Result{}, usage("new LIVE BLANK")
	}
	live, err1 := strconv.Atoi(args[0])
	blank, err2 := strconv.Atoi(args[1])
	if err1 != nil || err2 != nil {
		return Result{}, usage("new LIVE BLANK (integers)")
	}
	if max(live, 0)+max(blank, 0) > MaxShells {
		return Result{}, usage(fmt.Sprintf("new LIVE BLANK (at most %d shells)", MaxShells))
	}
	s.NewRound(live, blank)
	st := s.tracker.State()
	return Result{Applied: true, Output: fmt.Sprintf("New round: %d live, %d blank", st.TotalLive, st.TotalBlank)}, nil
}

func cmdFire(s *Session, _ context.Context, args []string) (Result, error) {
	return discharge(s, args, "fire", s.Fire)
}

func cmdEject(s *Session, _ context.Context, args []string) (Result, error) {
	return discharge(s, args, "eject", s.Eject)
}

func discharge(s *Session, args []string, verb string, fn func(bool) bool) (Result, error) {
	if len(args) != 1 {
		return Result{}, usage(verb + " live|blank")
	}
	live, err := ParseShell(args[0])
	if err != nil {
		return Result{}, err
	}
	pos := s.tracker.CurrentPosition()
	if !fn(live) {
		return ignored("Nothing left to " + verb + ","), nil
	}
	return Result{Applied: true, Output: fmt.Sprintf("#%d %s: %s. Live probability now %s",
		pos, verb, shellWord(live), percent(s.tracker.LiveProbability()))}, nil
}

func cmdReveal(s *Session, _ context.Context, args []string) (Result, error) {
	if len(args) != 2 {
		return Result{}, usage("reveal POSITION live|blank")
	}
	pos, err := strconv.Atoi(args[0])
	if err != nil || pos < 1 || pos > MaxShells {
		return Result{}, usage(fmt.Sprintf("reveal POSITION live|blank (position 1..%d)", MaxShells))
	}
	live, err := ParseShell(args[1])
	if err != nil {
		return Result{}, err
	}
	if !s.Reveal(pos, live) {
		return ignored(fmt.Sprintf("#%d was already fired, reveal", pos)), nil
	}
	return Result{Applied: true, Output: fmt.Sprintf("#%d is %s. Live probability now %s",
		pos, shellWord(live), percent(s.tracker.LiveProbability()))}, nil
}

func cmdForget(s *Session, _ context.Context, args []string) (Result, error) {
	if len(args) != 1 {
		return Result{}, usage("forget POSITION")
	}
	pos, err := strconv.Atoi(args[0])
	if err != nil {
		return Result{}, usage("forget POSITION (integer)")
	}
	if !s.Forget(pos) {
		return ignored(fmt.Sprintf("Nothing known at #%d,", pos)), nil
	}
	return Result{Applied: true, Output: fmt.Sprintf("Forgot #%d. Live probability now %s",
		pos, percent(s.tracker.LiveProbability()))}, nil
}

func cmdItem(s *Session, _ context.Context, args []string) (Result, error) {
	if len(args) < 3 {
		return Result{}, usage("item add|use|rm SIDE KIND|INDEX")
	}
	side, err := items.ParseSide(args[1])
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrUsage, err)
	}

	switch strings.ToLower(args[0]) {
	case "add", "use":
		kind, err := items.ParseKind(strings.Join(args[2:], " "))
		if err != nil {
			return Result{}, fmt.Errorf("%w: %v", ErrUsage, err)
		}
		if strings.EqualFold(args[0], "add") {
			s.AddItem(side, kind)
			return Result{Applied: true, Output: fmt.Sprintf("%s gets %s", side, kind)}, nil
		}
		if !s.UseItem(side, kind) {
			return ignored(fmt.Sprintf("%s has no unused %s,", side, kind)), nil
		}
		return Result{Applied: true, Output: fmt.Sprintf("%s used %s: %s", side, kind, items.DescriptionOf(kind))}, nil

	case "rm", "remove", "del":
		idx, err := strconv.Atoi(args[2])
		if err != nil {
			return Result{}, usage("item rm SIDE INDEX")
		}
		if !s.RemoveItem(side, idx-1) {
			return ignored(fmt.Sprintf("No %s item #%d,", side, idx)), nil
		}
		return Result{Applied: true, Output: fmt.Sprintf("Removed %s item #%d", side, idx)}, nil
	}
	return Result{}, usage("item add|use|rm SIDE KIND|INDEX")
}

func cmdHealth(s *Session, _ context.Context, args []string) (Result, error) {
	if len(args) < 2 || len(args) > 3 {
		return Result{}, usage("hp SIDE HP [MAX]")
	}
	side, err := items.ParseSide(args[0])
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrUsage, err)
	}
	hp, err := strconv.Atoi(args[1])
	if err != nil {
		return Result{}, usage("hp SIDE HP [MAX] (integers)")
	}
	maxHP := 0
	if len(args) == 3 {
		if maxHP, err = strconv.Atoi(args[2]); err != nil {
			return Result{}, usage("hp SIDE HP [MAX] (integers)")
		}
	}
	h := s.SetHealth(side, hp, maxHP)
	return Result{Applied: true, Output: fmt.Sprintf("Health: player %d/%d, dealer %d/%d",
		h.Player, h.PlayerMax, h.Dealer, h.DealerMax)}, nil
}

func cmdSaw(s *Session, _ context.Context, args []string) (Result, error) {
	if len(args) != 1 {
		return Result{}, usage("saw on|off")
	}
	switch strings.ToLower(args[0]) {
	case "on", "true", "1":
		s.SetHandsaw(true)
		return Result{Applied: true, Output: "Handsaw armed"}, nil
	case "off", "false", "0":
		s.SetHandsaw(false)
		return Result{Applied: true, Output: "Handsaw disarmed"}, nil
	}
	return Result{}, usage("saw on|off")
}

func cmdPick(s *Session, _ context.Context, _ []string) (Result, error) {
	live, ok := s.Pick()
	if !ok {
		return ignored("No shells remain, pick"), nil
	}
	return Result{Applied: true, Output: fmt.Sprintf("Pick: %s (live probability %s)",
		shellWord(live), percent(s.tracker.LiveProbability()))}, nil
}

func cmdAdvise(s *Session, ctx context.Context, args []string) (Result, error) {
	if len(args) > 0 && strings.EqualFold(args[0], "ai") {
		text, err := s.RemoteAdvice(ctx)
		if err != nil {
			return Result{}, err
		}
		return Result{Applied: true, Output: text}, nil
	}
	return Result{Applied: true, Markdown: true, Output: s.LocalAdvice()}, nil
}

func cmdStatus(s *Session, _ context.Context, _ []string) (Result, error) {
	return Result{Output: s.Status()}, nil
}

func cmdReset(s *Session, _ context.Context, _ []string) (Result, error) {
	s.Reset()
	return Result{Applied: true, Output: "Reset"}, nil
}

func cmdHelp(*Session, context.Context, []string) (Result, error) {
	return Result{Output: HelpText}, nil
}

// Status renders the round as plain text.
func (s *Session) Status() string {
	st := s.tracker.State()
	var sb strings.Builder
	fmt.Fprintf(&sb, "Loaded: %d live, %d blank\n", st.TotalLive, st.TotalBlank)
	fmt.Fprintf(&sb, "Remaining: %d live, %d blank\n", st.RemainingLive, st.RemainingBlank)
	fmt.Fprintf(&sb, "Position: #%d\n", st.CurrentPosition)
	fmt.Fprintf(&sb, "Live probability: %s\n", percent(s.tracker.LiveProbability()))

	if pending := s.tracker.Pending(); len(pending) > 0 {
		parts := make([]string, len(pending))
		for i, k := range pending {
			parts[i] = fmt.Sprintf("#%d %s", k.Position, shellWord(k.Live))
		}
		fmt.Fprintf(&sb, "Known: %s\n", strings.Join(parts, ", "))
	}
	if hist := s.tracker.History(); len(hist) > 0 {
		parts := make([]string, len(hist))
		for i, f := range hist {
			parts[i] = fmt.Sprintf("#%d %s", f.Position, shellWord(f.Live))
		}
		fmt.Fprintf(&sb, "Fired: %s\n", strings.Join(parts, ", "))
	}

	fmt.Fprintf(&sb, "Player: %d/%d hp, items: %s\n", s.health.Player, s.health.PlayerMax, itemList(s.ledger.Items(items.Player)))
	fmt.Fprintf(&sb, "Dealer: %d/%d hp, items: %s\n", s.health.Dealer, s.health.DealerMax, itemList(s.ledger.Items(items.Dealer)))
	if s.handsaw {
		sb.WriteString("Handsaw: armed\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func itemList(list []items.Item) string {
	if len(list) == 0 {
		return "none"
	}
	parts := make([]string, len(list))
	for i, it := range list {
		parts[i] = it.Name()
		if it.Used {
			parts[i] += " (used)"
		}
	}
	return strings.Join(parts, ", ")
}

func shellWord(live bool) string {
	if live {
		return "live"
	}
	return "blank"
}

func percent(p float64) string {
	return strconv.FormatFloat(p*100, 'f', 1, 64) + "%"
}

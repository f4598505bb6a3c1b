package console

import (
	"fmt"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/sahilm/fuzzy"
	"github.com/samber/lo"
	"github.com/tinydbg/dbgcon/internal/console/render"
)

// builtin is one console command.
type builtin struct {
	summary string
	run     func(s *session, args []string) error
}

// builtins maps command names to their implementations. quit and exit go
// through the shared proxy so the resolution is per-session. Populated in
// init because runHelp and suggestCommand read the map back.
var builtins map[string]builtin

func init() {
	builtins = map[string]builtin{
		"help": {
			summary: "list available commands",
			run:     runHelp,
		},
		"echo": {
			summary: "print its arguments",
			run:     runEcho,
		},
		"status": {
			summary: "show host uptime, goroutines and memory",
			run:     runStatus,
		},
		"history": {
			summary: "show recent commands: history [n]",
			run:     runHistory,
		},
		"exit": {
			summary: "leave this session: exit [code]",
			run:     runExit,
		},
		"quit": {
			summary: "alias for exit",
			run:     runExit,
		},
	}
}

// dispatch parses one input line and runs the matching builtin.
func (c *Console) dispatch(s *session, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}

	name := fields[0]
	cmd, ok := builtins[name]
	if !ok {
		fmt.Fprintln(s.out, render.ErrorStyle.Render(fmt.Sprintf("unknown command: %s", name)))
		if suggestion := suggestCommand(name); suggestion != "" {
			fmt.Fprintln(s.out, render.DimStyle.Render(fmt.Sprintf("did you mean %s?", suggestion)))
		}
		return nil
	}

	return cmd.run(s, fields[1:])
}

// suggestCommand returns the closest builtin name, or "" when nothing is
// close enough to be helpful.
func suggestCommand(name string) string {
	matches := fuzzy.Find(name, lo.Keys(builtins))
	if len(matches) == 0 {
		return ""
	}
	return matches[0].Str
}

func runHelp(s *session, _ []string) error {
	names := lo.Keys(builtins)
	sort.Strings(names)

	fmt.Fprintln(s.out, "commands:")
	for _, name := range names {
		fmt.Fprintf(s.out, "  %-10s %s\n", name, render.DimStyle.Render(builtins[name].summary))
	}
	return nil
}

func runEcho(s *session, args []string) error {
	fmt.Fprintln(s.out, strings.Join(args, " "))
	return nil
}

func runStatus(s *session, _ []string) error {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	fmt.Fprintln(s.out, render.LabelStyle.Render("host:       ")+render.ValueStyle.Render(s.console.host))
	fmt.Fprintln(s.out, render.LabelStyle.Render("started:    ")+render.ValueStyle.Render(humanize.Time(s.console.startedAt)))
	fmt.Fprintln(s.out, render.LabelStyle.Render("goroutines: ")+render.ValueStyle.Render(strconv.Itoa(runtime.NumGoroutine())))
	fmt.Fprintln(s.out, render.LabelStyle.Render("heap:       ")+render.ValueStyle.Render(humanize.Bytes(mem.HeapAlloc)))
	return nil
}

func runHistory(s *session, args []string) error {
	limit := s.console.config.HistoryLimit
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			fmt.Fprintln(s.out, render.ErrorStyle.Render(fmt.Sprintf("history: invalid count %q", args[0])))
			return nil
		}
		limit = n
	}

	if s.console.history == nil {
		fmt.Fprintln(s.out, "history is not enabled on this host")
		return nil
	}

	entries, err := s.console.history.Recent("", limit)
	if err != nil {
		return fmt.Errorf("loading history: %w", err)
	}

	for _, entry := range entries {
		fmt.Fprintf(s.out, "%s  %s  %s\n",
			render.DimStyle.Render(humanize.Time(entry.CreatedAt)),
			entry.Command,
			render.DimStyle.Render("("+entry.Session+")"))
	}
	return nil
}

// runExit invokes the shared proxy. The registered behavior for this
// session's goroutine decides what quitting actually means; whatever unwind
// it raises propagates out of dispatch untouched.
func runExit(s *session, args []string) error {
	if len(args) == 0 {
		s.console.proxy.Quit()
		return nil
	}

	// An integer argument is an exit status, anything else is a message.
	var code any = strings.Join(args, " ")
	if n, err := strconv.Atoi(args[0]); err == nil && len(args) == 1 {
		code = n
	}
	s.console.proxy.Call(code)
	return nil
}

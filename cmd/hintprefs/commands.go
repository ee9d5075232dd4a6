package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"

	"golang.org/x/term"

	"github.com/dshills/hintprefs/internal/app"
	"github.com/dshills/hintprefs/internal/config/notify"
	"github.com/dshills/hintprefs/internal/pattern"
	"github.com/dshills/hintprefs/internal/provider"
	"github.com/dshills/hintprefs/internal/session"
	"github.com/dshills/hintprefs/internal/setdiff"
)

var (
	errInteractive = errors.New("refusing to read patterns from a terminal; pipe them in instead")
	errNotListed   = errors.New("pattern is not in the list")
	errUnknownOpt  = errors.New("unknown option")
	errBadSetting  = errors.New("option setting must look like <id>=<true|false>")
)

// env is what a command runs against.
type env struct {
	app    *app.Application
	stdin  io.Reader
	stdout io.Writer
}

type command struct {
	name    string
	usage   string
	summary string
	minArgs int
	maxArgs int // -1 for no limit
	watch   bool
	run     func(ctx context.Context, e *env, args []string) error
}

func (c command) checkArgs(args []string) error {
	if len(args) < c.minArgs {
		return fmt.Errorf("%s: not enough arguments", c.name)
	}
	if c.maxArgs >= 0 && len(args) > c.maxArgs {
		return fmt.Errorf("%s: too many arguments", c.name)
	}
	return nil
}

var commands = []command{
	{name: "langs", usage: "langs", summary: "List languages and whether they are customized", maxArgs: 0, run: runLangs},
	{name: "show", usage: "show <lang>", summary: "Print the effective exclusion list", minArgs: 1, maxArgs: 1, run: runShow},
	{name: "diff", usage: "diff [lang...]", summary: "Print stored changes against the defaults", maxArgs: -1, run: runDiff},
	{name: "add", usage: "add <lang> <pattern>...", summary: "Add patterns to a list", minArgs: 2, maxArgs: -1, run: runAdd},
	{name: "remove", usage: "remove <lang> <pattern>...", summary: "Remove patterns from a list", minArgs: 2, maxArgs: -1, run: runRemove},
	{name: "set", usage: "set <lang> < patterns", summary: "Replace a list with patterns read from stdin", minArgs: 1, maxArgs: 1, run: runSet},
	{name: "reset", usage: "reset <lang>...", summary: "Restore the default list", minArgs: 1, maxArgs: -1, run: runReset},
	{name: "options", usage: "options <lang> [id=true|false...]", summary: "List or change a language's hint options", minArgs: 1, maxArgs: -1, run: runOptions},
	{name: "check", usage: "check <lang> <call>", summary: "Report which patterns suppress hints for a call", minArgs: 2, maxArgs: 2, run: runCheck},
	{name: "watch", usage: "watch [lang...]", summary: "Report external changes to storage", maxArgs: -1, watch: true, run: runWatch},
}

func lookupCommand(name string) (command, bool) {
	i := slices.IndexFunc(commands, func(c command) bool { return c.name == name })
	if i < 0 {
		return command{}, false
	}
	return commands[i], true
}

func (e *env) provider(lang string) (provider.Provider, error) {
	p, ok := e.app.Registry().Lookup(lang)
	if !ok {
		return nil, fmt.Errorf("%w: %s", session.ErrUnknownLanguage, lang)
	}
	return p, nil
}

func runLangs(ctx context.Context, e *env, _ []string) error {
	customized, err := e.app.Store().Customized(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(e.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSTATUS")
	for _, l := range e.app.Registry().Languages() {
		p, _ := e.app.Registry().Lookup(l.ID)
		status := "default"
		switch {
		case !p.SupportsBlacklist():
			status = "options only"
		case slices.Contains(customized, l.ID):
			status = "customized"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", l.ID, l.DisplayName, status)
	}
	return tw.Flush()
}

func runShow(_ context.Context, e *env, args []string) error {
	s, err := e.app.OpenSession()
	if err != nil {
		return err
	}
	pn, err := s.Panel(args[0])
	if err != nil {
		return err
	}
	if text := pn.Text(); text != "" {
		fmt.Fprintln(e.stdout, text)
	}
	return nil
}

func runDiff(ctx context.Context, e *env, args []string) error {
	var ids []string
	if len(args) == 0 {
		var err error
		if ids, err = e.app.Store().Customized(ctx); err != nil {
			return err
		}
	} else {
		for _, lang := range args {
			p, err := e.provider(lang)
			if err != nil {
				return err
			}
			ids = append(ids, p.Language().ID)
		}
	}

	for _, id := range ids {
		d := e.app.Store().GetDiff(id)
		if d.IsEmpty() {
			fmt.Fprintf(e.stdout, "%s: no changes\n", id)
			continue
		}
		fmt.Fprintf(e.stdout, "%s:\n", id)
		for _, p := range setdiff.Sorted(d.Added()) {
			fmt.Fprintf(e.stdout, "  + %s\n", p)
		}
		for _, p := range setdiff.Sorted(d.Removed()) {
			fmt.Fprintf(e.stdout, "  - %s\n", p)
		}
	}
	return nil
}

func runAdd(ctx context.Context, e *env, args []string) error {
	lang := args[0]
	opts := make([]session.Option, 0, len(args)-1)
	for _, p := range args[1:] {
		opts = append(opts, session.WithPreselect(lang, p))
	}
	s, err := e.app.OpenSession(opts...)
	if err != nil {
		return err
	}
	return s.Commit(ctx)
}

func runRemove(ctx context.Context, e *env, args []string) error {
	s, err := e.app.OpenSession()
	if err != nil {
		return err
	}
	pn, err := s.Panel(args[0])
	if err != nil {
		return err
	}

	current := pn.Patterns()
	drop := setdiff.NewSet[string]()
	for _, p := range args[1:] {
		p = strings.TrimSpace(p)
		if !slices.Contains(current, p) {
			return fmt.Errorf("%w: %q", errNotListed, p)
		}
		drop.Add(p)
	}

	kept := slices.DeleteFunc(current, drop.Has)
	pn.SetText(pattern.Join(kept))
	return s.Commit(ctx)
}

func runSet(ctx context.Context, e *env, args []string) error {
	if f, ok := e.stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return errInteractive
	}
	data, err := io.ReadAll(e.stdin)
	if err != nil {
		return fmt.Errorf("reading patterns: %w", err)
	}

	s, err := e.app.OpenSession()
	if err != nil {
		return err
	}
	pn, err := s.Panel(args[0])
	if err != nil {
		return err
	}
	pn.SetText(strings.ReplaceAll(string(data), "\r\n", "\n"))
	return s.Commit(ctx)
}

func runReset(ctx context.Context, e *env, args []string) error {
	for _, lang := range args {
		p, err := e.provider(lang)
		if err != nil {
			return err
		}
		e.app.Store().Reset(p.Language().ID)
	}
	return e.app.Store().Flush(ctx)
}

func runOptions(ctx context.Context, e *env, args []string) error {
	p, err := e.provider(args[0])
	if err != nil {
		return err
	}
	if len(args) > 1 {
		if err := setOptions(ctx, e, p, args[1:]); err != nil {
			return err
		}
	}

	opts := p.Options()
	if len(opts) == 0 {
		fmt.Fprintf(e.stdout, "%s has no options\n", p.Language().DisplayName)
		return nil
	}

	tw := tabwriter.NewWriter(e.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tVALUE\tDEFAULT")
	for _, o := range opts {
		fmt.Fprintf(tw, "%s\t%s\t%t\t%t\n", o.ID, o.Name, o.Get(), o.Default())
	}
	return tw.Flush()
}

// setOptions applies id=value settings through a session so they are stored.
func setOptions(ctx context.Context, e *env, p provider.Provider, settings []string) error {
	s, err := e.app.OpenSession()
	if err != nil {
		return err
	}
	opts, err := s.Options(p.Language().ID)
	if err != nil {
		return err
	}

	for _, setting := range settings {
		id, raw, ok := strings.Cut(setting, "=")
		if !ok {
			return fmt.Errorf("%w: %q", errBadSetting, setting)
		}
		v, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return fmt.Errorf("%w: %q", errBadSetting, setting)
		}
		id = strings.TrimSpace(id)
		i := slices.IndexFunc(opts, func(o *provider.Option) bool { return o.ID == id })
		if i < 0 {
			return fmt.Errorf("%w: %s has no option %q", errUnknownOpt, p.Language().DisplayName, id)
		}
		s.SetOption(opts[i], v)
	}
	return s.Commit(ctx)
}

func runCheck(_ context.Context, e *env, args []string) error {
	call, err := pattern.ParseCall(args[1])
	if err != nil {
		return err
	}
	s, err := e.app.OpenSession()
	if err != nil {
		return err
	}
	pn, err := s.Panel(args[0])
	if err != nil {
		return err
	}

	matched := pattern.NewMatcher(pn.Patterns()).Matching(call)
	if len(matched) == 0 {
		fmt.Fprintf(e.stdout, "hints shown for %s\n", call.Method)
		return nil
	}
	fmt.Fprintf(e.stdout, "hints suppressed for %s by:\n", call.Method)
	for _, p := range matched {
		fmt.Fprintf(e.stdout, "  %s\n", p)
	}
	return nil
}

func runWatch(ctx context.Context, e *env, args []string) error {
	if len(args) == 0 {
		sub := e.app.Notifier().Subscribe(func(c notify.Change) {
			if c.Type != notify.ChangeReload {
				return
			}
			ids, err := e.app.Store().Customized(ctx)
			if err != nil {
				fmt.Fprintf(e.stdout, "reloaded: %v\n", err)
				return
			}
			fmt.Fprintf(e.stdout, "reloaded: %s\n", strings.Join(ids, ", "))
		})
		defer sub.Unsubscribe()
	}

	for _, lang := range args {
		p, err := e.provider(lang)
		if err != nil {
			return err
		}
		id := p.Language().ID
		sub := e.app.Notifier().SubscribeLanguage(id, func(c notify.Change) {
			if c.Type != notify.ChangeReload {
				return
			}
			d := e.app.Store().GetDiffContext(ctx, id)
			fmt.Fprintf(e.stdout, "reloaded %s: %s\n", id, d.String())
		})
		defer sub.Unsubscribe()
	}

	<-ctx.Done()
	return nil
}

package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/decksmith/internal/asset"
	"github.com/MrWong99/decksmith/internal/config"
	"github.com/MrWong99/decksmith/internal/pipeline"
	"github.com/MrWong99/decksmith/internal/stage"
)

type translateOptions struct {
	file        string
	workers     int
	interactive bool
	json        bool
}

func newTranslateCmd(root *rootOptions) *cobra.Command {
	o := &translateOptions{}
	cmd := &cobra.Command{
		Use:   "translate [command...]",
		Short: "Translate commands into SCHEDULE keywords",
		Long: `Translate one command given as arguments, a batch read with --file, or an
interactive session with --interactive. Exits with status 2 when a command
fails or needs clarification outside interactive mode.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd, root, args)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&o.file, "file", "f", "", `read one command per line from this file ("-" for stdin)`)
	f.IntVarP(&o.workers, "workers", "w", 0, "concurrent translations in batch mode (default pipeline.workers)")
	f.BoolVarP(&o.interactive, "interactive", "i", false, "answer clarification questions on stdin")
	f.BoolVar(&o.json, "json", false, "print each outcome as one JSON object per line")
	return cmd
}

func (o *translateOptions) run(cmd *cobra.Command, root *rootOptions, args []string) error {
	modes := 0
	for _, set := range []bool{len(args) > 0, o.file != "", o.interactive} {
		if set {
			modes++
		}
	}
	if modes != 1 {
		return errors.New("translate: give exactly one of a command, --file or --interactive")
	}

	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	logger, level := newLogger(cmd.ErrOrStderr(), cfg.Server.LogLevel)
	slog.SetDefault(logger)

	ctx := cmd.Context()
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	out := cmd.OutOrStdout()
	if o.interactive {
		if root.configPath != "" {
			w, err := config.NewWatcher(root.configPath, a.reloadFunc(level, root.logLevel == ""))
			if err != nil {
				return err
			}
			defer w.Stop()
		}
		return o.session(ctx, a.controller, cmd.InOrStdin(), out)
	}

	var commands []string
	if o.file != "" {
		if commands, err = readCommands(o.file, cmd.InOrStdin()); err != nil {
			return err
		}
	} else {
		commands = []string{strings.Join(args, " ")}
	}

	workers := o.workers
	if workers <= 0 {
		workers = cfg.Pipeline.Workers
	}
	outcomes, err := translateAll(ctx, a.controller, commands, workers)
	if err != nil {
		return err
	}

	incomplete := false
	for _, oc := range outcomes {
		if err := printOutcome(out, oc, o.json); err != nil {
			return err
		}
		if oc.State != pipeline.StateComplete {
			incomplete = true
		}
	}
	if incomplete {
		return errIncomplete
	}
	return nil
}

// reloadFunc applies config changes that take effect on the fly. Sections
// that need a restart are only reported.
func (a *app) reloadFunc(level *slog.LevelVar, followLogLevel bool) func(old, new *config.Config) {
	return func(old, new *config.Config) {
		d := config.Diff(old, new)
		if d.LogLevelChanged && followLogLevel {
			level.Set(slogLevel(d.NewLogLevel))
			slog.Info("log level changed", "level", d.NewLogLevel)
		}
		if d.ThresholdsChanged {
			th := new.WithDefaults().Pipeline.Thresholds
			a.controller.SetThresholds(th)
			slog.Info("checkpoint thresholds changed", "thresholds", th)
		}
		if len(d.RestartRequired) > 0 {
			slog.Warn("config changes need a restart to take effect", "sections", d.RestartRequired)
		}
	}
}

// readCommands returns the non-blank lines of path that are not # comments.
func readCommands(path string, stdin io.Reader) ([]string, error) {
	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("translate: %w", err)
		}
		defer f.Close()
		r = f
	}
	var cmds []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		cmds = append(cmds, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("translate: read %s: %w", path, err)
	}
	return cmds, nil
}

// translateAll runs every command with at most workers runs in flight and
// returns the outcomes in input order.
func translateAll(ctx context.Context, c *pipeline.Controller, commands []string, workers int) ([]pipeline.Outcome, error) {
	outcomes := make([]pipeline.Outcome, len(commands))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))
	for i, text := range commands {
		g.Go(func() error {
			outcomes[i] = c.Translate(ctx, text, nil)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, ctx.Err()
}

// session reads commands and clarification replies line by line until EOF
// or ":quit". ":reset" drops a pending clarification.
func (o *translateOptions) session(ctx context.Context, c *pipeline.Controller, in io.Reader, out io.Writer) error {
	var pending *pipeline.ConversationState
	sc := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !sc.Scan() {
			break
		}
		line := strings.TrimSpace(sc.Text())
		switch line {
		case "":
			continue
		case ":quit":
			return nil
		case ":reset":
			pending = nil
			continue
		}

		oc := c.Translate(ctx, line, pending)
		if err := printOutcome(out, oc, o.json); err != nil {
			return err
		}
		pending = nil
		if oc.State == pipeline.StateNeedsClarification {
			pending = oc.Resume
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	fmt.Fprintln(out)
	return sc.Err()
}

func printOutcome(w io.Writer, oc pipeline.Outcome, asJSON bool) error {
	if asJSON {
		return json.NewEncoder(w).Encode(oc)
	}

	var err error
	switch oc.State {
	case pipeline.StateComplete:
		_, err = fmt.Fprintln(w, strings.TrimRight(oc.Text, "\n"))
	case pipeline.StateNeedsClarification:
		_, err = fmt.Fprintf(w, "? %s\n", oc.ClarificationPrompt)
	default:
		_, err = fmt.Fprintf(w, "FAILED at %s: %s\n", oc.Stage, strings.Join(oc.Errors, ", "))
		for _, line := range suggestionLines(oc) {
			fmt.Fprintf(w, "  %s\n", line)
		}
	}
	return err
}

// suggestionLines renders the near-miss asset names the asset stage found.
func suggestionLines(oc pipeline.Outcome) []string {
	meta, _ := oc.Metadata[string(pipeline.StateValidatingAssets)].(stage.Metadata)
	sugg, _ := meta[asset.MetaSuggestions].(map[string][]string)
	names := make([]string, 0, len(sugg))
	for n := range sugg {
		names = append(names, n)
	}
	sort.Strings(names)
	lines := make([]string, 0, len(names))
	for _, n := range names {
		lines = append(lines, fmt.Sprintf("did you mean %s instead of %s?", strings.Join(sugg[n], " or "), n))
	}
	return lines
}

package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Executor runs one command line. args[0] is the resolved command name.
type Executor func(ctx context.Context, args []string) error

// Config configures a REPL.
type Config struct {
	Input  io.Reader
	Output io.Writer
	Prompt string

	// Commands are the names the first word may resolve to.
	Commands []string
	Execute  Executor

	// HistoryFile persists history; empty keeps it in memory.
	HistoryFile string
}

// REPL is the read-eval-print loop.
type REPL struct {
	input     io.Reader
	output    io.Writer
	prompt    string
	execute   Executor
	completer *Completer
	history   *History
}

// New creates a REPL.
func New(cfg Config) *REPL {
	if cfg.Prompt == "" {
		cfg.Prompt = "> "
	}
	return &REPL{
		input:     cfg.Input,
		output:    cfg.Output,
		prompt:    cfg.Prompt,
		execute:   cfg.Execute,
		completer: NewCompleter(cfg.Commands),
		history:   NewHistory(cfg.HistoryFile),
	}
}

// Run reads lines until exit, EOF or ctx is done. Command errors are
// printed and do not stop the loop.
func (r *REPL) Run(ctx context.Context) error {
	if err := r.history.Load(); err != nil {
		fmt.Fprintf(r.output, "warning: load history: %v\n", err)
	}
	defer func() {
		if err := r.history.Save(); err != nil {
			fmt.Fprintf(r.output, "warning: save history: %v\n", err)
		}
	}()

	scanner := bufio.NewScanner(r.input)
	for {
		if ctx.Err() != nil {
			return nil
		}
		fmt.Fprint(r.output, r.prompt)
		if !scanner.Scan() {
			fmt.Fprintln(r.output)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		r.history.Add(line)

		switch line {
		case "exit", "quit":
			return nil
		case "history":
			for i, e := range r.history.Entries() {
				fmt.Fprintf(r.output, "%4d  %s\n", i+1, e)
			}
			continue
		}

		if err := r.eval(ctx, line); err != nil {
			fmt.Fprintf(r.output, "error: %v\n", err)
		}
	}
}

func (r *REPL) eval(ctx context.Context, line string) error {
	args, err := SplitArgs(line)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return nil
	}
	name, candidates := r.completer.Resolve(args[0])
	switch {
	case name != "":
		args[0] = name
	case len(candidates) > 0:
		return fmt.Errorf("ambiguous command %q: %s", args[0], strings.Join(candidates, ", "))
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
	return r.execute(ctx, args)
}

// ErrUnterminatedQuote is returned by SplitArgs for an open quote.
var ErrUnterminatedQuote = errors.New("unterminated quote")

// SplitArgs splits line on whitespace. Single or double quotes group
// words; a backslash escapes the next character outside single quotes.
func SplitArgs(line string) ([]string, error) {
	var (
		args    []string
		cur     strings.Builder
		inArg   bool
		quote   rune
		escaped bool
	)
	for _, ch := range line {
		switch {
		case escaped:
			cur.WriteRune(ch)
			escaped = false
		case ch == '\\' && quote != '\'':
			escaped = true
			inArg = true
		case quote != 0:
			if ch == quote {
				quote = 0
			} else {
				cur.WriteRune(ch)
			}
		case ch == '\'' || ch == '"':
			quote = ch
			inArg = true
		case ch == ' ' || ch == '\t':
			if inArg {
				args = append(args, cur.String())
				cur.Reset()
				inArg = false
			}
		default:
			cur.WriteRune(ch)
			inArg = true
		}
	}
	if quote != 0 || escaped {
		return nil, ErrUnterminatedQuote
	}
	if inArg {
		args = append(args, cur.String())
	}
	return args, nil
}

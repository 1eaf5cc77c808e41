package command

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/pixelsync/internal/cli/repl"
)

// ShellCommand returns the interactive shell command.
func ShellCommand() *cli.Command {
	return &cli.Command{
		Name:  "shell",
		Usage: "Run commands interactively",
		Description: "Global flags given before 'shell' apply to every command. " +
			"Any unique prefix of a command name is accepted.",
		Action: shell,
	}
}

// shellStringFlags and shellBoolFlags are forwarded to every command run
// from the shell.
var (
	shellStringFlags = []string{"server", "admin-token", "profile", "output", "ca-cert"}
	shellBoolFlags   = []string{"wide", "no-headers", "insecure"}
)

func shell(c *cli.Context) error {
	globals := []string{"--config=" + c.String("config")}
	for _, name := range shellStringFlags {
		if c.IsSet(name) {
			globals = append(globals, fmt.Sprintf("--%s=%s", name, c.String(name)))
		}
	}
	if c.IsSet("timeout") {
		globals = append(globals, "--timeout="+c.Duration("timeout").String())
	}
	for _, name := range shellBoolFlags {
		if c.IsSet(name) {
			globals = append(globals, fmt.Sprintf("--%s=%t", name, c.Bool(name)))
		}
	}

	var names []string
	for _, cmd := range c.App.Commands {
		if cmd.Name != "shell" {
			names = append(names, cmd.Name)
		}
	}

	r := repl.New(repl.Config{
		Input:       c.App.Reader,
		Output:      c.App.Writer,
		Prompt:      "pixelsync> ",
		Commands:    names,
		HistoryFile: filepath.Join(filepath.Dir(c.String("config")), "history"),
		Execute: func(ctx context.Context, args []string) error {
			if args[0] == "shell" {
				return errors.New("already in a shell")
			}
			app := App()
			app.Writer = c.App.Writer
			app.ErrWriter = c.App.ErrWriter
			app.ExitErrHandler = func(*cli.Context, error) {}
			argv := append([]string{c.App.Name}, globals...)
			return app.RunContext(ctx, append(argv, args...))
		},
	})
	return r.Run(c.Context)
}

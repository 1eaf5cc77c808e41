package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/pixelsync/internal/infra/buildinfo"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "pixelsync-server",
		Usage:   "collaborative pixel canvas server",
		Version: buildinfo.String(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to the YAML configuration file",
				EnvVars: []string{"PIXELSYNC_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "addr",
				Usage: "HTTP listen address (overrides server.http.addr)",
			},
			&cli.StringFlag{
				Name:  "data-dir",
				Usage: "data directory (overrides storage.data_dir)",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "debug, info, warn or error (overrides log.level)",
			},
			&cli.BoolFlag{
				Name:  "check-config",
				Usage: "validate the configuration and exit",
			},
		},
		Action: func(c *cli.Context) error {
			opts := options{
				ConfigFile:  c.String("config"),
				Overrides:   flagOverrides(c),
				CheckConfig: c.Bool("check-config"),
			}
			return run(c.Context, opts)
		},
	}
}

// flagOverrides maps the flags that were set to configuration keys.
func flagOverrides(c *cli.Context) map[string]any {
	keys := map[string]string{
		"addr":      "server.http.addr",
		"data-dir":  "storage.data_dir",
		"log-level": "log.level",
	}
	out := make(map[string]any)
	for flag, key := range keys {
		if c.IsSet(flag) {
			out[key] = c.String(flag)
		}
	}
	return out
}

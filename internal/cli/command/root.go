package command

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/pixelsync/internal/cli/config"
	"github.com/yndnr/pixelsync/internal/cli/connection"
	"github.com/yndnr/pixelsync/internal/cli/output"
	"github.com/yndnr/pixelsync/internal/infra/buildinfo"
	"github.com/yndnr/pixelsync/internal/infra/tlsroots"
)

const metaConfig = "cliConfig"

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "pixelsync-cli",
		Usage:   "Inspect and administer a pixelsync server",
		Version: buildinfo.String(),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			EpochCommand(),
			CanvasCommand(),
			ArchiveCommand(),
			ContributorsCommand(),
			AdminCommand(),
			SystemCommand(),
			ConfigCommand(),
			ShellCommand(),
		},
		Before: func(c *cli.Context) error {
			cfg, err := config.Load(c.String("config"))
			if err != nil {
				return err
			}
			c.App.Metadata[metaConfig] = cfg
			return nil
		},
		Metadata: map[string]any{},
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "server",
			Aliases: []string{"s"},
			Usage:   "pixelsync server address (e.g. http://localhost:5080)",
			EnvVars: []string{"PIXELSYNC_SERVER"},
		},
		&cli.StringFlag{
			Name:    "admin-token",
			Usage:   "Admin token for /admin endpoints",
			EnvVars: []string{"PIXELSYNC_ADMIN_TOKEN"},
		},
		&cli.StringFlag{
			Name:    "profile",
			Aliases: []string{"p"},
			Usage:   "Profile from the CLI config file",
			EnvVars: []string{"PIXELSYNC_PROFILE"},
		},
		&cli.StringFlag{
			Name:    "config",
			Usage:   "CLI config file",
			EnvVars: []string{"PIXELSYNC_CLI_CONFIG"},
			Value:   config.DefaultConfigPath(),
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml",
		},
		&cli.BoolFlag{
			Name:    "wide",
			Aliases: []string{"w"},
			Usage:   "Show wide output (more columns)",
		},
		&cli.BoolFlag{
			Name:  "no-headers",
			Usage: "Omit table headers",
		},
		&cli.StringFlag{
			Name:  "ca-cert",
			Usage: "PEM file with additional trusted CA certificates",
		},
		&cli.BoolFlag{
			Name:  "insecure",
			Usage: "Skip TLS certificate verification",
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "Request timeout",
			Value: connection.DefaultTimeout,
		},
	}
}

// GlobalFlags holds the resolved connection and output settings.
type GlobalFlags struct {
	Server     string
	AdminToken string
	CACert     string
	Insecure   bool

	Output    string
	Wide      bool
	NoHeaders bool
	Timeout   time.Duration
}

// ParseGlobalFlags resolves the global flags. Flags that were not set fall
// back to the selected profile.
func ParseGlobalFlags(c *cli.Context) *GlobalFlags {
	cfg := cliConfig(c)
	profile, _ := cfg.Profile(c.String("profile"))

	f := &GlobalFlags{
		Server:     profile.Server,
		AdminToken: profile.AdminToken,
		CACert:     profile.CACert,
		Insecure:   profile.Insecure,
		Output:     cfg.DefaultOutput,
		Wide:       c.Bool("wide"),
		NoHeaders:  c.Bool("no-headers"),
		Timeout:    c.Duration("timeout"),
	}
	if c.IsSet("server") {
		f.Server = c.String("server")
	}
	if c.IsSet("admin-token") {
		f.AdminToken = c.String("admin-token")
	}
	if c.IsSet("ca-cert") {
		f.CACert = c.String("ca-cert")
	}
	if c.IsSet("insecure") {
		f.Insecure = c.Bool("insecure")
	}
	if c.IsSet("output") {
		f.Output = c.String("output")
	}
	return f
}

func cliConfig(c *cli.Context) *config.CLIConfig {
	if cfg, ok := c.App.Metadata[metaConfig].(*config.CLIConfig); ok {
		return cfg
	}
	return config.Default()
}

func newClient(flags *GlobalFlags) (*connection.HTTPClient, error) {
	opts := []connection.Option{connection.WithTimeout(flags.Timeout)}
	if flags.AdminToken != "" {
		opts = append(opts, connection.WithAdminToken(flags.AdminToken))
	}
	if strings.HasPrefix(flags.Server, "https://") || flags.CACert != "" || flags.Insecure {
		tlsCfg, err := tlsroots.ClientTLSConfig(flags.CACert, flags.Insecure)
		if err != nil {
			return nil, fmt.Errorf("tls: %w", err)
		}
		opts = append(opts, connection.WithTLSConfig(tlsCfg))
	}
	return connection.NewHTTPClient(flags.Server, opts...), nil
}

// session bundles what an action needs to call the server and print.
type session struct {
	c      *cli.Context
	flags  *GlobalFlags
	client *connection.HTTPClient
}

func newSession(c *cli.Context) (*session, error) {
	flags := ParseGlobalFlags(c)
	client, err := newClient(flags)
	if err != nil {
		return nil, err
	}
	return &session{c: c, flags: flags, client: client}, nil
}

func (s *session) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(s.c.Context, s.flags.Timeout)
}

func (s *session) get(path string, target any) error {
	ctx, cancel := s.context()
	defer cancel()
	return s.client.Get(ctx, path, target)
}

func (s *session) post(path string, body, target any) error {
	ctx, cancel := s.context()
	defer cancel()
	return s.client.Post(ctx, path, body, target)
}

func (s *session) render(data any) error {
	return render(s.c, s.flags, data)
}

// structured reports whether output goes to json or yaml, where commands
// print full payloads instead of table summaries.
func (s *session) structured() bool {
	format, err := output.ParseFormat(s.flags.Output)
	return err == nil && format != output.FormatTable
}

func render(c *cli.Context, flags *GlobalFlags, data any) error {
	format, err := output.ParseFormat(flags.Output)
	if err != nil {
		return err
	}
	f := output.NewFormatter(format, flags.Wide)
	if tf, ok := f.(*output.TableFormatter); ok {
		tf.NoHeaders = flags.NoHeaders
	}
	return f.Format(c.App.Writer, data)
}

// PrintError prints an error message to stderr.
func PrintError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
}

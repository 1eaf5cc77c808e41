package command

import (
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/pixelsync/internal/infra/buildinfo"
)

// SystemCommand returns the system command group.
func SystemCommand() *cli.Command {
	return &cli.Command{
		Name:    "system",
		Aliases: []string{"sys"},
		Usage:   "Server status commands",
		Subcommands: []*cli.Command{
			{
				Name:   "health",
				Usage:  "Check server health",
				Action: probe("/health"),
			},
			{
				Name:   "ready",
				Usage:  "Check server readiness",
				Action: probe("/ready"),
			},
			{
				Name:   "version",
				Usage:  "Show client and server versions",
				Action: systemVersion,
			},
		},
	}
}

type healthStatus struct {
	Status   string    `json:"status"`
	Version  string    `json:"version"`
	Epoch    int64     `json:"epoch"`
	Sessions int       `json:"sessions"`
	Time     time.Time `json:"time"`
}

func probe(path string) cli.ActionFunc {
	return func(c *cli.Context) error {
		s, err := newSession(c)
		if err != nil {
			return err
		}
		var h healthStatus
		if err := s.get(path, &h); err != nil {
			return err
		}
		return s.render(h)
	}
}

type versionRow struct {
	Component string `json:"component"`
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	GoVersion string `json:"go_version,omitempty" table:"wide"`
}

// systemVersion prints the client version and, when reachable, the
// server's. An unreachable server is reported as "unavailable".
func systemVersion(c *cli.Context) error {
	info := buildinfo.Get()
	rows := []versionRow{{
		Component: "client",
		Version:   info.Version,
		Commit:    info.Commit,
		GoVersion: info.GoVersion,
	}}

	server := versionRow{Component: "server", Version: "unavailable"}
	if s, err := newSession(c); err == nil {
		var h healthStatus
		if err := s.get("/health", &h); err == nil {
			server.Version = h.Version
		}
	}
	rows = append(rows, server)
	return render(c, ParseGlobalFlags(c), rows)
}

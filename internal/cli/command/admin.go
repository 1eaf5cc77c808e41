package command

import (
	"errors"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/pixelsync/pkg/token"
)

// AdminCommand returns the admin command group.
func AdminCommand() *cli.Command {
	return &cli.Command{
		Name:  "admin",
		Usage: "Administrative operations (require an admin token)",
		Subcommands: []*cli.Command{
			{
				Name:  "reset",
				Usage: "Clear the live canvas without closing the epoch",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "yes",
						Usage: "Confirm the reset",
					},
				},
				Action: adminReset,
			},
			{
				Name:   "snapshot",
				Usage:  "Persist the canvas now",
				Action: adminSnapshot,
			},
			{
				Name:   "check-epoch",
				Usage:  "Run the epoch rollover check now",
				Action: adminCheckEpoch,
			},
			{
				Name:      "hash-token",
				Usage:     "Hash an admin token for security.admin_token_hash",
				ArgsUsage: "[TOKEN]",
				Description: "Without TOKEN a random token is generated. The hash is computed " +
					"locally; nothing is sent to the server.",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "cost",
						Usage: "bcrypt cost",
						Value: token.DefaultCost,
					},
				},
				Action: adminHashToken,
			},
		},
	}
}

type resetResult struct {
	CellsRemoved int `json:"cells_removed"`
}

func adminReset(c *cli.Context) error {
	if !c.Bool("yes") {
		return errors.New("reset clears every cell of the running epoch; pass --yes to confirm")
	}
	s, err := newSession(c)
	if err != nil {
		return err
	}
	var res resetResult
	if err := s.post("/admin/v1/canvas/reset", nil, &res); err != nil {
		return err
	}
	return s.render(res)
}

type snapshotResult struct {
	EpochNumber int64     `json:"epoch_number"`
	Cells       int       `json:"cells"`
	CompletedAt time.Time `json:"completed_at"`
}

func adminSnapshot(c *cli.Context) error {
	s, err := newSession(c)
	if err != nil {
		return err
	}
	var res snapshotResult
	if err := s.post("/admin/v1/snapshots", nil, &res); err != nil {
		return err
	}
	return s.render(res)
}

type checkEpochResult struct {
	RolledOver  bool  `json:"rolled_over"`
	EpochNumber int64 `json:"epoch_number"`
}

func adminCheckEpoch(c *cli.Context) error {
	s, err := newSession(c)
	if err != nil {
		return err
	}
	var res checkEpochResult
	if err := s.post("/admin/v1/epoch/check", nil, &res); err != nil {
		return err
	}
	return s.render(res)
}

type hashedToken struct {
	Token string `json:"token,omitempty"`
	Hash  string `json:"hash"`
}

func adminHashToken(c *cli.Context) error {
	var out hashedToken
	tok := c.Args().First()
	if tok == "" {
		var err error
		if tok, err = token.Generate(); err != nil {
			return err
		}
		out.Token = tok
	}

	hash, err := token.Hash(tok, c.Int("cost"))
	if err != nil {
		return err
	}
	out.Hash = hash
	return render(c, ParseGlobalFlags(c), out)
}

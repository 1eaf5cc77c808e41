package command

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/pixelsync/internal/cli/output"
	"github.com/yndnr/pixelsync/internal/core/domain"
)

// EpochCommand returns the epoch command.
func EpochCommand() *cli.Command {
	return &cli.Command{
		Name:  "epoch",
		Usage: "Show the running epoch",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "countdown",
				Usage: "Show time until the next reset",
			},
		},
		Action: epochShow,
	}
}

func epochShow(c *cli.Context) error {
	s, err := newSession(c)
	if err != nil {
		return err
	}
	if c.Bool("countdown") {
		var cd domain.Countdown
		if err := s.get("/api/v1/epoch/countdown", &cd); err != nil {
			return err
		}
		return s.render(cd)
	}
	var b domain.Boundaries
	if err := s.get("/api/v1/epoch", &b); err != nil {
		return err
	}
	return s.render(b)
}

type canvasView struct {
	EpochNumber int64         `json:"epoch_number"`
	Cells       []domain.Cell `json:"cells"`
}

type colorCount struct {
	Color string `json:"color"`
	Cells int    `json:"cells"`
}

// canvasSummary is the table view of a canvas.
type canvasSummary struct {
	epoch  int64
	cells  int
	colors []colorCount
}

func (c canvasSummary) Table(wide bool) *output.Table {
	t := &output.Table{Headers: []string{"EPOCH", "CELLS", "COLORS"}}
	t.AddRow(strconv.FormatInt(c.epoch, 10), strconv.Itoa(c.cells), strconv.Itoa(len(c.colors)))
	if wide && len(c.colors) > 0 {
		t.Headers = append(t.Headers, "TOP_COLOR")
		t.Rows[0] = append(t.Rows[0], fmt.Sprintf("%s (%d)", c.colors[0].Color, c.colors[0].Cells))
	}
	return t
}

func summarize(v canvasView) canvasSummary {
	counts := make(map[string]int)
	for _, cell := range v.Cells {
		counts[cell.Color]++
	}
	colors := make([]colorCount, 0, len(counts))
	for color, n := range counts {
		colors = append(colors, colorCount{Color: color, Cells: n})
	}
	sort.Slice(colors, func(i, j int) bool {
		if colors[i].Cells != colors[j].Cells {
			return colors[i].Cells > colors[j].Cells
		}
		return colors[i].Color < colors[j].Color
	})
	return canvasSummary{epoch: v.EpochNumber, cells: len(v.Cells), colors: colors}
}

// CanvasCommand returns the canvas command group.
func CanvasCommand() *cli.Command {
	return &cli.Command{
		Name:   "canvas",
		Usage:  "Live canvas commands",
		Flags:  canvasShowFlags(),
		Action: canvasShow,
		Subcommands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Show the live canvas",
				Flags:  canvasShowFlags(),
				Action: canvasShow,
			},
			{
				Name:      "paint",
				Usage:     "Paint one cell",
				ArgsUsage: "X Y COLOR",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "contributor",
						Usage: "Contributor identifier recorded for the epoch",
					},
				},
				Action: canvasPaint,
			},
		},
	}
}

func canvasShowFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "cells",
			Usage: "List every painted cell",
		},
		&cli.BoolFlag{
			Name:  "colors",
			Usage: "List cell counts per color",
		},
	}
}

func canvasShow(c *cli.Context) error {
	s, err := newSession(c)
	if err != nil {
		return err
	}
	var v canvasView
	if err := s.get("/api/v1/canvas", &v); err != nil {
		return err
	}
	switch {
	case c.Bool("cells"):
		return s.render(v.Cells)
	case c.Bool("colors"):
		return s.render(summarize(v).colors)
	case s.structured():
		return s.render(v)
	default:
		return s.render(summarize(v))
	}
}

type paintRequest struct {
	X           int    `json:"x"`
	Y           int    `json:"y"`
	Color       string `json:"color"`
	Contributor string `json:"contributor,omitempty"`
}

func canvasPaint(c *cli.Context) error {
	if c.NArg() != 3 {
		return fmt.Errorf("usage: canvas paint X Y COLOR")
	}
	x, err := strconv.Atoi(c.Args().Get(0))
	if err != nil {
		return fmt.Errorf("invalid x %q", c.Args().Get(0))
	}
	y, err := strconv.Atoi(c.Args().Get(1))
	if err != nil {
		return fmt.Errorf("invalid y %q", c.Args().Get(1))
	}

	s, err := newSession(c)
	if err != nil {
		return err
	}
	var cell domain.Cell
	req := paintRequest{X: x, Y: y, Color: c.Args().Get(2), Contributor: c.String("contributor")}
	if err := s.post("/api/v1/pixels", req, &cell); err != nil {
		return err
	}
	return s.render([]domain.Cell{cell})
}

type archiveItem struct {
	domain.ArchiveSummary
	Ref string `json:"ref" table:"wide"`
}

type archiveList struct {
	Items []archiveItem `json:"items"`
	Total int           `json:"total"`
}

// ArchiveCommand returns the archive command group.
func ArchiveCommand() *cli.Command {
	return &cli.Command{
		Name:    "archive",
		Aliases: []string{"archives"},
		Usage:   "Closed epoch archives",
		Subcommands: []*cli.Command{
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List archived epochs",
				Action:  archiveListAction,
			},
			{
				Name:      "get",
				Usage:     "Show one archived epoch",
				ArgsUsage: "EPOCH",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "cells",
						Usage: "List the archived cells",
					},
				},
				Action: archiveGet,
			},
		},
	}
}

func archiveListAction(c *cli.Context) error {
	s, err := newSession(c)
	if err != nil {
		return err
	}
	var list archiveList
	if err := s.get("/api/v1/archives", &list); err != nil {
		return err
	}
	if s.structured() {
		return s.render(list)
	}
	return s.render(list.Items)
}

func archiveGet(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("usage: archive get EPOCH")
	}
	epoch, err := strconv.ParseInt(c.Args().First(), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid epoch %q", c.Args().First())
	}

	s, err := newSession(c)
	if err != nil {
		return err
	}
	var rec domain.ArchiveRecord
	if err := s.get("/api/v1/archives/"+strconv.FormatInt(epoch, 10), &rec); err != nil {
		return err
	}
	switch {
	case c.Bool("cells"):
		return s.render(rec.Cells)
	case s.structured():
		return s.render(rec)
	default:
		return s.render([]domain.ArchiveSummary{rec.Summary()})
	}
}

type contributorsView struct {
	EpochNumber  int64    `json:"epoch_number"`
	Contributors []string `json:"contributors"`
}

// ContributorsCommand returns the contributors command.
func ContributorsCommand() *cli.Command {
	return &cli.Command{
		Name:  "contributors",
		Usage: "List contributors of the running epoch",
		Action: func(c *cli.Context) error {
			s, err := newSession(c)
			if err != nil {
				return err
			}
			var v contributorsView
			if err := s.get("/api/v1/contributors", &v); err != nil {
				return err
			}
			if s.structured() {
				return s.render(v)
			}
			return s.render(v.Contributors)
		},
	}
}

package main

import (
	"fmt"
	"os"

	"github.com/KingdomFirst/Bulldozer-sub001/config"
	"github.com/KingdomFirst/Bulldozer-sub001/importer/kinds"
	"github.com/KingdomFirst/Bulldozer-sub001/supervisor"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "bulldozer",
		Usage: "import exported records into a target database, skipping what is already there",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Value:   "config.yml",
				Aliases: []string{"c"},
				Usage:   "path to config file",
			},
			&cli.StringSliceFlag{
				Name:    "kind",
				Aliases: []string{"k"},
				Usage:   "import only this kind, may be repeated",
			},
		},
		Action: func(ctx *cli.Context) error {
			s := supervisor.NewSupervisor()
			return s.Run(ctx.Context, ctx.String("config"), ctx.StringSlice("kind"))
		},
		Commands: []*cli.Command{
			{
				Name:  "initconfig",
				Usage: "write an example config file",
				Action: func(ctx *cli.Context) error {
					return config.WriteExampleConfig(ctx.String("config"))
				},
			},
			{
				Name:  "kinds",
				Usage: "list the supported kinds in import order",
				Action: func(ctx *cli.Context) error {
					for _, k := range kinds.Default().All() {
						fmt.Fprintf(ctx.App.Writer, "%-20s %-20s %s\n", k.Name, k.KeyColumn, k.Spec.Table)
					}
					return nil
				},
			},
		},
	}
	err := app.Run(os.Args)
	if err != nil {
		logrus.Fatal(err)
	}
}

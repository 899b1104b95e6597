package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"snoozed/internal/di"
	"snoozed/internal/structures"
)

// Version is set via ldflags.
var Version = "dev"

func main() {
	app := &cli.App{
		Name:    "snoozed",
		Usage:   "keeps snoozed pages until they are due and brings them back",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to the YAML configuration file",
				EnvVars: []string{"SNOOZED_CONFIG"},
				Value:   "config/config.yaml",
			},
			&cli.BoolFlag{
				Name:    "debug",
				Aliases: []string{"d"},
				Usage:   "log to the console as well",
			},
		},
		Action: func(c *cli.Context) error {
			_, err := di.InitApp(&structures.CliFlags{
				ConfigPath: c.String("config"),
				DebugMode:  c.Bool("debug"),
			})
			return err
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

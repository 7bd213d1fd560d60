package main

import (
	"fmt"
	"os"

	"github.com/arkade-os/kittyd/internal/config"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var (
	Version string
	cfg     *config.Config
)

func main() {
	app := cli.NewApp()
	app.Version = Version
	app.Name = "kittyd"
	app.Usage = "ledger of digital collectibles"
	app.Flags = config.Flags
	app.Commands = append(
		app.Commands,
		&createCommand,
		&mintCommand,
		&setPriceCommand,
		&transferCommand,
		&buyCommand,
		&depositCommand,
		&balanceCommand,
		&assetCommand,
		&listCommand,
		&auditCommand,
	)
	app.Before = func(ctx *cli.Context) error {
		if err := loadConfigFile(ctx); err != nil {
			return fmt.Errorf("invalid config file: %s", err)
		}

		c, err := config.LoadConfig(ctx)
		if err != nil {
			return fmt.Errorf("invalid config: %s", err)
		}
		log.SetLevel(log.Level(c.LogLevel))

		if err := c.Validate(); err != nil {
			return fmt.Errorf("invalid config: %s", err)
		}
		log.Debugf("loaded config: %s", c)

		cfg = c
		return nil
	}
	app.After = func(_ *cli.Context) error {
		if cfg != nil {
			cfg.Close()
		}
		return nil
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

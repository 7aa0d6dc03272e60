package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/PieInTheSky-Inc/PSS-Fleet-Helper-sub000/bot"
	"github.com/PieInTheSky-Inc/PSS-Fleet-Helper-sub000/config"
	"github.com/PieInTheSky-Inc/PSS-Fleet-Helper-sub000/db"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "vivibot",
		Usage: "Discord helper bot for Pixel Starships fleets",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to a yaml config file (default ./config.yaml if present)",
				EnvVars: []string{"VIVI_CONFIG"},
			},
			&cli.StringSliceFlag{
				Name:  "env-file",
				Usage: "dotenv files to load before reading the environment (default .env)",
			},
		},
		Action: run,
		Commands: []*cli.Command{
			{
				Name:   "migrate",
				Usage:  "create or update the database schema and exit",
				Action: migrate,
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		logrus.Fatalf("%v", err)
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"), c.StringSlice("env-file")...)
	if err != nil {
		return nil, err
	}
	cfg.ApplyLogLevel()
	return cfg, nil
}

func run(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	vivi, err := bot.Init(cfg)
	if err != nil {
		return fmt.Errorf("failed to start discord bot: %w", err)
	}
	logrus.Infof("Bot is now running. Press ^+C to exit.")
	addURL, err := vivi.BotAddURL()
	if err != nil {
		logrus.Errorf("Failed to generate bot add URL due to error %v", err)
	} else {
		logrus.Infof("Go to `%v` to add bot to your server", addURL)
	}
	closeChan := make(chan os.Signal, 1)
	signal.Notify(closeChan, syscall.SIGINT, syscall.SIGTERM)
	<-closeChan

	vivi.Close()
	fmt.Println("Goodbye!")
	return nil
}

func migrate(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	store, err := db.Init(cfg.DB)
	if err != nil {
		return err
	}
	logrus.Infof("Database schema is up to date.")
	return store.Close()
}

package main

import "github.com/urfave/cli/v2"

func (s *srv) loadApp() {
	configFlag := &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path of the TOML configuration file",
		EnvVars: []string{"RAFFLE_CONFIG"},
	}

	nodeFlag := &cli.Int64Flag{
		Name:    "node",
		Usage:   "Snowflake node of this instance, must be unique among running instances",
		EnvVars: []string{"NODE_ID"},
	}

	app := cli.NewApp()
	app.Action = cli.ShowAppHelp
	app.Name = "Raffle"
	app.Usage = "Raffle allocation and verifiable draw service"
	app.Flags = []cli.Flag{configFlag, nodeFlag}
	app.Before = s.loadConfig
	app.Commands = []*cli.Command{
		{
			Action:      s.startApi,
			Name:        "api",
			Usage:       "Start service api",
			Category:    "Api",
			Description: `Used to start the api server, it serves allocation, draw and verification apis.`,
		},
		{
			Action:      s.startCron,
			Name:        "cron",
			Usage:       "Start cron jobs",
			Category:    "Worker",
			Description: `Used to close expired raffles, draw pending raffles and recover stuck draws.`,
		},
		{
			Action:      s.startMigrate,
			Name:        "migrate",
			Usage:       "Migrate database",
			Category:    "Database",
			Description: `Used to run the sql migrations of the configured database driver.`,
		},
		{
			Action:   s.startVerify,
			Name:     "verify",
			Usage:    "Verify the draw of a raffle",
			Category: "Tool",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "raffle",
					Usage:    "ID of the completed raffle",
					Required: true,
				},
			},
			Description: `Used to recompute the winner of a completed raffle from its public proof.`,
		},
		{
			Action:      s.startGenerateBLSKey,
			Name:        "blskey",
			Usage:       "Generate a key pair of the bls-bn256 seed formula",
			Category:    "Tool",
			Description: `Used to generate the secret key of the bls-bn256 seed formula.`,
		},
	}

	s.app = app
}

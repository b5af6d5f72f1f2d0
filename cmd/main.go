package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"portfoliotracker/cmd/importer"
	"portfoliotracker/cmd/rebuild"
	"portfoliotracker/src/connectors"
	"portfoliotracker/src/database"
	"portfoliotracker/src/idgen"
	"portfoliotracker/src/server"
	"portfoliotracker/src/utils"
)

var Version string

func main() {
	config := database.GetConfig()
	utils.SetupLogger(config.LogLevel, config.LogFormat)

	app := cli.NewApp()
	app.Name = "Portfolio Tracker CMD"
	app.Usage = "The portfolio tracker command line interface"
	app.Version = Version

	app.Commands = []cli.Command{
		serveCMD,
		migrateCMD,
		importCMD,
		rebuildCMD,
		newIDCMD,
	}

	if err := app.Run(os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var (
	serveCMD = cli.Command{
		Name:        "serve",
		Usage:       "run the HTTP API",
		Action:      serveAction,
		Description: `Run the HTTP API with the websocket snapshot stream`,
	}
	migrateCMD = cli.Command{
		Name:        "migrate",
		Usage:       "migrate the database schema",
		Action:      migrateAction,
		Description: `Create the schema and run pending data migrations`,
	}
	importCMD = cli.Command{
		Name:      "import",
		Usage:     "import a CoinGecko transaction export",
		Action:    importAction,
		ArgsUsage: "",
		Flags: []cli.Flag{
			cli.StringFlag{Name: "file", Usage: "path of the export file", EnvVar: "IMPORT_FILE"},
			cli.Int64Flag{Name: "portfolio", Usage: "portfolio id", EnvVar: "IMPORT_PORTFOLIO_ID"},
			cli.StringFlag{Name: "coin", Usage: "CoinGecko coin id, e.g. bitcoin", EnvVar: "IMPORT_COIN_ID"},
		},
		Description: `Reconcile an export into a portfolio. Running it twice changes nothing.`,
	}
	rebuildCMD = cli.Command{
		Name:   "rebuild",
		Usage:  "recompute cached position snapshots",
		Action: rebuildAction,
		Flags: []cli.Flag{
			cli.Int64Flag{Name: "portfolio", Usage: "only rebuild this portfolio"},
		},
		Description: `Recompute every position snapshot from its transactions`,
	}
	newIDCMD = cli.Command{
		Name:        "newid",
		Usage:       "generate an id and print its parts",
		Action:      newIDAction,
		Description: `Generate one id with the configured node id`,
	}
)

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func serveAction(_ *cli.Context) error {
	logrus.Info("Starting serve CMD")
	if err := database.InitMainDB(); err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}
	if err := database.InitRedis(); err != nil {
		logrus.WithError(err).Fatal("Failed to connect to redis")
	}
	defer database.CloseRedis()

	return server.StartServer(server.GetConfig())
}

func migrateAction(_ *cli.Context) error {
	logrus.Info("Starting migrate CMD")
	// InitMainDB migrates on connect
	if err := database.InitMainDB(); err != nil {
		logrus.WithError(err).Error("Migration failed")
		return err
	}
	return nil
}

func importAction(c *cli.Context) error {
	logrus.Info("Starting import CMD")
	if err := database.InitMainDB(); err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}

	ids, err := idgen.New()
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	imp := &importer.Importer{
		Log: logrus.WithField("cmd", "import"),
		DB:  database.MainDB,
		Config: &importer.Config{
			File:        c.String("file"),
			PortfolioID: c.Int64("portfolio"),
			CoinID:      c.String("coin"),
		},
		IDs:   ids,
		Coins: connectors.NewCoinGeckoClientFromEnv(),
	}
	if err := imp.Start(ctx); err != nil {
		logrus.WithError(err).Error("Import failed")
		return err
	}
	return nil
}

func rebuildAction(c *cli.Context) error {
	logrus.Info("Starting rebuild CMD")
	if err := database.InitMainDB(); err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}

	ctx, stop := signalContext()
	defer stop()

	rebuilder := &rebuild.Rebuilder{
		Log:         logrus.WithField("cmd", "rebuild"),
		DB:          database.MainDB,
		PortfolioID: c.Int64("portfolio"),
	}
	if _, err := rebuilder.Start(ctx); err != nil {
		logrus.WithError(err).Error("Rebuild failed")
		return err
	}
	return nil
}

func newIDAction(_ *cli.Context) error {
	g, err := idgen.New()
	if err != nil {
		return err
	}
	id, err := g.Generate()
	if err != nil {
		return err
	}
	parts := idgen.Decompose(id)
	fmt.Printf("%d\ttime=%s node=%d seq=%d\n", id, parts.Time.Format("2006-01-02T15:04:05.000Z07:00"), parts.NodeID, parts.Sequence)
	return nil
}

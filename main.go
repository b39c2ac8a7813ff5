package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"ecorewards/internal/catalog"
	"ecorewards/internal/config"
	"ecorewards/internal/database"
	"ecorewards/internal/logger"
	"ecorewards/internal/models"
	"ecorewards/internal/repository"
	"ecorewards/internal/server"
)

const commandTimeout = 30 * time.Second

func main() {
	cfg := config.Load()
	log := logger.New(&cfg)
	defer func() { _ = log.Sync() }()

	cliApp := &cli.App{
		Name:  "ecorewards",
		Usage: "e-waste recycling rewards backend",
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "start http server and external ledger mirror",
				Action: func(c *cli.Context) error {
					if err := withDatabase(&cfg, log, func(ctx context.Context, db *mongo.Database) error {
						return database.EnsureIndexes(db, log)
					}); err != nil {
						log.Warn("index bootstrap failed", zap.Error(err))
					}

					app, cleanup, err := InitApp(&cfg, log)
					if err != nil {
						return err
					}
					app.Cleanup = cleanup
					return server.Run(c.Context, app)
				},
			},
			{
				Name:  "migrate",
				Usage: "create collection indexes",
				Action: func(c *cli.Context) error {
					return withDatabase(&cfg, log, func(ctx context.Context, db *mongo.Database) error {
						return database.EnsureIndexes(db, log)
					})
				},
			},
			{
				Name:  "seed",
				Usage: "insert or refresh the default shop catalog",
				Action: func(c *cli.Context) error {
					return withDatabase(&cfg, log, func(ctx context.Context, db *mongo.Database) error {
						n, err := catalog.NewService(repository.NewProducts(db), log).Seed(ctx)
						if err != nil {
							return err
						}
						log.Info("catalog seeded", zap.Int("products", n))
						return nil
					})
				},
			},
			{
				Name:  "make-admin",
				Usage: "grant the admin role to a registered user",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Required: true, Usage: "email of the account to promote"},
				},
				Action: func(c *cli.Context) error {
					email := strings.ToLower(strings.TrimSpace(c.String("email")))
					return withDatabase(&cfg, log, func(ctx context.Context, db *mongo.Database) error {
						if err := repository.NewUsers(db).SetRole(ctx, email, models.RoleAdmin); err != nil {
							return fmt.Errorf("promote %s: %w", email, err)
						}
						log.Info("admin role granted", zap.String("email", email))
						return nil
					})
				},
			},
		},
	}
	if err := cliApp.Run(os.Args); err != nil {
		log.Fatal("command failed", zap.Error(err))
	}
}

func withDatabase(cfg *config.Config, log *zap.Logger, fn func(ctx context.Context, db *mongo.Database) error) error {
	db, cleanup, err := database.NewMongo(cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	return fn(ctx, db)
}

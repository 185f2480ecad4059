// Command seed provisions board accounts in Postgres and toggles whether they are active.
//
//	seed                          upsert the default accounts
//	seed --password s3cret        same, with another password
//	seed --deactivate a@b.local   stop a@b.local from logging in or owning requests
//	seed --activate a@b.local     let a@b.local back in
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/spec-kit/opsboard/internal/config"
	"github.com/spec-kit/opsboard/internal/observability"
	"github.com/spec-kit/opsboard/internal/persistence"
	"github.com/spec-kit/opsboard/internal/repository"
	"github.com/spec-kit/opsboard/internal/seed"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "seed: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var (
		password   string
		cost       int
		activate   string
		deactivate string
	)
	flags := pflag.NewFlagSet("seed", pflag.ContinueOnError)
	flags.StringVar(&password, "password", seed.DefaultPassword, "password set on every seeded account")
	flags.IntVar(&cost, "cost", 12, "bcrypt cost")
	flags.StringVar(&activate, "activate", "", "email of an account to reactivate")
	flags.StringVar(&deactivate, "deactivate", "", "email of an account to deactivate")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() > 0 {
		return fmt.Errorf("unexpected argument: %s", flags.Arg(0))
	}
	if activate != "" && deactivate != "" {
		return errors.New("--activate and --deactivate are mutually exclusive")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Postgres.DSN == "" {
		return errors.New("POSTGRES_DSN or DATABASE_URL must be set")
	}
	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pg.Close()
	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			return err
		}
	}
	users := repository.NewUserRepository(pg.PoolHandle())

	switch {
	case activate != "":
		if err := seed.SetActive(ctx, users, activate, true); err != nil {
			return err
		}
		logger.Info("account activated", zap.String("email", activate))
	case deactivate != "":
		if err := seed.SetActive(ctx, users, deactivate, false); err != nil {
			return err
		}
		logger.Info("account deactivated", zap.String("email", deactivate))
	default:
		seeded, err := seed.Users(ctx, users, seed.DefaultAccounts, password, cost)
		if err != nil {
			return err
		}
		for _, u := range seeded {
			logger.Info("account seeded", zap.String("email", u.Email), zap.String("id", u.ID))
		}
	}
	return nil
}

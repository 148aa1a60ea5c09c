// Package tribune wires the stores and services of a community forum with posts, threaded comments
// and votes.
package tribune

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nasermirzaei89/tribune/communities"
	"github.com/nasermirzaei89/tribune/contents"
	"github.com/nasermirzaei89/tribune/db/sqlstore"
	"github.com/nasermirzaei89/tribune/discuss"
	"github.com/nasermirzaei89/tribune/editwindow"
	"github.com/nasermirzaei89/tribune/markup"
	"github.com/nasermirzaei89/tribune/metrics"
	"github.com/nasermirzaei89/tribune/ratings"
	"github.com/nasermirzaei89/tribune/users"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	usernameFilterCapacity          = 10_000
	usernameFilterFalsePositiveRate = 0.01
)

type App struct {
	db *sqlstore.DB

	Registry    *prometheus.Registry
	Metrics     *metrics.Metrics
	Users       *users.Service
	Communities *communities.Service
	Contents    *contents.Service
	Discuss     *discuss.Service
	Ratings     *ratings.Service
}

// NewApp opens the database, applies pending migrations and builds every service.
func NewApp(ctx context.Context, cfg Config) (*App, error) {
	db, err := sqlstore.NewDB(ctx, cfg.DBDialect, cfg.DBDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to create database connection: %w", err)
	}

	app, err := newApp(ctx, db, cfg)
	if err != nil {
		closeErr := db.Close()
		if closeErr != nil {
			slog.ErrorContext(ctx, "failed to close database", "error", closeErr)
		}

		return nil, err
	}

	return app, nil
}

func newApp(ctx context.Context, db *sqlstore.DB, cfg Config) (*App, error) {
	err := sqlstore.MigrateUp(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("failed to run database migrations: %w", err)
	}

	policy, err := editwindow.NewPolicy(cfg.EditWindow)
	if err != nil {
		return nil, fmt.Errorf("failed to create edit window policy: %w", err)
	}

	registry := prometheus.NewRegistry()
	appMetrics := metrics.New(registry)
	renderer := markup.NewRenderer()

	usersSvc := users.NewService(sqlstore.NewUserRepository(db))

	err = usersSvc.LoadUsernameFilter(ctx, usernameFilterCapacity, usernameFilterFalsePositiveRate)
	if err != nil {
		return nil, fmt.Errorf("failed to load username filter: %w", err)
	}

	communitiesSvc := communities.NewService(sqlstore.NewCommunityRepository(db))
	contentsSvc := contents.NewService(sqlstore.NewPostRepository(db), communitiesSvc, policy, renderer)

	discussSvc, err := discuss.NewService(
		sqlstore.NewCommentRepository(db),
		contentsSvc,
		policy,
		renderer,
		cfg.Discuss,
		discuss.WithObserver(appMetrics),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create discuss service: %w", err)
	}

	ratingsSvc, err := ratings.NewService(sqlstore.NewVoteStore(db), cfg.Ratings, ratings.WithObserver(appMetrics))
	if err != nil {
		return nil, fmt.Errorf("failed to create ratings service: %w", err)
	}

	return &App{
		db:          db,
		Registry:    registry,
		Metrics:     appMetrics,
		Users:       usersSvc,
		Communities: communitiesSvc,
		Contents:    contentsSvc,
		Discuss:     discussSvc,
		Ratings:     ratingsSvc,
	}, nil
}

func (app *App) DB() *sqlstore.DB {
	return app.db
}

func (app *App) Close() error {
	err := app.db.Close()
	if err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	return nil
}

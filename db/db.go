package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"

	"github.com/saeidalz13/battleship-session/internal/logging"
)

const (
	maxOpenConns = 300
	maxIdleConns = 100
	connMaxLife  = time.Minute * 15
	pingTimeout  = time.Second * 5

	// there is a 'SchemeFromURL' function that splits the source url by ':'
	DefaultMigrationSource = "file://db/migration"
)

func MustMigrate(db *sql.DB, migrationSource string, logger *logging.Logger) {
	ctx := context.Background()

	driver, err := postgres.WithInstance(db, &postgres.Config{
		DatabaseName: "battleship",
	})
	if err != nil {
		panic(err)
	}

	m, err := migrate.NewWithDatabaseInstance(migrationSource, "battleship", driver)
	if err != nil {
		panic(err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		panic(err)
	}
	if dirty {
		panic("database is dirty")
	}
	logger.Info(ctx, "current migration version", "version", version)

	if err = m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			return
		}
		panic(err)
	}
	logger.Info(ctx, "migration successful")
}

func MustConnectToDb(psqlUrl string, logger *logging.Logger) *sql.DB {
	// Open may only validate its arguments without connecting
	db, err := sql.Open("postgres", psqlUrl)
	if err != nil {
		panic(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		panic(err)
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLife)
	logger.Info(ctx, "connected to postgres", "max_open_conns", maxOpenConns, "max_idle_conns", maxIdleConns)

	MustMigrate(db, DefaultMigrationSource, logger)
	return db
}

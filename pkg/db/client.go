// Package db owns the gorm connection pool and the helpers repositories
// share for transactions and driver error classification.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/datavend-backend/pkg/config"
	"github.com/angelmondragon/datavend-backend/pkg/logger"
)

type driver string

const (
	driverPostgres driver = "postgres"
	driverSQLite   driver = "sqlite"
)

// driverOf defaults to postgres. Sqlite is for local runs only.
func driverOf(cfg config.DBConfig) driver {
	if strings.EqualFold(strings.TrimSpace(cfg.Driver), string(driverSQLite)) {
		return driverSQLite
	}
	return driverPostgres
}

func (d driver) dialector(dsn string) gorm.Dialector {
	if d == driverSQLite {
		return sqlite.Open(dsn)
	}
	// Simple protocol keeps statements compatible with pgbouncer in
	// transaction mode.
	return postgres.New(postgres.Config{DSN: dsn, PreferSimpleProtocol: true})
}

type Client struct {
	conn *gorm.DB
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// New opens the pool described by cfg. Timestamps gorm fills are UTC.
func New(ctx context.Context, cfg config.DBConfig, logg *logger.Logger) (*Client, error) {
	if cfg.DSN == "" {
		return nil, errors.New("database DSN is required")
	}
	drv := driverOf(cfg)
	conn, err := gorm.Open(drv.dialector(cfg.DSN), &gorm.Config{
		Logger:                 newQueryLogger(logg, cfg.SlowQueryThreshold, cfg.LogSQL),
		SkipDefaultTransaction: true,
		NowFunc:                func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", drv, err)
	}
	client := &Client{conn: conn}
	sqlDB, err := client.SQL()
	if err != nil {
		return nil, err
	}
	configurePool(sqlDB, drv, cfg)

	if logg != nil {
		logg.Info(logg.WithField(ctx, "driver", string(drv)), "database connection established")
	}
	return client, nil
}

// Wrap adopts an already opened connection.
func Wrap(conn *gorm.DB) *Client {
	return &Client{conn: conn}
}

func configurePool(sqlDB *sql.DB, drv driver, cfg config.DBConfig) {
	if drv == driverSQLite {
		// A second connection to an in-memory sqlite database sees a
		// different database.
		sqlDB.SetMaxOpenConns(1)
		return
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.ConnMaxIdleTime > 0 {
		sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
}

func (c *Client) DB() *gorm.DB {
	return c.conn
}

// SQL returns the database/sql pool behind the gorm connection.
func (c *Client) SQL() (*sql.DB, error) {
	sqlDB, err := c.conn.DB()
	if err != nil {
		return nil, fmt.Errorf("sql handle: %w", err)
	}
	return sqlDB, nil
}

func (c *Client) Ping(ctx context.Context) error {
	sqlDB, err := c.SQL()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (c *Client) Close() error {
	sqlDB, err := c.SQL()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// WithTx runs fn in a transaction that commits when fn returns nil and
// rolls back on an error or panic.
func (c *Client) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return c.conn.WithContext(ctx).Transaction(fn)
}

// Package migrate applies the goose SQL migrations that define the Postgres
// schema, from disk or from the copy compiled into each binary.
package migrate

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/pressly/goose/v3"

	"github.com/angelmondragon/datavend-backend/pkg/logger"
)

const (
	DefaultDir  = "pkg/migrate/migrations"
	embeddedDir = "migrations"
)

//go:embed migrations/*.sql
var embedded embed.FS

// Source is a set of migration files.
type Source struct {
	name string
	fsys fs.FS
}

// Dir reads migrations from a directory on disk.
func Dir(path string) Source {
	return Source{name: path, fsys: os.DirFS(path)}
}

// Embedded returns the migrations compiled into the binary.
func Embedded() Source {
	sub, err := fs.Sub(embedded, embeddedDir)
	if err != nil {
		// embeddedDir is a literal matched by the go:embed pattern.
		panic(err)
	}
	return Source{name: "embedded", fsys: sub}
}

func (s Source) String() string { return s.name }

func open(db *sql.DB, src Source) (*goose.Provider, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	if src.fsys == nil {
		return nil, errors.New("migration source is required")
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, db, src.fsys)
	if err != nil {
		return nil, fmt.Errorf("open migrations %s: %w", src, err)
	}
	return provider, nil
}

// Run executes up, down or status against db.
func Run(ctx context.Context, db *sql.DB, src Source, command string, logg *logger.Logger) error {
	switch command {
	case "up", "down", "status":
	default:
		return fmt.Errorf("unsupported migrate command %q", command)
	}
	provider, err := open(db, src)
	if err != nil {
		return err
	}
	defer provider.Close()

	switch command {
	case "up":
		results, err := provider.Up(ctx)
		logResults(ctx, logg, results...)
		return wrap("up", err)
	case "down":
		result, err := provider.Down(ctx)
		if result != nil {
			logResults(ctx, logg, result)
		}
		return wrap("down", err)
	default:
		statuses, err := provider.Status(ctx)
		if err != nil || logg == nil {
			return wrap("status", err)
		}
		for _, st := range statuses {
			logg.Info(logg.WithFields(ctx, map[string]any{
				"version":    st.Source.Version,
				"path":       st.Source.Path,
				"state":      string(st.State),
				"applied_at": st.AppliedAt,
			}), "migrate.status")
		}
		return nil
	}
}

// ToVersion moves the schema up or down until version is the latest applied.
func ToVersion(ctx context.Context, db *sql.DB, src Source, version string, logg *logger.Logger) error {
	target, err := strconv.ParseInt(version, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS): %w", version, err)
	}
	provider, err := open(db, src)
	if err != nil {
		return err
	}
	defer provider.Close()

	current, err := provider.GetDBVersion(ctx)
	if err != nil {
		return wrap("get version", err)
	}
	var results []*goose.MigrationResult
	switch {
	case current < target:
		results, err = provider.UpTo(ctx, target)
	case current > target:
		results, err = provider.DownTo(ctx, target)
	}
	logResults(ctx, logg, results...)
	return wrap(fmt.Sprintf("migrate to %d", target), err)
}

func logResults(ctx context.Context, logg *logger.Logger, results ...*goose.MigrationResult) {
	if logg == nil {
		return
	}
	for _, res := range results {
		if res == nil || res.Source == nil {
			continue
		}
		logg.Info(logg.WithFields(ctx, map[string]any{
			"version":     res.Source.Version,
			"path":        res.Source.Path,
			"direction":   res.Direction,
			"duration_ms": res.Duration.Milliseconds(),
			"empty":       res.Empty,
		}), "migrate.applied")
	}
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("goose %s: %w", op, err)
}

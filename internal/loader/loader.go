package loader

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	_ "modernc.org/sqlite"

	"github.com/JoshuaAcosta/NYC-property-sales-etl/internal/config"
	apperrors "github.com/JoshuaAcosta/NYC-property-sales-etl/internal/errors"
	"github.com/JoshuaAcosta/NYC-property-sales-etl/internal/table"
	"github.com/JoshuaAcosta/NYC-property-sales-etl/pkg/contracts/domain"
)

// Driver names registered with database/sql.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"
)

var sqlOpen = sql.Open

// Loader replaces the contents of one table with the canonical rows.
type Loader struct {
	db     *sql.DB
	driver string
	table  string
	logger *slog.Logger
}

// Open connects to the database described by cfg and checks the connection.
func Open(ctx context.Context, cfg config.DBConfig, logger *slog.Logger) (*Loader, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sqlOpen(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, apperrors.NewFatalIOError("open "+cfg.Driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, apperrors.NewFatalIOError("ping "+cfg.Driver, err)
	}
	if cfg.Driver == DriverSQLite {
		// One writer at a time avoids SQLITE_BUSY inside the load transaction.
		db.SetMaxOpenConns(1)
	}
	return &Loader{db: db, driver: cfg.Driver, table: cfg.Table, logger: logger}, nil
}

// Close closes the database handle.
func (l *Loader) Close() error {
	return l.db.Close()
}

// Load creates the table when missing and replaces its rows with t in a single
// transaction. It returns the number of rows inserted.
func (l *Loader) Load(ctx context.Context, t *table.Table) (int, error) {
	t = t.Select(domain.CanonicalFields())
	start := time.Now()

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, apperrors.NewFatalIOError("begin load", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, createTableSQL(l.table)); err != nil {
		return 0, apperrors.NewFatalIOError("create table "+l.table, err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM "+l.table); err != nil {
		return 0, apperrors.NewFatalIOError("clear table "+l.table, err)
	}

	stmt, err := tx.PrepareContext(ctx, insertSQL(l.table))
	if err != nil {
		return 0, apperrors.NewFatalIOError("prepare insert", err)
	}
	defer stmt.Close()

	for i, r := range t.Rows() {
		if _, err := stmt.ExecContext(ctx, args(r)...); err != nil {
			return 0, apperrors.NewFatalIOError(fmt.Sprintf("insert row %d", i+1), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, apperrors.NewFatalIOError("commit load", err)
	}

	l.logger.InfoContext(ctx, "Loaded canonical rows",
		slog.String("driver", l.driver),
		slog.String("table", l.table),
		slog.Int("rows", t.Len()),
		slog.Duration("duration", time.Since(start)))
	return t.Len(), nil
}

// Count returns the number of rows in the table.
func (l *Loader) Count(ctx context.Context) (int, error) {
	var n int
	if err := l.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+l.table).Scan(&n); err != nil {
		return 0, apperrors.NewFatalIOError("count "+l.table, err)
	}
	return n, nil
}

func args(r table.Row) []any {
	out := make([]any, len(r))
	for i, v := range r {
		if d, ok := v.(time.Time); ok {
			out[i] = d.Format("2006-01-02")
			continue
		}
		out[i] = v
	}
	return out
}

func columnType(field string) string {
	switch field {
	case domain.FieldZipCode, domain.FieldResidentialUnits, domain.FieldCommercialUnits,
		domain.FieldTotalUnits, domain.FieldLandSquareFeet, domain.FieldGrossSquareFeet,
		domain.FieldYearBuilt:
		return "BIGINT"
	case domain.FieldSalePrice, domain.FieldDollarPerSquareFoot:
		return "DOUBLE PRECISION"
	case domain.FieldSaleDate:
		return "DATE NOT NULL"
	default:
		return "TEXT"
	}
}

// createTableSQL uses column types both SQLite and Postgres accept. The table
// name is validated as an identifier by config.
func createTableSQL(name string) string {
	fields := domain.CanonicalFields()
	defs := make([]string, len(fields))
	for i, f := range fields {
		defs[i] = f + " " + columnType(f)
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n)", name, strings.Join(defs, ",\n  "))
}

func insertSQL(name string) string {
	fields := domain.CanonicalFields()
	marks := make([]string, len(fields))
	for i := range fields {
		marks[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", name, strings.Join(fields, ", "), strings.Join(marks, ", "))
}

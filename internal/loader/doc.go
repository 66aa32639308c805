// Package loader writes the canonical table into a SQL database. SQLite
// (modernc.org/sqlite) and Postgres (pgx through database/sql) are supported;
// each load replaces the table contents in one transaction.
package loader

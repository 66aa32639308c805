// Package config loads the ETL configuration and resolves the staging layout.
//
// # Configuration Sources
//
// Values come from, in order of precedence:
//
//	1. Environment variables (highest priority)
//	2. An optional .env file (variables already set are not overridden)
//	3. Struct tag defaults (lowest priority)
//
// # Environment Variables
//
//	PARENT_DIR=/srv/nyc          (required)
//	SALES_URL=https://...        annualized sales listing page
//	SALES_SKIP_TABLE=1           leading listing tables to ignore
//	ROLLING_SALES_URL=https://...
//	FETCH_PARALLEL=4  FETCH_TIMEOUT=60s  FETCH_RATE=4  FETCH_POLICY=abort
//	LOG_LEVEL=info    LOG_OUTPUT=console LOG_FILE=...
//	PUBLISH_BUCKET=...           enables S3 publication
//	PUBLISH_DIR=...              copies outputs to a directory instead
//	DB_DRIVER=sqlite  DB_DSN=... DB_TABLE=property_sales
//
// # Staging Layout
//
// Paths hangs every directory off PARENT_DIR. Directories are created on demand
// and a creation failure is reported as a FATAL_IO error:
//
//	paths := cfg.Paths()
//	if err := paths.EnsureDirectories(); err != nil {
//	    return err
//	}
package config

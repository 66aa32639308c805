package config

import "time"

// Application constants for the property sales ETL.
const (
	AppName = "nyc-property-sales-etl"

	// Listing pages published by the NYC Department of Finance.
	DefaultSalesURL   = "https://www.nyc.gov/site/finance/property/property-annualized-sales-update.page"
	DefaultSkipTables = 1

	// Staging layout under PARENT_DIR
	DefaultDataDir    = "data"
	DefaultRawDir     = "raw"
	DefaultRollingDir = "rolling_sales"
	DefaultStageDir   = "stage"
	DefaultProdDir    = "prod"
	DefaultLogsDir    = "logs"

	// Well-known files
	DefaultOutputName = "nyc_property_sales.csv"
	RunReportFileName = "run_report.json"
	MetricsFileName   = "etl.prom"
	DefaultLogFile    = "etl.log"

	// Fetching
	DefaultFetchParallel = 4
	DefaultFetchTimeout  = 60 * time.Second
	DefaultFetchRate     = 4.0
	DefaultUserAgent     = "nyc-property-sales-etl/1.0"
	BrowserRenderTimeout = 90 * time.Second
)

// Fetch failure policies.
const (
	FetchPolicyAbort = "abort"
	FetchPolicySkip  = "skip"
)

// Listing retrieval modes.
const (
	ListingModeHTTP    = "http"
	ListingModeBrowser = "browser"
)

// Output formats for the sink.
const (
	OutputFormatCSV  = "csv"
	OutputFormatXLSX = "xlsx"
)

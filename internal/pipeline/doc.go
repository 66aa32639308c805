// Package pipeline runs the ETL end to end.
//
// A run has two phases. Fetch locates the spreadsheet links of every configured
// listing page and downloads them into the raw directory. Process normalizes
// the raw directory into stage files, cleans the concatenated stage table and
// writes the canonical output through the sink. Either phase can run alone;
// the scraper command only fetches and the processor command only processes
// unless asked to fetch first.
//
// Listing-page and directory failures abort the run. Files and rows that
// cannot be used are excluded and counted in the RunReport, which is written
// to the logs directory whether the run succeeded or not.
package pipeline

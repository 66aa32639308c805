// Package exporter writes and reads the CSV and XLSX files of a run.
//
// CSVWriter writes stage and canonical CSV files atomically: a file is built
// under a temporary name and renamed into place once complete, so readers
// never see a partial file. Sink renders the canonical table, formatting each
// cell the same way on every run so identical inputs give identical bytes.
// WriteXLSX streams an optional spreadsheet copy with excelize.
package exporter

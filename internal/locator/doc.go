// Package locator finds spreadsheet download links on a listing page.
//
// A listing page is retrieved through a PageSource, either a plain HTTP GET or a
// headless browser render, and its <table> elements are scanned in document
// order. Leading navigation tables are skipped, and every anchor whose path ends
// in a configured spreadsheet extension is resolved to an absolute URL.
package locator

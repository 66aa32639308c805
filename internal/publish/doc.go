// Package publish copies the files a run produced to an S3-compatible bucket
// or a local directory. Publication overwrites, so re-running a pipeline
// replaces the published copies.
package publish

// Package table provides the immutable in-flight table the cleaning pipeline
// passes from step to step.
//
// A Table never changes after construction: Map, Filter, Select, AddColumn and
// the other transformations build a new Table. Cells are nil for null, or one
// of string, int64, float64 and time.Time.
package table

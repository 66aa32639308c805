// Package cleaning turns the unified table produced by normalization into
// canonical property-sale rows.
//
// Cleaning is an ordered list of pure steps held in a Registry. Each step
// takes a table and returns a new one along with counts of what it removed,
// excluded or could not map. The correction tables the steps use (borough
// names, neighborhood codes, address fixes, building class spellings) are
// versioned YAML, embedded by default and replaceable at run time.
package cleaning

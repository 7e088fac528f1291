// Package normalize turns a header-located RawGrid into a TypedTable by running
// a catalog of named rules, each gated by an approval list.
//
// After every rule the package compares the table before and after the rule:
// row and column counts must not move, and null counts may only grow in
// columns that were converted to numbers. Converted columns are finally summed
// and compared with a sum parsed directly from the raw cells. Every outcome is
// recorded in an InvariantReport; nothing here aborts a run.
//
// Rules that are declared in the catalog but not approved are never invoked.
// Each one is logged and listed in the report's skipped rules.
package normalize

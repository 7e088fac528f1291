// Package reconcile verifies detail sheets against the P&L summary sheet and
// computes the headline P&L overview.
//
// Each declared check sums a measure column across one or more detail sheets
// and compares the result with the single summary row carrying the check's
// label. Differences up to and including the tolerance reconcile. A label that
// is missing or appears more than once never resolves to a value; the entry is
// kept as a discrepancy with no reference value.
package reconcile

// Package anomaly profiles the sign distribution of measure columns,
// classifies negative-value patterns, and compares P&L ratios with benchmarks.
//
// Classification has three tiers. A table whose negative values exceed the
// materiality share of its absolute total is Material. Otherwise it is
// Systematic when some category or subcategory exceeds the same share with
// more than one negative row, and Isolated when neither holds. Tables without
// negative rows are not classified at all.
//
// Benchmark ratios are looked up by label. A missing label falls back to a
// fixed constant; every fallback is logged and reported on the signal.
package anomaly

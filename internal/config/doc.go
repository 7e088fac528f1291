// Package config provides configuration management for plaudit.
// It handles loading configuration from multiple sources, validation, and
// the declarative sheet layout consumed by schema inference and normalization.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority)
//	2. YAML configuration file
//	3. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern PLAUDIT_<SECTION>_<KEY>:
//
//	PLAUDIT_INPUTS_PNL_WORKBOOK=data/pnl.xlsx
//	PLAUDIT_LOGGING_LEVEL=debug
//	PLAUDIT_ANALYSIS_TOLERANCE=0.01
//	PLAUDIT_NORMALIZATION_APPROVED_RULES=type_conversion,rename,preservation
//
// # Layout
//
// The layout is a list of sheet specs. A spec may pin the header row and the
// normalized column names; otherwise both are inferred from the grid:
//
//	layout:
//	  sheets:
//	    - name: "OPEX - NEmpl."
//	      source: pnl
//	      role: opex
//	      header_row: 1
//	      numeric_columns: ["2018_total"]
//	      measure_column: "2018_total"
//	      category_column: function_l2
//	      subcategory_column: department
//
// Sheets found in a workbook but absent from the layout are still ingested
// with inferred headers and no numeric conversions.
//
// # Thresholds
//
// The analysis thresholds (tolerance 0.01, materiality 10%, department flag
// floor 100,000, top 3 departments) and the benchmark fallback table are kept
// as named constants and can be overridden per run.
package config

// Package domain models site fueling schedules read from a published
// spreadsheet export.
//
// # Data Source
//
// Operators maintain the fueling plan in a shared spreadsheet that is
// published as CSV (Google Sheets "publish to web", output=csv). The sheet is
// edited by hand, so its shape drifts: columns get renamed ("Site Name" vs
// "siteName"), reordered, or left unnamed and referred to by their letter.
// Rows may be partial, dates may be typed in several formats, and coordinates
// are frequently missing.
//
// # Decoding
//
// The first non-empty line is the header. Fields are split on commas outside
// double quotes; one leading and one trailing quote is then stripped and the
// value is trimmed:
//
//	"Site, A",24.0,46.0,2025-01-01  →  [Site, A] [24.0] [46.0] [2025-01-01]
//
// Logical fields are looked up through an [AliasTable]: an ordered list of
// accepted header names (matched case-insensitively, ignoring spaces,
// underscores and dashes) and spreadsheet letters. The table is resolved once
// per decode pass into column indexes; per row the first non-empty candidate
// wins. Rows narrower than the highest resolved primary column are skipped.
//
// # Dates
//
// Schedule dates are parsed with ISO and common locale layouts first:
//
//	2025-01-01 | 2025-01-01T10:00:00Z | 2025/01/01 | 1/2/2025 | Jan 2, 2025 | 2 Jan 2025
//
// then with an MM-DD-YYYY fallback split on "-". Results are truncated to
// midnight in the configured location. Anything else is "no date".
//
// # Categories
//
// Each site lands in exactly one [Category], evaluated in order:
//
//	sheet status "overdue" or days overdue > 0  → due
//	no schedule date                           → unscheduled
//	date before today                          → due
//	date == today                              → today
//	today + 1                                  → tomorrow
//	today + 2 .. today + 3                     → comingIn3Days
//	later                                      → unscheduled (or comingIn3Days, see FarFuturePolicy)
//
// Day differences are calendar days, so DST transitions do not shift a site
// across buckets.
package domain

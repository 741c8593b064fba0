// Package degiro extracts tabular data from the DeGiro web trader.
//
// A data source is described by a Format: the endpoint to call for a given
// day, the parser for the raw response, the canonical column names and the
// Schema the final Table must satisfy. A Pipeline runs a Format through five
// stages, strictly in order:
//
//   - FetchRaw: one GET per calendar day of the requested range, in parallel,
//     decoded with the locale's character set. Failed days are collected, not
//     fatal.
//   - Reshape: each day's payload is parsed and stamped with that day,
//     localized to the configured timezone, then all days are concatenated in
//     ascending order.
//   - Rename: source column names are mapped to canonical names.
//   - Filter: rows matching an exclusion predicate are dropped.
//   - Validate: the table is checked against the Schema and every violation
//     is reported at once.
//
// GetTable composes the stages and never hides a failure: each stage fails
// with its own error type (FetchErrors, ParseError, SchemaValidationError,
// MisconfiguredSourceError) so a caller can tell an unreachable portal from a
// changed report format or a stale translation table.
//
// Sessions come from the session package; concrete sources live in the
// positions and transactions packages.
package degiro

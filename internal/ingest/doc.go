// Package ingest turns uploaded delimited text into validated SampleRecords.
//
// Parse(text, schema) is a pure function that never fails: structural
// problems (missing required columns, no data rows) and per-row problems
// (non-numeric or negative values) are reported as strings in
// ValidationResult.Errors. A row with any problem is excluded from Records;
// every other row proceeds independently.
//
// Encode writes records back in the same format so that Parse(Encode(r))
// reproduces r. WriteReport writes the analysed CSV report offered for
// download, and SampleCSV returns the built-in three-sample dataset.
package ingest

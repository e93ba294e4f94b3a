// Package types defines the shared Go types used by the ingest, compute and
// server packages. These are the canonical in-memory representations of
// groundwater samples and their derived pollution indices, separate from the
// JSON shapes served by the API.
package types

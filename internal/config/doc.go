// Package config loads config.yaml.
//
// The analysis section holds the ingestion schema and the index tables:
//   - RequiredColumns / NumericColumns / Delimiter: the upload schema
//   - HPI, HEI: per-metal weights and scale
//   - CD.References: background concentration per metal
//   - Bands: HPI category thresholds (default 100/100)
//   - ExtremeMetals: metals reported as highest/lowest
//
// The server section holds ports, API-key auth, batch retention, the
// WebSocket broadcast interval and alert rules. Secrets are read from the
// environment variables the file names (KeyEnv, URLEnv).
//
// Load(path) applies defaults before unmarshalling, then validates.
// Watch hot-reloads the file; only the analysis section is applied live.
package config

// Package store holds analysed batches in memory with TTL eviction.
package store

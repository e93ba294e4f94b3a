// Package api implements the REST API.
//
// Endpoints:
//
//	GET    /api/v1/health                       service status and counts
//	POST   /api/v1/upload                       analyse a CSV upload (multipart "file" or raw body)
//	GET    /api/v1/batches                      live batches, newest first
//	GET    /api/v1/batches/{id}                 results, summary and diagnostics
//	DELETE /api/v1/batches/{id}                 drop a batch
//	GET    /api/v1/batches/{id}/export          analysed CSV report
//	GET    /api/v1/batches/{id}/extremes?metal= highest and lowest reading of one metal
//	GET    /api/v1/summary                      totals across live batches
//	GET    /api/v1/sample                       template CSV download
//	POST   /api/v1/sample                       analyse the built-in dataset
//	GET    /api/v1/alerts                       firing and recently resolved alerts
//	GET    /api/v1/snapshot                     dashboard snapshot (also sent over WebSocket)
//	GET    /metrics                             Prometheus text exposition
package api

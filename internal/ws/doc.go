// Package ws implements the WebSocket hub that streams the dashboard
// snapshot to connected clients.
//
// New(store, alerts, interval) creates a Hub. Hub.Run(ctx) broadcasts every
// interval and whenever Notify is called, and closes all connections when ctx
// is cancelled. Hub.ServeHTTP sends the current snapshot immediately on
// connect.
//
// Message format sent to clients:
//
//	{
//	  "event": "snapshot",
//	  "data":  { /* same schema as GET /api/v1/snapshot */ }
//	}
//
// The server mounts the hub at /ws/stream.
package ws

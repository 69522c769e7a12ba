// Package timeouts defines shared timeout constants used by the kingdom
// server and its commands.
package timeouts

import "time"

// GRPCHealth caps the wait for a gRPC listener to report SERVING.
const GRPCHealth = 2 * time.Second

// ReadHeader limits how long an HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Request bounds a single HTTP or gRPC request handled by the kingdom.
const Request = 10 * time.Second

// FeedWrite bounds a single websocket write to a raid feed subscriber.
const FeedWrite = 5 * time.Second

// FeedPing is the interval between keepalive pings on a raid feed socket.
const FeedPing = 30 * time.Second

// Shutdown limits how long servers wait for in-flight requests during
// graceful shutdown.
const Shutdown = 5 * time.Second

// Package server provides the registry's HTTP server: Gin behind a
// ServeMux, served over HTTP/1.1 and h2c, with lifecycle management through
// the component package.
//
// # Middleware
//
// Server-level middleware (server/middleware) wraps every request:
//
//   - Recovery: panic recovery with structured logging
//   - RequestID: request ID generation and propagation
//   - VersionRewrite: serves /eureka/... as /eureka/v2/...
//   - CORS: cross-origin resource sharing
//   - BodySizeLimit: request body size limits
//   - RequestLogger: request logging with duration
//
// Route-level middleware runs inside Gin: Metrics records OTel request
// metrics and RateLimit guards the replication endpoint per peer.
//
// # Endpoints
//
// RegisterDefaultEndpoints adds /health, /health/live, /health/ready, /info
// and /metrics.
package server

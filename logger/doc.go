// Package logger provides structured logging for peerkit on top of zerolog.
//
// Loggers carry a service name and are usually narrowed per component:
//
//	log := logger.New(&cfg, "peer-registry").WithComponent("peers")
//	log.Info("peer added", logger.Fields(logger.FieldPeerURL, url))
//
// A process-wide logger is installed with Init and read with GetGlobalLogger.
package logger

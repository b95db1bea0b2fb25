// Package logging provides structured logging using uber/zap.
//
// Two modes are supported:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// Example Usage:
//
//	logger := logging.NewWithLevel("info", false)
//	logger.Info("Server starting", zap.String("port", "3000"))
//	logger.Error("Render failed", zap.Error(err))
package logging

// Package logging provides structured logging using uber/zap.
//
// Two modes are available:
//   - Production: JSON output on stderr, info level
//   - Development: colored console output, debug level
//
// Components take a named child logger so every line carries its origin:
//
//	logger := logging.NewDefault()
//	storeLog := logger.Named("store")
//	storeLog.Warn("store file unreadable, starting empty", zap.Error(err))
package logging

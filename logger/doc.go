// Package logger provides structured logging capabilities.
//
// The logger package builds the application's zap logger from the logging
// section of the configuration.
//
// Usage:
//
//	logger, err := logger.New("production", "info")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	logger.Info("container finished", zap.Int("exit_code", 0))
package logger

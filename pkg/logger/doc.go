// Package logger provides a structured logging interface for the dashboard
// sync engine.
//
// It wraps the zerolog library to provide a clean, easy-to-use API with support for:
// - Multiple log levels (Debug, Info, Warn, Error, Fatal)
// - Structured logging with fields
// - Pretty console output with colors
// - File output
// - Global logger instance for easy access
//
// Basic Usage:
//
//	import "igdash/pkg/logger"
//
//	// Initialize the global logger
//	cfg := &config.LoggingConfig{
//	    Level: "info",
//	    File: "/var/log/igdash.log",
//	}
//	err := logger.Initialize(cfg)
//	if err != nil {
//	    panic(err)
//	}
//
//	// Use the global logger
//	logger.GetLogger().Info("sync starting")
//
//	// Structured fields
//	logger.GetLogger().WithFields(map[string]interface{}{
//	    "posts":      30,
//	    "calls_used": 33,
//	}).Info("full sync completed")
//
// For tests, NewTestLogger captures messages in memory and NewNopLogger
// discards everything.
package logger

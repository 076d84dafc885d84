// Package logger provides a structured logging interface for the extraction
// pipeline.
//
// It wraps the zerolog library to provide a clean, easy-to-use API with support for:
// - Multiple log levels (Debug, Info, Warn, Error, Fatal)
// - Structured logging with fields
// - Pretty console output with colors
// - Optional file output alongside the console
// - Global logger instance for easy access
//
// Basic Usage:
//
//	import "dbextract/pkg/logger"
//
//	// Initialize the global logger
//	cfg := &config.LoggingConfig{
//	    Level: "info",
//	    File: "/var/log/dbextract.log",
//	}
//	err := logger.Initialize(cfg)
//
//	// Use the global logger
//	logger.Info("Extraction started")
//	logger.WithField("window_start", start).Info("Fetching window")
//	logger.WithError(err).Error("Failed to save output file")
//
// Advanced Usage:
//
//	// Create a logger instance with fields
//	log := logger.GetLogger().
//	    WithField("component", "extractor").
//	    WithField("run_id", "12345")
//
//	// Use structured logging
//	log.InfoWithFields("Window saved", map[string]interface{}{
//	    "path": "data_output/data_2024_01_15.csv",
//	    "rows": 1024,
//	    "duration": time.Second * 5,
//	})
package logger

// Package logger provides structured logging for the provisioner client
// using zerolog.
//
// # Configuration
//
//	logging:
//	  level: "debug"
//	  format: "json"
//
// # Usage
//
//	log := logger.Get("dispatcher")
//	log.Debug("request assembled", logger.Fields("uri", uri))
package logger

// Package log provides the logging abstraction used by the nodesub packages.
//
// The client and transport packages never write to stdout or stderr on their
// own. They log through a Logger supplied by the caller and fall back to a
// no-op logger otherwise.
//
// # Usage
//
// Wrap an existing zerolog logger:
//
//	logger := log.NewZerologAdapterWithLogger(zerolog.New(os.Stderr))
//
// Or discard everything, which is the default:
//
//	logger := log.NewNoopLogger()
//
// # Custom Loggers
//
// Any logging library can be plugged in by implementing Logger:
//
//	type MyLogger struct { ... }
//
//	func (l *MyLogger) Debug(msg string, fields ...log.Field) { ... }
//	func (l *MyLogger) Info(msg string, fields ...log.Field) { ... }
//	func (l *MyLogger) Warn(msg string, fields ...log.Field) { ... }
//	func (l *MyLogger) Error(msg string, fields ...log.Field) { ... }
package log

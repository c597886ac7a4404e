// Package log contains the Logger used by the whole exporter. The Logger is a
// wrapper around zap.SugaredLogger.
// There should be a single instance of the Logger per process, injected into
// anything that needs to report progress or warnings.
package log
